package services

import (
	"context"

	"atrium/internal/domain/models"
)

// SpaceService handles space lifecycle and per-space member grants.
type SpaceService interface {
	// CreateSpace creates a space and grants it to the creator plus the
	// listed members, all in one transaction. Workspace ADMIN only.
	CreateSpace(ctx context.Context, userID string, req *CreateSpaceRequest) (*models.Space, error)

	// GetSpace retrieves a space the caller has been granted.
	GetSpace(ctx context.Context, userID, spaceID string) (*models.Space, error)

	// ListSpaces lists the workspace's spaces the caller has been granted.
	ListSpaces(ctx context.Context, userID, workspaceID string) ([]models.Space, error)

	// RenameSpace renames a space. ADMIN with access to the space.
	RenameSpace(ctx context.Context, userID, spaceID, name string) error

	// DeleteSpace deletes a space and its folders. ADMIN with access.
	DeleteSpace(ctx context.Context, userID, spaceID string) error

	// ListSpaceMembers lists members granted the space.
	ListSpaceMembers(ctx context.Context, userID, spaceID string) ([]models.MemberInfo, error)

	// AddMembers grants the space to existing workspace members.
	AddMembers(ctx context.Context, userID, spaceID string, memberUserIDs []string) error

	// RemoveMember revokes the space from a member. The workspace owner
	// cannot be removed from a space.
	RemoveMember(ctx context.Context, userID, spaceID, memberID string) error
}

// CreateSpaceRequest represents a space creation request.
type CreateSpaceRequest struct {
	WorkspaceID   string   `json:"workspace_id"`
	Name          string   `json:"name"`
	MemberUserIDs []string `json:"member_user_ids,omitempty"`
}
