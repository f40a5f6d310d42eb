package services

import (
	"context"

	"atrium/internal/domain/models"
)

// WorkspaceService handles workspace lifecycle and membership administration.
type WorkspaceService interface {
	// CreateWorkspace creates a workspace owned by the caller. The owner's
	// ADMIN member record is written in the same transaction.
	CreateWorkspace(ctx context.Context, userID string, req *CreateWorkspaceRequest) (*models.Workspace, error)

	// GetWorkspace retrieves a workspace the caller is a member of.
	GetWorkspace(ctx context.Context, userID, workspaceID string) (*models.Workspace, error)

	// ListWorkspaces lists the workspaces the caller belongs to.
	ListWorkspaces(ctx context.Context, userID string) ([]models.Workspace, error)

	// UpdateWorkspace renames a workspace. Owner only.
	UpdateWorkspace(ctx context.Context, userID, workspaceID string, req *UpdateWorkspaceRequest) (*models.Workspace, error)

	// DeleteWorkspace deletes a workspace and everything under it. Owner only.
	DeleteWorkspace(ctx context.Context, userID, workspaceID string) error

	// SelectWorkspace records the caller's active workspace.
	SelectWorkspace(ctx context.Context, userID, workspaceID string) error

	// ListMembers lists workspace members with display fields.
	ListMembers(ctx context.Context, userID, workspaceID string) ([]models.MemberInfo, error)

	// SearchMembers finds members by name or email, excluding the caller and
	// optionally members already granted a space.
	SearchMembers(ctx context.Context, userID, workspaceID string, req *SearchMembersRequest) ([]models.MemberInfo, error)

	// UpdateMemberRole changes another member's role. ADMIN only; the role
	// of the workspace owner can only be touched by the owner themselves.
	UpdateMemberRole(ctx context.Context, userID, workspaceID, memberID string, req *UpdateMemberRoleRequest) error

	// RemoveMember removes a member from the workspace. ADMIN only; the
	// owner cannot be removed.
	RemoveMember(ctx context.Context, userID, workspaceID, memberID string) error
}

// CreateWorkspaceRequest represents a workspace creation request.
type CreateWorkspaceRequest struct {
	Name string `json:"name"`
}

// UpdateWorkspaceRequest represents a workspace rename request.
type UpdateWorkspaceRequest struct {
	Name string `json:"name"`
}

// SearchMembersRequest narrows a member search.
type SearchMembersRequest struct {
	Query          string  `json:"query"`
	ExcludeSpaceID *string `json:"exclude_space_id,omitempty"`
	Limit          int     `json:"limit"`
}

// UpdateMemberRoleRequest carries the role transition. CurrentRole is what
// the caller last saw; a mismatch means someone changed it concurrently.
type UpdateMemberRoleRequest struct {
	CurrentRole models.Role `json:"current_role"`
	NewRole     models.Role `json:"new_role"`
}
