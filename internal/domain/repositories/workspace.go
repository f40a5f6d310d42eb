package repositories

import (
	"context"

	"atrium/internal/domain/models"
)

// WorkspaceRepository defines data access operations for workspaces.
type WorkspaceRepository interface {
	Create(ctx context.Context, workspace *models.Workspace) error

	// GetByID returns the workspace or ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.Workspace, error)

	// ListByUser returns workspaces the user owns or is a member of.
	ListByUser(ctx context.Context, userID string) ([]models.Workspace, error)

	// CountByOwner returns how many workspaces the user owns, for the
	// subscription limit check.
	CountByOwner(ctx context.Context, ownerID string) (int, error)

	// IsOwner reports whether userID is the workspace's owner field.
	IsOwner(ctx context.Context, workspaceID, userID string) (bool, error)

	Update(ctx context.Context, workspace *models.Workspace) error
	Delete(ctx context.Context, id string) error
}

// SpaceRepository defines data access operations for spaces.
type SpaceRepository interface {
	Create(ctx context.Context, space *models.Space) error

	// GetByID returns the space or ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.Space, error)

	// ListByWorkspaceForUser returns the workspace's spaces the user has been
	// granted access to.
	ListByWorkspaceForUser(ctx context.Context, workspaceID, userID string) ([]models.Space, error)

	Update(ctx context.Context, space *models.Space) error
	Delete(ctx context.Context, id string) error
}
