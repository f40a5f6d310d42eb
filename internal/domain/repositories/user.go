package repositories

import (
	"context"

	"atrium/internal/domain/models"
)

// UserRepository defines data access operations for users. Users are created
// by the provisioning consumer, not by API callers.
type UserRepository interface {
	// Upsert inserts the user or refreshes the display name.
	Upsert(ctx context.Context, user *models.User) error

	// GetByID returns the user or ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.User, error)

	// GetByEmail returns the user or ErrNotFound.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// SetSelectedWorkspace records the user's currently selected workspace.
	SetSelectedWorkspace(ctx context.Context, userID, workspaceID string) error

	// UpdateLimits applies subscription limits pushed by the billing service.
	UpdateLimits(ctx context.Context, userID string, maxWorkspaces, maxMembers int) error
}
