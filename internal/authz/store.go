package authz

import (
	"context"

	"atrium/internal/domain/models"
)

// The authorization layer reads the store through these narrow views rather
// than the full repository interfaces; it never writes.

// MembershipStore is the slice of the member store the resolver needs.
type MembershipStore interface {
	// FindByWorkspaceAndUser returns the member record for (workspace, user),
	// or ErrNotFound.
	FindByWorkspaceAndUser(ctx context.Context, workspaceID, userID string) (*models.Member, error)

	// FindWithSpaceAccess returns the member record only if its space-id set
	// contains spaceID, or ErrNotFound.
	FindWithSpaceAccess(ctx context.Context, workspaceID, userID, spaceID string) (*models.Member, error)
}

// SpaceStore resolves a space to its owning workspace.
type SpaceStore interface {
	GetByID(ctx context.Context, id string) (*models.Space, error)
}

// FolderStore resolves folders and their identity fields.
type FolderStore interface {
	GetByID(ctx context.Context, id string) (*models.Folder, error)
	GetRef(ctx context.Context, id string) (*models.FolderRef, error)
}
