package repositories

import (
	"context"

	"atrium/internal/domain/models"
)

// FolderRepository defines data access operations for folders.
type FolderRepository interface {
	Create(ctx context.Context, folder *models.Folder) error

	// GetByID returns the folder or ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.Folder, error)

	// GetRef returns only the identity fields used by permission checks.
	GetRef(ctx context.Context, id string) (*models.FolderRef, error)

	// ListChildren lists folders under the given parent (nil = roots) within
	// a workspace and optional space, newest first.
	ListChildren(ctx context.Context, workspaceID string, parentFolderID, spaceID *string) ([]models.Folder, error)

	// Rename updates the folder's name.
	Rename(ctx context.Context, id, name string) error

	// Move reassigns the folder's parent/space pointers. Exactly one of
	// parentFolderID and spaceID may be non-nil; both nil moves the folder to
	// the workspace root.
	Move(ctx context.Context, id string, parentFolderID, spaceID *string) error

	// DeleteTree removes the folder and all its descendants. Callers run this
	// inside a transaction so parent and children go together.
	DeleteTree(ctx context.Context, id string) error

	// Search finds folders by name within a workspace.
	Search(ctx context.Context, workspaceID, query string, limit int) ([]models.Folder, error)
}
