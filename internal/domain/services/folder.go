package services

import (
	"context"

	"atrium/internal/domain/models"
)

// FolderService handles folder business logic. Every operation runs the
// caller through the permission engine before touching storage.
type FolderService interface {
	// CreateFolder creates a folder in a space, under a parent folder, or in
	// the workspace library. An empty name defaults to "Untitled Folder".
	CreateFolder(ctx context.Context, userID string, req *CreateFolderRequest) (*models.Folder, error)

	// GetFolder retrieves a folder the caller can see.
	GetFolder(ctx context.Context, userID, folderID string) (*models.Folder, error)

	// ListChildren lists folders under a parent (nil = roots) in a workspace
	// or space context.
	ListChildren(ctx context.Context, userID string, req *ListChildrenRequest) ([]models.Folder, error)

	// RenameFolder renames a folder. Writer roles.
	RenameFolder(ctx context.Context, userID, folderID, name string) (*models.Folder, error)

	// DeleteFolder deletes a folder and its whole subtree. Writer roles.
	DeleteFolder(ctx context.Context, userID, folderID string) error

	// MoveFolder moves a folder to another folder, space, or the workspace
	// root. ADMIN on both ends, same workspace.
	MoveFolder(ctx context.Context, userID, folderID string, dest models.MoveDestination) (*models.Folder, error)

	// GetAncestors returns the breadcrumb chain root-first, ending with the
	// folder itself.
	GetAncestors(ctx context.Context, userID, workspaceID, folderID string) ([]models.Folder, error)

	// SearchFolders finds folders by name within a workspace.
	SearchFolders(ctx context.Context, userID, workspaceID, query string) ([]models.Folder, error)
}

// CreateFolderRequest represents a folder creation request. Exactly one
// placement is used: parent folder, space root, or workspace library.
type CreateFolderRequest struct {
	WorkspaceID    string  `json:"workspace_id"`
	SpaceID        *string `json:"space_id,omitempty"`
	ParentFolderID *string `json:"parent_folder_id,omitempty"`
	Name           string  `json:"name"`
}

// ListChildrenRequest scopes a folder listing.
type ListChildrenRequest struct {
	WorkspaceID    string  `json:"workspace_id"`
	SpaceID        *string `json:"space_id,omitempty"`
	ParentFolderID *string `json:"parent_folder_id,omitempty"`
}
