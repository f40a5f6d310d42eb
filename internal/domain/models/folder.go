package models

import "time"

// Folder is a hierarchical content node. A folder with a nil SpaceID is part
// of the member's workspace-scoped library. At most one of ParentFolderID and
// SpaceID is meaningfully set at a time; moves clear the other pointer.
type Folder struct {
	ID             string    `json:"id" db:"id"`
	WorkspaceID    string    `json:"workspace_id" db:"workspace_id"`
	SpaceID        *string   `json:"space_id,omitempty" db:"space_id"`
	ParentFolderID *string   `json:"parent_folder_id,omitempty" db:"parent_folder_id"`
	Name           string    `json:"name" db:"name"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// FolderRef is the identifying slice of a folder used by permission checks:
// enough to locate the owning workspace/space without loading the rest.
type FolderRef struct {
	ID          string  `json:"id"`
	WorkspaceID string  `json:"workspace_id"`
	SpaceID     *string `json:"space_id,omitempty"`
}

// MoveDestinationType enumerates the legal targets of a folder move.
type MoveDestinationType string

const (
	MoveToFolder    MoveDestinationType = "folder"
	MoveToSpace     MoveDestinationType = "space"
	MoveToWorkspace MoveDestinationType = "workspace"
)

// MoveDestination names where a folder should be moved.
type MoveDestination struct {
	Type MoveDestinationType `json:"type"`
	ID   string              `json:"id"`
}
