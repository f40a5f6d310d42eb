package models

import "time"

// User is created by the account service (user.verified event) and referenced
// everywhere; this service never deletes users.
type User struct {
	ID                  string    `json:"id" db:"id"`
	Name                string    `json:"name" db:"name"`
	Email               string    `json:"email" db:"email"`
	MaxWorkspaces       int       `json:"max_workspaces" db:"max_workspaces"`
	MaxMembers          int       `json:"max_members" db:"max_members"`
	SelectedWorkspaceID *string   `json:"selected_workspace_id,omitempty" db:"selected_workspace_id"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
}
