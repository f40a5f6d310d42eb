package models

import "time"

// WorkspaceType distinguishes the auto-created personal workspace from
// explicitly created ones.
type WorkspaceType string

const (
	WorkspacePersonal WorkspaceType = "PERSONAL"
	WorkspacePublic   WorkspaceType = "PUBLIC"
)

// Workspace is the top-level tenant container. OwnerID names exactly one user;
// the owner also holds an ADMIN member record, written in the same transaction
// that creates the workspace.
type Workspace struct {
	ID        string        `json:"id" db:"id"`
	Name      string        `json:"name" db:"name"`
	OwnerID   string        `json:"owner_id" db:"owner_id"`
	Type      WorkspaceType `json:"type" db:"type"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
}

// SpaceType distinguishes the workspace's default space from user-created ones.
type SpaceType string

const (
	SpaceDefault SpaceType = "DEFAULT"
	SpaceCustom  SpaceType = "CUSTOM"
)

// Space is a sub-container of exactly one workspace. Access is per-member
// explicit grant (Member.SpaceIDs).
type Space struct {
	ID          string    `json:"id" db:"id"`
	WorkspaceID string    `json:"workspace_id" db:"workspace_id"`
	Name        string    `json:"name" db:"name"`
	Type        SpaceType `json:"type" db:"type"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
