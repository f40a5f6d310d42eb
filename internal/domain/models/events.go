package models

// Realtime event names, shared between services and subscribed clients.
const (
	EventWorkspaceCreated = "workspace:created"
	EventWorkspaceUpdated = "workspace:updated"
	EventWorkspaceDeleted = "workspace:deleted"
	EventFolderCreated    = "folder:created"
	EventFolderRenamed    = "folder:renamed"
	EventFolderDeleted    = "folder:deleted"
	EventFolderMoved      = "folder:moved"
	EventMemberRemoved    = "member:removed"
	EventRoleChanged      = "member:role-changed"
	EventSpaceCreated     = "space:created"
	EventSpaceRenamed     = "space:renamed"
	EventSpaceDeleted     = "space:deleted"
	EventInviteReceived   = "notification:invitation"
	EventInviteAnswered   = "invitation:answered"
)

// FolderEvent is the broadcast payload for folder mutations. It always
// carries post-commit state.
type FolderEvent struct {
	ID          string  `json:"id"`
	Name        string  `json:"name,omitempty"`
	WorkspaceID string  `json:"workspaceId"`
	SpaceID     *string `json:"spaceId,omitempty"`
}

// WorkspaceCreatedEvent is delivered via user-targeted emission, not room
// emission: the new workspace has no room members yet.
type WorkspaceCreatedEvent struct {
	WorkspaceID string `json:"workspaceId"`
	Name        string `json:"name"`
}

// WorkspaceEvent is the broadcast payload for workspace mutations.
type WorkspaceEvent struct {
	WorkspaceID string `json:"workspaceId"`
	Name        string `json:"name,omitempty"`
}

// SpaceEvent is the broadcast payload for space mutations.
type SpaceEvent struct {
	SpaceID     string `json:"spaceId"`
	WorkspaceID string `json:"workspaceId"`
	Name        string `json:"name,omitempty"`
}

// MemberEvent is the broadcast payload for membership changes.
type MemberEvent struct {
	MemberID    string `json:"memberId"`
	UserID      string `json:"userId"`
	WorkspaceID string `json:"workspaceId"`
	Role        Role   `json:"role,omitempty"`
}

// InviteEvent is the user-targeted payload for invitation activity.
type InviteEvent struct {
	InviteID    string       `json:"inviteId"`
	WorkspaceID string       `json:"workspaceId"`
	Status      InviteStatus `json:"status"`
}
