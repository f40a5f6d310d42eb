package models

import "time"

// Member joins a user to a workspace with a role and a set of spaces the user
// has been explicitly granted access to. (UserID, WorkspaceID) is unique; a
// user with no member record has no access to the workspace at all.
type Member struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	WorkspaceID string    `json:"workspace_id" db:"workspace_id"`
	Role        Role      `json:"role" db:"role"`
	SpaceIDs    []string  `json:"space_ids" db:"space_ids"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// HasSpaceAccess reports whether the member has been granted the given space.
func (m *Member) HasSpaceAccess(spaceID string) bool {
	for _, id := range m.SpaceIDs {
		if id == spaceID {
			return true
		}
	}
	return false
}

// MemberInfo is a member joined with the user's display fields, returned by
// listing and search endpoints.
type MemberInfo struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
