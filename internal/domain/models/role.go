package models

import "fmt"

// Role is a member's role within a workspace. The set is closed: every role
// comparison in the authorization layer goes through this type, never raw
// strings.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleEditor Role = "EDITOR"
	RoleViewer Role = "VIEWER"
)

// ParseRole converts a wire-level string into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleEditor, RoleViewer:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// In reports whether r is contained in allowed.
func (r Role) In(allowed ...Role) bool {
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}

// AllRoles is the role set for read operations open to any member.
func AllRoles() []Role { return []Role{RoleAdmin, RoleEditor, RoleViewer} }

// WriterRoles is the role set for mutating content operations.
func WriterRoles() []Role { return []Role{RoleAdmin, RoleEditor} }

// AdminOnly is the role set for destructive and administrative operations.
func AdminOnly() []Role { return []Role{RoleAdmin} }
