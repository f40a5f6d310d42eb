package repositories

import (
	"context"

	"atrium/internal/domain/models"
)

// MemberRepository is the membership store: the single source of role truth.
type MemberRepository interface {
	// Create inserts a member record. Fails with a conflict if the
	// (user, workspace) pair already exists.
	Create(ctx context.Context, member *models.Member) error

	// FindByWorkspaceAndUser returns the member record for (workspace, user),
	// or ErrNotFound.
	FindByWorkspaceAndUser(ctx context.Context, workspaceID, userID string) (*models.Member, error)

	// FindWithSpaceAccess returns the member record for (workspace, user) only
	// if its space-id set contains spaceID, or ErrNotFound.
	FindWithSpaceAccess(ctx context.Context, workspaceID, userID, spaceID string) (*models.Member, error)

	// GetByID retrieves a member by its record id, scoped to a workspace.
	GetByID(ctx context.Context, memberID, workspaceID string) (*models.Member, error)

	// ListByWorkspace returns all members of a workspace joined with user
	// display fields.
	ListByWorkspace(ctx context.Context, workspaceID string) ([]models.MemberInfo, error)

	// ListBySpace returns all members granted the given space.
	ListBySpace(ctx context.Context, spaceID string) ([]models.MemberInfo, error)

	// CountByWorkspace returns the number of members in a workspace.
	CountByWorkspace(ctx context.Context, workspaceID string) (int, error)

	// UpdateRole conditionally updates a member's role keyed on the current
	// role (compare-and-swap against the stale-permission race). Returns
	// ErrNotFound when the member no longer holds expectedRole.
	UpdateRole(ctx context.Context, memberID string, expectedRole, newRole models.Role) error

	// GrantSpace appends spaceID to the space-id sets of every listed member
	// of the workspace. Members already holding the space are left untouched.
	GrantSpace(ctx context.Context, workspaceID string, userIDs []string, spaceID string) error

	// RevokeSpace removes spaceID from the member's space-id set.
	RevokeSpace(ctx context.Context, memberID, spaceID string) error

	// Delete removes a member record.
	Delete(ctx context.Context, memberID string) error

	// Search finds workspace members whose name or email matches the query,
	// excluding the requesting user, optionally excluding members already
	// granted spaceID.
	Search(ctx context.Context, workspaceID, query, excludeUserID string, excludeSpaceID *string, limit int) ([]models.MemberInfo, error)
}
