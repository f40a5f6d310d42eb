package authz

import (
	"context"
	"errors"
	"fmt"

	"atrium/internal/domain"
	"atrium/internal/domain/models"
)

// Context identifies where a permission question is being asked: a workspace,
// a space, or both. Empty strings mean absent.
type Context struct {
	WorkspaceID string
	SpaceID     string
}

func (c Context) empty() bool {
	return c.WorkspaceID == "" && c.SpaceID == ""
}

// Resolver computes a user's effective role for a context. It is a pure
// function of current store state: no caching, no side effects.
type Resolver struct {
	members MembershipStore
	spaces  SpaceStore
}

// NewResolver creates a role resolver backed by the membership store.
func NewResolver(members MembershipStore, spaces SpaceStore) *Resolver {
	return &Resolver{members: members, spaces: spaces}
}

// Resolve returns the user's role in the given context.
//
// With both workspace and space set, the member must additionally be
// provisioned into the space; a workspace member outside the space has no
// role there, admin or not. With only a space, the owning workspace is looked
// up first. Absence of membership is ErrNotFound - callers that need to
// distinguish "insufficient role" get ErrForbidden from the Guard instead.
func (r *Resolver) Resolve(ctx context.Context, userID string, c Context) (models.Role, error) {
	switch {
	case c.WorkspaceID != "" && c.SpaceID != "":
		member, err := r.members.FindWithSpaceAccess(ctx, c.WorkspaceID, userID, c.SpaceID)
		if err != nil {
			return "", notAMember(err)
		}
		return member.Role, nil

	case c.WorkspaceID != "":
		member, err := r.members.FindByWorkspaceAndUser(ctx, c.WorkspaceID, userID)
		if err != nil {
			return "", notAMember(err)
		}
		return member.Role, nil

	case c.SpaceID != "":
		space, err := r.spaces.GetByID(ctx, c.SpaceID)
		if err != nil {
			return "", err
		}
		member, err := r.members.FindWithSpaceAccess(ctx, space.WorkspaceID, userID, c.SpaceID)
		if err != nil {
			return "", notAMember(err)
		}
		return member.Role, nil

	default:
		return "", fmt.Errorf("%w: workspace or space id required", domain.ErrValidation)
	}
}

// notAMember normalizes store-level absence into the uniform membership
// failure. Store errors other than ErrNotFound pass through unchanged.
func notAMember(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("user is not a member of the workspace or space: %w", domain.ErrNotFound)
	}
	return err
}
