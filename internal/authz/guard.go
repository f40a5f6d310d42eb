package authz

import (
	"context"
	"fmt"

	"atrium/internal/domain"
	"atrium/internal/domain/models"
)

// Guard turns role resolution into pass/fail checks against a required-role
// set. It performs no side effects; it is a predicate over store reads.
type Guard struct {
	resolver *Resolver
}

// NewGuard creates an authorization guard over the given resolver.
func NewGuard(resolver *Resolver) *Guard {
	return &Guard{resolver: resolver}
}

// Require succeeds iff the user's resolved role in the context is one of
// allowed, returning that role. No membership at all fails with ErrNotFound;
// membership with an insufficient role fails with ErrForbidden. The two are
// deliberately distinct: absence must not confirm the resource's existence.
func (g *Guard) Require(ctx context.Context, userID string, c Context, allowed ...models.Role) (models.Role, error) {
	role, err := g.resolver.Resolve(ctx, userID, c)
	if err != nil {
		return "", err
	}

	if !role.In(allowed...) {
		return "", fmt.Errorf("%w: you do not have permission to perform this action", domain.ErrForbidden)
	}

	return role, nil
}

// Member succeeds iff the user has any role in the context, independent of
// which. Used for read paths where any member may proceed.
func (g *Guard) Member(ctx context.Context, userID string, c Context) error {
	_, err := g.resolver.Resolve(ctx, userID, c)
	return err
}
