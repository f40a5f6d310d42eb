package repositories

import (
	"context"

	"atrium/internal/domain/models"
)

// InviteRepository defines data access operations for invitations. Invites
// are never deleted; terminal statuses are the audit trail.
type InviteRepository interface {
	Create(ctx context.Context, invite *models.Invite) error

	// GetByID returns the invite or ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.Invite, error)

	// FindPending returns the PENDING invite for (workspace, receiver email),
	// or ErrNotFound. Guards invite idempotence.
	FindPending(ctx context.Context, workspaceID, receiverEmail string) (*models.Invite, error)

	// ListByReceiver returns invites addressed to the user id or email.
	ListByReceiver(ctx context.Context, userID, email string) ([]models.Invite, error)

	// UpdateStatus moves the invite to a terminal status.
	UpdateStatus(ctx context.Context, id string, status models.InviteStatus) error

	// ClaimByEmail sets the receiver id on every pending invite addressed to
	// the email, used when the invited address registers.
	ClaimByEmail(ctx context.Context, email, receiverID string) error
}
