package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"atrium/internal/domain"
	"atrium/internal/domain/models"
	"atrium/internal/domain/repositories"
)

// PostgresInviteRepository implements the InviteRepository interface.
type PostgresInviteRepository struct {
	pool *pgxpool.Pool
}

func NewInviteRepository(config *RepositoryConfig) repositories.InviteRepository {
	return &PostgresInviteRepository{pool: config.Pool}
}

func (r *PostgresInviteRepository) Create(ctx context.Context, invite *models.Invite) error {
	query := `
		INSERT INTO invites (id, workspace_id, sender_id, receiver_id, receiver_email, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query,
		invite.ID,
		invite.WorkspaceID,
		invite.SenderID,
		invite.ReceiverID,
		invite.ReceiverEmail,
		invite.Status,
	).Scan(&invite.CreatedAt, &invite.UpdatedAt)

	if err != nil {
		if isPgDuplicateError(err) {
			// Partial unique index on (workspace_id, receiver_email) for
			// PENDING rows; a concurrent send lost the race.
			return &domain.ConflictError{
				Message:      "a pending invite already exists for this email",
				ResourceType: "invite",
				ResourceID:   invite.ID,
			}
		}
		if isPgForeignKeyError(err) {
			return fmt.Errorf("workspace %s: %w", invite.WorkspaceID, domain.ErrNotFound)
		}
		return fmt.Errorf("create invite: %w", err)
	}

	return nil
}

func (r *PostgresInviteRepository) GetByID(ctx context.Context, id string) (*models.Invite, error) {
	query := `
		SELECT id, workspace_id, sender_id, receiver_id, receiver_email, status, created_at, updated_at
		FROM invites
		WHERE id = $1
	`

	var invite models.Invite
	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&invite.ID,
		&invite.WorkspaceID,
		&invite.SenderID,
		&invite.ReceiverID,
		&invite.ReceiverEmail,
		&invite.Status,
		&invite.CreatedAt,
		&invite.UpdatedAt,
	)

	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("invite %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get invite: %w", err)
	}

	return &invite, nil
}

func (r *PostgresInviteRepository) FindPending(ctx context.Context, workspaceID, receiverEmail string) (*models.Invite, error) {
	query := `
		SELECT id, workspace_id, sender_id, receiver_id, receiver_email, status, created_at, updated_at
		FROM invites
		WHERE workspace_id = $1 AND receiver_email = $2 AND status = $3
	`

	var invite models.Invite
	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, workspaceID, receiverEmail, models.InvitePending).Scan(
		&invite.ID,
		&invite.WorkspaceID,
		&invite.SenderID,
		&invite.ReceiverID,
		&invite.ReceiverEmail,
		&invite.Status,
		&invite.CreatedAt,
		&invite.UpdatedAt,
	)

	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("pending invite for %s: %w", receiverEmail, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("find pending invite: %w", err)
	}

	return &invite, nil
}

func (r *PostgresInviteRepository) ListByReceiver(ctx context.Context, userID, email string) ([]models.Invite, error) {
	query := `
		SELECT id, workspace_id, sender_id, receiver_id, receiver_email, status, created_at, updated_at
		FROM invites
		WHERE receiver_id = $1 OR receiver_email = $2
		ORDER BY created_at DESC
	`

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, userID, email)
	if err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}
	defer rows.Close()

	var invites []models.Invite
	for rows.Next() {
		var i models.Invite
		err := rows.Scan(
			&i.ID,
			&i.WorkspaceID,
			&i.SenderID,
			&i.ReceiverID,
			&i.ReceiverEmail,
			&i.Status,
			&i.CreatedAt,
			&i.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan invite: %w", err)
		}
		invites = append(invites, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invites: %w", err)
	}

	return invites, nil
}

func (r *PostgresInviteRepository) UpdateStatus(ctx context.Context, id string, status models.InviteStatus) error {
	query := `
		UPDATE invites
		SET status = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update invite status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("invite %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

func (r *PostgresInviteRepository) ClaimByEmail(ctx context.Context, email, receiverID string) error {
	query := `
		UPDATE invites
		SET receiver_id = $1, updated_at = $2
		WHERE receiver_email = $3 AND receiver_id IS NULL
	`

	if _, err := GetExecutor(ctx, r.pool).Exec(ctx, query, receiverID, time.Now().UTC(), email); err != nil {
		return fmt.Errorf("claim invites by email: %w", err)
	}

	return nil
}
