package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"atrium/internal/domain"
	"atrium/internal/domain/models"
	"atrium/internal/domain/repositories"
)

// PostgresUserRepository implements the UserRepository interface.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(config *RepositoryConfig) repositories.UserRepository {
	return &PostgresUserRepository{pool: config.Pool}
}

// Upsert inserts the user or refreshes the display name. Provisioning events
// are redelivered at-least-once, so a second delivery must not fail.
func (r *PostgresUserRepository) Upsert(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, name, email, max_workspaces, max_members)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
		RETURNING created_at
	`

	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.MaxWorkspaces,
		user.MaxMembers,
	).Scan(&user.CreatedAt)

	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}

	return nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, name, email, max_workspaces, max_members, selected_workspace_id, created_at
		FROM users
		WHERE id = $1
	`

	return r.scanOne(ctx, query, id)
}

func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, name, email, max_workspaces, max_members, selected_workspace_id, created_at
		FROM users
		WHERE email = $1
	`

	return r.scanOne(ctx, query, email)
}

func (r *PostgresUserRepository) SetSelectedWorkspace(ctx context.Context, userID, workspaceID string) error {
	query := `
		UPDATE users
		SET selected_workspace_id = $1
		WHERE id = $2
	`

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, workspaceID, userID)
	if err != nil {
		return fmt.Errorf("set selected workspace: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}

	return nil
}

func (r *PostgresUserRepository) UpdateLimits(ctx context.Context, userID string, maxWorkspaces, maxMembers int) error {
	query := `
		UPDATE users
		SET max_workspaces = $1, max_members = $2
		WHERE id = $3
	`

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, maxWorkspaces, maxMembers, userID)
	if err != nil {
		return fmt.Errorf("update user limits: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}

	return nil
}

func (r *PostgresUserRepository) scanOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.MaxWorkspaces,
		&user.MaxMembers,
		&user.SelectedWorkspaceID,
		&user.CreatedAt,
	)

	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("user: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &user, nil
}
