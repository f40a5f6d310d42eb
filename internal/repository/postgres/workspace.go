package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"atrium/internal/domain"
	"atrium/internal/domain/models"
	"atrium/internal/domain/repositories"
)

// PostgresWorkspaceRepository implements the WorkspaceRepository interface.
type PostgresWorkspaceRepository struct {
	pool *pgxpool.Pool
}

func NewWorkspaceRepository(config *RepositoryConfig) repositories.WorkspaceRepository {
	return &PostgresWorkspaceRepository{pool: config.Pool}
}

func (r *PostgresWorkspaceRepository) Create(ctx context.Context, workspace *models.Workspace) error {
	query := `
		INSERT INTO workspaces (id, name, owner_id, type)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query,
		workspace.ID,
		workspace.Name,
		workspace.OwnerID,
		workspace.Type,
	).Scan(&workspace.CreatedAt)

	if err != nil {
		if isPgDuplicateError(err) {
			return fmt.Errorf("workspace '%s': %w", workspace.Name, domain.ErrConflict)
		}
		return fmt.Errorf("create workspace: %w", err)
	}

	return nil
}

func (r *PostgresWorkspaceRepository) GetByID(ctx context.Context, id string) (*models.Workspace, error) {
	query := `
		SELECT id, name, owner_id, type, created_at
		FROM workspaces
		WHERE id = $1
	`

	var workspace models.Workspace
	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&workspace.ID,
		&workspace.Name,
		&workspace.OwnerID,
		&workspace.Type,
		&workspace.CreatedAt,
	)

	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("workspace %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get workspace: %w", err)
	}

	return &workspace, nil
}

func (r *PostgresWorkspaceRepository) ListByUser(ctx context.Context, userID string) ([]models.Workspace, error) {
	query := `
		SELECT w.id, w.name, w.owner_id, w.type, w.created_at
		FROM workspaces w
		JOIN members m ON m.workspace_id = w.id
		WHERE m.user_id = $1
		ORDER BY w.created_at ASC
	`

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	defer rows.Close()

	return scanWorkspaces(rows)
}

func (r *PostgresWorkspaceRepository) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	query := `SELECT COUNT(*) FROM workspaces WHERE owner_id = $1`

	var count int
	if err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, ownerID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count workspaces: %w", err)
	}
	return count, nil
}

func (r *PostgresWorkspaceRepository) IsOwner(ctx context.Context, workspaceID, userID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM workspaces WHERE id = $1 AND owner_id = $2)`

	var isOwner bool
	if err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, workspaceID, userID).Scan(&isOwner); err != nil {
		return false, fmt.Errorf("check workspace owner: %w", err)
	}
	return isOwner, nil
}

func (r *PostgresWorkspaceRepository) Update(ctx context.Context, workspace *models.Workspace) error {
	query := `
		UPDATE workspaces
		SET name = $1
		WHERE id = $2
	`

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, workspace.Name, workspace.ID)
	if err != nil {
		return fmt.Errorf("update workspace: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("workspace %s: %w", workspace.ID, domain.ErrNotFound)
	}

	return nil
}

func (r *PostgresWorkspaceRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM workspaces WHERE id = $1`

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete workspace: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("workspace %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

func scanWorkspaces(rows pgx.Rows) ([]models.Workspace, error) {
	var workspaces []models.Workspace
	for rows.Next() {
		var w models.Workspace
		if err := rows.Scan(&w.ID, &w.Name, &w.OwnerID, &w.Type, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan workspace: %w", err)
		}
		workspaces = append(workspaces, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workspaces: %w", err)
	}
	return workspaces, nil
}
