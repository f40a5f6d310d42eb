package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"atrium/internal/domain"
	"atrium/internal/domain/models"
	"atrium/internal/domain/repositories"
)

// PostgresSpaceRepository implements the SpaceRepository interface.
type PostgresSpaceRepository struct {
	pool *pgxpool.Pool
}

func NewSpaceRepository(config *RepositoryConfig) repositories.SpaceRepository {
	return &PostgresSpaceRepository{pool: config.Pool}
}

func (r *PostgresSpaceRepository) Create(ctx context.Context, space *models.Space) error {
	query := `
		INSERT INTO spaces (id, workspace_id, name, type)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query,
		space.ID,
		space.WorkspaceID,
		space.Name,
		space.Type,
	).Scan(&space.CreatedAt)

	if err != nil {
		if isPgForeignKeyError(err) {
			return fmt.Errorf("workspace %s: %w", space.WorkspaceID, domain.ErrNotFound)
		}
		return fmt.Errorf("create space: %w", err)
	}

	return nil
}

func (r *PostgresSpaceRepository) GetByID(ctx context.Context, id string) (*models.Space, error) {
	query := `
		SELECT id, workspace_id, name, type, created_at
		FROM spaces
		WHERE id = $1
	`

	var space models.Space
	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&space.ID,
		&space.WorkspaceID,
		&space.Name,
		&space.Type,
		&space.CreatedAt,
	)

	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("space %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get space: %w", err)
	}

	return &space, nil
}

func (r *PostgresSpaceRepository) ListByWorkspaceForUser(ctx context.Context, workspaceID, userID string) ([]models.Space, error) {
	// Space access is the member's granted space-id set, not workspace-wide.
	query := `
		SELECT s.id, s.workspace_id, s.name, s.type, s.created_at
		FROM spaces s
		JOIN members m ON m.workspace_id = s.workspace_id
		WHERE s.workspace_id = $1
		  AND m.user_id = $2
		  AND s.id = ANY(m.space_ids)
		ORDER BY s.created_at ASC
	`

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, workspaceID, userID)
	if err != nil {
		return nil, fmt.Errorf("list spaces: %w", err)
	}
	defer rows.Close()

	var spaces []models.Space
	for rows.Next() {
		var s models.Space
		if err := rows.Scan(&s.ID, &s.WorkspaceID, &s.Name, &s.Type, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan space: %w", err)
		}
		spaces = append(spaces, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate spaces: %w", err)
	}

	return spaces, nil
}

func (r *PostgresSpaceRepository) Update(ctx context.Context, space *models.Space) error {
	query := `
		UPDATE spaces
		SET name = $1
		WHERE id = $2
	`

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, space.Name, space.ID)
	if err != nil {
		return fmt.Errorf("update space: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("space %s: %w", space.ID, domain.ErrNotFound)
	}

	return nil
}

func (r *PostgresSpaceRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM spaces WHERE id = $1`

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete space: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("space %s: %w", id, domain.ErrNotFound)
	}

	return nil
}
