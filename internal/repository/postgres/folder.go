package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"atrium/internal/domain"
	"atrium/internal/domain/models"
	"atrium/internal/domain/repositories"
)

// PostgresFolderRepository implements the FolderRepository interface.
type PostgresFolderRepository struct {
	pool *pgxpool.Pool
}

func NewFolderRepository(config *RepositoryConfig) repositories.FolderRepository {
	return &PostgresFolderRepository{pool: config.Pool}
}

func (r *PostgresFolderRepository) Create(ctx context.Context, folder *models.Folder) error {
	query := `
		INSERT INTO folders (id, workspace_id, space_id, parent_folder_id, name)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query,
		folder.ID,
		folder.WorkspaceID,
		folder.SpaceID,
		folder.ParentFolderID,
		folder.Name,
	).Scan(&folder.CreatedAt, &folder.UpdatedAt)

	if err != nil {
		if isPgForeignKeyError(err) {
			return fmt.Errorf("folder parent or space: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("create folder: %w", err)
	}

	return nil
}

func (r *PostgresFolderRepository) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	query := `
		SELECT id, workspace_id, space_id, parent_folder_id, name, created_at, updated_at
		FROM folders
		WHERE id = $1
	`

	var folder models.Folder
	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&folder.ID,
		&folder.WorkspaceID,
		&folder.SpaceID,
		&folder.ParentFolderID,
		&folder.Name,
		&folder.CreatedAt,
		&folder.UpdatedAt,
	)

	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get folder: %w", err)
	}

	return &folder, nil
}

func (r *PostgresFolderRepository) GetRef(ctx context.Context, id string) (*models.FolderRef, error) {
	query := `
		SELECT id, workspace_id, space_id
		FROM folders
		WHERE id = $1
	`

	var ref models.FolderRef
	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&ref.ID,
		&ref.WorkspaceID,
		&ref.SpaceID,
	)

	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get folder ref: %w", err)
	}

	return &ref, nil
}

func (r *PostgresFolderRepository) ListChildren(ctx context.Context, workspaceID string, parentFolderID, spaceID *string) ([]models.Folder, error) {
	// parent/space predicates must distinguish NULL from a concrete id:
	// root listings ask for parent IS NULL, not parent = anything.
	query := `
		SELECT id, workspace_id, space_id, parent_folder_id, name, created_at, updated_at
		FROM folders
		WHERE workspace_id = $1
		  AND parent_folder_id IS NOT DISTINCT FROM $2
		  AND space_id IS NOT DISTINCT FROM $3
		ORDER BY created_at DESC
	`

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, workspaceID, parentFolderID, spaceID)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()

	return scanFolders(rows)
}

func (r *PostgresFolderRepository) Rename(ctx context.Context, id, name string) error {
	query := `
		UPDATE folders
		SET name = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, name, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("rename folder: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

func (r *PostgresFolderRepository) Move(ctx context.Context, id string, parentFolderID, spaceID *string) error {
	query := `
		UPDATE folders
		SET parent_folder_id = $1, space_id = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, parentFolderID, spaceID, time.Now().UTC(), id)
	if err != nil {
		if isPgForeignKeyError(err) {
			return fmt.Errorf("move destination: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("move folder: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

func (r *PostgresFolderRepository) DeleteTree(ctx context.Context, id string) error {
	query := `
		WITH RECURSIVE subtree AS (
			SELECT id FROM folders WHERE id = $1
			UNION ALL
			SELECT f.id
			FROM folders f
			JOIN subtree s ON f.parent_folder_id = s.id
		)
		DELETE FROM folders
		WHERE id IN (SELECT id FROM subtree)
	`

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete folder tree: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

func (r *PostgresFolderRepository) Search(ctx context.Context, workspaceID, searchQuery string, limit int) ([]models.Folder, error) {
	query := `
		SELECT id, workspace_id, space_id, parent_folder_id, name, created_at, updated_at
		FROM folders
		WHERE workspace_id = $1
		  AND name ILIKE '%' || $2 || '%'
		ORDER BY updated_at DESC
		LIMIT $3
	`

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, workspaceID, searchQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("search folders: %w", err)
	}
	defer rows.Close()

	return scanFolders(rows)
}

func scanFolders(rows pgx.Rows) ([]models.Folder, error) {
	var folders []models.Folder
	for rows.Next() {
		var f models.Folder
		err := rows.Scan(
			&f.ID,
			&f.WorkspaceID,
			&f.SpaceID,
			&f.ParentFolderID,
			&f.Name,
			&f.CreatedAt,
			&f.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", err)
	}
	return folders, nil
}
