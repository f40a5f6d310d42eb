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

// PostgresMemberRepository implements the MemberRepository interface.
// space_ids is a text[] column; access checks run against it with ANY.
type PostgresMemberRepository struct {
	pool *pgxpool.Pool
}

func NewMemberRepository(config *RepositoryConfig) repositories.MemberRepository {
	return &PostgresMemberRepository{pool: config.Pool}
}

func (r *PostgresMemberRepository) Create(ctx context.Context, member *models.Member) error {
	query := `
		INSERT INTO members (id, user_id, workspace_id, role, space_ids)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query,
		member.ID,
		member.UserID,
		member.WorkspaceID,
		member.Role,
		member.SpaceIDs,
	).Scan(&member.CreatedAt)

	if err != nil {
		if isPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      "user is already a member of this workspace",
				ResourceType: "member",
				ResourceID:   member.UserID,
			}
		}
		return fmt.Errorf("create member: %w", err)
	}

	return nil
}

func (r *PostgresMemberRepository) FindByWorkspaceAndUser(ctx context.Context, workspaceID, userID string) (*models.Member, error) {
	query := `
		SELECT id, user_id, workspace_id, role, space_ids, created_at
		FROM members
		WHERE workspace_id = $1 AND user_id = $2
	`

	return r.scanOne(GetExecutor(ctx, r.pool).QueryRow(ctx, query, workspaceID, userID))
}

func (r *PostgresMemberRepository) FindWithSpaceAccess(ctx context.Context, workspaceID, userID, spaceID string) (*models.Member, error) {
	query := `
		SELECT id, user_id, workspace_id, role, space_ids, created_at
		FROM members
		WHERE workspace_id = $1 AND user_id = $2 AND $3 = ANY(space_ids)
	`

	return r.scanOne(GetExecutor(ctx, r.pool).QueryRow(ctx, query, workspaceID, userID, spaceID))
}

func (r *PostgresMemberRepository) GetByID(ctx context.Context, memberID, workspaceID string) (*models.Member, error) {
	query := `
		SELECT id, user_id, workspace_id, role, space_ids, created_at
		FROM members
		WHERE id = $1 AND workspace_id = $2
	`

	return r.scanOne(GetExecutor(ctx, r.pool).QueryRow(ctx, query, memberID, workspaceID))
}

func (r *PostgresMemberRepository) ListByWorkspace(ctx context.Context, workspaceID string) ([]models.MemberInfo, error) {
	query := `
		SELECT m.id, m.user_id, u.name, u.email, m.role, m.created_at
		FROM members m
		JOIN users u ON u.id = m.user_id
		WHERE m.workspace_id = $1
		ORDER BY m.created_at ASC
	`

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	return scanMemberInfos(rows)
}

func (r *PostgresMemberRepository) ListBySpace(ctx context.Context, spaceID string) ([]models.MemberInfo, error) {
	query := `
		SELECT m.id, m.user_id, u.name, u.email, m.role, m.created_at
		FROM members m
		JOIN users u ON u.id = m.user_id
		WHERE $1 = ANY(m.space_ids)
		ORDER BY m.created_at ASC
	`

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, spaceID)
	if err != nil {
		return nil, fmt.Errorf("list space members: %w", err)
	}
	defer rows.Close()

	return scanMemberInfos(rows)
}

func (r *PostgresMemberRepository) CountByWorkspace(ctx context.Context, workspaceID string) (int, error) {
	query := `SELECT COUNT(*) FROM members WHERE workspace_id = $1`

	var count int
	if err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, workspaceID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return count, nil
}

// UpdateRole is keyed on the role the caller last saw. A concurrent role
// change makes the predicate miss and surfaces as not-found instead of
// silently clobbering the newer value.
func (r *PostgresMemberRepository) UpdateRole(ctx context.Context, memberID string, expectedRole, newRole models.Role) error {
	query := `
		UPDATE members
		SET role = $1
		WHERE id = $2 AND role = $3
	`

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, newRole, memberID, expectedRole)
	if err != nil {
		return fmt.Errorf("update member role: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("member %s with role %s: %w", memberID, expectedRole, domain.ErrNotFound)
	}

	return nil
}

func (r *PostgresMemberRepository) GrantSpace(ctx context.Context, workspaceID string, userIDs []string, spaceID string) error {
	if len(userIDs) == 0 {
		return nil
	}

	query := `
		UPDATE members
		SET space_ids = array_append(space_ids, $1)
		WHERE workspace_id = $2
		  AND user_id = ANY($3)
		  AND NOT ($1 = ANY(space_ids))
	`

	if _, err := GetExecutor(ctx, r.pool).Exec(ctx, query, spaceID, workspaceID, userIDs); err != nil {
		return fmt.Errorf("grant space access: %w", err)
	}

	return nil
}

func (r *PostgresMemberRepository) RevokeSpace(ctx context.Context, memberID, spaceID string) error {
	query := `
		UPDATE members
		SET space_ids = array_remove(space_ids, $1)
		WHERE id = $2
	`

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, spaceID, memberID)
	if err != nil {
		return fmt.Errorf("revoke space access: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("member %s: %w", memberID, domain.ErrNotFound)
	}

	return nil
}

func (r *PostgresMemberRepository) Delete(ctx context.Context, memberID string) error {
	query := `DELETE FROM members WHERE id = $1`

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, memberID)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("member %s: %w", memberID, domain.ErrNotFound)
	}

	return nil
}

func (r *PostgresMemberRepository) Search(ctx context.Context, workspaceID, searchQuery, excludeUserID string, excludeSpaceID *string, limit int) ([]models.MemberInfo, error) {
	query := `
		SELECT m.id, m.user_id, u.name, u.email, m.role, m.created_at
		FROM members m
		JOIN users u ON u.id = m.user_id
		WHERE m.workspace_id = $1
		  AND m.user_id <> $2
		  AND (u.name ILIKE '%' || $3 || '%' OR u.email ILIKE '%' || $3 || '%')
		  AND ($4::text IS NULL OR NOT ($4 = ANY(m.space_ids)))
		ORDER BY u.name ASC
		LIMIT $5
	`

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, workspaceID, excludeUserID, searchQuery, excludeSpaceID, limit)
	if err != nil {
		return nil, fmt.Errorf("search members: %w", err)
	}
	defer rows.Close()

	return scanMemberInfos(rows)
}

func (r *PostgresMemberRepository) scanOne(row pgx.Row) (*models.Member, error) {
	var member models.Member
	err := row.Scan(
		&member.ID,
		&member.UserID,
		&member.WorkspaceID,
		&member.Role,
		&member.SpaceIDs,
		&member.CreatedAt,
	)

	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("member: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get member: %w", err)
	}

	return &member, nil
}

func scanMemberInfos(rows pgx.Rows) ([]models.MemberInfo, error) {
	var members []models.MemberInfo
	for rows.Next() {
		var m models.MemberInfo
		if err := rows.Scan(&m.ID, &m.UserID, &m.Name, &m.Email, &m.Role, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}
