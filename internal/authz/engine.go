package authz

import (
	"context"
	"fmt"
	"log/slog"

	"atrium/internal/domain"
	"atrium/internal/domain/models"
)

// maxFolderDepth bounds the ancestor walk. Hierarchies deeper than this are
// treated as corrupt (a cycle slipped past the write-time check).
const maxFolderDepth = 64

// Engine answers resource-identified permission questions (folder X, space Y)
// by locating the owning workspace/space and deferring to the Guard, and
// enforces the structural invariants that span multiple resources: no
// cross-workspace moves or shares, no folder becoming its own ancestor.
type Engine struct {
	guard   *Guard
	folders FolderStore
	spaces  SpaceStore
	logger  *slog.Logger
}

// NewEngine creates a hierarchy permission engine.
func NewEngine(guard *Guard, folders FolderStore, spaces SpaceStore, logger *slog.Logger) *Engine {
	return &Engine{
		guard:   guard,
		folders: folders,
		spaces:  spaces,
		logger:  logger,
	}
}

// ResolveFolderContext loads the folder's owning workspace/space pair.
func (e *Engine) ResolveFolderContext(ctx context.Context, folderID string) (*models.FolderRef, error) {
	ref, err := e.folders.GetRef(ctx, folderID)
	if err != nil {
		return nil, err
	}
	return ref, nil
}

// CheckFolderPermission resolves the folder's context and requires one of the
// allowed roles there. Folders outside any space (library folders) are
// guarded against the workspace context. Returns the folder's identifying
// fields for further checks (cross-workspace comparisons).
func (e *Engine) CheckFolderPermission(ctx context.Context, userID, folderID string, allowed ...models.Role) (*models.FolderRef, error) {
	ref, err := e.ResolveFolderContext(ctx, folderID)
	if err != nil {
		return nil, err
	}

	c := Context{WorkspaceID: ref.WorkspaceID}
	if ref.SpaceID != nil {
		c.SpaceID = *ref.SpaceID
	}

	if _, err := e.guard.Require(ctx, userID, c, allowed...); err != nil {
		e.logger.Debug("folder permission denied",
			"user_id", userID,
			"folder_id", folderID,
			"workspace_id", ref.WorkspaceID,
			"error", err,
		)
		return nil, err
	}

	return ref, nil
}

// CheckScopePermission guards operations not anchored to an existing folder,
// such as creating a folder at the root of a space. At least one of
// workspaceID/spaceID must be present.
func (e *Engine) CheckScopePermission(ctx context.Context, userID, workspaceID, spaceID string, allowed ...models.Role) (Context, error) {
	c := Context{WorkspaceID: workspaceID, SpaceID: spaceID}
	if c.empty() {
		return c, fmt.Errorf("%w: workspace or space id required", domain.ErrValidation)
	}

	if _, err := e.guard.Require(ctx, userID, c, allowed...); err != nil {
		e.logger.Debug("scope permission denied",
			"user_id", userID,
			"workspace_id", workspaceID,
			"space_id", spaceID,
			"error", err,
		)
		return c, err
	}

	// Fill in the workspace for callers that only named a space.
	if c.WorkspaceID == "" {
		space, err := e.spaces.GetByID(ctx, spaceID)
		if err != nil {
			return c, err
		}
		c.WorkspaceID = space.WorkspaceID
	}

	return c, nil
}

// ValidateMembership confirms the user has any access to the workspace (and
// space, if named), independent of role. Used by listing and search paths.
func (e *Engine) ValidateMembership(ctx context.Context, userID, workspaceID, spaceID string) error {
	c := Context{WorkspaceID: workspaceID, SpaceID: spaceID}
	if c.empty() {
		return fmt.Errorf("%w: workspace or space id required", domain.ErrValidation)
	}
	return e.guard.Member(ctx, userID, c)
}

// Ancestors returns the folder's parent chain ordered root first, ending with
// the folder itself. Membership in the workspace gates the walk; the walk is
// depth-bounded so a corrupt hierarchy cannot loop forever.
func (e *Engine) Ancestors(ctx context.Context, userID, workspaceID, folderID string) ([]models.Folder, error) {
	if err := e.ValidateMembership(ctx, userID, workspaceID, ""); err != nil {
		return nil, err
	}

	var chain []models.Folder
	current, err := e.folders.GetByID(ctx, folderID)
	if err != nil {
		return nil, err
	}

	for depth := 0; ; depth++ {
		if depth >= maxFolderDepth {
			e.logger.Warn("ancestor walk aborted at depth bound", "folder_id", folderID, "max_depth", maxFolderDepth)
			return nil, fmt.Errorf("folder %s: hierarchy exceeds max depth %d", folderID, maxFolderDepth)
		}

		chain = append([]models.Folder{*current}, chain...)
		if current.ParentFolderID == nil {
			return chain, nil
		}

		current, err = e.folders.GetByID(ctx, *current.ParentFolderID)
		if err != nil {
			return nil, err
		}
	}
}
