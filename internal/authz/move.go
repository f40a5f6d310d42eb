package authz

import (
	"context"
	"errors"
	"fmt"

	"atrium/internal/domain"
	"atrium/internal/domain/models"
)

// MoveChange is the authorized outcome of a move request: the folder's new
// parent/space pointers. At most one is non-nil; both nil means the workspace
// root. The pointer not being set is cleared on every move.
type MoveChange struct {
	Source         *models.FolderRef
	ParentFolderID *string
	SpaceID        *string
}

// AuthorizeMove validates a folder move end to end: ADMIN on the source
// folder, ADMIN on the destination (folder or space), destination in the same
// workspace as the source, and no move that would make the folder its own
// ancestor. The cross-workspace check runs independently of the role checks.
func (e *Engine) AuthorizeMove(ctx context.Context, userID, folderID string, dest models.MoveDestination) (*MoveChange, error) {
	if dest.ID == "" {
		return nil, fmt.Errorf("%w: destination id required", domain.ErrValidation)
	}

	source, err := e.CheckFolderPermission(ctx, userID, folderID, models.RoleAdmin)
	if err != nil {
		return nil, err
	}

	change := &MoveChange{Source: source}

	switch dest.Type {
	case models.MoveToFolder:
		destRef, err := e.ResolveFolderContext(ctx, dest.ID)
		if err != nil {
			return nil, err
		}
		if destRef.WorkspaceID != source.WorkspaceID {
			return nil, crossWorkspace("move")
		}
		if err := e.ensureNoCycle(ctx, folderID, dest.ID); err != nil {
			return nil, err
		}
		if _, err := e.CheckFolderPermission(ctx, userID, dest.ID, models.RoleAdmin); err != nil {
			return nil, destinationDenied(err)
		}
		change.ParentFolderID = &dest.ID

	case models.MoveToSpace:
		space, err := e.spaces.GetByID(ctx, dest.ID)
		if err != nil {
			return nil, err
		}
		if space.WorkspaceID != source.WorkspaceID {
			return nil, crossWorkspace("move")
		}
		// ADMIN scoped to the destination space, never a different workspace.
		if _, err := e.guard.Require(ctx, userID, Context{WorkspaceID: source.WorkspaceID, SpaceID: dest.ID}, models.RoleAdmin); err != nil {
			return nil, destinationDenied(err)
		}
		change.SpaceID = &dest.ID

	case models.MoveToWorkspace:
		if dest.ID != source.WorkspaceID {
			return nil, crossWorkspace("move")
		}
		// Workspace root: both pointers cleared.

	default:
		return nil, fmt.Errorf("%w: unknown destination type %q", domain.ErrValidation, dest.Type)
	}

	return change, nil
}

// ensureNoCycle rejects a move that would place folderID beneath itself.
// Walks the destination's parent chain; depth-bounded like Ancestors.
func (e *Engine) ensureNoCycle(ctx context.Context, folderID, destFolderID string) error {
	if folderID == destFolderID {
		return fmt.Errorf("%w: cannot move a folder into itself", domain.ErrValidation)
	}

	currentID := destFolderID
	for depth := 0; depth < maxFolderDepth; depth++ {
		current, err := e.folders.GetByID(ctx, currentID)
		if err != nil {
			return err
		}
		if current.ParentFolderID == nil {
			return nil
		}
		if *current.ParentFolderID == folderID {
			return fmt.Errorf("%w: cannot move a folder beneath its own descendant", domain.ErrValidation)
		}
		currentID = *current.ParentFolderID
	}

	return fmt.Errorf("folder %s: hierarchy exceeds max depth %d", destFolderID, maxFolderDepth)
}

// crossWorkspace is the uniform failure for any operation whose source and
// destination resolve to different workspaces, regardless of roles held.
func crossWorkspace(op string) error {
	return fmt.Errorf("%w: cannot %s across workspaces", domain.ErrForbidden, op)
}

// destinationDenied upgrades a membership miss on the destination to
// Forbidden: by the time the destination check runs the caller has already
// passed an authorized check on the source, so absence no longer needs to be
// hidden behind NotFound.
func destinationDenied(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: no access to the destination", domain.ErrForbidden)
	}
	return err
}
