package authz

import (
	"context"
	"fmt"

	"atrium/internal/domain"
	"atrium/internal/domain/models"
)

// ShareScope names one end of a share: a folder, or a workspace/space pair.
type ShareScope struct {
	WorkspaceID string `json:"workspaceId,omitempty"`
	SpaceID     string `json:"spaceId,omitempty"`
	FolderID    string `json:"folderId,omitempty"`
}

// AuthorizeShare checks that the user may share a file from source into
// destination: writer roles on both ends, and both ends in the same
// workspace. The cross-workspace check is independent of the role checks and
// fails Forbidden regardless of the roles held in either workspace.
func (e *Engine) AuthorizeShare(ctx context.Context, userID string, source, destination ShareScope) error {
	sourceWorkspaceID, err := e.verifyShareSource(ctx, userID, source)
	if err != nil {
		return err
	}
	return e.verifyShareDestination(ctx, userID, sourceWorkspaceID, destination)
}

// verifyShareSource requires writer roles on the source and returns its
// owning workspace id for the cross-workspace comparison.
func (e *Engine) verifyShareSource(ctx context.Context, userID string, source ShareScope) (string, error) {
	if source.FolderID != "" {
		ref, err := e.CheckFolderPermission(ctx, userID, source.FolderID, models.WriterRoles()...)
		if err != nil {
			return "", err
		}
		return ref.WorkspaceID, nil
	}

	c, err := e.CheckScopePermission(ctx, userID, source.WorkspaceID, source.SpaceID, models.WriterRoles()...)
	if err != nil {
		return "", err
	}
	return c.WorkspaceID, nil
}

func (e *Engine) verifyShareDestination(ctx context.Context, userID, sourceWorkspaceID string, destination ShareScope) error {
	switch {
	case destination.FolderID != "":
		ref, err := e.ResolveFolderContext(ctx, destination.FolderID)
		if err != nil {
			return err
		}
		if ref.WorkspaceID != sourceWorkspaceID {
			return crossWorkspace("share")
		}
		if _, err := e.CheckFolderPermission(ctx, userID, destination.FolderID, models.WriterRoles()...); err != nil {
			return destinationDenied(err)
		}
		return nil

	case destination.SpaceID != "":
		space, err := e.spaces.GetByID(ctx, destination.SpaceID)
		if err != nil {
			return err
		}
		if space.WorkspaceID != sourceWorkspaceID {
			return crossWorkspace("share")
		}
		if _, err := e.guard.Require(ctx, userID, Context{WorkspaceID: sourceWorkspaceID, SpaceID: destination.SpaceID}, models.WriterRoles()...); err != nil {
			return destinationDenied(err)
		}
		return nil

	default:
		return fmt.Errorf("%w: destination folderId or spaceId required", domain.ErrValidation)
	}
}
