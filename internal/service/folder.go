package service

import (
	"context"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"atrium/internal/authz"
	"atrium/internal/config"
	"atrium/internal/domain"
	"atrium/internal/domain/models"
	"atrium/internal/domain/repositories"
	"atrium/internal/domain/services"
	"atrium/internal/realtime"
)

// defaultFolderName is used when a creation request omits the name.
const defaultFolderName = "Untitled Folder"

// folderService implements the FolderService interface.
type folderService struct {
	folderRepo  repositories.FolderRepository
	txManager   repositories.TransactionManager
	engine      *authz.Engine
	broadcaster realtime.Broadcaster
	logger      *slog.Logger
}

// NewFolderService creates a new folder service.
func NewFolderService(
	folderRepo repositories.FolderRepository,
	txManager repositories.TransactionManager,
	engine *authz.Engine,
	broadcaster realtime.Broadcaster,
	logger *slog.Logger,
) services.FolderService {
	return &folderService{
		folderRepo:  folderRepo,
		txManager:   txManager,
		engine:      engine,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

func (s *folderService) CreateFolder(ctx context.Context, userID string, req *services.CreateFolderRequest) (*models.Folder, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.WorkspaceID, validation.Required),
		validation.Field(&req.Name, validation.Length(0, config.MaxFolderNameLength)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	name := req.Name
	if name == "" {
		name = defaultFolderName
	}

	folder := &models.Folder{
		ID:          uuid.NewString(),
		WorkspaceID: req.WorkspaceID,
		Name:        name,
	}

	// Placement decides both the permission context and the pointers.
	switch {
	case req.ParentFolderID != nil && *req.ParentFolderID != "":
		parent, err := s.engine.CheckFolderPermission(ctx, userID, *req.ParentFolderID, models.WriterRoles()...)
		if err != nil {
			return nil, err
		}
		if parent.WorkspaceID != req.WorkspaceID {
			return nil, fmt.Errorf("%w: parent folder belongs to another workspace", domain.ErrValidation)
		}
		folder.ParentFolderID = req.ParentFolderID
		folder.SpaceID = parent.SpaceID

	case req.SpaceID != nil && *req.SpaceID != "":
		if _, err := s.engine.CheckScopePermission(ctx, userID, req.WorkspaceID, *req.SpaceID, models.WriterRoles()...); err != nil {
			return nil, err
		}
		folder.SpaceID = req.SpaceID

	default:
		// Workspace library folder.
		if _, err := s.engine.CheckScopePermission(ctx, userID, req.WorkspaceID, "", models.WriterRoles()...); err != nil {
			return nil, err
		}
	}

	if err := s.folderRepo.Create(ctx, folder); err != nil {
		return nil, err
	}

	s.logger.Info("folder created", "folder_id", folder.ID, "workspace_id", folder.WorkspaceID)
	s.broadcastFolder(folder, models.EventFolderCreated)

	return folder, nil
}

func (s *folderService) GetFolder(ctx context.Context, userID, folderID string) (*models.Folder, error) {
	if _, err := s.engine.CheckFolderPermission(ctx, userID, folderID, models.AllRoles()...); err != nil {
		return nil, err
	}
	return s.folderRepo.GetByID(ctx, folderID)
}

func (s *folderService) ListChildren(ctx context.Context, userID string, req *services.ListChildrenRequest) ([]models.Folder, error) {
	if req.WorkspaceID == "" {
		return nil, fmt.Errorf("%w: workspace id required", domain.ErrValidation)
	}

	if req.ParentFolderID != nil && *req.ParentFolderID != "" {
		parent, err := s.engine.CheckFolderPermission(ctx, userID, *req.ParentFolderID, models.AllRoles()...)
		if err != nil {
			return nil, err
		}
		return s.folderRepo.ListChildren(ctx, parent.WorkspaceID, req.ParentFolderID, parent.SpaceID)
	}

	spaceID := ""
	if req.SpaceID != nil {
		spaceID = *req.SpaceID
	}
	if err := s.engine.ValidateMembership(ctx, userID, req.WorkspaceID, spaceID); err != nil {
		return nil, err
	}
	return s.folderRepo.ListChildren(ctx, req.WorkspaceID, nil, req.SpaceID)
}

func (s *folderService) RenameFolder(ctx context.Context, userID, folderID, name string) (*models.Folder, error) {
	if err := validation.Validate(name, validation.Required, validation.Length(1, config.MaxFolderNameLength)); err != nil {
		return nil, fmt.Errorf("%w: name: %v", domain.ErrValidation, err)
	}

	if _, err := s.engine.CheckFolderPermission(ctx, userID, folderID, models.WriterRoles()...); err != nil {
		return nil, err
	}

	if err := s.folderRepo.Rename(ctx, folderID, name); err != nil {
		return nil, err
	}

	folder, err := s.folderRepo.GetByID(ctx, folderID)
	if err != nil {
		return nil, err
	}

	s.broadcastFolder(folder, models.EventFolderRenamed)
	return folder, nil
}

func (s *folderService) DeleteFolder(ctx context.Context, userID, folderID string) error {
	// Recursive subtree removal is destructive; only admins may do it.
	if _, err := s.engine.CheckFolderPermission(ctx, userID, folderID, models.AdminOnly()...); err != nil {
		return err
	}

	// Load before deleting: the event needs the pre-delete placement so
	// viewers of the right room hear about it.
	folder, err := s.folderRepo.GetByID(ctx, folderID)
	if err != nil {
		return err
	}

	// The subtree goes in one transaction; a half-deleted tree would orphan
	// children.
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		return s.folderRepo.DeleteTree(txCtx, folderID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("folder deleted", "folder_id", folderID, "workspace_id", folder.WorkspaceID)
	s.broadcastFolder(folder, models.EventFolderDeleted)

	return nil
}

func (s *folderService) MoveFolder(ctx context.Context, userID, folderID string, dest models.MoveDestination) (*models.Folder, error) {
	change, err := s.engine.AuthorizeMove(ctx, userID, folderID, dest)
	if err != nil {
		return nil, err
	}

	// Both the before and after rooms get the event.
	before, err := s.folderRepo.GetByID(ctx, folderID)
	if err != nil {
		return nil, err
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		return s.folderRepo.Move(txCtx, folderID, change.ParentFolderID, change.SpaceID)
	})
	if err != nil {
		return nil, err
	}

	after, err := s.folderRepo.GetByID(ctx, folderID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("folder moved",
		"folder_id", folderID,
		"workspace_id", after.WorkspaceID,
		"destination_type", dest.Type,
		"destination_id", dest.ID,
	)
	s.broadcastFolder(before, models.EventFolderMoved)
	if roomOf(after) != roomOf(before) {
		s.broadcastFolder(after, models.EventFolderMoved)
	}

	return after, nil
}

func (s *folderService) GetAncestors(ctx context.Context, userID, workspaceID, folderID string) ([]models.Folder, error) {
	return s.engine.Ancestors(ctx, userID, workspaceID, folderID)
}

func (s *folderService) SearchFolders(ctx context.Context, userID, workspaceID, query string) ([]models.Folder, error) {
	if err := s.engine.ValidateMembership(ctx, userID, workspaceID, ""); err != nil {
		return nil, err
	}
	return s.folderRepo.Search(ctx, workspaceID, query, 50)
}

// roomOf picks the room for a folder's placement: its parent folder if
// nested, else its space, else the workspace root.
func roomOf(folder *models.Folder) realtime.Room {
	if folder.ParentFolderID != nil && *folder.ParentFolderID != "" {
		return realtime.FolderRoom(*folder.ParentFolderID)
	}
	return realtime.ViewRoom(folder.WorkspaceID, folder.SpaceID, nil)
}

func (s *folderService) broadcastFolder(folder *models.Folder, name string) {
	event, err := realtime.NewEvent(name, models.FolderEvent{
		ID:          folder.ID,
		Name:        folder.Name,
		WorkspaceID: folder.WorkspaceID,
		SpaceID:     folder.SpaceID,
	})
	if err != nil {
		s.logger.Error("marshal realtime event", "event", name, "error", err)
		return
	}
	s.broadcaster.Broadcast(roomOf(folder), event)
}
