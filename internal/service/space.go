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

// spaceService implements the SpaceService interface.
type spaceService struct {
	spaceRepo     repositories.SpaceRepository
	memberRepo    repositories.MemberRepository
	workspaceRepo repositories.WorkspaceRepository
	txManager     repositories.TransactionManager
	engine        *authz.Engine
	broadcaster   realtime.Broadcaster
	logger        *slog.Logger
}

// NewSpaceService creates a new space service.
func NewSpaceService(
	spaceRepo repositories.SpaceRepository,
	memberRepo repositories.MemberRepository,
	workspaceRepo repositories.WorkspaceRepository,
	txManager repositories.TransactionManager,
	engine *authz.Engine,
	broadcaster realtime.Broadcaster,
	logger *slog.Logger,
) services.SpaceService {
	return &spaceService{
		spaceRepo:     spaceRepo,
		memberRepo:    memberRepo,
		workspaceRepo: workspaceRepo,
		txManager:     txManager,
		engine:        engine,
		broadcaster:   broadcaster,
		logger:        logger,
	}
}

func (s *spaceService) CreateSpace(ctx context.Context, userID string, req *services.CreateSpaceRequest) (*models.Space, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.WorkspaceID, validation.Required),
		validation.Field(&req.Name, validation.Required, validation.Length(1, config.MaxSpaceNameLength)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if _, err := s.engine.CheckScopePermission(ctx, userID, req.WorkspaceID, "", models.AdminOnly()...); err != nil {
		return nil, err
	}

	space := &models.Space{
		ID:          uuid.NewString(),
		WorkspaceID: req.WorkspaceID,
		Name:        req.Name,
		Type:        models.SpaceCustom,
	}

	// The space and its initial grants commit together: a space nobody can
	// see is unreachable.
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.spaceRepo.Create(txCtx, space); err != nil {
			return err
		}
		granted := append([]string{userID}, req.MemberUserIDs...)
		return s.memberRepo.GrantSpace(txCtx, req.WorkspaceID, granted, space.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("space created", "space_id", space.ID, "workspace_id", req.WorkspaceID)
	s.broadcast(realtime.WorkspaceRoom(req.WorkspaceID), models.EventSpaceCreated, models.SpaceEvent{
		SpaceID:     space.ID,
		WorkspaceID: req.WorkspaceID,
		Name:        space.Name,
	})

	return space, nil
}

func (s *spaceService) GetSpace(ctx context.Context, userID, spaceID string) (*models.Space, error) {
	if err := s.engine.ValidateMembership(ctx, userID, "", spaceID); err != nil {
		return nil, err
	}
	return s.spaceRepo.GetByID(ctx, spaceID)
}

func (s *spaceService) ListSpaces(ctx context.Context, userID, workspaceID string) ([]models.Space, error) {
	if err := s.engine.ValidateMembership(ctx, userID, workspaceID, ""); err != nil {
		return nil, err
	}
	return s.spaceRepo.ListByWorkspaceForUser(ctx, workspaceID, userID)
}

func (s *spaceService) RenameSpace(ctx context.Context, userID, spaceID, name string) error {
	if err := validation.Validate(name, validation.Required, validation.Length(1, config.MaxSpaceNameLength)); err != nil {
		return fmt.Errorf("%w: name: %v", domain.ErrValidation, err)
	}

	space, err := s.requireSpaceAdmin(ctx, userID, spaceID)
	if err != nil {
		return err
	}

	space.Name = name
	if err := s.spaceRepo.Update(ctx, space); err != nil {
		return err
	}

	s.broadcast(realtime.SpaceRoom(spaceID), models.EventSpaceRenamed, models.SpaceEvent{
		SpaceID:     spaceID,
		WorkspaceID: space.WorkspaceID,
		Name:        name,
	})

	return nil
}

func (s *spaceService) DeleteSpace(ctx context.Context, userID, spaceID string) error {
	space, err := s.requireSpaceAdmin(ctx, userID, spaceID)
	if err != nil {
		return err
	}
	if space.Type == models.SpaceDefault {
		return fmt.Errorf("%w: the default space cannot be deleted", domain.ErrForbidden)
	}

	if err := s.spaceRepo.Delete(ctx, spaceID); err != nil {
		return err
	}

	s.logger.Info("space deleted", "space_id", spaceID, "workspace_id", space.WorkspaceID)
	s.broadcast(realtime.WorkspaceRoom(space.WorkspaceID), models.EventSpaceDeleted, models.SpaceEvent{
		SpaceID:     spaceID,
		WorkspaceID: space.WorkspaceID,
	})

	return nil
}

func (s *spaceService) ListSpaceMembers(ctx context.Context, userID, spaceID string) ([]models.MemberInfo, error) {
	if err := s.engine.ValidateMembership(ctx, userID, "", spaceID); err != nil {
		return nil, err
	}
	return s.memberRepo.ListBySpace(ctx, spaceID)
}

func (s *spaceService) AddMembers(ctx context.Context, userID, spaceID string, memberUserIDs []string) error {
	if len(memberUserIDs) == 0 {
		return fmt.Errorf("%w: member user ids required", domain.ErrValidation)
	}

	space, err := s.requireSpaceAdmin(ctx, userID, spaceID)
	if err != nil {
		return err
	}

	// Grants only apply to existing workspace members; unknown ids are
	// filtered by the membership predicate in the update.
	if err := s.memberRepo.GrantSpace(ctx, space.WorkspaceID, memberUserIDs, spaceID); err != nil {
		return err
	}

	s.logger.Info("space members added", "space_id", spaceID, "count", len(memberUserIDs))
	return nil
}

func (s *spaceService) RemoveMember(ctx context.Context, userID, spaceID, memberID string) error {
	space, err := s.requireSpaceAdmin(ctx, userID, spaceID)
	if err != nil {
		return err
	}

	workspace, err := s.workspaceRepo.GetByID(ctx, space.WorkspaceID)
	if err != nil {
		return err
	}
	target, err := s.memberRepo.GetByID(ctx, memberID, space.WorkspaceID)
	if err != nil {
		return err
	}
	if target.UserID == workspace.OwnerID {
		return fmt.Errorf("%w: the owner cannot be removed from a space", domain.ErrForbidden)
	}

	return s.memberRepo.RevokeSpace(ctx, memberID, spaceID)
}

// requireSpaceAdmin gates on ADMIN resolved against the space itself, so a
// workspace admin without the space grant is turned away.
func (s *spaceService) requireSpaceAdmin(ctx context.Context, userID, spaceID string) (*models.Space, error) {
	if _, err := s.engine.CheckScopePermission(ctx, userID, "", spaceID, models.AdminOnly()...); err != nil {
		return nil, err
	}
	return s.spaceRepo.GetByID(ctx, spaceID)
}

func (s *spaceService) broadcast(room realtime.Room, name string, payload any) {
	event, err := realtime.NewEvent(name, payload)
	if err != nil {
		s.logger.Error("marshal realtime event", "event", name, "error", err)
		return
	}
	s.broadcaster.Broadcast(room, event)
}
