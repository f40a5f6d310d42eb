package service

import (
	"context"
	"errors"
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

// workspaceService implements the WorkspaceService interface.
type workspaceService struct {
	workspaceRepo repositories.WorkspaceRepository
	memberRepo    repositories.MemberRepository
	userRepo      repositories.UserRepository
	txManager     repositories.TransactionManager
	engine        *authz.Engine
	broadcaster   realtime.Broadcaster
	logger        *slog.Logger
}

// NewWorkspaceService creates a new workspace service.
func NewWorkspaceService(
	workspaceRepo repositories.WorkspaceRepository,
	memberRepo repositories.MemberRepository,
	userRepo repositories.UserRepository,
	txManager repositories.TransactionManager,
	engine *authz.Engine,
	broadcaster realtime.Broadcaster,
	logger *slog.Logger,
) services.WorkspaceService {
	return &workspaceService{
		workspaceRepo: workspaceRepo,
		memberRepo:    memberRepo,
		userRepo:      userRepo,
		txManager:     txManager,
		engine:        engine,
		broadcaster:   broadcaster,
		logger:        logger,
	}
}

func (s *workspaceService) CreateWorkspace(ctx context.Context, userID string, req *services.CreateWorkspaceRequest) (*models.Workspace, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, config.MaxWorkspaceNameLength)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	owned, err := s.workspaceRepo.CountByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	if owned >= user.MaxWorkspaces {
		return nil, fmt.Errorf("%w: workspace limit reached", domain.ErrForbidden)
	}

	workspace := &models.Workspace{
		ID:      uuid.NewString(),
		Name:    req.Name,
		OwnerID: userID,
		Type:    models.WorkspacePublic,
	}

	// The workspace without its owner's member record is unreachable, so
	// both rows commit together.
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.workspaceRepo.Create(txCtx, workspace); err != nil {
			return err
		}
		member := &models.Member{
			ID:          uuid.NewString(),
			UserID:      userID,
			WorkspaceID: workspace.ID,
			Role:        models.RoleAdmin,
			SpaceIDs:    []string{},
		}
		return s.memberRepo.Create(txCtx, member)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("workspace created", "workspace_id", workspace.ID, "owner_id", userID)

	if event, err := realtime.NewEvent(models.EventWorkspaceCreated, models.WorkspaceCreatedEvent{
		WorkspaceID: workspace.ID,
		Name:        workspace.Name,
	}); err == nil {
		s.broadcaster.EmitToUser(userID, event)
	}

	return workspace, nil
}

func (s *workspaceService) GetWorkspace(ctx context.Context, userID, workspaceID string) (*models.Workspace, error) {
	if err := s.engine.ValidateMembership(ctx, userID, workspaceID, ""); err != nil {
		return nil, err
	}
	return s.workspaceRepo.GetByID(ctx, workspaceID)
}

func (s *workspaceService) ListWorkspaces(ctx context.Context, userID string) ([]models.Workspace, error) {
	return s.workspaceRepo.ListByUser(ctx, userID)
}

func (s *workspaceService) UpdateWorkspace(ctx context.Context, userID, workspaceID string, req *services.UpdateWorkspaceRequest) (*models.Workspace, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, config.MaxWorkspaceNameLength)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	workspace, err := s.requireOwner(ctx, userID, workspaceID)
	if err != nil {
		return nil, err
	}

	workspace.Name = req.Name
	if err := s.workspaceRepo.Update(ctx, workspace); err != nil {
		return nil, err
	}

	s.broadcast(realtime.WorkspaceRoom(workspaceID), models.EventWorkspaceUpdated, models.WorkspaceEvent{
		WorkspaceID: workspaceID,
		Name:        workspace.Name,
	})

	return workspace, nil
}

func (s *workspaceService) DeleteWorkspace(ctx context.Context, userID, workspaceID string) error {
	if _, err := s.requireOwner(ctx, userID, workspaceID); err != nil {
		return err
	}

	if err := s.workspaceRepo.Delete(ctx, workspaceID); err != nil {
		return err
	}

	s.logger.Info("workspace deleted", "workspace_id", workspaceID, "user_id", userID)
	s.broadcast(realtime.WorkspaceRoom(workspaceID), models.EventWorkspaceDeleted, models.WorkspaceEvent{
		WorkspaceID: workspaceID,
	})

	return nil
}

func (s *workspaceService) SelectWorkspace(ctx context.Context, userID, workspaceID string) error {
	if err := s.engine.ValidateMembership(ctx, userID, workspaceID, ""); err != nil {
		return err
	}
	return s.userRepo.SetSelectedWorkspace(ctx, userID, workspaceID)
}

func (s *workspaceService) ListMembers(ctx context.Context, userID, workspaceID string) ([]models.MemberInfo, error) {
	if err := s.engine.ValidateMembership(ctx, userID, workspaceID, ""); err != nil {
		return nil, err
	}
	return s.memberRepo.ListByWorkspace(ctx, workspaceID)
}

func (s *workspaceService) SearchMembers(ctx context.Context, userID, workspaceID string, req *services.SearchMembersRequest) ([]models.MemberInfo, error) {
	if err := s.engine.ValidateMembership(ctx, userID, workspaceID, ""); err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 || limit > 50 {
		limit = config.DefaultSearchLimit
	}
	return s.memberRepo.Search(ctx, workspaceID, req.Query, userID, req.ExcludeSpaceID, limit)
}

func (s *workspaceService) UpdateMemberRole(ctx context.Context, userID, workspaceID, memberID string, req *services.UpdateMemberRoleRequest) error {
	if !req.CurrentRole.Valid() || !req.NewRole.Valid() {
		return fmt.Errorf("%w: invalid role", domain.ErrValidation)
	}

	if _, err := s.engine.CheckScopePermission(ctx, userID, workspaceID, "", models.AdminOnly()...); err != nil {
		return err
	}

	workspace, err := s.workspaceRepo.GetByID(ctx, workspaceID)
	if err != nil {
		return err
	}
	target, err := s.memberRepo.GetByID(ctx, memberID, workspaceID)
	if err != nil {
		return err
	}

	if target.UserID == userID {
		return fmt.Errorf("%w: cannot change your own role", domain.ErrForbidden)
	}
	if target.UserID == workspace.OwnerID {
		return fmt.Errorf("%w: cannot change the owner's role", domain.ErrForbidden)
	}
	// Demoting another admin is reserved for the owner.
	if target.Role == models.RoleAdmin && req.NewRole != models.RoleAdmin && workspace.OwnerID != userID {
		return fmt.Errorf("%w: only the owner can demote an admin", domain.ErrForbidden)
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		// Re-check the caller's role inside the transaction: it may have
		// been demoted since the check above.
		caller, err := s.memberRepo.FindByWorkspaceAndUser(txCtx, workspaceID, userID)
		if err != nil {
			return err
		}
		if caller.Role != models.RoleAdmin {
			return fmt.Errorf("%w: you do not have permission to perform this action", domain.ErrForbidden)
		}
		if err := s.memberRepo.UpdateRole(txCtx, memberID, req.CurrentRole, req.NewRole); err != nil {
			// CAS miss: someone changed the role since the caller loaded it.
			if errors.Is(err, domain.ErrNotFound) {
				return &domain.ConflictError{
					Message:      "member role changed concurrently, reload and retry",
					ResourceType: "member",
					ResourceID:   memberID,
				}
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("member role updated",
		"workspace_id", workspaceID,
		"member_id", memberID,
		"new_role", req.NewRole,
	)
	s.broadcast(realtime.WorkspaceRoom(workspaceID), models.EventRoleChanged, models.MemberEvent{
		MemberID:    memberID,
		UserID:      target.UserID,
		WorkspaceID: workspaceID,
		Role:        req.NewRole,
	})

	return nil
}

func (s *workspaceService) RemoveMember(ctx context.Context, userID, workspaceID, memberID string) error {
	if _, err := s.engine.CheckScopePermission(ctx, userID, workspaceID, "", models.AdminOnly()...); err != nil {
		return err
	}

	workspace, err := s.workspaceRepo.GetByID(ctx, workspaceID)
	if err != nil {
		return err
	}
	target, err := s.memberRepo.GetByID(ctx, memberID, workspaceID)
	if err != nil {
		return err
	}

	if target.UserID == workspace.OwnerID {
		return fmt.Errorf("%w: the owner cannot be removed from the workspace", domain.ErrForbidden)
	}
	if target.Role == models.RoleAdmin && workspace.OwnerID != userID && target.UserID != userID {
		return fmt.Errorf("%w: only the owner can remove an admin", domain.ErrForbidden)
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		caller, err := s.memberRepo.FindByWorkspaceAndUser(txCtx, workspaceID, userID)
		if err != nil {
			return err
		}
		if caller.Role != models.RoleAdmin {
			return fmt.Errorf("%w: you do not have permission to perform this action", domain.ErrForbidden)
		}
		return s.memberRepo.Delete(txCtx, memberID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("member removed", "workspace_id", workspaceID, "member_id", memberID)

	// The removed user may not be in the workspace room; emit directly too.
	event, err := realtime.NewEvent(models.EventMemberRemoved, models.MemberEvent{
		MemberID:    memberID,
		UserID:      target.UserID,
		WorkspaceID: workspaceID,
	})
	if err == nil {
		s.broadcaster.Broadcast(realtime.WorkspaceRoom(workspaceID), event)
		s.broadcaster.EmitToUser(target.UserID, event)
	}

	return nil
}

// requireOwner resolves membership first so non-members get not-found, then
// gates on the owner field.
func (s *workspaceService) requireOwner(ctx context.Context, userID, workspaceID string) (*models.Workspace, error) {
	if err := s.engine.ValidateMembership(ctx, userID, workspaceID, ""); err != nil {
		return nil, err
	}
	workspace, err := s.workspaceRepo.GetByID(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if workspace.OwnerID != userID {
		return nil, fmt.Errorf("%w: only the workspace owner can do this", domain.ErrForbidden)
	}
	return workspace, nil
}

func (s *workspaceService) broadcast(room realtime.Room, name string, payload any) {
	event, err := realtime.NewEvent(name, payload)
	if err != nil {
		s.logger.Error("marshal realtime event", "event", name, "error", err)
		return
	}
	s.broadcaster.Broadcast(room, event)
}
