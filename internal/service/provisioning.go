package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"atrium/internal/bus"
	"atrium/internal/config"
	"atrium/internal/domain/models"
	"atrium/internal/domain/repositories"
	"atrium/internal/realtime"
)

// ProvisioningService consumes user.verified events and sets up the user's
// personal workspace. Events are delivered at least once, so every step is
// written to be safely re-runnable.
type ProvisioningService struct {
	userRepo      repositories.UserRepository
	workspaceRepo repositories.WorkspaceRepository
	spaceRepo     repositories.SpaceRepository
	memberRepo    repositories.MemberRepository
	inviteRepo    repositories.InviteRepository
	txManager     repositories.TransactionManager
	broadcaster   realtime.Broadcaster
	logger        *slog.Logger
}

func NewProvisioningService(
	userRepo repositories.UserRepository,
	workspaceRepo repositories.WorkspaceRepository,
	spaceRepo repositories.SpaceRepository,
	memberRepo repositories.MemberRepository,
	inviteRepo repositories.InviteRepository,
	txManager repositories.TransactionManager,
	broadcaster realtime.Broadcaster,
	logger *slog.Logger,
) *ProvisioningService {
	return &ProvisioningService{
		userRepo:      userRepo,
		workspaceRepo: workspaceRepo,
		spaceRepo:     spaceRepo,
		memberRepo:    memberRepo,
		inviteRepo:    inviteRepo,
		txManager:     txManager,
		broadcaster:   broadcaster,
		logger:        logger,
	}
}

// HandleUserVerified upserts the user and, on first delivery, creates the
// personal workspace with its default space and the owner's ADMIN membership
// in one transaction.
func (s *ProvisioningService) HandleUserVerified(ctx context.Context, event bus.UserVerifiedEvent) error {
	user := &models.User{
		ID:            event.UserID,
		Name:          event.Name,
		Email:         event.Email,
		MaxWorkspaces: event.MaxWorkspaces,
		MaxMembers:    event.MaxMembers,
	}
	if user.MaxWorkspaces <= 0 {
		user.MaxWorkspaces = config.DefaultMaxWorkspaces
	}
	if user.MaxMembers <= 0 {
		user.MaxMembers = config.DefaultMaxMembers
	}
	if err := s.userRepo.Upsert(ctx, user); err != nil {
		return err
	}

	// A redelivered event finds the workspace already owned and stops here.
	owned, err := s.workspaceRepo.CountByOwner(ctx, event.UserID)
	if err != nil {
		return err
	}
	if owned > 0 {
		s.logger.Debug("user already provisioned", "user_id", event.UserID)
		return nil
	}

	workspace := &models.Workspace{
		ID:      uuid.NewString(),
		Name:    event.Name + "'s Workspace",
		OwnerID: event.UserID,
		Type:    models.WorkspacePersonal,
	}
	space := &models.Space{
		ID:   uuid.NewString(),
		Name: "General",
		Type: models.SpaceDefault,
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.workspaceRepo.Create(txCtx, workspace); err != nil {
			return err
		}
		space.WorkspaceID = workspace.ID
		if err := s.spaceRepo.Create(txCtx, space); err != nil {
			return err
		}
		member := &models.Member{
			ID:          uuid.NewString(),
			UserID:      event.UserID,
			WorkspaceID: workspace.ID,
			Role:        models.RoleAdmin,
			SpaceIDs:    []string{space.ID},
		}
		if err := s.memberRepo.Create(txCtx, member); err != nil {
			return err
		}
		// Invites sent to this address before registration now have a user.
		return s.inviteRepo.ClaimByEmail(txCtx, event.Email, event.UserID)
	})
	if err != nil {
		return err
	}

	if err := s.userRepo.SetSelectedWorkspace(ctx, event.UserID, workspace.ID); err != nil {
		s.logger.Warn("set selected workspace", "error", err, "user_id", event.UserID)
	}

	s.logger.Info("user provisioned",
		"user_id", event.UserID,
		"workspace_id", workspace.ID,
		"space_id", space.ID,
	)

	if ev, err := realtime.NewEvent(models.EventWorkspaceCreated, models.WorkspaceCreatedEvent{
		WorkspaceID: workspace.ID,
		Name:        workspace.Name,
	}); err == nil {
		s.broadcaster.EmitToUser(user.ID, ev)
	}

	return nil
}
