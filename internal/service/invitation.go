package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"

	"atrium/internal/authz"
	"atrium/internal/bus"
	"atrium/internal/domain"
	"atrium/internal/domain/models"
	"atrium/internal/domain/repositories"
	"atrium/internal/domain/services"
	"atrium/internal/realtime"
)

// invitationService implements the InvitationService interface.
type invitationService struct {
	inviteRepo    repositories.InviteRepository
	memberRepo    repositories.MemberRepository
	workspaceRepo repositories.WorkspaceRepository
	userRepo      repositories.UserRepository
	txManager     repositories.TransactionManager
	engine        *authz.Engine
	broadcaster   realtime.Broadcaster
	bus           *bus.Bus
	logger        *slog.Logger
}

// NewInvitationService creates a new invitation service. bus may be nil in
// tests; publishing is skipped.
func NewInvitationService(
	inviteRepo repositories.InviteRepository,
	memberRepo repositories.MemberRepository,
	workspaceRepo repositories.WorkspaceRepository,
	userRepo repositories.UserRepository,
	txManager repositories.TransactionManager,
	engine *authz.Engine,
	broadcaster realtime.Broadcaster,
	b *bus.Bus,
	logger *slog.Logger,
) services.InvitationService {
	return &invitationService{
		inviteRepo:    inviteRepo,
		memberRepo:    memberRepo,
		workspaceRepo: workspaceRepo,
		userRepo:      userRepo,
		txManager:     txManager,
		engine:        engine,
		broadcaster:   broadcaster,
		bus:           b,
		logger:        logger,
	}
}

func (s *invitationService) SendInvite(ctx context.Context, userID string, req *services.SendInviteRequest) (*models.Invite, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.WorkspaceID, validation.Required),
		validation.Field(&req.ReceiverEmail, validation.Required, is.Email),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if _, err := s.engine.CheckScopePermission(ctx, userID, req.WorkspaceID, "", models.AdminOnly()...); err != nil {
		return nil, err
	}

	// Re-sending to the same address returns the pending invite unchanged.
	if existing, err := s.inviteRepo.FindPending(ctx, req.WorkspaceID, req.ReceiverEmail); err == nil {
		return existing, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	// Already a member? The invite would be dead on arrival.
	if receiver, err := s.userRepo.GetByEmail(ctx, req.ReceiverEmail); err == nil {
		if _, err := s.memberRepo.FindByWorkspaceAndUser(ctx, req.WorkspaceID, receiver.ID); err == nil {
			return nil, &domain.ConflictError{
				Message:      "user is already a member of this workspace",
				ResourceType: "member",
				ResourceID:   receiver.ID,
			}
		}
	}

	invite := &models.Invite{
		ID:            uuid.NewString(),
		WorkspaceID:   req.WorkspaceID,
		SenderID:      userID,
		ReceiverEmail: req.ReceiverEmail,
		Status:        models.InvitePending,
	}
	if receiver, err := s.userRepo.GetByEmail(ctx, req.ReceiverEmail); err == nil {
		invite.ReceiverID = &receiver.ID
	}

	if err := s.inviteRepo.Create(ctx, invite); err != nil {
		return nil, err
	}

	s.logger.Info("invite sent",
		"invite_id", invite.ID,
		"workspace_id", req.WorkspaceID,
		"receiver_email", req.ReceiverEmail,
	)
	s.notifyReceiver(ctx, invite, userID)

	return invite, nil
}

func (s *invitationService) ListMyInvites(ctx context.Context, userID string) ([]models.Invite, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.inviteRepo.ListByReceiver(ctx, userID, user.Email)
}

func (s *invitationService) AcceptInvite(ctx context.Context, userID, inviteID string) error {
	invite, user, err := s.loadOwnInvite(ctx, userID, inviteID)
	if err != nil {
		return err
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		// Attach any invites sent before the user registered.
		if err := s.inviteRepo.ClaimByEmail(txCtx, user.Email, userID); err != nil {
			return err
		}
		if _, err := s.memberRepo.FindByWorkspaceAndUser(txCtx, invite.WorkspaceID, userID); err == nil {
			return &domain.ConflictError{
				Message:      "you are already a member of this workspace",
				ResourceType: "member",
				ResourceID:   userID,
			}
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		// The owner's subscription caps workspace headcount; count inside
		// the transaction so concurrent accepts see each other.
		workspace, err := s.workspaceRepo.GetByID(txCtx, invite.WorkspaceID)
		if err != nil {
			return err
		}
		owner, err := s.userRepo.GetByID(txCtx, workspace.OwnerID)
		if err != nil {
			return err
		}
		count, err := s.memberRepo.CountByWorkspace(txCtx, invite.WorkspaceID)
		if err != nil {
			return err
		}
		if count >= owner.MaxMembers {
			return fmt.Errorf("%w: workspace member limit reached", domain.ErrForbidden)
		}
		if err := s.inviteRepo.UpdateStatus(txCtx, inviteID, models.InviteAccepted); err != nil {
			return err
		}
		member := &models.Member{
			ID:          uuid.NewString(),
			UserID:      userID,
			WorkspaceID: invite.WorkspaceID,
			Role:        models.RoleViewer,
			SpaceIDs:    []string{},
		}
		return s.memberRepo.Create(txCtx, member)
	})
	if err != nil {
		return err
	}

	s.logger.Info("invite accepted", "invite_id", inviteID, "workspace_id", invite.WorkspaceID, "user_id", userID)
	s.announceAnswer(invite, userID, models.InviteAccepted)

	return nil
}

func (s *invitationService) DeclineInvite(ctx context.Context, userID, inviteID string) error {
	invite, _, err := s.loadOwnInvite(ctx, userID, inviteID)
	if err != nil {
		return err
	}

	if err := s.inviteRepo.UpdateStatus(ctx, inviteID, models.InviteRejected); err != nil {
		return err
	}

	s.logger.Info("invite declined", "invite_id", inviteID, "user_id", userID)
	s.announceAnswer(invite, userID, models.InviteRejected)

	return nil
}

// loadOwnInvite fetches a pending invite and verifies it is addressed to the
// caller, by id or by email.
func (s *invitationService) loadOwnInvite(ctx context.Context, userID, inviteID string) (*models.Invite, *models.User, error) {
	invite, err := s.inviteRepo.GetByID(ctx, inviteID)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	addressed := invite.ReceiverEmail == user.Email ||
		(invite.ReceiverID != nil && *invite.ReceiverID == userID)
	if !addressed {
		// Don't reveal someone else's invite.
		return nil, nil, fmt.Errorf("invite %s: %w", inviteID, domain.ErrNotFound)
	}
	if invite.Status != models.InvitePending {
		return nil, nil, &domain.ConflictError{
			Message:      "invite has already been answered",
			ResourceType: "invite",
			ResourceID:   inviteID,
		}
	}

	return invite, user, nil
}

// notifyReceiver emits the realtime notification if the receiver already has
// an account and hands the email off to the mailer.
func (s *invitationService) notifyReceiver(ctx context.Context, invite *models.Invite, senderID string) {
	if invite.ReceiverID != nil {
		if event, err := realtime.NewEvent(models.EventInviteReceived, models.InviteEvent{
			InviteID:    invite.ID,
			WorkspaceID: invite.WorkspaceID,
			Status:      invite.Status,
		}); err == nil {
			s.broadcaster.EmitToUser(*invite.ReceiverID, event)
		}
	}

	if s.bus == nil {
		return
	}
	workspaceName := ""
	if ws, err := s.workspaceRepo.GetByID(ctx, invite.WorkspaceID); err == nil {
		workspaceName = ws.Name
	}
	senderName := ""
	if sender, err := s.userRepo.GetByID(ctx, senderID); err == nil {
		senderName = sender.Name
	}
	if err := s.bus.PublishInviteNotification(bus.InviteNotification{
		InviteID:      invite.ID,
		WorkspaceID:   invite.WorkspaceID,
		WorkspaceName: workspaceName,
		SenderName:    senderName,
		ReceiverEmail: invite.ReceiverEmail,
	}); err != nil {
		s.logger.Error("publish invite notification", "error", err, "invite_id", invite.ID)
	}
}

// announceAnswer tells the sender and the platform that the invite reached a
// terminal status.
func (s *invitationService) announceAnswer(invite *models.Invite, receiverID string, status models.InviteStatus) {
	if event, err := realtime.NewEvent(models.EventInviteAnswered, models.InviteEvent{
		InviteID:    invite.ID,
		WorkspaceID: invite.WorkspaceID,
		Status:      status,
	}); err == nil {
		s.broadcaster.EmitToUser(invite.SenderID, event)
	}

	if s.bus == nil {
		return
	}
	if err := s.bus.PublishInviteStatus(bus.InviteStatusEvent{
		InviteID:    invite.ID,
		WorkspaceID: invite.WorkspaceID,
		ReceiverID:  receiverID,
		Status:      string(status),
	}); err != nil {
		s.logger.Error("publish invite status", "error", err, "invite_id", invite.ID)
	}
}
