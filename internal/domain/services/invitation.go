package services

import (
	"context"

	"atrium/internal/domain/models"
)

// InvitationService handles workspace invitations. Sending the same invite
// twice returns the existing pending record instead of a duplicate.
type InvitationService interface {
	// SendInvite invites an email address into a workspace. ADMIN only.
	SendInvite(ctx context.Context, userID string, req *SendInviteRequest) (*models.Invite, error)

	// ListMyInvites lists invites addressed to the caller.
	ListMyInvites(ctx context.Context, userID string) ([]models.Invite, error)

	// AcceptInvite turns a pending invite into a membership. The status flip
	// and the member insert commit together.
	AcceptInvite(ctx context.Context, userID, inviteID string) error

	// DeclineInvite marks a pending invite rejected.
	DeclineInvite(ctx context.Context, userID, inviteID string) error
}

// SendInviteRequest represents an invitation request.
type SendInviteRequest struct {
	WorkspaceID   string `json:"workspace_id"`
	ReceiverEmail string `json:"receiver_email"`
}
