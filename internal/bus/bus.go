// Package bus connects the service to the platform's NATS message fabric.
// The account service publishes user.verified when a registration completes;
// this service consumes it to provision the personal workspace and publishes
// invitation notifications back for the mailer.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// Subjects this service speaks on.
const (
	SubjectUserVerified = "user.verified"
	SubjectInviteNotify = "notification.invitation"
	SubjectInviteStatus = "invitation.status"
)

// provisioningQueueGroup makes user.verified a competing-consumer subject:
// one instance per event.
const provisioningQueueGroup = "atrium-provisioning"

// UserVerifiedEvent is the account service's registration-complete payload.
type UserVerifiedEvent struct {
	UserID        string `json:"userId"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	MaxWorkspaces int    `json:"maxWorkspaces"`
	MaxMembers    int    `json:"maxMembers"`
}

// InviteNotification tells the mailer to send an invitation email.
type InviteNotification struct {
	InviteID      string `json:"inviteId"`
	WorkspaceID   string `json:"workspaceId"`
	WorkspaceName string `json:"workspaceName"`
	SenderName    string `json:"senderName"`
	ReceiverEmail string `json:"receiverEmail"`
}

// InviteStatusEvent announces an invite reaching a terminal status.
type InviteStatusEvent struct {
	InviteID    string `json:"inviteId"`
	WorkspaceID string `json:"workspaceId"`
	ReceiverID  string `json:"receiverId"`
	Status      string `json:"status"`
}

// UserVerifiedHandler processes one user.verified event. Returning an error
// leaves the message unacknowledged for redelivery, so handlers must be
// idempotent.
type UserVerifiedHandler func(ctx context.Context, event UserVerifiedEvent) error

// Bus wraps the NATS connection with this service's subjects.
type Bus struct {
	nc     *nats.Conn
	logger *slog.Logger
}

func Connect(url string, logger *slog.Logger) (*Bus, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Bus{nc: nc, logger: logger}, nil
}

func (b *Bus) Close() {
	b.nc.Drain()
}

// SubscribeUserVerified consumes registration events in a queue group so
// only one instance provisions each user.
func (b *Bus) SubscribeUserVerified(handler UserVerifiedHandler) (*nats.Subscription, error) {
	sub, err := b.nc.QueueSubscribe(SubjectUserVerified, provisioningQueueGroup, func(msg *nats.Msg) {
		var event UserVerifiedEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			b.logger.Error("drop malformed user.verified event", "error", err)
			return
		}
		if err := handler(context.Background(), event); err != nil {
			b.logger.Error("provision user failed", "error", err, "user_id", event.UserID)
			return
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", SubjectUserVerified, err)
	}
	return sub, nil
}

// PublishInviteNotification hands the invite to the mailer.
func (b *Bus) PublishInviteNotification(n InviteNotification) error {
	return b.publish(SubjectInviteNotify, n)
}

// PublishInviteStatus announces an accepted or rejected invite.
func (b *Bus) PublishInviteStatus(e InviteStatusEvent) error {
	return b.publish(SubjectInviteStatus, e)
}

func (b *Bus) publish(subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", subject, err)
	}
	if err := b.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}
