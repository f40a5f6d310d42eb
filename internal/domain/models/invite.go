package models

import "time"

// InviteStatus is the lifecycle of a workspace invitation. Invites transition
// from PENDING to exactly one terminal status and are never deleted.
type InviteStatus string

const (
	InvitePending  InviteStatus = "PENDING"
	InviteAccepted InviteStatus = "ACCEPTED"
	InviteRejected InviteStatus = "REJECTED"
)

// Invite is a pending offer of workspace membership. ReceiverID stays nil
// until the invited email belongs to a registered user.
type Invite struct {
	ID            string       `json:"id" db:"id"`
	WorkspaceID   string       `json:"workspace_id" db:"workspace_id"`
	SenderID      string       `json:"sender_id" db:"sender_id"`
	ReceiverID    *string      `json:"receiver_id,omitempty" db:"receiver_id"`
	ReceiverEmail string       `json:"receiver_email" db:"receiver_email"`
	Status        InviteStatus `json:"status" db:"status"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at" db:"updated_at"`
}
