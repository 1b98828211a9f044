// Package events publishes invitation lifecycle notifications so that other
// systems (mailers, audit) can react to them.
package events

import (
	"context"
	"time"
)

const (
	InvitationSent     = "invitation.sent"
	InvitationAccepted = "invitation.accepted"
	InvitationDeclined = "invitation.declined"
)

// Invitation is the payload of every invitation event.
type Invitation struct {
	Type         string    `json:"type"`
	InvitationID string    `json:"invitation_id"`
	OwnerUID     string    `json:"owner_uid"`
	OwnerEmail   string    `json:"owner_email"`
	InvitedEmail string    `json:"invited_email"`
	ActorUID     string    `json:"actor_uid"`
	OccurredAt   time.Time `json:"occurred_at"`
}

type Publisher interface {
	PublishInvitation(ctx context.Context, e Invitation) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) PublishInvitation(context.Context, Invitation) error { return nil }
func (Nop) Close() error                                         { return nil }
