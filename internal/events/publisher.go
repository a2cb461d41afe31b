// Package events publishes membership changes to interested consumers.
package events

//go:generate mockgen -source=publisher.go -destination=publisher_mock.go -package=events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mmynk/kanak/internal/models"
)

// Type names a membership change.
type Type string

const (
	InvitationCreated  Type = "invitation.created"
	InvitationAccepted Type = "invitation.accepted"
	InvitationRejected Type = "invitation.rejected"
	GuestAdded         Type = "member.guest_added"
	MemberRemoved      Type = "member.removed"
	MemberLeft         Type = "member.left"
)

// MembershipEvent is the message body published for every membership change.
type MembershipEvent struct {
	Type         Type        `json:"type"`
	GroupID      string      `json:"groupId"`
	InvitationID string      `json:"invitationId,omitempty"`
	UserID       string      `json:"userId"`
	Role         models.Role `json:"role,omitempty"`
	ActorID      string      `json:"actorId"`
	At           time.Time   `json:"at"`
}

// NewMembershipEvent stamps an event with the current time.
func NewMembershipEvent(typ Type, groupID, userID, actorID string, role models.Role) MembershipEvent {
	return MembershipEvent{
		Type:    typ,
		GroupID: groupID,
		UserID:  userID,
		Role:    role,
		ActorID: actorID,
		At:      time.Now().UTC(),
	}
}

// ToJSON encodes the event as a message body.
func (e MembershipEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers membership events.
type Publisher interface {
	Publish(ctx context.Context, event MembershipEvent) error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, MembershipEvent) error { return nil }
