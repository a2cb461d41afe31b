package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/kanak/internal/errs"
)

// InvitationStatus is the lifecycle state of an invitation.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "PENDING"
	InvitationAccepted InvitationStatus = "ACCEPTED"
	InvitationRejected InvitationStatus = "REJECTED"
)

// Invitation offers a registered user membership in a group.
// PENDING is the only non-terminal status.
type Invitation struct {
	ID           string
	GroupID      string
	GroupName    string
	InviterID    string
	InviterName  string
	InviteeID    string
	InviteeEmail string

	// Role is granted on acceptance.
	Role   Role
	Status InvitationStatus

	// CreatedAt is the Unix timestamp when the invitation was sent.
	CreatedAt int64
}

// NewInvitation creates a pending invitation.
func NewInvitation(group *Group, inviter *Member, invitee *User, role Role) *Invitation {
	return &Invitation{
		ID:           uuid.New().String(),
		GroupID:      group.ID,
		GroupName:    group.Name,
		InviterID:    inviter.UserID,
		InviterName:  inviter.Username,
		InviteeID:    invitee.ID,
		InviteeEmail: invitee.Email,
		Role:         role,
		Status:       InvitationPending,
		CreatedAt:    time.Now().Unix(),
	}
}

// Respond moves a pending invitation to ACCEPTED or REJECTED.
// Answered invitations are terminal and return errs.ErrInvalidState.
func (i *Invitation) Respond(accept bool) error {
	if i.Status != InvitationPending {
		return errs.ErrInvalidState
	}
	if accept {
		i.Status = InvitationAccepted
	} else {
		i.Status = InvitationRejected
	}
	return nil
}
