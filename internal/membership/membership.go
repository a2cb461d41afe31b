// Package membership holds the rules for how people join a group.
//
// Guests are added directly. Registered users go through an invitation:
// NONE -> PENDING -> ACCEPTED | REJECTED, where both outcomes are terminal.
// The functions here only decide transitions; persisting them is the
// caller's job.
package membership

import (
	"strings"
	"time"

	"github.com/mmynk/kanak/internal/errs"
	"github.com/mmynk/kanak/internal/models"
)

// NewGuest creates a guest member with a fresh virtual ID.
// Guest names must be unique within the group.
func NewGuest(group *models.Group, name string) (models.Member, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Member{}, errs.New(errs.ErrValidation, "guest name is required")
	}
	for _, m := range group.Members {
		if m.Role == models.RoleGuest && strings.EqualFold(m.Username, name) {
			return models.Member{}, errs.Newf(errs.ErrStateConflict, "a guest named %q already exists in this group", name)
		}
	}
	return models.Member{
		UserID:   models.NewGuestID(),
		Username: name,
		Role:     models.RoleGuest,
		JoinedAt: time.Now().Unix(),
	}, nil
}

// GuestFor returns the guest that takes over the records of a departing member.
func GuestFor(departing *models.Member) models.Member {
	return models.Member{
		UserID:   models.NewGuestID(),
		Username: departing.Username,
		Role:     models.RoleGuest,
		JoinedAt: departing.JoinedAt,
	}
}

// Invite plans an invitation for invitee. hasPending reports whether a
// PENDING invitation already exists for (group, invitee).
func Invite(group *models.Group, inviter *models.Member, invitee *models.User, role models.Role, hasPending bool) (*models.Invitation, error) {
	if err := CheckInviteRole(role); err != nil {
		return nil, err
	}
	if group.IsMember(invitee.ID) {
		return nil, errs.ErrAlreadyMember
	}
	if hasPending {
		return nil, errs.ErrDuplicateInvitation
	}
	return models.NewInvitation(group, inviter, invitee, role), nil
}

// CheckInviteRole rejects roles that can never be granted through an invitation.
func CheckInviteRole(role models.Role) error {
	switch {
	case !role.Valid():
		return errs.Newf(errs.ErrValidation, "unknown role %q", role)
	case role == models.RoleOwner:
		return errs.New(errs.ErrValidation, "the OWNER role cannot be granted")
	case role == models.RoleGuest:
		return errs.New(errs.ErrValidation, "registered users cannot join as GUEST")
	}
	return nil
}

// Respond applies the invitee's answer to inv. On acceptance it returns the
// member to add, or nil when responder already belongs to the group.
// Only the invitee may respond.
func Respond(inv *models.Invitation, group *models.Group, responder *models.User, accept bool) (*models.Member, error) {
	if responder == nil || responder.ID != inv.InviteeID {
		return nil, errs.New(errs.ErrAccessDenied, "only the invited user can respond to this invitation")
	}
	if err := inv.Respond(accept); err != nil {
		return nil, err
	}
	if !accept || group.IsMember(responder.ID) {
		return nil, nil
	}
	return &models.Member{
		UserID:   responder.ID,
		Username: responder.Username,
		Role:     inv.Role,
		JoinedAt: time.Now().Unix(),
	}, nil
}
