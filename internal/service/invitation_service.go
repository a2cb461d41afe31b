package service

import (
	"context"
	"log/slog"

	"github.com/mmynk/kanak/internal/errs"
	"github.com/mmynk/kanak/internal/events"
	"github.com/mmynk/kanak/internal/membership"
	"github.com/mmynk/kanak/internal/models"
	"github.com/mmynk/kanak/internal/storage"
)

// InvitationService lets invited users see and answer their invitations.
type InvitationService struct {
	store     storage.Store
	publisher events.Publisher
}

// NewInvitationService creates a new InvitationService.
func NewInvitationService(store storage.Store, publisher events.Publisher) *InvitationService {
	return &InvitationService{store: store, publisher: publisher}
}

// ListPending returns the caller's pending invitations.
func (s *InvitationService) ListPending(ctx context.Context) ([]*models.Invitation, error) {
	actor, err := actorID(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.ListPendingInvitationsByInvitee(ctx, actor)
}

// Respond accepts or rejects an invitation addressed to the caller.
// Accepting makes the caller a member with the invited role. An invitation
// can be answered only once.
func (s *InvitationService) Respond(ctx context.Context, invitationID string, accept bool) (*models.Invitation, error) {
	actor, err := actorID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("RespondInvitation request received", "invitation_id", invitationID, "accept", accept)

	inv, err := s.store.GetInvitation(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if inv.InviteeID != actor {
		return nil, errs.New(errs.ErrAccessDenied, "only the invited user can respond to this invitation")
	}

	responder, err := s.store.GetUserByID(ctx, actor)
	if err != nil {
		return nil, err
	}

	err = s.store.InGroupTx(ctx, inv.GroupID, func(tx storage.GroupTx) error {
		current, err := tx.GetInvitation(ctx, invitationID)
		if err != nil {
			return err
		}
		member, err := membership.Respond(current, tx.Group(), responder, accept)
		if err != nil {
			return err
		}
		if member != nil {
			if err := tx.AddMember(ctx, *member); err != nil {
				return err
			}
		}
		if err := tx.UpdateInvitationStatus(ctx, current.ID, current.Status); err != nil {
			return err
		}
		inv = current
		return nil
	})
	if err != nil {
		slog.Warn("RespondInvitation failed", "invitation_id", invitationID, "error", err)
		return nil, err
	}

	typ := events.InvitationRejected
	if accept {
		typ = events.InvitationAccepted
	}
	event := events.NewMembershipEvent(typ, inv.GroupID, actor, actor, inv.Role)
	event.InvitationID = inv.ID
	publish(ctx, s.publisher, event)

	slog.Info("Invitation answered", "invitation_id", inv.ID, "status", inv.Status)
	return inv, nil
}
