package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmynk/kanak/internal/access"
	"github.com/mmynk/kanak/internal/auth"
	"github.com/mmynk/kanak/internal/calculator"
	"github.com/mmynk/kanak/internal/errs"
	"github.com/mmynk/kanak/internal/events"
	"github.com/mmynk/kanak/internal/membership"
	"github.com/mmynk/kanak/internal/models"
	"github.com/mmynk/kanak/internal/report"
	"github.com/mmynk/kanak/internal/storage"
)

// GroupService manages groups and their members.
type GroupService struct {
	store     storage.Store
	publisher events.Publisher
}

// NewGroupService creates a new GroupService with the given storage backend.
func NewGroupService(store storage.Store, publisher events.Publisher) *GroupService {
	return &GroupService{store: store, publisher: publisher}
}

// GroupUpdate carries the fields of UpdateGroup. Nil fields are left as is.
type GroupUpdate struct {
	Name        *string
	Description *string
}

// AddMemberResult tells whether AddMember created a member directly (guests)
// or sent an invitation. Exactly one field is set.
type AddMemberResult struct {
	Member     *models.Member
	Invitation *models.Invitation
}

// Balances is every member's position plus the plan that settles them.
type Balances struct {
	Members     []calculator.MemberStats
	Settlements []models.Transfer
}

// CreateGroup creates a group owned by the caller.
func (s *GroupService) CreateGroup(ctx context.Context, name, description string) (*models.Group, error) {
	actor, err := actorID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("CreateGroup request received", "name", name, "user_id", actor)

	name = cleanText(name)
	if name == "" {
		return nil, errs.New(errs.ErrValidation, "group name is required")
	}

	owner, err := s.store.GetUserByID(ctx, actor)
	if err != nil {
		if errors.Is(err, errs.ErrUserNotFound) {
			return nil, auth.ErrInvalidToken
		}
		return nil, err
	}

	existing, err := s.store.ListGroupsByMember(ctx, actor)
	if err != nil {
		return nil, err
	}
	for _, g := range existing {
		if g.CreatedBy == actor && strings.EqualFold(g.Name, name) {
			return nil, fmt.Errorf("%w: %q", errs.ErrDuplicateGroupName, name)
		}
	}

	group := models.NewGroup(name, cleanText(description), owner)
	if err := s.store.CreateGroup(ctx, group); err != nil {
		slog.Error("CreateGroup failed", "error", err)
		return nil, err
	}

	slog.Info("Group created", "group_id", group.ID)
	return group, nil
}

// ListGroups returns the groups the caller belongs to.
func (s *GroupService) ListGroups(ctx context.Context) ([]*models.Group, error) {
	actor, err := actorID(ctx)
	if err != nil {
		return nil, err
	}

	groups, err := s.store.ListGroupsByMember(ctx, actor)
	if err != nil {
		slog.Error("ListGroups failed", "error", err)
		return nil, err
	}

	slog.Info("ListGroups successful", "count", len(groups))
	return groups, nil
}

// GetGroup returns a group the caller is a member of.
func (s *GroupService) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	actor, err := actorID(ctx)
	if err != nil {
		return nil, err
	}

	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if _, err := access.Authorize(group, actor, access.ViewGroup); err != nil {
		return nil, err
	}
	return group, nil
}

// UpdateGroup renames the group or changes its description. Owner only.
func (s *GroupService) UpdateGroup(ctx context.Context, groupID string, upd GroupUpdate) (*models.Group, error) {
	actor, err := actorID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("UpdateGroup request received", "group_id", groupID)

	var updated *models.Group
	err = s.store.InGroupTx(ctx, groupID, func(tx storage.GroupTx) error {
		group := tx.Group()
		if _, err := access.Authorize(group, actor, access.UpdateGroup); err != nil {
			return err
		}

		name, description := group.Name, group.Description
		if upd.Name != nil {
			name = cleanText(*upd.Name)
			if name == "" {
				return errs.New(errs.ErrValidation, "group name is required")
			}
		}
		if upd.Description != nil {
			description = cleanText(*upd.Description)
		}
		if err := tx.UpdateGroup(ctx, name, description); err != nil {
			return err
		}
		updated = group
		return nil
	})
	if err != nil {
		slog.Warn("UpdateGroup failed", "group_id", groupID, "error", err)
		return nil, err
	}

	slog.Info("Group updated", "group_id", groupID)
	return updated, nil
}

// DeleteGroup removes the group and everything in it. Owner only.
func (s *GroupService) DeleteGroup(ctx context.Context, groupID string) error {
	actor, err := actorID(ctx)
	if err != nil {
		return err
	}
	slog.Info("DeleteGroup request received", "group_id", groupID)

	err = s.store.InGroupTx(ctx, groupID, func(tx storage.GroupTx) error {
		if _, err := access.Authorize(tx.Group(), actor, access.DeleteGroup); err != nil {
			return err
		}
		return tx.DeleteGroup(ctx)
	})
	if err != nil {
		slog.Warn("DeleteGroup failed", "group_id", groupID, "error", err)
		return err
	}

	slog.Info("Group deleted", "group_id", groupID)
	return nil
}

// AddMember adds a guest by name, or invites the registered user whose email
// is identifier.
func (s *GroupService) AddMember(ctx context.Context, groupID, identifier string, role models.Role) (*AddMemberResult, error) {
	actor, err := actorID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("AddMember request received", "group_id", groupID, "role", role)

	if role == models.RoleGuest {
		return s.addGuest(ctx, actor, groupID, identifier)
	}
	if err := membership.CheckInviteRole(role); err != nil {
		return nil, err
	}

	// Authorize before touching user records so non-members cannot probe
	// which emails are registered.
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if _, err := access.Authorize(group, actor, access.InviteMember); err != nil {
		return nil, err
	}

	invitee, err := s.store.GetUserByEmail(ctx, auth.NormalizeEmail(identifier))
	if err != nil {
		return nil, err
	}

	var inv *models.Invitation
	err = s.store.InGroupTx(ctx, groupID, func(tx storage.GroupTx) error {
		inviter, err := access.Authorize(tx.Group(), actor, access.InviteMember)
		if err != nil {
			return err
		}
		pending, err := tx.HasPendingInvitation(ctx, invitee.ID)
		if err != nil {
			return err
		}
		if inv, err = membership.Invite(tx.Group(), inviter, invitee, role, pending); err != nil {
			return err
		}
		return tx.CreateInvitation(ctx, inv)
	})
	if err != nil {
		slog.Warn("AddMember failed", "group_id", groupID, "error", err)
		return nil, err
	}

	event := events.NewMembershipEvent(events.InvitationCreated, groupID, invitee.ID, actor, role)
	event.InvitationID = inv.ID
	publish(ctx, s.publisher, event)

	slog.Info("Invitation sent", "group_id", groupID, "invitation_id", inv.ID)
	return &AddMemberResult{Invitation: inv}, nil
}

func (s *GroupService) addGuest(ctx context.Context, actor, groupID, name string) (*AddMemberResult, error) {
	var guest models.Member
	err := s.store.InGroupTx(ctx, groupID, func(tx storage.GroupTx) error {
		if _, err := access.Authorize(tx.Group(), actor, access.InviteMember); err != nil {
			return err
		}
		var err error
		if guest, err = membership.NewGuest(tx.Group(), cleanText(name)); err != nil {
			return err
		}
		return tx.AddMember(ctx, guest)
	})
	if err != nil {
		slog.Warn("AddMember failed", "group_id", groupID, "error", err)
		return nil, err
	}

	publish(ctx, s.publisher, events.NewMembershipEvent(events.GuestAdded, groupID, guest.UserID, actor, models.RoleGuest))

	slog.Info("Guest added", "group_id", groupID, "guest_id", guest.UserID)
	return &AddMemberResult{Member: &guest}, nil
}

// ChangeMemberRole assigns a new role to a member. The owner's role and guest
// roles are fixed, and OWNER or GUEST cannot be assigned.
func (s *GroupService) ChangeMemberRole(ctx context.Context, groupID, userID string, role models.Role) (*models.Group, error) {
	actor, err := actorID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("ChangeMemberRole request received", "group_id", groupID, "member_id", userID, "role", role)

	var updated *models.Group
	err = s.store.InGroupTx(ctx, groupID, func(tx storage.GroupTx) error {
		group := tx.Group()
		if _, err := access.Authorize(group, actor, access.ChangeRole); err != nil {
			return err
		}
		target, ok := group.Member(userID)
		if !ok {
			return errs.ErrMemberNotFound
		}
		switch target.Role {
		case models.RoleOwner:
			return errs.ErrOwnerImmutable
		case models.RoleGuest:
			return errs.New(errs.ErrStateConflict, "guest members cannot change role")
		}
		if err := membership.CheckInviteRole(role); err != nil {
			return err
		}
		if err := tx.UpdateMemberRole(ctx, userID, role); err != nil {
			return err
		}
		updated = group
		return nil
	})
	if err != nil {
		slog.Warn("ChangeMemberRole failed", "group_id", groupID, "error", err)
		return nil, err
	}
	return updated, nil
}

// RemoveMember takes a member out of the group. A registered user is replaced
// by a guest of the same name that keeps their transactions, so balances do
// not move. A guest is removed only while no transaction references it.
func (s *GroupService) RemoveMember(ctx context.Context, groupID, userID string) (*models.Group, error) {
	actor, err := actorID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("RemoveMember request received", "group_id", groupID, "member_id", userID)

	var (
		updated  *models.Group
		departed models.Member
	)
	err = s.store.InGroupTx(ctx, groupID, func(tx storage.GroupTx) error {
		group := tx.Group()
		if _, err := access.Authorize(group, actor, access.RemoveMember); err != nil {
			return err
		}
		if userID == actor {
			return errs.New(errs.ErrValidation, "you cannot remove yourself, leave the group instead")
		}
		target, ok := group.Member(userID)
		if !ok {
			return errs.ErrMemberNotFound
		}
		departed = *target

		switch departed.Role {
		case models.RoleOwner:
			return errs.ErrOwnerImmutable
		case models.RoleGuest:
			n, err := tx.CountMemberRecords(ctx, userID)
			if err != nil {
				return err
			}
			if n > 0 {
				return errs.Newf(errs.ErrStateConflict, "%s appears in %d transactions and cannot be removed", departed.Username, n)
			}
			if err := tx.RemoveMember(ctx, userID); err != nil {
				return err
			}
		default:
			if err := tx.ReplaceMember(ctx, userID, membership.GuestFor(&departed)); err != nil {
				return err
			}
		}
		updated = group
		return nil
	})
	if err != nil {
		slog.Warn("RemoveMember failed", "group_id", groupID, "error", err)
		return nil, err
	}

	publish(ctx, s.publisher, events.NewMembershipEvent(events.MemberRemoved, groupID, userID, actor, departed.Role))

	slog.Info("Member removed", "group_id", groupID, "member_id", userID)
	return updated, nil
}

// LeaveGroup removes the caller from the group, handing their records to a
// guest of the same name. The owner cannot leave.
func (s *GroupService) LeaveGroup(ctx context.Context, groupID string) error {
	actor, err := actorID(ctx)
	if err != nil {
		return err
	}
	slog.Info("LeaveGroup request received", "group_id", groupID)

	var departed models.Member
	err = s.store.InGroupTx(ctx, groupID, func(tx storage.GroupTx) error {
		group := tx.Group()
		me, err := access.Authorize(group, actor, access.ViewGroup)
		if err != nil {
			return err
		}
		if me.Role == models.RoleOwner {
			return errs.New(errs.ErrStateConflict, "the owner cannot leave the group")
		}
		if _, err := access.Authorize(group, actor, access.LeaveGroup); err != nil {
			return err
		}
		departed = *me
		return tx.ReplaceMember(ctx, actor, membership.GuestFor(&departed))
	})
	if err != nil {
		slog.Warn("LeaveGroup failed", "group_id", groupID, "error", err)
		return err
	}

	publish(ctx, s.publisher, events.NewMembershipEvent(events.MemberLeft, groupID, actor, actor, departed.Role))

	slog.Info("Member left", "group_id", groupID)
	return nil
}

// ListGroupInvitations returns the group's pending invitations.
func (s *GroupService) ListGroupInvitations(ctx context.Context, groupID string) ([]*models.Invitation, error) {
	if _, err := s.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return s.store.ListPendingInvitationsByGroup(ctx, groupID)
}

// GetBalances folds the whole transaction history into member balances and
// the settlement plan.
func (s *GroupService) GetBalances(ctx context.Context, groupID string) (*Balances, error) {
	group, txs, err := s.ledger(ctx, groupID)
	if err != nil {
		return nil, err
	}

	stats := calculator.CalculateGroupStats(txs, group.Members)
	settlements := calculator.CalculateSettlements(stats)

	slog.Info("GetBalances successful",
		"group_id", groupID,
		"transactions", len(txs),
		"settlements", len(settlements),
	)
	return &Balances{Members: stats, Settlements: settlements}, nil
}

// Report builds the ledger export for the transactions dated inside rng.
func (s *GroupService) Report(ctx context.Context, groupID string, rng report.Range) (*report.Report, error) {
	group, txs, err := s.ledger(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return report.Build(group, txs, rng), nil
}

// ledger loads a group and its transactions after checking that the caller
// may read them.
func (s *GroupService) ledger(ctx context.Context, groupID string) (*models.Group, []*models.Transaction, error) {
	actor, err := actorID(ctx)
	if err != nil {
		return nil, nil, err
	}

	group, txs, err := s.store.GetLedger(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}
	if _, err := access.Authorize(group, actor, access.ViewGroup); err != nil {
		return nil, nil, err
	}
	return group, txs, nil
}
