package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mmynk/kanak/internal/errs"
	"github.com/mmynk/kanak/internal/events"
	"github.com/mmynk/kanak/internal/models"
	"github.com/mmynk/kanak/internal/storage/sqlite"
)

func TestInviteRules(t *testing.T) {
	f := newFixture(t)
	owner, editor, invitee := f.user(t, "owner"), f.user(t, "editor"), f.user(t, "invitee")
	g := f.group(t, owner, "Club")
	f.join(t, g.ID, owner, editor, models.RoleEditor)

	tests := []struct {
		name       string
		actor      *models.User
		identifier string
		role       models.Role
		wantErr    error
	}{
		{"editor cannot invite", editor, invitee.Email, models.RoleViewer, errs.ErrAccessDenied},
		{"unknown email", owner, "ghost@example.com", models.RoleViewer, errs.ErrUserNotFound},
		{"already a member", owner, editor.Email, models.RoleViewer, errs.ErrAlreadyMember},
		{"owner role cannot be granted", owner, invitee.Email, models.RoleOwner, errs.ErrValidation},
		{"unknown role", owner, invitee.Email, models.Role("BOSS"), errs.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.groups.AddMember(as(tt.actor), g.ID, tt.identifier, tt.role)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	res, err := f.groups.AddMember(as(owner), g.ID, " INVITEE@example.com ", models.RoleViewer)
	require.NoError(t, err)
	assert.Equal(t, invitee.ID, res.Invitation.InviteeID)
	assert.Equal(t, "owner", res.Invitation.InviterName)
	assert.Equal(t, "Club", res.Invitation.GroupName)

	_, err = f.groups.AddMember(as(owner), g.ID, invitee.Email, models.RoleAdmin)
	assert.ErrorIs(t, err, errs.ErrDuplicateInvitation)

	pending, err := f.groups.ListGroupInvitations(as(editor), g.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, res.Invitation.ID, pending[0].ID)

	mine, err := f.invitations.ListPending(as(invitee))
	require.NoError(t, err)
	require.Len(t, mine, 1)

	theirs, err := f.invitations.ListPending(as(editor))
	require.NoError(t, err)
	assert.Empty(t, theirs)
}

func TestRespond(t *testing.T) {
	f := newFixture(t)
	owner, invitee, other := f.user(t, "owner"), f.user(t, "invitee"), f.user(t, "other")
	g := f.group(t, owner, "Club")

	res, err := f.groups.AddMember(as(owner), g.ID, invitee.Email, models.RoleEditor)
	require.NoError(t, err)
	invitationID := res.Invitation.ID

	_, err = f.invitations.Respond(as(other), invitationID, true)
	assert.ErrorIs(t, err, errs.ErrAccessDenied)
	_, err = f.invitations.Respond(as(owner), invitationID, true)
	assert.ErrorIs(t, err, errs.ErrAccessDenied, "the inviter cannot answer for the invitee")

	rejected, err := f.invitations.Respond(as(invitee), invitationID, false)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationRejected, rejected.Status)
	assert.Equal(t, events.InvitationRejected, f.lastEvent(t).Type)

	_, err = f.groups.GetGroup(as(invitee), g.ID)
	assert.ErrorIs(t, err, errs.ErrAccessDenied, "rejecting does not grant membership")

	_, err = f.invitations.Respond(as(invitee), invitationID, true)
	assert.ErrorIs(t, err, errs.ErrInvalidState, "rejection is terminal")

	// A rejected invitation no longer blocks a new one.
	res, err = f.groups.AddMember(as(owner), g.ID, invitee.Email, models.RoleViewer)
	require.NoError(t, err)
	_, err = f.invitations.Respond(as(invitee), res.Invitation.ID, true)
	require.NoError(t, err)

	group, err := f.groups.GetGroup(as(invitee), g.ID)
	require.NoError(t, err)
	m, ok := group.Member(invitee.ID)
	require.True(t, ok)
	assert.Equal(t, models.RoleViewer, m.Role)
	assert.Equal(t, "invitee", m.Username)
}

func TestPublishFailureDoesNotUndoChange(t *testing.T) {
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctrl := gomock.NewController(t)
	publisher := events.NewMockPublisher(ctrl)
	publisher.EXPECT().
		Publish(gomock.Any(), gomock.Any()).
		Return(errors.New("broker unavailable")).
		Times(1)

	groups := NewGroupService(store, publisher)

	owner := models.NewUser("owner@example.com", "owner", "hash")
	require.NoError(t, store.CreateUser(context.Background(), owner))
	g, err := groups.CreateGroup(as(owner), "Club", "")
	require.NoError(t, err)

	res, err := groups.AddMember(as(owner), g.ID, "Sam", models.RoleGuest)
	require.NoError(t, err)

	group, err := groups.GetGroup(as(owner), g.ID)
	require.NoError(t, err)
	assert.True(t, group.IsMember(res.Member.UserID))
}
