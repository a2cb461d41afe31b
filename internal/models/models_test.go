package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/kanak/internal/errs"
)

func TestInvitationRespond(t *testing.T) {
	t.Run("accept", func(t *testing.T) {
		inv := &Invitation{Status: InvitationPending}
		require.NoError(t, inv.Respond(true))
		assert.Equal(t, InvitationAccepted, inv.Status)
	})

	t.Run("reject", func(t *testing.T) {
		inv := &Invitation{Status: InvitationPending}
		require.NoError(t, inv.Respond(false))
		assert.Equal(t, InvitationRejected, inv.Status)
	})

	t.Run("terminal states are final", func(t *testing.T) {
		for _, status := range []InvitationStatus{InvitationAccepted, InvitationRejected} {
			inv := &Invitation{Status: status}
			err := inv.Respond(true)
			assert.ErrorIs(t, err, errs.ErrInvalidState)
			assert.ErrorIs(t, err, errs.ErrStateConflict)
			assert.Equal(t, status, inv.Status)
		}
	})
}

func TestTransactionPayerDefaultsToCreator(t *testing.T) {
	tx := &Transaction{CreatedByID: "a"}
	assert.Equal(t, "a", tx.Payer())

	tx.PayerID = "b"
	assert.Equal(t, "b", tx.Payer())
}

func TestGroupMembers(t *testing.T) {
	owner := NewUser("a@example.com", "alice", "")
	g := NewGroup("Trip", "", owner)

	require.Len(t, g.Members, 1)
	assert.Equal(t, RoleOwner, g.Owner().Role)
	assert.True(t, g.IsMember(owner.ID))
	assert.False(t, g.IsMember("nobody"))

	m, ok := g.Member(owner.ID)
	require.True(t, ok)
	m.Username = "alice2"
	assert.Equal(t, "alice2", g.Members[0].Username)
}

func TestGuestIDs(t *testing.T) {
	id := NewGuestID()
	assert.True(t, IsGuestID(id))
	assert.False(t, IsGuestID("3f0e3b1c-0000-0000-0000-000000000000"))
}

func TestTransferString(t *testing.T) {
	tr := Transfer{FromName: "bob", ToName: "alice", Amount: 45}
	assert.Equal(t, "bob owes alice 45.00", tr.String())
}
