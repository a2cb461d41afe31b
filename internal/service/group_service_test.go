package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/kanak/internal/errs"
	"github.com/mmynk/kanak/internal/events"
	"github.com/mmynk/kanak/internal/models"
	"github.com/mmynk/kanak/internal/report"
)

func strPtr(s string) *string { return &s }

func TestCreateGroup(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.user(t, "alice"), f.user(t, "bob")

	g, err := f.groups.CreateGroup(as(alice), "<b>Trip</b> & co", "  summer  ")
	require.NoError(t, err)
	assert.Equal(t, "Trip & co", g.Name)
	assert.Equal(t, "summer", g.Description)
	require.Len(t, g.Members, 1)
	assert.Equal(t, models.RoleOwner, g.Members[0].Role)
	assert.Equal(t, "alice", g.Members[0].Username)

	_, err = f.groups.CreateGroup(as(alice), "TRIP & CO", "")
	assert.ErrorIs(t, err, errs.ErrStateConflict)
	assert.ErrorIs(t, err, errs.ErrDuplicateGroupName)

	_, err = f.groups.CreateGroup(as(bob), "Trip & co", "")
	assert.NoError(t, err, "names are only unique per creator")

	_, err = f.groups.CreateGroup(as(alice), "   ", "")
	assert.ErrorIs(t, err, errs.ErrValidation)

	groups, err := f.groups.ListGroups(as(alice))
	require.NoError(t, err)
	assert.Len(t, groups, 1)
}

func TestCreateGroupConcurrentDuplicates(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")

	const n = 8
	var wg sync.WaitGroup
	results := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, results[i] = f.groups.CreateGroup(as(alice), "Ski Week", "")
		}()
	}
	wg.Wait()

	created := 0
	for _, err := range results {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, errs.ErrDuplicateGroupName)
	}
	assert.Equal(t, 1, created)

	groups, err := f.groups.ListGroups(as(alice))
	require.NoError(t, err)
	assert.Len(t, groups, 1)
}

func TestUpdateAndDeleteGroup(t *testing.T) {
	f := newFixture(t)
	owner, admin := f.user(t, "owner"), f.user(t, "admin")
	g := f.group(t, owner, "Flat")
	f.join(t, g.ID, owner, admin, models.RoleAdmin)

	_, err := f.groups.UpdateGroup(as(admin), g.ID, GroupUpdate{Name: strPtr("Mine")})
	assert.ErrorIs(t, err, errs.ErrAccessDenied)

	_, err = f.groups.UpdateGroup(as(owner), g.ID, GroupUpdate{Name: strPtr(" ")})
	assert.ErrorIs(t, err, errs.ErrValidation)

	f.group(t, owner, "Holiday")
	_, err = f.groups.UpdateGroup(as(owner), g.ID, GroupUpdate{Name: strPtr("HOLIDAY")})
	assert.ErrorIs(t, err, errs.ErrDuplicateGroupName)

	updated, err := f.groups.UpdateGroup(as(owner), g.ID, GroupUpdate{Description: strPtr("rent and bills")})
	require.NoError(t, err)
	assert.Equal(t, "Flat", updated.Name)
	assert.Equal(t, "rent and bills", updated.Description)

	assert.ErrorIs(t, f.groups.DeleteGroup(as(admin), g.ID), errs.ErrAccessDenied)
	require.NoError(t, f.groups.DeleteGroup(as(owner), g.ID))

	_, err = f.groups.GetGroup(as(owner), g.ID)
	assert.ErrorIs(t, err, errs.ErrGroupNotFound)
}

func TestGuestMembers(t *testing.T) {
	f := newFixture(t)
	owner, editor := f.user(t, "owner"), f.user(t, "editor")
	g := f.group(t, owner, "Trip")
	f.join(t, g.ID, owner, editor, models.RoleEditor)

	_, err := f.groups.AddMember(as(editor), g.ID, "Sam", models.RoleGuest)
	assert.ErrorIs(t, err, errs.ErrAccessDenied)

	res, err := f.groups.AddMember(as(owner), g.ID, "Sam", models.RoleGuest)
	require.NoError(t, err)
	require.NotNil(t, res.Member)
	assert.Nil(t, res.Invitation)
	sam := *res.Member
	assert.True(t, models.IsGuestID(sam.UserID))
	assert.Equal(t, models.RoleGuest, sam.Role)
	assert.Equal(t, events.GuestAdded, f.lastEvent(t).Type)

	_, err = f.groups.AddMember(as(owner), g.ID, " sam ", models.RoleGuest)
	assert.ErrorIs(t, err, errs.ErrStateConflict)

	in := equalSplit(30, owner)
	in.Splits = append(in.Splits, SplitInput{UserID: sam.UserID})
	_, err = f.transactions.AddTransaction(as(owner), g.ID, in)
	require.NoError(t, err)

	_, err = f.groups.RemoveMember(as(owner), g.ID, sam.UserID)
	assert.ErrorIs(t, err, errs.ErrStateConflict, "a guest with records stays")

	_, err = f.groups.ChangeMemberRole(as(owner), g.ID, sam.UserID, models.RoleEditor)
	assert.ErrorIs(t, err, errs.ErrStateConflict)

	res, err = f.groups.AddMember(as(owner), g.ID, "Pat", models.RoleGuest)
	require.NoError(t, err)
	group, err := f.groups.RemoveMember(as(owner), g.ID, res.Member.UserID)
	require.NoError(t, err)
	assert.False(t, group.IsMember(res.Member.UserID))
	assert.Equal(t, events.MemberRemoved, f.lastEvent(t).Type)
}

func TestChangeMemberRole(t *testing.T) {
	f := newFixture(t)
	owner, admin, editor := f.user(t, "owner"), f.user(t, "admin"), f.user(t, "editor")
	g := f.group(t, owner, "Office")
	f.join(t, g.ID, owner, admin, models.RoleAdmin)
	f.join(t, g.ID, owner, editor, models.RoleEditor)

	group, err := f.groups.ChangeMemberRole(as(admin), g.ID, editor.ID, models.RoleContributor)
	require.NoError(t, err)
	m, _ := group.Member(editor.ID)
	assert.Equal(t, models.RoleContributor, m.Role)

	_, err = f.groups.ChangeMemberRole(as(admin), g.ID, owner.ID, models.RoleViewer)
	assert.ErrorIs(t, err, errs.ErrOwnerImmutable)

	_, err = f.groups.ChangeMemberRole(as(owner), g.ID, admin.ID, models.RoleOwner)
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = f.groups.ChangeMemberRole(as(editor), g.ID, admin.ID, models.RoleViewer)
	assert.ErrorIs(t, err, errs.ErrAccessDenied)

	_, err = f.groups.ChangeMemberRole(as(owner), g.ID, "nobody", models.RoleViewer)
	assert.ErrorIs(t, err, errs.ErrMemberNotFound)
}

// TestDepartingMembersKeepBalances checks that removing or leaving hands the
// member's records to a guest, so no balance moves.
func TestDepartingMembersKeepBalances(t *testing.T) {
	f := newFixture(t)
	alice, bob, carol := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "carol")
	g := f.group(t, alice, "Flat")
	f.join(t, g.ID, alice, bob, models.RoleEditor)
	f.join(t, g.ID, alice, carol, models.RoleViewer)

	_, err := f.transactions.AddTransaction(as(bob), g.ID, equalSplit(90, alice, bob, carol))
	require.NoError(t, err)

	before, err := f.groups.GetBalances(as(alice), g.ID)
	require.NoError(t, err)
	require.Len(t, before.Members, 3)
	assert.Equal(t, -30.0, before.Members[0].Balance)
	assert.Equal(t, 60.0, before.Members[1].Balance)
	assert.Equal(t, -30.0, before.Members[2].Balance)

	_, err = f.groups.RemoveMember(as(alice), g.ID, alice.ID)
	assert.ErrorIs(t, err, errs.ErrValidation, "owners cannot remove themselves")
	assert.ErrorIs(t, f.groups.LeaveGroup(as(alice), g.ID), errs.ErrStateConflict)

	_, err = f.groups.RemoveMember(as(alice), g.ID, bob.ID)
	require.NoError(t, err)
	require.NoError(t, f.groups.LeaveGroup(as(carol), g.ID))
	assert.Equal(t, events.MemberLeft, f.lastEvent(t).Type)

	after, err := f.groups.GetBalances(as(alice), g.ID)
	require.NoError(t, err)
	require.Len(t, after.Members, 3)
	for i, m := range after.Members {
		assert.Equal(t, before.Members[i].Username, m.Username)
		assert.Equal(t, before.Members[i].Balance, m.Balance)
	}
	assert.True(t, models.IsGuestID(after.Members[1].UserID))
	assert.True(t, models.IsGuestID(after.Members[2].UserID))

	require.Len(t, after.Settlements, 2)
	assert.Equal(t, "alice owes bob 30.00", after.Settlements[0].String())
	assert.Equal(t, "carol owes bob 30.00", after.Settlements[1].String())

	_, err = f.groups.GetGroup(as(bob), g.ID)
	assert.ErrorIs(t, err, errs.ErrAccessDenied, "removed members lose access")
	_, err = f.groups.GetBalances(as(carol), g.ID)
	assert.ErrorIs(t, err, errs.ErrAccessDenied)
}

func TestReport(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	g := f.group(t, alice, "Trip")
	f.join(t, g.ID, alice, bob, models.RoleEditor)

	in := equalSplit(50, alice, bob)
	in.Date = 1709251200 // 2024-03-01
	_, err := f.transactions.AddTransaction(as(alice), g.ID, in)
	require.NoError(t, err)

	in.Date = 1711929600 // 2024-04-01
	_, err = f.transactions.AddTransaction(as(bob), g.ID, in)
	require.NoError(t, err)

	rng, err := report.ParseRange("2024-03-01", "2024-03-31")
	require.NoError(t, err)
	rep, err := f.groups.Report(as(bob), g.ID, rng)
	require.NoError(t, err)

	require.Len(t, rep.Rows, 1)
	assert.Equal(t, []float64{25, -25}, rep.Totals)
	require.Len(t, rep.Settlements, 1)
	assert.Equal(t, bob.ID, rep.Settlements[0].From)
}
