// Package access decides what a group member may do, based solely on the
// member's role in the group's current member list.
package access

import (
	"github.com/mmynk/kanak/internal/errs"
	"github.com/mmynk/kanak/internal/models"
)

// Operation is a group-scoped action subject to role checks.
type Operation string

const (
	ViewGroup         Operation = "view group"
	AddTransaction    Operation = "add transaction"
	EditTransaction   Operation = "edit transaction"
	DeleteTransaction Operation = "delete transaction"
	InviteMember      Operation = "invite member"
	ChangeRole        Operation = "change member role"
	RemoveMember      Operation = "remove member"
	UpdateGroup       Operation = "update group"
	DeleteGroup       Operation = "delete group"
	LeaveGroup        Operation = "leave group"
)

var everyone = []models.Role{
	models.RoleOwner, models.RoleAdmin, models.RoleEditor,
	models.RoleContributor, models.RoleViewer, models.RoleGuest,
}

var capabilities = map[Operation][]models.Role{
	ViewGroup:         everyone,
	AddTransaction:    {models.RoleOwner, models.RoleAdmin, models.RoleEditor, models.RoleContributor},
	EditTransaction:   {models.RoleOwner, models.RoleAdmin, models.RoleEditor},
	DeleteTransaction: {models.RoleOwner, models.RoleAdmin, models.RoleEditor},
	InviteMember:      {models.RoleOwner, models.RoleAdmin},
	ChangeRole:        {models.RoleOwner, models.RoleAdmin},
	RemoveMember:      {models.RoleOwner, models.RoleAdmin},
	UpdateGroup:       {models.RoleOwner},
	DeleteGroup:       {models.RoleOwner},
	LeaveGroup:        {models.RoleAdmin, models.RoleEditor, models.RoleContributor, models.RoleViewer},
}

// Allowed reports whether role may perform op. Unknown roles and
// operations are denied.
func Allowed(role models.Role, op Operation) bool {
	for _, r := range capabilities[op] {
		if r == role {
			return true
		}
	}
	return false
}

// Authorize looks the actor up in the group's member list and checks op
// against the role found there. Non-members get a generic denial that does not
// depend on the operation.
func Authorize(group *models.Group, actorID string, op Operation) (*models.Member, error) {
	if group == nil || actorID == "" {
		return nil, errs.New(errs.ErrAccessDenied, "you are not a member of this group")
	}
	member, ok := group.Member(actorID)
	if !ok {
		return nil, errs.New(errs.ErrAccessDenied, "you are not a member of this group")
	}
	if !Allowed(member.Role, op) {
		return nil, errs.Newf(errs.ErrAccessDenied, "role %s is not allowed to %s", member.Role, op)
	}
	return member, nil
}
