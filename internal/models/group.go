package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is a member's standing within one group.
type Role string

const (
	RoleOwner       Role = "OWNER"
	RoleAdmin       Role = "ADMIN"
	RoleEditor      Role = "EDITOR"
	RoleContributor Role = "CONTRIBUTOR"
	RoleViewer      Role = "VIEWER"
	RoleGuest       Role = "GUEST"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleEditor, RoleContributor, RoleViewer, RoleGuest:
		return true
	}
	return false
}

// GuestIDPrefix marks member IDs that have no backing user account.
const GuestIDPrefix = "guest-"

// NewGuestID returns a fresh guest member ID.
func NewGuestID() string {
	return GuestIDPrefix + uuid.New().String()
}

// IsGuestID reports whether id belongs to a guest member.
func IsGuestID(id string) bool {
	return strings.HasPrefix(id, GuestIDPrefix)
}

// Member is one participant of a group.
type Member struct {
	// UserID is the user's ID, or a guest ID for guest members.
	UserID string

	// Username is a snapshot of the user's display name.
	// It is rewritten whenever the user changes their username.
	Username string

	// Role determines what the member may do in the group.
	Role Role

	// JoinedAt is the Unix timestamp when the member joined.
	JoinedAt int64
}

// Group is a shared ledger and the unit of access control.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Roommates", "Goa Trip").
	Name string

	// Description is optional free text.
	Description string

	// Members lists every participant. Exactly one has RoleOwner.
	Members []Member

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64

	// CreatedBy is the user ID of the creator (the owner).
	CreatedBy string
}

// NewGroup creates a group whose only member is the owner.
func NewGroup(name, description string, owner *User) *Group {
	now := time.Now().Unix()
	return &Group{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		Members: []Member{{
			UserID:   owner.ID,
			Username: owner.Username,
			Role:     RoleOwner,
			JoinedAt: now,
		}},
		CreatedAt: now,
		CreatedBy: owner.ID,
	}
}

// Member returns the member with the given user ID.
func (g *Group) Member(userID string) (*Member, bool) {
	for i := range g.Members {
		if g.Members[i].UserID == userID {
			return &g.Members[i], true
		}
	}
	return nil, false
}

// IsMember reports whether userID is a member of g.
func (g *Group) IsMember(userID string) bool {
	_, ok := g.Member(userID)
	return ok
}

// Owner returns the owning member.
func (g *Group) Owner() *Member {
	for i := range g.Members {
		if g.Members[i].Role == RoleOwner {
			return &g.Members[i]
		}
	}
	return nil
}

// MemberNames maps member IDs to their usernames.
func (g *Group) MemberNames() map[string]string {
	names := make(map[string]string, len(g.Members))
	for _, m := range g.Members {
		names[m.UserID] = m.Username
	}
	return names
}
