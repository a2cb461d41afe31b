// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/mmynk/kanak/internal/models"
)

// UserStore persists user accounts.
type UserStore interface {
	// CreateUser persists a new user.
	// Returns an errs.ErrStateConflict error if the email is taken.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail returns errs.ErrUserNotFound when no user has the email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID returns errs.ErrUserNotFound when the user does not exist.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// UpdateUsername renames the user and rewrites the username snapshot in
	// every group membership of that user, atomically.
	UpdateUsername(ctx context.Context, userID, username string) (*models.User, error)
}

// Store defines the storage operations of the ledger.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
//
// Reads outside a group transaction each observe a consistent snapshot.
// Every group-scoped write must go through InGroupTx.
type Store interface {
	UserStore

	// CreateGroup persists a new group together with its members.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup returns the group with its members, or errs.ErrGroupNotFound.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// ListGroupsByMember returns every group userID belongs to, newest first.
	ListGroupsByMember(ctx context.Context, userID string) ([]*models.Group, error)

	// ListTransactions returns the group's transactions, newest first.
	ListTransactions(ctx context.Context, groupID string) ([]*models.Transaction, error)

	// GetLedger returns the group and its transactions (newest first) as
	// seen by a single snapshot.
	GetLedger(ctx context.Context, groupID string) (*models.Group, []*models.Transaction, error)

	// GetInvitation returns errs.ErrInvitationNotFound when unknown.
	GetInvitation(ctx context.Context, invitationID string) (*models.Invitation, error)

	// ListPendingInvitationsByInvitee returns the PENDING invitations addressed to userID.
	ListPendingInvitationsByInvitee(ctx context.Context, userID string) ([]*models.Invitation, error)

	// ListPendingInvitationsByGroup returns the PENDING invitations of a group.
	ListPendingInvitationsByGroup(ctx context.Context, groupID string) ([]*models.Invitation, error)

	// InGroupTx runs fn with exclusive, transactional access to one group.
	// Writers to the same group are serialized. fn sees the group as loaded
	// inside the transaction; if fn returns an error nothing is written.
	// Returns errs.ErrGroupNotFound if the group does not exist.
	InGroupTx(ctx context.Context, groupID string, fn func(tx GroupTx) error) error

	// Ping checks that the backing database is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

// GroupTx is the set of writes available inside InGroupTx. All of them are
// scoped to the transaction's group.
type GroupTx interface {
	// Group returns the group as currently seen by the transaction.
	// Member changes made through the GroupTx are reflected in it.
	Group() *models.Group

	UpdateGroup(ctx context.Context, name, description string) error

	// DeleteGroup removes the group with its members, transactions and invitations.
	DeleteGroup(ctx context.Context) error

	AddMember(ctx context.Context, member models.Member) error
	UpdateMemberRole(ctx context.Context, userID string, role models.Role) error

	// RemoveMember deletes a membership without touching transactions.
	RemoveMember(ctx context.Context, userID string) error

	// ReplaceMember swaps userID for replacement and re-points every split,
	// payer and creator reference to it.
	ReplaceMember(ctx context.Context, userID string, replacement models.Member) error

	// CountMemberRecords counts transactions that reference userID as creator,
	// payer or split participant.
	CountMemberRecords(ctx context.Context, userID string) (int, error)

	// GetTransaction returns errs.ErrTransactionNotFound when the transaction
	// does not exist in this group.
	GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error)
	CreateTransaction(ctx context.Context, transaction *models.Transaction) error
	UpdateTransaction(ctx context.Context, transaction *models.Transaction) error

	// DeleteTransaction reports whether a transaction was deleted.
	DeleteTransaction(ctx context.Context, transactionID string) (bool, error)

	HasPendingInvitation(ctx context.Context, inviteeID string) (bool, error)
	CreateInvitation(ctx context.Context, invitation *models.Invitation) error

	// GetInvitation returns errs.ErrInvitationNotFound when the invitation
	// does not exist in this group.
	GetInvitation(ctx context.Context, invitationID string) (*models.Invitation, error)
	UpdateInvitationStatus(ctx context.Context, invitationID string, status models.InvitationStatus) error
}
