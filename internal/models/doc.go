// Package models defines the core domain models for Kanak.
//
// # Models
//
//   - User: a registered account that can log in
//   - Group: a ledger shared by its Members
//   - Member: a user's (or guest's) seat in one group, with a Role
//   - Transaction: one CREDIT or DEBIT entry in a group, divided into Splits
//   - Invitation: a pending offer of membership to a registered user
//   - Transfer: one step of a settlement plan
//
// # Conventions
//
// Relationships are expressed with ID strings, never pointers. Timestamps are
// Unix seconds. Money is float64 at this layer; exact arithmetic happens in
// the calculator package.
//
// Guests are members with no backing user account. Their IDs carry the
// "guest-" prefix (see IsGuestID) and they can neither log in nor be invited.
package models
