// Package auth verifies user credentials and issues bearer tokens.
package auth

import (
	"context"

	"github.com/mmynk/kanak/internal/models"
)

// Authenticator registers accounts and checks credentials.
// PasswordAuthenticator is the only implementation.
type Authenticator interface {
	// Register creates a new user account with the given email, username and credential.
	Register(ctx context.Context, email, username, credential string) (*models.User, error)

	// Authenticate returns the user whose credential matches.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential rejects credentials that are too weak to store.
	ValidateCredential(credential string) error
}
