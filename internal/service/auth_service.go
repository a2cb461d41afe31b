package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mmynk/kanak/internal/auth"
	"github.com/mmynk/kanak/internal/errs"
	"github.com/mmynk/kanak/internal/models"
	"github.com/mmynk/kanak/internal/storage"
)

// AuthService registers users and issues access tokens.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	users         storage.UserStore
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, users storage.UserStore, logger *slog.Logger) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		users:         users,
		logger:        logger,
	}
}

// Register creates a new user account.
func (s *AuthService) Register(ctx context.Context, email, username, password string) (*models.User, error) {
	s.logger.Info("Register request", "email", email)

	username = cleanText(username)
	if username == "" {
		return nil, errs.New(errs.ErrValidation, "username is required")
	}

	user, err := s.authenticator.Register(ctx, email, username, password)
	if err != nil {
		s.logger.Warn("Registration failed", "email", email, "error", err)
		return nil, err
	}

	s.logger.Info("User registered successfully", "user_id", user.ID)
	return user, nil
}

// Login authenticates a user and returns a signed access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	s.logger.Info("Login request", "email", email)

	user, err := s.authenticator.Authenticate(ctx, email, password)
	if err != nil {
		s.logger.Warn("Login failed", "email", email, "error", err)
		if errors.Is(err, errs.ErrUnauthenticated) {
			return "", nil, err
		}
		return "", nil, auth.ErrInvalidCredentials
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return "", nil, err
	}

	s.logger.Info("User logged in successfully", "user_id", user.ID)
	return token, user, nil
}

// CurrentUser returns the authenticated user's account.
func (s *AuthService) CurrentUser(ctx context.Context) (*models.User, error) {
	userID, err := actorID(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if errors.Is(err, errs.ErrUserNotFound) {
		// The token outlived its account.
		return nil, auth.ErrInvalidToken
	}
	return user, err
}

// UpdateUsername renames the authenticated user. The new name is written
// through to every group membership of the user.
func (s *AuthService) UpdateUsername(ctx context.Context, username string) (*models.User, error) {
	userID, err := actorID(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("UpdateUsername request", "user_id", userID)

	username = cleanText(username)
	if username == "" {
		return nil, errs.New(errs.ErrValidation, "username is required")
	}

	user, err := s.users.UpdateUsername(ctx, userID, username)
	if err != nil {
		s.logger.Error("UpdateUsername failed", "user_id", userID, "error", err)
		if errors.Is(err, errs.ErrUserNotFound) {
			return nil, auth.ErrInvalidToken
		}
		return nil, err
	}
	return user, nil
}
