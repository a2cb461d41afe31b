package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mmynk/kanak/internal/errs"
	"github.com/mmynk/kanak/internal/models"
)

const userColumns = `id, username, email, password_hash, created_at, updated_at`

// CreateUser persists a new user to the database.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return errs.New(errs.ErrStateConflict, "email already registered")
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUserByEmail retrieves a user by email address.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return getUser(ctx, s.db, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return getUser(ctx, s.db, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// UpdateUsername renames a user and refreshes the username snapshot held by
// each of the user's group memberships and sent invitations.
func (s *SQLiteStore) UpdateUsername(ctx context.Context, userID, username string) (*models.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE users SET username = ?, updated_at = ? WHERE id = ?`,
		username, time.Now().Unix(), userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, errs.ErrUserNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE group_members SET username = ? WHERE user_id = ?`, username, userID,
	); err != nil {
		return nil, fmt.Errorf("failed to update memberships: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE invitations SET inviter_name = ? WHERE inviter_id = ?`, username, userID,
	); err != nil {
		return nil, fmt.Errorf("failed to update invitations: %w", err)
	}

	user, err := getUser(ctx, tx, `SELECT `+userColumns+` FROM users WHERE id = ?`, userID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return user, nil
}

func getUser(ctx context.Context, q querier, query string, arg any) (*models.User, error) {
	user := &models.User{}
	err := q.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
