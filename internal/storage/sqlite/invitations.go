package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmynk/kanak/internal/errs"
	"github.com/mmynk/kanak/internal/models"
)

const invitationColumns = `id, group_id, group_name, inviter_id, inviter_name,
	invitee_id, invitee_email, role, status, created_at`

func scanInvitation(row rowScanner) (*models.Invitation, error) {
	inv := &models.Invitation{}
	err := row.Scan(&inv.ID, &inv.GroupID, &inv.GroupName, &inv.InviterID, &inv.InviterName,
		&inv.InviteeID, &inv.InviteeEmail, &inv.Role, &inv.Status, &inv.CreatedAt)
	return inv, err
}

// GetInvitation retrieves an invitation by ID.
func (s *SQLiteStore) GetInvitation(ctx context.Context, invitationID string) (*models.Invitation, error) {
	return getInvitation(ctx, s.db, `SELECT `+invitationColumns+` FROM invitations WHERE id = ?`, invitationID)
}

// ListPendingInvitationsByInvitee retrieves the open invitations addressed to a user, newest first.
func (s *SQLiteStore) ListPendingInvitationsByInvitee(ctx context.Context, userID string) ([]*models.Invitation, error) {
	return listInvitations(ctx, s.db,
		`SELECT `+invitationColumns+` FROM invitations
		 WHERE invitee_id = ? AND status = 'PENDING' ORDER BY created_at DESC, rowid DESC`,
		userID,
	)
}

// ListPendingInvitationsByGroup retrieves the open invitations of a group, newest first.
func (s *SQLiteStore) ListPendingInvitationsByGroup(ctx context.Context, groupID string) ([]*models.Invitation, error) {
	return listInvitations(ctx, s.db,
		`SELECT `+invitationColumns+` FROM invitations
		 WHERE group_id = ? AND status = 'PENDING' ORDER BY created_at DESC, rowid DESC`,
		groupID,
	)
}

func (g *groupTx) HasPendingInvitation(ctx context.Context, inviteeID string) (bool, error) {
	var n int
	err := g.tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM invitations WHERE group_id = ? AND invitee_id = ? AND status = 'PENDING'",
		g.group.ID, inviteeID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check pending invitations: %w", err)
	}
	return n > 0, nil
}

func (g *groupTx) CreateInvitation(ctx context.Context, inv *models.Invitation) error {
	_, err := g.tx.ExecContext(ctx,
		`INSERT INTO invitations (`+invitationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, g.group.ID, inv.GroupName, inv.InviterID, inv.InviterName,
		inv.InviteeID, inv.InviteeEmail, inv.Role, inv.Status, inv.CreatedAt,
	)
	if isUniqueViolation(err) {
		return errs.ErrDuplicateInvitation
	}
	if err != nil {
		return fmt.Errorf("failed to insert invitation: %w", err)
	}
	return nil
}

func (g *groupTx) GetInvitation(ctx context.Context, invitationID string) (*models.Invitation, error) {
	return getInvitation(ctx, g.tx,
		`SELECT `+invitationColumns+` FROM invitations WHERE id = ? AND group_id = ?`,
		invitationID, g.group.ID,
	)
}

func (g *groupTx) UpdateInvitationStatus(ctx context.Context, invitationID string, status models.InvitationStatus) error {
	res, err := g.tx.ExecContext(ctx,
		"UPDATE invitations SET status = ? WHERE id = ? AND group_id = ?",
		status, invitationID, g.group.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update invitation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.ErrInvitationNotFound
	}
	return nil
}

func getInvitation(ctx context.Context, q querier, query string, args ...any) (*models.Invitation, error) {
	inv, err := scanInvitation(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrInvitationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return inv, nil
}

func listInvitations(ctx context.Context, q querier, query string, args ...any) ([]*models.Invitation, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	var invitations []*models.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invitations: %w", err)
	}
	return invitations, nil
}
