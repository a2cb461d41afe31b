package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmynk/kanak/internal/errs"
	"github.com/mmynk/kanak/internal/models"
	"github.com/mmynk/kanak/internal/storage"
)

var _ storage.GroupTx = (*groupTx)(nil)

// groupTx implements storage.GroupTx on top of an open *sql.Tx.
type groupTx struct {
	tx    *sql.Tx
	group *models.Group
}

func (g *groupTx) Group() *models.Group {
	return g.group
}

// CreateGroup persists a new group and its initial members.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO groups (id, name, description, created_at, created_by) VALUES (?, ?, ?, ?, ?)",
		group.ID, group.Name, group.Description, group.CreatedAt, group.CreatedBy,
	)
	if isUniqueViolation(err) {
		return errs.ErrDuplicateGroupName
	}
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	for _, m := range group.Members {
		if err := insertMember(ctx, tx, group.ID, m); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetGroup retrieves a group by ID, including its members.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	var group *models.Group
	err := s.read(ctx, func(q querier) error {
		var err error
		group, err = loadGroup(ctx, q, groupID)
		return err
	})
	return group, err
}

// ListGroupsByMember retrieves every group the user is a member of.
func (s *SQLiteStore) ListGroupsByMember(ctx context.Context, userID string) ([]*models.Group, error) {
	var groups []*models.Group
	err := s.read(ctx, func(q querier) error {
		rows, err := q.QueryContext(ctx,
			`SELECT g.id FROM groups g
			 JOIN group_members m ON m.group_id = g.id
			 WHERE m.user_id = ?
			 ORDER BY g.created_at DESC, g.rowid DESC`,
			userID,
		)
		if err != nil {
			return fmt.Errorf("failed to list groups: %w", err)
		}
		ids, err := scanStrings(rows)
		if err != nil {
			return fmt.Errorf("failed to scan group ids: %w", err)
		}

		for _, id := range ids {
			group, err := loadGroup(ctx, q, id)
			if err != nil {
				return err
			}
			groups = append(groups, group)
		}
		return nil
	})
	return groups, err
}

func loadGroup(ctx context.Context, q querier, groupID string) (*models.Group, error) {
	group := &models.Group{}
	err := q.QueryRowContext(ctx,
		"SELECT id, name, description, created_at, created_by FROM groups WHERE id = ?",
		groupID,
	).Scan(&group.ID, &group.Name, &group.Description, &group.CreatedAt, &group.CreatedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	rows, err := q.QueryContext(ctx,
		"SELECT user_id, username, role, joined_at FROM group_members WHERE group_id = ? ORDER BY rowid",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get group members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.UserID, &m.Username, &m.Role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		group.Members = append(group.Members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group members: %w", err)
	}

	return group, nil
}

func insertMember(ctx context.Context, q querier, groupID string, m models.Member) error {
	_, err := q.ExecContext(ctx,
		"INSERT INTO group_members (group_id, user_id, username, role, joined_at) VALUES (?, ?, ?, ?, ?)",
		groupID, m.UserID, m.Username, m.Role, m.JoinedAt,
	)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyMember
	}
	if err != nil {
		return fmt.Errorf("failed to insert group member: %w", err)
	}
	return nil
}

func (g *groupTx) UpdateGroup(ctx context.Context, name, description string) error {
	_, err := g.tx.ExecContext(ctx,
		"UPDATE groups SET name = ?, description = ? WHERE id = ?",
		name, description, g.group.ID,
	)
	if isUniqueViolation(err) {
		return errs.ErrDuplicateGroupName
	}
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	g.group.Name = name
	g.group.Description = description
	return nil
}

// DeleteGroup relies on ON DELETE CASCADE for members, transactions, splits and invitations.
func (g *groupTx) DeleteGroup(ctx context.Context) error {
	if _, err := g.tx.ExecContext(ctx, "DELETE FROM groups WHERE id = ?", g.group.ID); err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	return nil
}

func (g *groupTx) AddMember(ctx context.Context, member models.Member) error {
	if err := insertMember(ctx, g.tx, g.group.ID, member); err != nil {
		return err
	}
	g.group.Members = append(g.group.Members, member)
	return nil
}

func (g *groupTx) UpdateMemberRole(ctx context.Context, userID string, role models.Role) error {
	member, ok := g.group.Member(userID)
	if !ok {
		return errs.ErrMemberNotFound
	}
	_, err := g.tx.ExecContext(ctx,
		"UPDATE group_members SET role = ? WHERE group_id = ? AND user_id = ?",
		role, g.group.ID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update member role: %w", err)
	}
	member.Role = role
	return nil
}

func (g *groupTx) RemoveMember(ctx context.Context, userID string) error {
	res, err := g.tx.ExecContext(ctx,
		"DELETE FROM group_members WHERE group_id = ? AND user_id = ?",
		g.group.ID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.ErrMemberNotFound
	}
	g.dropMember(userID)
	return nil
}

func (g *groupTx) ReplaceMember(ctx context.Context, userID string, replacement models.Member) error {
	res, err := g.tx.ExecContext(ctx,
		`UPDATE group_members SET user_id = ?, username = ?, role = ?, joined_at = ?
		 WHERE group_id = ? AND user_id = ?`,
		replacement.UserID, replacement.Username, replacement.Role, replacement.JoinedAt,
		g.group.ID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to replace member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.ErrMemberNotFound
	}

	stmts := []string{
		`UPDATE transaction_splits SET user_id = ?
		 WHERE user_id = ? AND transaction_id IN (SELECT id FROM transactions WHERE group_id = ?)`,
		"UPDATE transactions SET payer_id = ? WHERE payer_id = ? AND group_id = ?",
		"UPDATE transactions SET created_by_id = ? WHERE created_by_id = ? AND group_id = ?",
	}
	for _, stmt := range stmts {
		if _, err := g.tx.ExecContext(ctx, stmt, replacement.UserID, userID, g.group.ID); err != nil {
			return fmt.Errorf("failed to re-point member records: %w", err)
		}
	}

	if m, ok := g.group.Member(userID); ok {
		*m = replacement
	}
	return nil
}

func (g *groupTx) CountMemberRecords(ctx context.Context, userID string) (int, error) {
	var n int
	err := g.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions t
		 WHERE t.group_id = ? AND (
		     t.payer_id = ? OR t.created_by_id = ? OR
		     EXISTS (SELECT 1 FROM transaction_splits s WHERE s.transaction_id = t.id AND s.user_id = ?)
		 )`,
		g.group.ID, userID, userID, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count member records: %w", err)
	}
	return n, nil
}

func (g *groupTx) dropMember(userID string) {
	members := g.group.Members[:0]
	for _, m := range g.group.Members {
		if m.UserID != userID {
			members = append(members, m)
		}
	}
	g.group.Members = members
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
