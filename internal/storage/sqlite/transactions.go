package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmynk/kanak/internal/errs"
	"github.com/mmynk/kanak/internal/models"
)

const transactionColumns = `id, group_id, type, amount, description, category, date,
	created_by, created_by_id, payer_id, split_mode`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	t := &models.Transaction{}
	err := row.Scan(&t.ID, &t.GroupID, &t.Type, &t.Amount, &t.Description, &t.Category, &t.Date,
		&t.CreatedBy, &t.CreatedByID, &t.PayerID, &t.SplitMode)
	return t, err
}

// ListTransactions retrieves all transactions of a group with their splits,
// newest first.
func (s *SQLiteStore) ListTransactions(ctx context.Context, groupID string) ([]*models.Transaction, error) {
	var txs []*models.Transaction
	err := s.read(ctx, func(q querier) error {
		var err error
		txs, err = listTransactions(ctx, q, groupID)
		return err
	})
	return txs, err
}

// GetLedger loads a group and its transactions from the same snapshot.
func (s *SQLiteStore) GetLedger(ctx context.Context, groupID string) (*models.Group, []*models.Transaction, error) {
	var (
		group *models.Group
		txs   []*models.Transaction
	)
	err := s.read(ctx, func(q querier) error {
		var err error
		if group, err = loadGroup(ctx, q, groupID); err != nil {
			return err
		}
		txs, err = listTransactions(ctx, q, groupID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return group, txs, nil
}

func listTransactions(ctx context.Context, q querier, groupID string) ([]*models.Transaction, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE group_id = ? ORDER BY date DESC, rowid DESC`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*models.Transaction
	byID := make(map[string]*models.Transaction)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, t)
		byID[t.ID] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	rows.Close()

	splitRows, err := q.QueryContext(ctx,
		`SELECT s.transaction_id, s.user_id, s.amount, s.percentage
		 FROM transaction_splits s JOIN transactions t ON t.id = s.transaction_id
		 WHERE t.group_id = ? ORDER BY s.transaction_id, s.position`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list splits: %w", err)
	}
	defer splitRows.Close()

	for splitRows.Next() {
		var txID string
		split, err := scanSplit(splitRows, &txID)
		if err != nil {
			return nil, err
		}
		if t, ok := byID[txID]; ok {
			t.Splits = append(t.Splits, split)
		}
	}
	if err := splitRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate splits: %w", err)
	}
	return txs, nil
}

func (g *groupTx) GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	t, err := scanTransaction(g.tx.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND group_id = ?`,
		transactionID, g.group.ID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	rows, err := g.tx.QueryContext(ctx,
		`SELECT transaction_id, user_id, amount, percentage FROM transaction_splits
		 WHERE transaction_id = ? ORDER BY position`,
		transactionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get splits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var txID string
		split, err := scanSplit(rows, &txID)
		if err != nil {
			return nil, err
		}
		t.Splits = append(t.Splits, split)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate splits: %w", err)
	}
	return t, nil
}

func (g *groupTx) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	t.GroupID = g.group.ID
	_, err := g.tx.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.GroupID, t.Type, t.Amount, t.Description, t.Category, t.Date,
		t.CreatedBy, t.CreatedByID, t.PayerID, t.SplitMode,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return g.insertSplits(ctx, t)
}

func (g *groupTx) UpdateTransaction(ctx context.Context, t *models.Transaction) error {
	res, err := g.tx.ExecContext(ctx,
		`UPDATE transactions SET type = ?, amount = ?, description = ?, category = ?, date = ?,
		 payer_id = ?, split_mode = ? WHERE id = ? AND group_id = ?`,
		t.Type, t.Amount, t.Description, t.Category, t.Date, t.PayerID, t.SplitMode,
		t.ID, g.group.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.ErrTransactionNotFound
	}

	if _, err := g.tx.ExecContext(ctx, "DELETE FROM transaction_splits WHERE transaction_id = ?", t.ID); err != nil {
		return fmt.Errorf("failed to delete old splits: %w", err)
	}
	return g.insertSplits(ctx, t)
}

func (g *groupTx) DeleteTransaction(ctx context.Context, transactionID string) (bool, error) {
	res, err := g.tx.ExecContext(ctx,
		"DELETE FROM transactions WHERE id = ? AND group_id = ?",
		transactionID, g.group.ID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete transaction: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (g *groupTx) insertSplits(ctx context.Context, t *models.Transaction) error {
	for i, s := range t.Splits {
		var pct any
		if s.Percentage != nil {
			pct = *s.Percentage
		}
		_, err := g.tx.ExecContext(ctx,
			"INSERT INTO transaction_splits (transaction_id, user_id, amount, percentage, position) VALUES (?, ?, ?, ?, ?)",
			t.ID, s.UserID, s.Amount, pct, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert split: %w", err)
		}
	}
	return nil
}

func scanSplit(rows *sql.Rows, txID *string) (models.Split, error) {
	var split models.Split
	var pct sql.NullFloat64
	if err := rows.Scan(txID, &split.UserID, &split.Amount, &pct); err != nil {
		return split, fmt.Errorf("failed to scan split: %w", err)
	}
	if pct.Valid {
		v := pct.Float64
		split.Percentage = &v
	}
	return split, nil
}
