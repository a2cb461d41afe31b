package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/kanak/internal/access"
	"github.com/mmynk/kanak/internal/calculator"
	"github.com/mmynk/kanak/internal/errs"
	"github.com/mmynk/kanak/internal/models"
	"github.com/mmynk/kanak/internal/storage"
)

// TransactionService records and edits the transactions of a group.
type TransactionService struct {
	store storage.Store
}

// NewTransactionService creates a new TransactionService.
func NewTransactionService(store storage.Store) *TransactionService {
	return &TransactionService{store: store}
}

// SplitInput is one participant of a transaction as sent by the caller.
// Amount is read in AMOUNT mode and Percentage in PERCENTAGE mode.
type SplitInput struct {
	UserID     string
	Amount     *float64
	Percentage *float64
}

// TransactionInput is the caller-controlled part of a transaction.
type TransactionInput struct {
	Type        models.TransactionType
	Amount      float64
	Description string
	Category    string

	// Date is a Unix timestamp. Zero means now on create and unchanged on update.
	Date int64

	// PayerID defaults to the creator on create and to the current payer on update.
	PayerID string

	SplitMode models.SplitMode
	Splits    []SplitInput
}

// ListTransactions returns the group's transactions, newest first.
func (s *TransactionService) ListTransactions(ctx context.Context, groupID string) ([]*models.Transaction, error) {
	actor, err := actorID(ctx)
	if err != nil {
		return nil, err
	}

	group, txs, err := s.store.GetLedger(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if _, err := access.Authorize(group, actor, access.ViewGroup); err != nil {
		return nil, err
	}
	return txs, nil
}

// AddTransaction validates the input, computes its splits and records it.
func (s *TransactionService) AddTransaction(ctx context.Context, groupID string, in TransactionInput) (*models.Transaction, error) {
	actor, err := actorID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("AddTransaction request received",
		"group_id", groupID,
		"amount", in.Amount,
		"split_mode", in.SplitMode,
		"participants", len(in.Splits),
	)

	var created *models.Transaction
	err = s.store.InGroupTx(ctx, groupID, func(tx storage.GroupTx) error {
		group := tx.Group()
		creator, err := access.Authorize(group, actor, access.AddTransaction)
		if err != nil {
			return err
		}

		t := &models.Transaction{
			ID:          uuid.New().String(),
			GroupID:     group.ID,
			CreatedBy:   creator.Username,
			CreatedByID: creator.UserID,
			PayerID:     creator.UserID,
			Date:        time.Now().Unix(),
		}
		if err := apply(t, group, in); err != nil {
			return err
		}
		if err := tx.CreateTransaction(ctx, t); err != nil {
			return err
		}
		created = t
		return nil
	})
	if err != nil {
		slog.Warn("AddTransaction failed", "group_id", groupID, "error", err)
		return nil, err
	}

	slog.Info("Transaction created", "group_id", groupID, "transaction_id", created.ID)
	return created, nil
}

// UpdateTransaction replaces the editable fields of a transaction and
// recomputes its splits. The creator is kept.
func (s *TransactionService) UpdateTransaction(ctx context.Context, groupID, transactionID string, in TransactionInput) (*models.Transaction, error) {
	actor, err := actorID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("UpdateTransaction request received", "group_id", groupID, "transaction_id", transactionID)

	var updated *models.Transaction
	err = s.store.InGroupTx(ctx, groupID, func(tx storage.GroupTx) error {
		group := tx.Group()
		if _, err := access.Authorize(group, actor, access.EditTransaction); err != nil {
			return err
		}

		t, err := tx.GetTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		t.PayerID = t.Payer()
		if err := apply(t, group, in); err != nil {
			return err
		}
		if err := tx.UpdateTransaction(ctx, t); err != nil {
			return err
		}
		updated = t
		return nil
	})
	if err != nil {
		slog.Warn("UpdateTransaction failed", "group_id", groupID, "transaction_id", transactionID, "error", err)
		return nil, err
	}

	slog.Info("Transaction updated", "group_id", groupID, "transaction_id", transactionID)
	return updated, nil
}

// DeleteTransaction removes a transaction. Deleting one that no longer exists
// succeeds without doing anything.
func (s *TransactionService) DeleteTransaction(ctx context.Context, groupID, transactionID string) error {
	actor, err := actorID(ctx)
	if err != nil {
		return err
	}
	slog.Info("DeleteTransaction request received", "group_id", groupID, "transaction_id", transactionID)

	var deleted bool
	err = s.store.InGroupTx(ctx, groupID, func(tx storage.GroupTx) error {
		if _, err := access.Authorize(tx.Group(), actor, access.DeleteTransaction); err != nil {
			return err
		}
		var err error
		deleted, err = tx.DeleteTransaction(ctx, transactionID)
		return err
	})
	if err != nil {
		slog.Warn("DeleteTransaction failed", "group_id", groupID, "transaction_id", transactionID, "error", err)
		return err
	}

	if !deleted {
		slog.Info("Transaction already deleted", "group_id", groupID, "transaction_id", transactionID)
		return nil
	}
	slog.Info("Transaction deleted", "group_id", groupID, "transaction_id", transactionID)
	return nil
}

// apply validates in against the group and writes it onto t. Every problem
// found is reported together and t is left untouched on failure.
func apply(t *models.Transaction, group *models.Group, in TransactionInput) error {
	var v errs.ValidationError

	if !in.Type.Valid() {
		v.Addf(nil, "unknown transaction type %q", in.Type)
	}
	description := cleanText(in.Description)
	if description == "" {
		v.Add(nil, "description is required")
	}
	if in.Date < 0 {
		v.Add(nil, "date cannot be negative")
	}

	payer := t.PayerID
	if in.PayerID != "" {
		payer = in.PayerID
	}
	if !group.IsMember(payer) {
		v.Addf(nil, "payer %s is not a member of this group", payer)
	}

	participants := make([]string, 0, len(in.Splits))
	inputs := make(map[string]float64)
	for _, s := range in.Splits {
		if !group.IsMember(s.UserID) {
			v.Addf(nil, "participant %s is not a member of this group", s.UserID)
		}
		participants = append(participants, s.UserID)
		switch {
		case in.SplitMode == models.SplitPercentage && s.Percentage != nil:
			inputs[s.UserID] = *s.Percentage
		case in.SplitMode == models.SplitAmount && s.Amount != nil:
			inputs[s.UserID] = *s.Amount
		}
	}

	splits, err := calculator.ComputeSplits(in.Amount, participants, in.SplitMode, inputs)
	if err != nil {
		v.Merge(err)
	}
	if err := v.Err(); err != nil {
		return err
	}
	if err := calculator.ValidateSplits(in.Amount, in.SplitMode, splits); err != nil {
		return err
	}

	t.Type = in.Type
	t.Amount = in.Amount
	t.Description = description
	t.Category = cleanText(in.Category)
	if in.Date != 0 {
		t.Date = in.Date
	}
	t.PayerID = payer
	t.SplitMode = in.SplitMode
	t.Splits = splits
	return nil
}
