package models

// TransactionType is the direction of money flow for a transaction.
type TransactionType string

const (
	// Credit: the payer spent money on behalf of the participants.
	Credit TransactionType = "CREDIT"
	// Debit: the payer received money owed to the participants.
	Debit TransactionType = "DEBIT"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == Credit || t == Debit
}

// SplitMode selects how a transaction amount is divided.
type SplitMode string

const (
	SplitEqual      SplitMode = "EQUAL"
	SplitPercentage SplitMode = "PERCENTAGE"
	SplitAmount     SplitMode = "AMOUNT"
)

// Valid reports whether m is a known split mode.
func (m SplitMode) Valid() bool {
	switch m {
	case SplitEqual, SplitPercentage, SplitAmount:
		return true
	}
	return false
}

// Split is one participant's share of a transaction.
type Split struct {
	// UserID is the participating member.
	UserID string

	// Amount is the participant's share in currency units.
	Amount float64

	// Percentage is the participant's share of the total.
	// Only set for SplitPercentage transactions.
	Percentage *float64
}

// Transaction is a single ledger entry within a group.
type Transaction struct {
	// ID is the unique identifier for the transaction (UUID format).
	ID string

	// GroupID is the group this transaction belongs to.
	GroupID string

	// Type is CREDIT or DEBIT.
	Type TransactionType

	// Amount is the non-negative total.
	Amount float64

	// Description is required free text.
	Description string

	// Category is an optional label (e.g., "food", "travel").
	Category string

	// Date is the Unix timestamp of the expense.
	Date int64

	// CreatedBy is the creator's username at creation time.
	CreatedBy string

	// CreatedByID is the creator's member ID.
	CreatedByID string

	// PayerID is the member whose money moved. Empty means the creator.
	PayerID string

	// SplitMode records how Splits were computed.
	SplitMode SplitMode

	// Splits holds one entry per participant; amounts sum to Amount.
	Splits []Split
}

// Payer returns the effective payer: PayerID, or the creator when unset.
func (t *Transaction) Payer() string {
	if t.PayerID != "" {
		return t.PayerID
	}
	return t.CreatedByID
}

// SplitFor returns userID's split amount, or 0 when not a participant.
func (t *Transaction) SplitFor(userID string) float64 {
	for _, s := range t.Splits {
		if s.UserID == userID {
			return s.Amount
		}
	}
	return 0
}

// Involves reports whether userID paid for or participates in t.
func (t *Transaction) Involves(userID string) bool {
	if t.Payer() == userID || t.CreatedByID == userID {
		return true
	}
	for _, s := range t.Splits {
		if s.UserID == userID {
			return true
		}
	}
	return false
}
