package models

import "fmt"

// Transfer is one payment in a settlement plan: From pays To the Amount.
type Transfer struct {
	// From is the debtor's member ID.
	From     string `json:"from"`
	FromName string `json:"fromName"`

	// To is the creditor's member ID.
	To     string `json:"to"`
	ToName string `json:"toName"`

	// Amount is positive and rounded to cents.
	Amount float64 `json:"amount"`
}

func (t Transfer) String() string {
	return fmt.Sprintf("%s owes %s %.2f", t.FromName, t.ToName, t.Amount)
}
