package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/kanak/internal/models"
)

// MemberStats summarizes one member's position in a group.
type MemberStats struct {
	UserID   string
	Username string
	Paid     float64 // Money this member handed over
	Received float64 // Money this member took in or consumed as a share
	Balance  float64 // Positive = owed money, Negative = owes money
}

// CalculateMemberStats replays the whole transaction history for memberID.
//
// For a CREDIT the payer advanced the money: the payer's balance grows by
// what others consumed (amount - own split) and every other participant's
// balance drops by their split. A DEBIT is the mirror image: the payer
// collected money that belonged to the participants.
//
// Paid and Received are a display decomposition. For a CREDIT the payer's
// Paid grows by the full amount and every participant's Received by their
// split; a DEBIT swaps the two. Only Balance is a signed ledger figure.
func CalculateMemberStats(txs []*models.Transaction, memberID string) MemberStats {
	paid := decimal.Zero
	received := decimal.Zero
	balance := decimal.Zero

	for _, tx := range txs {
		amount := decimal.NewFromFloat(tx.Amount)
		mySplit := decimal.NewFromFloat(tx.SplitFor(memberID))
		isPayer := tx.Payer() == memberID

		switch tx.Type {
		case models.Credit:
			if isPayer {
				paid = paid.Add(amount)
				balance = balance.Add(amount.Sub(mySplit))
			} else {
				balance = balance.Sub(mySplit)
			}
			received = received.Add(mySplit)
		case models.Debit:
			if isPayer {
				received = received.Add(amount)
				balance = balance.Sub(amount.Sub(mySplit))
			} else {
				balance = balance.Add(mySplit)
			}
			paid = paid.Add(mySplit)
		}
	}

	return MemberStats{
		UserID:   memberID,
		Paid:     paid.Round(2).InexactFloat64(),
		Received: received.Round(2).InexactFloat64(),
		Balance:  balance.Round(2).InexactFloat64(),
	}
}

// CalculateGroupStats returns stats for every member, in member order.
func CalculateGroupStats(txs []*models.Transaction, members []models.Member) []MemberStats {
	stats := make([]MemberStats, 0, len(members))
	for _, m := range members {
		s := CalculateMemberStats(txs, m.UserID)
		s.Username = m.Username
		stats = append(stats, s)
	}
	return stats
}
