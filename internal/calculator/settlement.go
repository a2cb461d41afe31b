package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/kanak/internal/models"
)

// SettleThreshold is the balance magnitude below which a member counts as settled.
var SettleThreshold = decimal.RequireFromString("0.01")

type position struct {
	stats  MemberStats
	amount decimal.Decimal // Outstanding magnitude, always positive
}

// CalculateSettlements turns net balances into a plan of transfers.
//
// Algorithm (greedy, largest first):
//   - creditors (balance > +0.01) sorted descending, debtors (< -0.01) sorted
//     by most negative first; members in between are ignored
//   - walk both lists with two pointers, each step moving the smaller of the
//     two outstanding amounts from the debtor to the creditor
//   - advance whichever side has been brought to zero (amounts are in cents,
//     so the smaller side always lands exactly on zero)
//
// The plan is reproducible for a given input order (ties keep input order) but
// is not guaranteed to use the fewest possible transfers.
func CalculateSettlements(balances []MemberStats) []models.Transfer {
	var creditors, debtors []position
	for _, b := range balances {
		amount := decimal.NewFromFloat(b.Balance).Round(2)
		switch {
		case amount.GreaterThan(SettleThreshold):
			creditors = append(creditors, position{stats: b, amount: amount})
		case amount.LessThan(SettleThreshold.Neg()):
			debtors = append(debtors, position{stats: b, amount: amount.Neg()})
		}
	}

	sort.SliceStable(creditors, func(i, j int) bool {
		return creditors[i].amount.GreaterThan(creditors[j].amount)
	})
	sort.SliceStable(debtors, func(i, j int) bool {
		return debtors[i].amount.GreaterThan(debtors[j].amount)
	})

	var transfers []models.Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		debtor := &debtors[i]
		creditor := &creditors[j]

		amount := decimal.Min(debtor.amount, creditor.amount)
		if amount.IsPositive() {
			transfers = append(transfers, models.Transfer{
				From:     debtor.stats.UserID,
				FromName: debtor.stats.Username,
				To:       creditor.stats.UserID,
				ToName:   creditor.stats.Username,
				Amount:   amount.InexactFloat64(),
			})
		}

		debtor.amount = debtor.amount.Sub(amount)
		creditor.amount = creditor.amount.Sub(amount)

		if debtor.amount.IsZero() {
			i++
		}
		if creditor.amount.IsZero() {
			j++
		}
	}

	return transfers
}
