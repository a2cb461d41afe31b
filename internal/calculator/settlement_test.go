package calculator

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/kanak/internal/models"
)

func TestCalculateSettlements(t *testing.T) {
	tests := []struct {
		name     string
		balances []MemberStats
		want     []models.Transfer
	}{
		{
			name: "no balances",
		},
		{
			name: "everyone settled",
			balances: []MemberStats{
				{UserID: "a", Balance: 0.01},
				{UserID: "b", Balance: -0.01},
			},
		},
		{
			name: "one creditor two debtors",
			balances: []MemberStats{
				{UserID: "a", Username: "alice", Balance: 60},
				{UserID: "b", Username: "bob", Balance: -30},
				{UserID: "c", Username: "carol", Balance: -30},
			},
			want: []models.Transfer{
				{From: "b", FromName: "bob", To: "a", ToName: "alice", Amount: 30},
				{From: "c", FromName: "carol", To: "a", ToName: "alice", Amount: 30},
			},
		},
		{
			name: "largest debts matched with largest credits first",
			balances: []MemberStats{
				{UserID: "a", Username: "alice", Balance: 10},
				{UserID: "b", Username: "bob", Balance: 50},
				{UserID: "c", Username: "carol", Balance: -15},
				{UserID: "d", Username: "dan", Balance: -45},
			},
			want: []models.Transfer{
				{From: "d", FromName: "dan", To: "b", ToName: "bob", Amount: 45},
				{From: "c", FromName: "carol", To: "b", ToName: "bob", Amount: 5},
				{From: "c", FromName: "carol", To: "a", ToName: "alice", Amount: 10},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateSettlements(tt.balances)
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("CalculateSettlements() = %v, want %v", got, tt.want)
			}
		})
	}
}

// Applying the plan must drive every balance to zero when the balances
// themselves sum to zero.
func TestCalculateSettlementsRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for round := range 200 {
		n := 2 + r.Intn(12)
		balances := make([]MemberStats, n)
		sum := decimal.Zero
		for i := 0; i < n-1; i++ {
			v := decimal.New(r.Int63n(200_000)-100_000, -2)
			balances[i] = MemberStats{UserID: fmt.Sprintf("m%d", i), Balance: v.InexactFloat64()}
			sum = sum.Add(v)
		}
		balances[n-1] = MemberStats{UserID: fmt.Sprintf("m%d", n-1), Balance: sum.Neg().InexactFloat64()}

		remaining := make(map[string]decimal.Decimal, n)
		for _, b := range balances {
			remaining[b.UserID] = decimal.NewFromFloat(b.Balance)
		}
		for _, tr := range CalculateSettlements(balances) {
			if tr.Amount <= 0 {
				t.Fatalf("round %d: non-positive transfer %+v", round, tr)
			}
			amount := decimal.NewFromFloat(tr.Amount)
			remaining[tr.From] = remaining[tr.From].Add(amount)
			remaining[tr.To] = remaining[tr.To].Sub(amount)
		}

		for id, v := range remaining {
			if v.Abs().GreaterThan(SettleThreshold) {
				t.Fatalf("round %d: %s left with %s after settlement", round, id, v)
			}
		}
	}
}

func TestTransferString(t *testing.T) {
	plan := CalculateSettlements([]MemberStats{
		{UserID: "a", Username: "alice", Balance: 12.5},
		{UserID: "b", Username: "bob", Balance: -12.5},
	})
	if len(plan) != 1 || plan[0].String() != "bob owes alice 12.50" {
		t.Errorf("plan = %v, want [bob owes alice 12.50]", plan)
	}
}
