package calculator

import (
	"math"
	"testing"

	"github.com/mmynk/kanak/internal/models"
)

func credit(amount float64, payer string, splits map[string]float64) *models.Transaction {
	return tx(models.Credit, amount, payer, splits)
}

func debit(amount float64, payer string, splits map[string]float64) *models.Transaction {
	return tx(models.Debit, amount, payer, splits)
}

func tx(typ models.TransactionType, amount float64, payer string, splits map[string]float64) *models.Transaction {
	t := &models.Transaction{Type: typ, Amount: amount, CreatedByID: payer, SplitMode: models.SplitAmount}
	for _, id := range []string{"a", "b", "c", "d"} {
		if v, ok := splits[id]; ok {
			t.Splits = append(t.Splits, models.Split{UserID: id, Amount: v})
		}
	}
	return t
}

func TestCalculateMemberStats(t *testing.T) {
	tests := []struct {
		name   string
		txs    []*models.Transaction
		member string
		want   MemberStats
	}{
		{
			name:   "empty history",
			member: "a",
			want:   MemberStats{UserID: "a"},
		},
		{
			name:   "credit payer excluded from split gets full amount",
			txs:    []*models.Transaction{credit(60, "a", map[string]float64{"b": 30, "c": 30})},
			member: "a",
			want:   MemberStats{UserID: "a", Paid: 60, Balance: 60},
		},
		{
			name:   "credit payer included in split",
			txs:    []*models.Transaction{credit(90, "a", map[string]float64{"a": 30, "b": 30, "c": 30})},
			member: "a",
			want:   MemberStats{UserID: "a", Paid: 90, Received: 30, Balance: 60},
		},
		{
			name:   "credit participant",
			txs:    []*models.Transaction{credit(90, "a", map[string]float64{"a": 30, "b": 30, "c": 30})},
			member: "b",
			want:   MemberStats{UserID: "b", Received: 30, Balance: -30},
		},
		{
			name:   "non participant is untouched",
			txs:    []*models.Transaction{credit(90, "a", map[string]float64{"a": 45, "b": 45})},
			member: "c",
			want:   MemberStats{UserID: "c"},
		},
		{
			name:   "debit payer collected for others",
			txs:    []*models.Transaction{debit(40, "a", map[string]float64{"a": 10, "b": 30})},
			member: "a",
			want:   MemberStats{UserID: "a", Paid: 10, Received: 40, Balance: -30},
		},
		{
			name:   "debit participant is owed",
			txs:    []*models.Transaction{debit(40, "a", map[string]float64{"a": 10, "b": 30})},
			member: "b",
			want:   MemberStats{UserID: "b", Paid: 30, Balance: 30},
		},
		{
			name: "explicit payer overrides creator",
			txs: []*models.Transaction{func() *models.Transaction {
				t := credit(20, "a", map[string]float64{"a": 10, "b": 10})
				t.PayerID = "b"
				return t
			}()},
			member: "b",
			want:   MemberStats{UserID: "b", Paid: 20, Received: 10, Balance: 10},
		},
		{
			name: "history is replayed in full",
			txs: []*models.Transaction{
				credit(90, "a", map[string]float64{"a": 30, "b": 30, "c": 30}),
				credit(30, "b", map[string]float64{"a": 15, "b": 15}),
				debit(10, "c", map[string]float64{"a": 5, "c": 5}),
			},
			member: "a",
			want:   MemberStats{UserID: "a", Paid: 95, Received: 45, Balance: 50},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateMemberStats(tt.txs, tt.member)
			if got != tt.want {
				t.Errorf("CalculateMemberStats() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCalculateGroupStatsBalancesSumToZero(t *testing.T) {
	members := []models.Member{
		{UserID: "a", Username: "alice"},
		{UserID: "b", Username: "bob"},
		{UserID: "c", Username: "carol"},
	}
	txs := []*models.Transaction{
		credit(100, "a", map[string]float64{"a": 33.34, "b": 33.33, "c": 33.33}),
		credit(45.5, "b", map[string]float64{"b": 20, "c": 25.5}),
		debit(12, "c", map[string]float64{"a": 6, "b": 6}),
	}

	stats := CalculateGroupStats(txs, members)
	if len(stats) != 3 {
		t.Fatalf("expected 3 stats, got %d", len(stats))
	}

	var sum float64
	for i, s := range stats {
		if s.Username != members[i].Username {
			t.Errorf("stats[%d].Username = %s, want %s", i, s.Username, members[i].Username)
		}
		sum += s.Balance
	}
	if math.Abs(sum) > 0.001 {
		t.Errorf("balances sum to %v, want 0", sum)
	}
}

func TestCalculateGroupStatsEmpty(t *testing.T) {
	members := []models.Member{{UserID: "a"}, {UserID: "b"}}
	for _, s := range CalculateGroupStats(nil, members) {
		if s.Paid != 0 || s.Received != 0 || s.Balance != 0 {
			t.Errorf("stats for %s = %+v, want zeros", s.UserID, s)
		}
	}
}
