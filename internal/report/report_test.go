package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/kanak/internal/errs"
	"github.com/mmynk/kanak/internal/models"
)

func day(s string, hour int) int64 {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t.Add(time.Duration(hour) * time.Hour).Unix()
}

func fixture() (*models.Group, []*models.Transaction) {
	group := &models.Group{
		ID:   "g1",
		Name: "Trip",
		Members: []models.Member{
			{UserID: "a", Username: "alice", Role: models.RoleOwner},
			{UserID: "b", Username: "bob", Role: models.RoleEditor},
			{UserID: "c", Username: "carol", Role: models.RoleViewer},
		},
	}
	// Newest first, as the store returns them.
	txs := []*models.Transaction{
		{
			ID: "t3", Type: models.Credit, Amount: 10, Description: "Snacks", Date: day("2024-04-01", 9),
			CreatedByID: "c", Splits: []models.Split{{UserID: "c", Amount: 10}},
		},
		{
			ID: "t2", Type: models.Debit, Amount: 20, Description: "Refund", Date: day("2024-03-05", 18),
			CreatedByID: "a", PayerID: "b",
			Splits: []models.Split{{UserID: "a", Amount: 10}, {UserID: "b", Amount: 10}},
		},
		{
			ID: "t1", Type: models.Credit, Amount: 90, Description: "Dinner", Date: day("2024-03-01", 0),
			CreatedByID: "a",
			Splits: []models.Split{{UserID: "a", Amount: 30}, {UserID: "b", Amount: 30}, {UserID: "c", Amount: 30}},
		},
	}
	return group, txs
}

func TestNetImpact(t *testing.T) {
	_, txs := fixture()
	dinner, refund := txs[2], txs[1]

	assert.Equal(t, 60.0, NetImpact(dinner, "a"))
	assert.Equal(t, -30.0, NetImpact(dinner, "b"))
	assert.Equal(t, 10.0, NetImpact(refund, "a"))
	assert.Equal(t, -10.0, NetImpact(refund, "b"))
	assert.Equal(t, 0.0, NetImpact(refund, "c"))
}

func TestParseRange(t *testing.T) {
	r, err := ParseRange("2024-03-01", "2024-03-05")
	require.NoError(t, err)
	assert.True(t, r.Contains(day("2024-03-01", 0)))
	assert.True(t, r.Contains(day("2024-03-05", 23)))
	assert.False(t, r.Contains(day("2024-03-06", 0)))
	assert.False(t, r.Contains(day("2024-02-29", 23)))

	open, err := ParseRange("", "")
	require.NoError(t, err)
	assert.True(t, open.Contains(0))

	_, err = ParseRange("yesterday", "2024-13-01")
	require.ErrorIs(t, err, errs.ErrValidation)
	var v *errs.ValidationError
	require.ErrorAs(t, err, &v)
	assert.Len(t, v.Problems, 2)

	_, err = ParseRange("2024-03-05", "2024-03-01")
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestBuild(t *testing.T) {
	group, txs := fixture()
	rng, err := ParseRange("2024-03-01", "2024-03-05")
	require.NoError(t, err)

	rep := Build(group, txs, rng)

	require.Len(t, rep.Rows, 2)
	assert.Equal(t, "t1", rep.Rows[0].TransactionID, "rows are oldest first")
	assert.Equal(t, "2024-03-05", rep.Rows[1].Date)
	assert.Equal(t, []float64{60, -30, -30}, rep.Rows[0].Impacts)
	assert.Equal(t, []float64{70, -40, -30}, rep.Totals)
	assert.Equal(t, "2024-03-01", rep.From)

	require.Len(t, rep.Settlements, 2)
	assert.Equal(t, "bob owes alice 40.00", rep.Settlements[0].String())
	assert.Equal(t, "carol owes alice 30.00", rep.Settlements[1].String())
}

func TestBuildEmptyRange(t *testing.T) {
	group, txs := fixture()
	rng, err := ParseRange("2025-01-01", "")
	require.NoError(t, err)

	rep := Build(group, txs, rng)
	assert.Empty(t, rep.Rows)
	assert.Equal(t, []float64{0, 0, 0}, rep.Totals)
	assert.Empty(t, rep.Settlements)
}

func TestFormatAmount(t *testing.T) {
	tests := map[float64]string{
		0:      "-",
		0.004:  "-",
		-0.004: "-",
		12.5:   "+12.50",
		-3:     "-3.00",
		0.01:   "+0.01",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatAmount(in), "FormatAmount(%v)", in)
	}
}

func TestWriteCSV(t *testing.T) {
	group, txs := fixture()
	rng, err := ParseRange("2024-03-01", "2024-03-05")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, Build(group, txs, rng)))

	want := strings.Join([]string{
		"Date,Description,alice,bob,carol",
		"2024-03-01,Dinner,+60.00,-30.00,-30.00",
		"2024-03-05,Refund,+10.00,-10.00,-",
		",TOTAL,+70.00,-40.00,-30.00",
		"",
		"Settlements",
		"bob owes alice 40.00",
		"carol owes alice 30.00",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}
