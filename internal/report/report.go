// Package report builds the per-member ledger export of a group.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/kanak/internal/calculator"
	"github.com/mmynk/kanak/internal/errs"
	"github.com/mmynk/kanak/internal/models"
)

// DateLayout is the format of the from/to query values and of row dates.
const DateLayout = "2006-01-02"

// Range selects transactions by date. Both ends are inclusive days; a nil
// end is open.
type Range struct {
	From *time.Time
	To   *time.Time
}

// ParseRange parses YYYY-MM-DD bounds in UTC. Empty strings leave that end open.
func ParseRange(from, to string) (Range, error) {
	var (
		r Range
		v errs.ValidationError
	)
	if from != "" {
		t, err := time.Parse(DateLayout, from)
		if err != nil {
			v.Addf(errs.ErrValidation, "from: expected a date like %s", DateLayout)
		} else {
			r.From = &t
		}
	}
	if to != "" {
		t, err := time.Parse(DateLayout, to)
		if err != nil {
			v.Addf(errs.ErrValidation, "to: expected a date like %s", DateLayout)
		} else {
			r.To = &t
		}
	}
	if r.From != nil && r.To != nil && r.To.Before(*r.From) {
		v.Add(errs.ErrValidation, "to must not be before from")
	}
	if err := v.Err(); err != nil {
		return Range{}, err
	}
	return r, nil
}

// Contains reports whether the Unix timestamp falls inside the range.
// The upper bound covers the whole To day.
func (r Range) Contains(unix int64) bool {
	if r.From != nil && unix < r.From.Unix() {
		return false
	}
	if r.To != nil && unix >= r.To.AddDate(0, 0, 1).Unix() {
		return false
	}
	return true
}

// Column is one member column of the report.
type Column struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// Row is one transaction with its net impact on every member column.
type Row struct {
	TransactionID string    `json:"transactionId"`
	Date          string    `json:"date"`
	Description   string    `json:"description"`
	Type          string    `json:"type"`
	Amount        float64   `json:"amount"`
	Impacts       []float64 `json:"impacts"`
}

// Report is a group's ledger over a date range.
type Report struct {
	GroupID     string            `json:"groupId"`
	GroupName   string            `json:"groupName"`
	From        string            `json:"from,omitempty"`
	To          string            `json:"to,omitempty"`
	Columns     []Column          `json:"columns"`
	Rows        []Row             `json:"rows"`
	Totals      []float64         `json:"totals"`
	Settlements []models.Transfer `json:"settlements"`
}

// NetImpact is what one transaction did to a member's position.
// For a CREDIT it is what the member paid in minus their split; for a DEBIT
// it is their split minus what they took out.
func NetImpact(tx *models.Transaction, memberID string) float64 {
	return netImpact(tx, memberID).InexactFloat64()
}

func netImpact(tx *models.Transaction, memberID string) decimal.Decimal {
	split := decimal.NewFromFloat(tx.SplitFor(memberID))
	moved := decimal.Zero
	if tx.Payer() == memberID {
		moved = decimal.NewFromFloat(tx.Amount)
	}
	if tx.Type == models.Debit {
		return split.Sub(moved).Round(2)
	}
	return moved.Sub(split).Round(2)
}

// Build assembles the report for the transactions of group inside rng.
// Rows are ordered oldest first.
func Build(group *models.Group, txs []*models.Transaction, rng Range) *Report {
	rep := &Report{
		GroupID:   group.ID,
		GroupName: group.Name,
		Rows:      []Row{},
	}
	if rng.From != nil {
		rep.From = rng.From.Format(DateLayout)
	}
	if rng.To != nil {
		rep.To = rng.To.Format(DateLayout)
	}
	for _, m := range group.Members {
		rep.Columns = append(rep.Columns, Column{UserID: m.UserID, Username: m.Username})
	}

	var selected []*models.Transaction
	for _, tx := range txs {
		if rng.Contains(tx.Date) {
			selected = append(selected, tx)
		}
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Date < selected[j].Date
	})

	totals := make([]decimal.Decimal, len(rep.Columns))
	for _, tx := range selected {
		row := Row{
			TransactionID: tx.ID,
			Date:          time.Unix(tx.Date, 0).UTC().Format(DateLayout),
			Description:   tx.Description,
			Type:          string(tx.Type),
			Amount:        tx.Amount,
			Impacts:       make([]float64, len(rep.Columns)),
		}
		for i, col := range rep.Columns {
			impact := netImpact(tx, col.UserID)
			totals[i] = totals[i].Add(impact)
			row.Impacts[i] = impact.InexactFloat64()
		}
		rep.Rows = append(rep.Rows, row)
	}

	balances := make([]calculator.MemberStats, len(rep.Columns))
	rep.Totals = make([]float64, len(rep.Columns))
	for i, col := range rep.Columns {
		rep.Totals[i] = totals[i].Round(2).InexactFloat64()
		balances[i] = calculator.MemberStats{
			UserID:   col.UserID,
			Username: col.Username,
			Balance:  rep.Totals[i],
		}
	}
	rep.Settlements = calculator.CalculateSettlements(balances)
	if rep.Settlements == nil {
		rep.Settlements = []models.Transfer{}
	}
	return rep
}

// FormatAmount renders an impact for the CSV: "-" for zero, a leading "+"
// for positive values.
func FormatAmount(x float64) string {
	d := decimal.NewFromFloat(x)
	if d.Abs().LessThan(decimal.RequireFromString("0.005")) {
		return "-"
	}
	if d.IsPositive() {
		return "+" + d.StringFixed(2)
	}
	return d.StringFixed(2)
}

// WriteCSV streams rep as CSV: a header, one line per row, a TOTAL line and
// the settlement plan.
func WriteCSV(w io.Writer, rep *Report) error {
	cw := csv.NewWriter(w)

	header := []string{"Date", "Description"}
	for _, col := range rep.Columns {
		header = append(header, col.Username)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write report header: %w", err)
	}

	for _, row := range rep.Rows {
		record := []string{row.Date, row.Description}
		for _, impact := range row.Impacts {
			record = append(record, FormatAmount(impact))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write report row: %w", err)
		}
	}

	total := []string{"", "TOTAL"}
	for _, v := range rep.Totals {
		total = append(total, FormatAmount(v))
	}
	if err := cw.Write(total); err != nil {
		return fmt.Errorf("failed to write report totals: %w", err)
	}

	if len(rep.Settlements) > 0 {
		if err := cw.Write([]string{}); err != nil {
			return err
		}
		if err := cw.Write([]string{"Settlements"}); err != nil {
			return err
		}
		for _, t := range rep.Settlements {
			if err := cw.Write([]string{t.String()}); err != nil {
				return fmt.Errorf("failed to write settlement: %w", err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}
