package calculator

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/mmynk/kanak/internal/errs"
	"github.com/mmynk/kanak/internal/models"
)

var (
	hundred = decimal.NewFromInt(100)

	// AmountTolerance is the largest accepted gap between the sum of supplied
	// amounts and the transaction total.
	AmountTolerance = decimal.RequireFromString("0.01")

	// PercentTolerance is the largest accepted gap between the sum of supplied
	// percentages and 100.
	PercentTolerance = decimal.RequireFromString("0.1")
)

// ComputeSplits divides total among participantIDs according to mode.
//
// inputs holds the caller-supplied value per participant: a percentage for
// PERCENTAGE, an amount for AMOUNT. It is ignored for EQUAL. A PERCENTAGE
// split with no inputs distributes equal percentages.
//
// Results are in participant order and their amounts sum to total exactly in
// decimal terms. The only correction ever applied is the cent residual left by
// rounding: EQUAL gives it to the first participant, PERCENTAGE to the last.
// Supplied percentages are applied relative to their sum, so [50.05, 50.05]
// of 100 yields 50.00 each while the recorded percentages stay as given.
// Every failing check is reported in a single *errs.ValidationError.
func ComputeSplits(total float64, participantIDs []string, mode models.SplitMode, inputs map[string]float64) ([]models.Split, error) {
	var v errs.ValidationError

	if total < 0 {
		v.Addf(errs.ErrNegativeAmount, "amount %.2f cannot be negative", total)
	}
	if len(participantIDs) == 0 {
		v.Add(errs.ErrEmptySplitSet, errs.ErrEmptySplitSet.Error())
	}
	seen := make(map[string]bool, len(participantIDs))
	for _, id := range participantIDs {
		if seen[id] {
			v.Addf(nil, "participant %s appears more than once", id)
		}
		seen[id] = true
	}
	if !mode.Valid() {
		v.Addf(nil, "unknown split mode %q", mode)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	whole := decimal.NewFromFloat(total)

	switch mode {
	case models.SplitEqual:
		return buildSplits(participantIDs, equalParts(whole, len(participantIDs), 0), nil), nil

	case models.SplitPercentage:
		if len(inputs) == 0 {
			pcts := equalParts(hundred, len(participantIDs), len(participantIDs)-1)
			return buildSplits(participantIDs, amountsFromPercentages(whole, pcts), pcts), nil
		}
		pcts := collectInputs(&v, participantIDs, inputs, "percentage")
		if sum := sumOf(pcts); sum.Sub(hundred).Abs().GreaterThan(PercentTolerance) {
			v.Addf(errs.ErrSplitMismatch, "percentages sum to %s, expected 100 (±%s)",
				sum.StringFixed(2), PercentTolerance.String())
		}
		if err := v.Err(); err != nil {
			return nil, err
		}
		return buildSplits(participantIDs, amountsFromPercentages(whole, pcts), pcts), nil

	default:
		amounts := collectInputs(&v, participantIDs, inputs, "amount")
		if sum := sumOf(amounts); sum.Sub(whole).Abs().GreaterThan(AmountTolerance) {
			v.Addf(errs.ErrSplitMismatch, "split amounts sum to %s, expected %s (±%s)",
				sum.StringFixed(2), whole.StringFixed(2), AmountTolerance.String())
		}
		if err := v.Err(); err != nil {
			return nil, err
		}
		return buildSplits(participantIDs, amounts, nil), nil
	}
}

// ValidateSplits checks splits that are about to be persisted: a non-empty set
// of distinct participants with non-negative amounts summing to total within
// AmountTolerance, plus percentages summing to 100 in PERCENTAGE mode.
func ValidateSplits(total float64, mode models.SplitMode, splits []models.Split) error {
	var v errs.ValidationError

	if total < 0 {
		v.Addf(errs.ErrNegativeAmount, "amount %.2f cannot be negative", total)
	}
	if len(splits) == 0 {
		v.Add(errs.ErrEmptySplitSet, errs.ErrEmptySplitSet.Error())
		return v.Err()
	}

	seen := make(map[string]bool, len(splits))
	sum := decimal.Zero
	pctSum := decimal.Zero
	pctMissing := false
	for _, s := range splits {
		if seen[s.UserID] {
			v.Addf(nil, "participant %s appears more than once", s.UserID)
		}
		seen[s.UserID] = true
		if s.Amount < 0 {
			v.Addf(errs.ErrNegativeAmount, "split for %s cannot be negative", s.UserID)
		}
		sum = sum.Add(decimal.NewFromFloat(s.Amount))

		if mode == models.SplitPercentage {
			if s.Percentage == nil {
				v.Addf(nil, "percentage missing for %s", s.UserID)
				pctMissing = true
				continue
			}
			pctSum = pctSum.Add(decimal.NewFromFloat(*s.Percentage))
		}
	}

	whole := decimal.NewFromFloat(total)
	if sum.Sub(whole).Abs().GreaterThan(AmountTolerance) {
		v.Addf(errs.ErrSplitMismatch, "split amounts sum to %s, expected %s (±%s)",
			sum.StringFixed(2), whole.StringFixed(2), AmountTolerance.String())
	}
	if mode == models.SplitPercentage && !pctMissing && pctSum.Sub(hundred).Abs().GreaterThan(PercentTolerance) {
		v.Addf(errs.ErrSplitMismatch, "percentages sum to %s, expected 100 (±%s)",
			pctSum.StringFixed(2), PercentTolerance.String())
	}

	return v.Err()
}

// equalParts divides whole into n shares of whole cents. Every share gets the
// same number of cents, rounded down, and the share at index absorb takes
// what is left, so no share is ever negative.
func equalParts(whole decimal.Decimal, n, absorb int) []decimal.Decimal {
	q, _ := whole.Shift(2).Floor().QuoRem(decimal.NewFromInt(int64(n)), 0)
	share := q.Shift(-2)
	parts := make([]decimal.Decimal, n)
	sum := decimal.Zero
	for i := range parts {
		parts[i] = share
		sum = sum.Add(share)
	}
	parts[absorb] = parts[absorb].Add(whole.Sub(sum))
	return parts
}

// amountsFromPercentages converts percentages to cent amounts of total.
// Percentages are applied relative to their own sum, which is 100 within
// PercentTolerance, so the amounts always add up to total. The residual goes to
// the last participant whose share can absorb it without turning negative.
func amountsFromPercentages(total decimal.Decimal, pcts []decimal.Decimal) []decimal.Decimal {
	pctSum := sumOf(pcts)
	amounts := make([]decimal.Decimal, len(pcts))
	if pctSum.IsZero() {
		for i := range amounts {
			amounts[i] = decimal.Zero
		}
		amounts[len(amounts)-1] = total
		return amounts
	}

	sum := decimal.Zero
	for i, p := range pcts {
		amounts[i] = total.Mul(p).Div(pctSum).Round(2)
		sum = sum.Add(amounts[i])
	}

	residual := total.Sub(sum)
	for i := len(amounts) - 1; i >= 0; i-- {
		if !amounts[i].Add(residual).IsNegative() {
			amounts[i] = amounts[i].Add(residual)
			break
		}
	}
	return amounts
}

// collectInputs returns the supplied value for every participant in order,
// recording missing, negative and unexpected entries on v.
func collectInputs(v *errs.ValidationError, participantIDs []string, inputs map[string]float64, what string) []decimal.Decimal {
	values := make([]decimal.Decimal, len(participantIDs))
	known := make(map[string]bool, len(participantIDs))
	for i, id := range participantIDs {
		known[id] = true
		raw, ok := inputs[id]
		if !ok {
			v.Addf(nil, "%s missing for %s", what, id)
			continue
		}
		if raw < 0 {
			v.Addf(errs.ErrNegativeAmount, "%s for %s cannot be negative", what, id)
		}
		values[i] = decimal.NewFromFloat(raw)
	}
	var strangers []string
	for id := range inputs {
		if !known[id] {
			strangers = append(strangers, id)
		}
	}
	slices.Sort(strangers)
	for _, id := range strangers {
		v.Addf(nil, "%s given for %s, who is not a participant", what, id)
	}
	return values
}

func buildSplits(participantIDs []string, amounts, pcts []decimal.Decimal) []models.Split {
	splits := make([]models.Split, len(participantIDs))
	for i, id := range participantIDs {
		splits[i] = models.Split{UserID: id, Amount: amounts[i].InexactFloat64()}
		if pcts != nil {
			p := pcts[i].InexactFloat64()
			splits[i].Percentage = &p
		}
	}
	return splits
}

func sumOf(values []decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, d := range values {
		sum = sum.Add(d)
	}
	return sum
}
