// Package pricing holds the pure drop-detection logic. It is deliberately
// independent of how the comparison baseline was chosen; the monitor decides that.
package pricing

import (
	"github.com/shopspring/decimal"
)

// Severity classifies how meaningful a detected drop is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Severity thresholds in whole percent off the previous price.
const (
	highThresholdPct   = 30
	mediumThresholdPct = 15
)

// Drop describes a detected price decrease.
type Drop struct {
	Amount        decimal.Decimal
	PercentageOff int64
	Severity      Severity
}

var dec100 = decimal.NewFromInt(100)

// DetectDrop compares a newly observed price against a prior baseline.
// It returns false when no baseline exists (previous <= 0) or when the price
// is flat or increased. PercentageOff is rounded to whole percent.
func DetectDrop(current, previous decimal.Decimal) (Drop, bool) {
	if previous.LessThanOrEqual(decimal.Zero) {
		return Drop{}, false
	}

	amount := previous.Sub(current)
	if amount.LessThanOrEqual(decimal.Zero) {
		return Drop{}, false
	}

	pct := amount.Mul(dec100).Div(previous).Round(0).IntPart()

	severity := SeverityLow
	switch {
	case pct >= highThresholdPct:
		severity = SeverityHigh
	case pct >= mediumThresholdPct:
		severity = SeverityMedium
	}

	return Drop{Amount: amount, PercentageOff: pct, Severity: severity}, true
}
