package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestDetectDropSeverity(t *testing.T) {
	cases := []struct {
		name     string
		previous string
		current  string
		pct      int64
		severity Severity
	}{
		{"high at thirty five percent", "100", "65", 35, SeverityHigh},
		{"high at exactly thirty", "100", "70", 30, SeverityHigh},
		{"medium at eighteen percent", "100", "82", 18, SeverityMedium},
		{"medium at exactly fifteen", "100", "85", 15, SeverityMedium},
		{"low at eight percent", "100", "92", 8, SeverityLow},
		{"low at one percent", "100", "99", 1, SeverityLow},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			drop, ok := DetectDrop(dec(tc.current), dec(tc.previous))
			if !ok {
				t.Fatal("expected a drop")
			}
			if drop.PercentageOff != tc.pct {
				t.Errorf("percentage = %d, want %d", drop.PercentageOff, tc.pct)
			}
			if drop.Severity != tc.severity {
				t.Errorf("severity = %s, want %s", drop.Severity, tc.severity)
			}
		})
	}
}

func TestDetectDropRoundsToWholePercent(t *testing.T) {
	drop, ok := DetectDrop(dec("170.01"), dec("199.99"))
	if !ok {
		t.Fatal("expected a drop")
	}
	// 29.98/199.99 = 14.99...% rounds to 15, crossing into medium.
	if drop.PercentageOff != 15 {
		t.Errorf("percentage = %d, want 15", drop.PercentageOff)
	}
	if drop.Severity != SeverityMedium {
		t.Errorf("severity = %s, want %s", drop.Severity, SeverityMedium)
	}
}

func TestDetectDropAmount(t *testing.T) {
	drop, ok := DetectDrop(dec("150"), dec("200"))
	if !ok {
		t.Fatal("expected a drop")
	}
	if !drop.Amount.Equal(dec("50")) {
		t.Errorf("amount = %s, want 50", drop.Amount)
	}
	if drop.PercentageOff != 25 {
		t.Errorf("percentage = %d, want 25", drop.PercentageOff)
	}
}

func TestDetectDropNone(t *testing.T) {
	cases := []struct {
		name     string
		previous string
		current  string
	}{
		{"flat price", "100", "100"},
		{"price increase", "100", "120"},
		{"zero baseline", "0", "50"},
		{"negative baseline", "-1", "50"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := DetectDrop(dec(tc.current), dec(tc.previous)); ok {
				t.Error("expected no drop")
			}
		})
	}
}
