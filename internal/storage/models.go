package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// History source tags distinguish how an observation was obtained.
const (
	SourceScheduled = "scheduled"
	SourceManual    = "manual"
	SourceInitial   = "initial"
	SourceImport    = "import"
)

// MonitoredItem is one (user, product URL) tracking subscription.
type MonitoredItem struct {
	ID                  int64
	UserID              string
	ProductURL          string
	StoreName           string
	TargetPrice         *decimal.Decimal
	RetailPrice         decimal.Decimal
	LastPrice           *decimal.Decimal
	LowestPrice         *decimal.Decimal
	LastCheckedAt       *time.Time
	ConsecutiveFailures int
	TrackingEnabled     bool
	NotificationSent    bool
	CreatedAt           time.Time
}

// PriceHistoryEntry is an immutable price observation, append-only.
type PriceHistoryEntry struct {
	ID         int64
	MonitorID  int64
	Price      decimal.Decimal
	InStock    bool
	ObservedAt time.Time
	Source     string
}

// PriceAlert captures a detected drop for the user, retained for audit.
type PriceAlert struct {
	ID            int64
	MonitorID     int64
	UserID        string
	Severity      string
	Message       string
	CurrentPrice  decimal.Decimal
	PreviousPrice decimal.Decimal
	PercentageOff int64
	Read          bool
	CreatedAt     time.Time
}

// ItemCheckUpdate is the full snapshot of the fields one check owns.
// Failure counters are intentionally absent; those increment server-side.
type ItemCheckUpdate struct {
	MonitorID        int64
	LastPrice        decimal.Decimal
	LowestPrice      decimal.Decimal
	RetailPrice      decimal.Decimal
	LastCheckedAt    time.Time
	NotificationSent bool
}

// CheckStats aggregates activity over a trailing window.
type CheckStats struct {
	Checks int64
	Drops  int64
}
