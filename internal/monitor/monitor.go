// Package monitor orchestrates scheduled and on-demand checks of monitored
// items: extraction, history persistence, drop detection, and alert emission.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"dropwatch/internal/alerting"
	"dropwatch/internal/extraction"
	"dropwatch/internal/pricing"
	"dropwatch/internal/resilience"
	"dropwatch/internal/storage"
)

var (
	// ErrDuplicate indicates an active monitor already exists for the (user, URL) pair.
	ErrDuplicate = errors.New("monitor already exists for this user and product url")
	// ErrTrackingDisabled indicates the item was disabled by the failure policy
	// or the user, and will not be checked until explicitly re-enabled.
	ErrTrackingDisabled = errors.New("tracking is disabled for this item")
)

// Options tune the check loop.
type Options struct {
	// CheckDelay is the politeness pause between successive item checks.
	CheckDelay time.Duration
	// FailureThreshold is the consecutive-failure count that disables tracking.
	FailureThreshold int
}

// ItemOutcome reports one item's check result.
type ItemOutcome struct {
	MonitorID  int64
	ProductURL string
	Price      *decimal.Decimal
	Alert      *storage.PriceAlert
	Disabled   bool
	Err        string
}

// OK reports whether the check succeeded.
func (o ItemOutcome) OK() bool {
	return o.Err == ""
}

// CycleReport aggregates one check-all cycle.
type CycleReport struct {
	RunID     string
	Checked   int
	Succeeded int
	Failed    int
	Outcomes  []ItemOutcome
}

// AddParams describe a new tracking subscription.
type AddParams struct {
	UserID      string
	ProductURL  string
	StoreName   string
	TargetPrice *decimal.Decimal
}

// Monitor owns the set of monitored items and the per-item check logic.
type Monitor struct {
	items     storage.MonitorStore
	history   storage.HistoryStore
	alerts    storage.AlertStore
	extractor extraction.Extractor
	notifier  alerting.Notifier

	readBreaker  *resilience.Breaker
	writeBreaker *resilience.Breaker
	retryOpts    resilience.RetryOptions

	opts   Options
	logger zerolog.Logger
}

// New constructs the monitor. notifier may be nil; alerts are persisted regardless.
func New(
	items storage.MonitorStore,
	history storage.HistoryStore,
	alerts storage.AlertStore,
	extractor extraction.Extractor,
	notifier alerting.Notifier,
	readBreaker, writeBreaker *resilience.Breaker,
	retryOpts resilience.RetryOptions,
	opts Options,
	logger zerolog.Logger,
) *Monitor {
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = 3
	}
	if opts.CheckDelay < 0 {
		opts.CheckDelay = 0
	}
	return &Monitor{
		items:        items,
		history:      history,
		alerts:       alerts,
		extractor:    extractor,
		notifier:     notifier,
		readBreaker:  readBreaker,
		writeBreaker: writeBreaker,
		retryOpts:    retryOpts,
		opts:         opts,
		logger:       logger.With().Str("component", "monitor").Logger(),
	}
}

// CheckAll runs one full cycle over every tracking-enabled item, one at a
// time with a politeness delay between items. Per-item failures never abort
// the cycle; only failing to load the item list does.
func (m *Monitor) CheckAll(ctx context.Context) (CycleReport, error) {
	report := CycleReport{RunID: uuid.NewString()}
	logger := m.logger.With().Str("run_id", report.RunID).Logger()

	var items []storage.MonitoredItem
	err := m.readOp(ctx, func(ctx context.Context) error {
		var listErr error
		items, listErr = m.items.ListActiveItems(ctx)
		return listErr
	})
	if err != nil {
		return report, fmt.Errorf("load monitored items: %w", err)
	}

	logger.Info().Int("items", len(items)).Msg("check cycle started")

	for i, item := range items {
		if ctx.Err() != nil {
			logger.Warn().Err(ctx.Err()).Msg("check cycle cancelled")
			break
		}

		outcome := m.checkItem(ctx, item, storage.SourceScheduled)
		report.Checked++
		if outcome.OK() {
			report.Succeeded++
		} else {
			report.Failed++
		}
		report.Outcomes = append(report.Outcomes, outcome)

		if i < len(items)-1 && m.opts.CheckDelay > 0 {
			timer := time.NewTimer(m.opts.CheckDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
			case <-timer.C:
			}
		}
	}

	logger.Info().
		Int("checked", report.Checked).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Msg("check cycle finished")
	return report, nil
}

// CheckOne runs the per-item check logic for a single monitor on demand.
// Disabled items are refused, not attempted.
func (m *Monitor) CheckOne(ctx context.Context, monitorID int64) (ItemOutcome, error) {
	var item storage.MonitoredItem
	err := m.readOp(ctx, func(ctx context.Context) error {
		var getErr error
		item, getErr = m.items.GetItem(ctx, monitorID)
		return getErr
	})
	if err != nil {
		return ItemOutcome{MonitorID: monitorID}, fmt.Errorf("load monitored item: %w", err)
	}
	if !item.TrackingEnabled {
		return ItemOutcome{MonitorID: monitorID, ProductURL: item.ProductURL, Disabled: true}, ErrTrackingDisabled
	}

	return m.checkItem(ctx, item, storage.SourceManual), nil
}

// Add creates a subscription, rejecting duplicates, then best-effort runs an
// initial extraction to seed prices and history. Seed failures never fail the add.
func (m *Monitor) Add(ctx context.Context, params AddParams) (storage.MonitoredItem, error) {
	if params.UserID == "" || params.ProductURL == "" {
		return storage.MonitoredItem{}, errors.New("user id and product url are required")
	}

	var exists bool
	err := m.readOp(ctx, func(ctx context.Context) error {
		var existsErr error
		exists, existsErr = m.items.ItemExists(ctx, params.UserID, params.ProductURL)
		return existsErr
	})
	if err != nil {
		return storage.MonitoredItem{}, fmt.Errorf("check duplicate monitor: %w", err)
	}
	if exists {
		return storage.MonitoredItem{}, ErrDuplicate
	}

	item := storage.MonitoredItem{
		UserID:      params.UserID,
		ProductURL:  params.ProductURL,
		StoreName:   params.StoreName,
		TargetPrice: params.TargetPrice,
	}
	err = m.writeOp(ctx, "insert monitor", func(ctx context.Context) error {
		var insertErr error
		item, insertErr = m.items.InsertItem(ctx, item)
		return insertErr
	})
	if err != nil {
		return storage.MonitoredItem{}, fmt.Errorf("create monitor: %w", err)
	}

	m.seedInitialCheck(ctx, &item)
	return item, nil
}

// Remove deletes a subscription; history cascades at the schema level.
func (m *Monitor) Remove(ctx context.Context, monitorID int64) error {
	return m.writeOp(ctx, "delete monitor", func(ctx context.Context) error {
		return m.items.DeleteItem(ctx, monitorID)
	})
}

// Reenable is the explicit user action that turns tracking back on after the
// failure policy disabled it. Nothing re-enables automatically.
func (m *Monitor) Reenable(ctx context.Context, monitorID int64) error {
	return m.writeOp(ctx, "reenable monitor", func(ctx context.Context) error {
		return m.items.SetTrackingEnabled(ctx, monitorID, true)
	})
}

// DailySummary logs trailing-24h activity. Observability only; any failure
// here is reported but never touches tracking state.
func (m *Monitor) DailySummary(ctx context.Context) error {
	since := time.Now().UTC().Add(-24 * time.Hour)

	checks, err := m.history.CountHistorySince(ctx, since)
	if err != nil {
		return fmt.Errorf("count checks for summary: %w", err)
	}
	drops, err := m.alerts.CountAlertsSince(ctx, since)
	if err != nil {
		return fmt.Errorf("count drops for summary: %w", err)
	}

	m.logger.Info().
		Int64("checks_24h", checks).
		Int64("drops_24h", drops).
		Msg("daily summary")
	return nil
}

func (m *Monitor) seedInitialCheck(ctx context.Context, item *storage.MonitoredItem) {
	result := m.extractor.Extract(ctx, item.ProductURL)
	if !result.Success {
		m.logger.Warn().
			Int64("monitor_id", item.ID).
			Str("error", result.Error).
			Msg("initial extraction failed; monitor created without seed price")
		return
	}

	price := result.EffectivePrice()
	if price.LessThanOrEqual(decimal.Zero) {
		return
	}

	now := time.Now().UTC()
	retail := result.RetailPrice
	if retail.LessThanOrEqual(decimal.Zero) {
		retail = price
	}

	update := storage.ItemCheckUpdate{
		MonitorID:     item.ID,
		LastPrice:     price,
		LowestPrice:   price,
		RetailPrice:   retail,
		LastCheckedAt: now,
	}
	if err := m.writeOp(ctx, "seed monitor", func(ctx context.Context) error {
		return m.items.UpdateItemCheck(ctx, update)
	}); err != nil {
		m.logger.Warn().Err(err).Int64("monitor_id", item.ID).Msg("failed to persist seed price")
		return
	}

	entry := storage.PriceHistoryEntry{
		MonitorID:  item.ID,
		Price:      price,
		InStock:    result.InStock,
		ObservedAt: now,
		Source:     storage.SourceInitial,
	}
	if err := m.writeOp(ctx, "seed history", func(ctx context.Context) error {
		return m.history.AppendHistory(ctx, entry)
	}); err != nil {
		m.logger.Warn().Err(err).Int64("monitor_id", item.ID).Msg("failed to persist seed history")
		return
	}

	item.LastPrice = &price
	item.LowestPrice = &price
	item.RetailPrice = retail
	item.LastCheckedAt = &now
}

// checkItem runs extraction and state updates for one item. Everything here
// is per-item; errors surface in the outcome, never as faults.
func (m *Monitor) checkItem(ctx context.Context, item storage.MonitoredItem, source string) ItemOutcome {
	outcome := ItemOutcome{MonitorID: item.ID, ProductURL: item.ProductURL}

	result := m.extractor.Extract(ctx, item.ProductURL)
	price := result.EffectivePrice()

	if !result.Success || price.LessThanOrEqual(decimal.Zero) {
		return m.recordFailure(ctx, item, result, outcome)
	}

	now := time.Now().UTC()

	entry := storage.PriceHistoryEntry{
		MonitorID:  item.ID,
		Price:      price,
		InStock:    result.InStock,
		ObservedAt: now,
		Source:     source,
	}
	if err := m.writeOp(ctx, "append history", func(ctx context.Context) error {
		return m.history.AppendHistory(ctx, entry)
	}); err != nil {
		outcome.Err = fmt.Sprintf("persist history: %v", err)
		return outcome
	}

	// Baseline is the lowest price ever observed, falling back to retail when
	// no observation exists yet.
	baseline := decimal.Zero
	if item.LowestPrice != nil {
		baseline = *item.LowestPrice
	} else if item.RetailPrice.GreaterThan(decimal.Zero) {
		baseline = item.RetailPrice
	}

	drop, dropped := pricing.DetectDrop(price, baseline)

	newLowest := price
	if item.LowestPrice != nil && item.LowestPrice.LessThan(price) {
		newLowest = *item.LowestPrice
	}

	retail := item.RetailPrice
	if retail.LessThanOrEqual(decimal.Zero) && result.RetailPrice.GreaterThan(decimal.Zero) {
		retail = result.RetailPrice
	}

	// A new qualifying drop resets the notification flag so a lower price
	// always surfaces, even when an earlier alert was read and dismissed.
	notificationSent := item.NotificationSent
	if dropped {
		notificationSent = false
	}

	update := storage.ItemCheckUpdate{
		MonitorID:        item.ID,
		LastPrice:        price,
		LowestPrice:      newLowest,
		RetailPrice:      retail,
		LastCheckedAt:    now,
		NotificationSent: notificationSent,
	}
	if err := m.writeOp(ctx, "update monitor", func(ctx context.Context) error {
		return m.items.UpdateItemCheck(ctx, update)
	}); err != nil {
		outcome.Err = fmt.Sprintf("persist check: %v", err)
		return outcome
	}

	outcome.Price = &price

	if dropped {
		alert := m.emitAlert(ctx, item, result, price, baseline, drop)
		outcome.Alert = alert
	}

	return outcome
}

func (m *Monitor) recordFailure(ctx context.Context, item storage.MonitoredItem, result extraction.Result, outcome ItemOutcome) ItemOutcome {
	errText := result.Error
	if errText == "" {
		errText = "extraction returned no positive price"
	}
	outcome.Err = errText

	var failures int
	var enabled bool
	err := m.writeOp(ctx, "increment failure", func(ctx context.Context) error {
		var incErr error
		failures, enabled, incErr = m.items.IncrementFailure(ctx, item.ID, m.opts.FailureThreshold)
		return incErr
	})
	if err != nil {
		m.logger.Error().Err(err).Int64("monitor_id", item.ID).Msg("failed to record check failure")
		return outcome
	}

	outcome.Disabled = !enabled
	event := m.logger.Warn().
		Int64("monitor_id", item.ID).
		Str("url", item.ProductURL).
		Int("consecutive_failures", failures).
		Str("error", errText)
	if !enabled {
		event.Msg("tracking disabled after repeated failures")
	} else {
		event.Msg("check failed")
	}
	return outcome
}

func (m *Monitor) emitAlert(ctx context.Context, item storage.MonitoredItem, result extraction.Result, price, baseline decimal.Decimal, drop pricing.Drop) *storage.PriceAlert {
	name := displayName(item, result)
	alert := storage.PriceAlert{
		MonitorID:     item.ID,
		UserID:        item.UserID,
		Severity:      string(drop.Severity),
		Message:       fmt.Sprintf("%s is down %d%%: %s -> %s", name, drop.PercentageOff, baseline.StringFixed(2), price.StringFixed(2)),
		CurrentPrice:  price,
		PreviousPrice: baseline,
		PercentageOff: drop.PercentageOff,
	}

	err := m.writeOp(ctx, "insert alert", func(ctx context.Context) error {
		var insertErr error
		alert, insertErr = m.alerts.InsertAlert(ctx, alert)
		return insertErr
	})
	if err != nil {
		m.logger.Error().Err(err).Int64("monitor_id", item.ID).Msg("failed to persist price alert")
		return nil
	}

	m.logger.Info().
		Int64("monitor_id", item.ID).
		Str("severity", alert.Severity).
		Int64("percentage_off", alert.PercentageOff).
		Msg("price drop detected")

	if m.notifier != nil {
		note := alerting.Notification{Alert: alert, ProductURL: item.ProductURL, StoreName: item.StoreName}
		if notifyErr := m.notifier.Notify(ctx, note); notifyErr != nil {
			m.logger.Error().Err(notifyErr).Int64("monitor_id", item.ID).Msg("failed to dispatch alert")
		}
	}

	return &alert
}

func displayName(item storage.MonitoredItem, result extraction.Result) string {
	parts := make([]string, 0, 3)
	for _, part := range []string{result.Brand, result.Model, result.Colorway} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		if item.StoreName != "" {
			return item.StoreName + " item"
		}
		return item.ProductURL
	}
	name := parts[0]
	for _, part := range parts[1:] {
		name += " " + part
	}
	return name
}

func (m *Monitor) readOp(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.readBreaker == nil {
		return fn(ctx)
	}
	return m.readBreaker.Execute(ctx, fn)
}

// writeOp nests bounded retry inside the write breaker: the whole retried
// attempt counts as one breaker outcome.
func (m *Monitor) writeOp(ctx context.Context, label string, fn func(ctx context.Context) error) error {
	wrapped := func(ctx context.Context) error {
		return resilience.Retry(ctx, label, m.retryOpts, fn)
	}
	if m.writeBreaker == nil {
		return wrapped(ctx)
	}
	return m.writeBreaker.Execute(ctx, wrapped)
}
