package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("storage: not found")
)

const (
	insertItemSQL = `INSERT INTO monitored_items (
        user_id,
        product_url,
        store_name,
        target_price,
        retail_price,
        tracking_enabled
    ) VALUES (
        $1,$2,$3,$4,$5,TRUE
    )
    RETURNING id, created_at;`

	itemExistsSQL = `SELECT EXISTS (
        SELECT 1 FROM monitored_items
        WHERE user_id = $1 AND product_url = $2
    );`

	listActiveItemsSQL = `SELECT
        id, user_id, product_url, store_name,
        target_price, retail_price, last_price, lowest_price,
        last_checked_at, consecutive_failures, tracking_enabled,
        notification_sent, created_at
    FROM monitored_items
    WHERE tracking_enabled
    ORDER BY id;`

	listItemsSQL = `SELECT
        id, user_id, product_url, store_name,
        target_price, retail_price, last_price, lowest_price,
        last_checked_at, consecutive_failures, tracking_enabled,
        notification_sent, created_at
    FROM monitored_items
    ORDER BY id;`

	getItemSQL = `SELECT
        id, user_id, product_url, store_name,
        target_price, retail_price, last_price, lowest_price,
        last_checked_at, consecutive_failures, tracking_enabled,
        notification_sent, created_at
    FROM monitored_items
    WHERE id = $1;`

	updateItemCheckSQL = `UPDATE monitored_items
    SET last_price           = $2,
        lowest_price         = $3,
        retail_price         = $4,
        last_checked_at      = $5,
        notification_sent    = $6,
        consecutive_failures = 0
    WHERE id = $1;`

	incrementFailureSQL = `UPDATE monitored_items
    SET consecutive_failures = consecutive_failures + 1,
        tracking_enabled     = tracking_enabled AND consecutive_failures + 1 < $2,
        last_checked_at      = NOW()
    WHERE id = $1
    RETURNING consecutive_failures, tracking_enabled;`

	setTrackingSQL = `UPDATE monitored_items
    SET tracking_enabled     = $2,
        consecutive_failures = CASE WHEN $2 THEN 0 ELSE consecutive_failures END
    WHERE id = $1;`

	deleteItemSQL = `DELETE FROM monitored_items WHERE id = $1;`

	appendHistorySQL = `INSERT INTO price_history (
        monitor_id, price, in_stock, observed_at, source
    ) VALUES (
        $1,$2,$3,$4,$5
    );`

	listHistorySQL = `SELECT id, monitor_id, price, in_stock, observed_at, source
    FROM price_history
    WHERE monitor_id = $1
      AND observed_at >= $2
      AND observed_at < $3
    ORDER BY observed_at;`

	countHistorySinceSQL = `SELECT COUNT(*) FROM price_history WHERE observed_at >= $1;`

	insertAlertSQL = `INSERT INTO price_alerts (
        monitor_id, user_id, severity, message,
        current_price, previous_price, percentage_off
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    )
    RETURNING id, created_at;`

	listRecentAlertsSQL = `SELECT
        id, monitor_id, user_id, severity, message,
        current_price, previous_price, percentage_off, read, created_at
    FROM price_alerts
    ORDER BY created_at DESC
    LIMIT $1;`

	countAlertsSinceSQL = `SELECT COUNT(*) FROM price_alerts WHERE created_at >= $1;`

	markAlertReadSQL = `UPDATE price_alerts SET read = TRUE WHERE id = $1;`
)

// MonitorStore defines operations on monitored items.
type MonitorStore interface {
	InsertItem(ctx context.Context, item MonitoredItem) (MonitoredItem, error)
	ItemExists(ctx context.Context, userID, productURL string) (bool, error)
	ListActiveItems(ctx context.Context) ([]MonitoredItem, error)
	ListItems(ctx context.Context) ([]MonitoredItem, error)
	GetItem(ctx context.Context, id int64) (MonitoredItem, error)
	UpdateItemCheck(ctx context.Context, update ItemCheckUpdate) error
	IncrementFailure(ctx context.Context, id int64, disableThreshold int) (failures int, trackingEnabled bool, err error)
	SetTrackingEnabled(ctx context.Context, id int64, enabled bool) error
	DeleteItem(ctx context.Context, id int64) error
}

// HistoryStore defines operations on the append-only price history.
type HistoryStore interface {
	AppendHistory(ctx context.Context, entry PriceHistoryEntry) error
	ListHistory(ctx context.Context, monitorID int64, from, to time.Time) ([]PriceHistoryEntry, error)
	CountHistorySince(ctx context.Context, since time.Time) (int64, error)
}

// AlertStore defines operations on price alerts.
type AlertStore interface {
	InsertAlert(ctx context.Context, alert PriceAlert) (PriceAlert, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]PriceAlert, error)
	CountAlertsSince(ctx context.Context, since time.Time) (int64, error)
	MarkAlertRead(ctx context.Context, id int64) error
}

// Store aggregates access to monitors, history, and alerts.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertItem persists a new monitored item and returns it with its assigned id.
func (s *Store) InsertItem(ctx context.Context, item MonitoredItem) (MonitoredItem, error) {
	pool, err := s.getPool()
	if err != nil {
		return MonitoredItem{}, err
	}

	var target interface{}
	if item.TargetPrice != nil {
		target = item.TargetPrice.String()
	}

	row := pool.QueryRow(ctx, insertItemSQL,
		item.UserID,
		item.ProductURL,
		item.StoreName,
		target,
		item.RetailPrice.String(),
	)
	if scanErr := row.Scan(&item.ID, &item.CreatedAt); scanErr != nil {
		return MonitoredItem{}, fmt.Errorf("insert monitored item: %w", scanErr)
	}
	item.TrackingEnabled = true
	return item, nil
}

// ItemExists reports whether a (user, URL) monitor already exists.
func (s *Store) ItemExists(ctx context.Context, userID, productURL string) (bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return false, err
	}
	var exists bool
	if scanErr := pool.QueryRow(ctx, itemExistsSQL, userID, productURL).Scan(&exists); scanErr != nil {
		return false, fmt.Errorf("check monitor exists: %w", scanErr)
	}
	return exists, nil
}

// ListActiveItems lists every item with tracking enabled.
func (s *Store) ListActiveItems(ctx context.Context) ([]MonitoredItem, error) {
	return s.listItems(ctx, listActiveItemsSQL)
}

// ListItems lists every item, disabled ones included.
func (s *Store) ListItems(ctx context.Context) ([]MonitoredItem, error) {
	return s.listItems(ctx, listItemsSQL)
}

func (s *Store) listItems(ctx context.Context, query string) ([]MonitoredItem, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, query)
	if queryErr != nil {
		return nil, fmt.Errorf("list monitored items: %w", queryErr)
	}
	defer rows.Close()

	items := make([]MonitoredItem, 0)
	for rows.Next() {
		item, scanErr := scanItem(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		items = append(items, item)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

// GetItem fetches one item by id.
func (s *Store) GetItem(ctx context.Context, id int64) (MonitoredItem, error) {
	pool, err := s.getPool()
	if err != nil {
		return MonitoredItem{}, err
	}

	rows, queryErr := pool.Query(ctx, getItemSQL, id)
	if queryErr != nil {
		return MonitoredItem{}, fmt.Errorf("get monitored item: %w", queryErr)
	}
	defer rows.Close()

	if !rows.Next() {
		if rows.Err() != nil {
			return MonitoredItem{}, rows.Err()
		}
		return MonitoredItem{}, ErrNotFound
	}
	return scanItem(rows)
}

// UpdateItemCheck writes the snapshot a successful check owns and resets failures.
func (s *Store) UpdateItemCheck(ctx context.Context, update ItemCheckUpdate) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	cmdTag, execErr := pool.Exec(ctx, updateItemCheckSQL,
		update.MonitorID,
		update.LastPrice.String(),
		update.LowestPrice.String(),
		update.RetailPrice.String(),
		update.LastCheckedAt,
		update.NotificationSent,
	)
	if execErr != nil {
		return fmt.Errorf("update item check: %w", execErr)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementFailure bumps the failure counter server-side, disabling tracking
// once the threshold is reached, and returns the resulting state.
func (s *Store) IncrementFailure(ctx context.Context, id int64, disableThreshold int) (int, bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, false, err
	}

	var failures int
	var enabled bool
	row := pool.QueryRow(ctx, incrementFailureSQL, id, disableThreshold)
	if scanErr := row.Scan(&failures, &enabled); scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return 0, false, ErrNotFound
		}
		return 0, false, fmt.Errorf("increment failure counter: %w", scanErr)
	}
	return failures, enabled, nil
}

// SetTrackingEnabled flips tracking on or off; enabling resets the failure counter.
func (s *Store) SetTrackingEnabled(ctx context.Context, id int64, enabled bool) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	cmdTag, execErr := pool.Exec(ctx, setTrackingSQL, id, enabled)
	if execErr != nil {
		return fmt.Errorf("set tracking enabled: %w", execErr)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteItem removes a monitor; its history cascades at the schema level.
func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	cmdTag, execErr := pool.Exec(ctx, deleteItemSQL, id)
	if execErr != nil {
		return fmt.Errorf("delete monitored item: %w", execErr)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendHistory inserts one observation. History rows are never updated.
func (s *Store) AppendHistory(ctx context.Context, entry PriceHistoryEntry) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	_, execErr := pool.Exec(ctx, appendHistorySQL,
		entry.MonitorID,
		entry.Price.String(),
		entry.InStock,
		entry.ObservedAt,
		entry.Source,
	)
	if execErr != nil {
		return fmt.Errorf("append price history: %w", execErr)
	}
	return nil
}

// ListHistory lists a monitor's observations within a time window.
func (s *Store) ListHistory(ctx context.Context, monitorID int64, from, to time.Time) ([]PriceHistoryEntry, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listHistorySQL, monitorID, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list price history: %w", queryErr)
	}
	defer rows.Close()

	entries := make([]PriceHistoryEntry, 0)
	for rows.Next() {
		var entry PriceHistoryEntry
		var priceStr string
		if scanErr := rows.Scan(
			&entry.ID,
			&entry.MonitorID,
			&priceStr,
			&entry.InStock,
			&entry.ObservedAt,
			&entry.Source,
		); scanErr != nil {
			return nil, scanErr
		}
		price, convErr := decimal.NewFromString(priceStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse history price: %w", convErr)
		}
		entry.Price = price
		entries = append(entries, entry)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return entries, nil
}

// CountHistorySince counts observations recorded at or after the given time.
func (s *Store) CountHistorySince(ctx context.Context, since time.Time) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countHistorySinceSQL, since).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count history since: %w", scanErr)
	}
	return count, nil
}

// InsertAlert persists a detected drop.
func (s *Store) InsertAlert(ctx context.Context, alert PriceAlert) (PriceAlert, error) {
	pool, err := s.getPool()
	if err != nil {
		return PriceAlert{}, err
	}

	row := pool.QueryRow(ctx, insertAlertSQL,
		alert.MonitorID,
		alert.UserID,
		alert.Severity,
		alert.Message,
		alert.CurrentPrice.String(),
		alert.PreviousPrice.String(),
		alert.PercentageOff,
	)
	if scanErr := row.Scan(&alert.ID, &alert.CreatedAt); scanErr != nil {
		return PriceAlert{}, fmt.Errorf("insert price alert: %w", scanErr)
	}
	return alert, nil
}

// ListRecentAlerts lists most recent alerts.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]PriceAlert, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]PriceAlert, 0, limit)
	for rows.Next() {
		var alert PriceAlert
		var currentStr, previousStr string
		if scanErr := rows.Scan(
			&alert.ID,
			&alert.MonitorID,
			&alert.UserID,
			&alert.Severity,
			&alert.Message,
			&currentStr,
			&previousStr,
			&alert.PercentageOff,
			&alert.Read,
			&alert.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}

		var convErr error
		alert.CurrentPrice, convErr = decimal.NewFromString(currentStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse alert current price: %w", convErr)
		}
		alert.PreviousPrice, convErr = decimal.NewFromString(previousStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse alert previous price: %w", convErr)
		}
		alerts = append(alerts, alert)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

// CountAlertsSince counts alerts created at or after the given time.
func (s *Store) CountAlertsSince(ctx context.Context, since time.Time) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countAlertsSinceSQL, since).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count alerts since: %w", scanErr)
	}
	return count, nil
}

// MarkAlertRead flips the read flag; the only mutation alerts ever receive.
func (s *Store) MarkAlertRead(ctx context.Context, id int64) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	cmdTag, execErr := pool.Exec(ctx, markAlertReadSQL, id)
	if execErr != nil {
		return fmt.Errorf("mark alert read: %w", execErr)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanItem(rows pgx.Rows) (MonitoredItem, error) {
	var (
		item        MonitoredItem
		targetStr   sql.NullString
		retailStr   string
		lastStr     sql.NullString
		lowestStr   sql.NullString
		lastChecked sql.NullTime
	)

	if err := rows.Scan(
		&item.ID,
		&item.UserID,
		&item.ProductURL,
		&item.StoreName,
		&targetStr,
		&retailStr,
		&lastStr,
		&lowestStr,
		&lastChecked,
		&item.ConsecutiveFailures,
		&item.TrackingEnabled,
		&item.NotificationSent,
		&item.CreatedAt,
	); err != nil {
		return MonitoredItem{}, err
	}

	retail, err := decimal.NewFromString(retailStr)
	if err != nil {
		return MonitoredItem{}, fmt.Errorf("parse retail price: %w", err)
	}
	item.RetailPrice = retail

	if targetStr.Valid {
		target, convErr := decimal.NewFromString(targetStr.String)
		if convErr != nil {
			return MonitoredItem{}, fmt.Errorf("parse target price: %w", convErr)
		}
		item.TargetPrice = &target
	}
	if lastStr.Valid {
		last, convErr := decimal.NewFromString(lastStr.String)
		if convErr != nil {
			return MonitoredItem{}, fmt.Errorf("parse last price: %w", convErr)
		}
		item.LastPrice = &last
	}
	if lowestStr.Valid {
		lowest, convErr := decimal.NewFromString(lowestStr.String)
		if convErr != nil {
			return MonitoredItem{}, fmt.Errorf("parse lowest price: %w", convErr)
		}
		item.LowestPrice = &lowest
	}
	if lastChecked.Valid {
		t := lastChecked.Time
		item.LastCheckedAt = &t
	}

	return item, nil
}
