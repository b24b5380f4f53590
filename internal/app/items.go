package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"dropwatch/internal/monitor"
)

// AddOptions describe a new subscription from the CLI.
type AddOptions struct {
	UserID      string
	ProductURL  string
	StoreName   string
	TargetPrice string
}

// Add creates a monitored item, seeding an initial price best-effort.
func (a *App) Add(ctx context.Context, opts AddOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn is required to add monitors")
	}
	defer closeStore()

	params := monitor.AddParams{
		UserID:     opts.UserID,
		ProductURL: opts.ProductURL,
		StoreName:  opts.StoreName,
	}
	if opts.TargetPrice != "" {
		target, parseErr := decimal.NewFromString(opts.TargetPrice)
		if parseErr != nil {
			return fmt.Errorf("invalid --target value: %w", parseErr)
		}
		params.TargetPrice = &target
	}

	item, err := a.newMonitor(store).Add(ctx, params)
	if err != nil {
		if errors.Is(err, monitor.ErrDuplicate) {
			return fmt.Errorf("already tracking %s for user %s", opts.ProductURL, opts.UserID)
		}
		return err
	}

	if item.LastPrice != nil {
		fmt.Fprintf(os.Stdout, "monitor %d created; current price %s\n", item.ID, item.LastPrice.StringFixed(2))
	} else {
		fmt.Fprintf(os.Stdout, "monitor %d created; initial price check failed, will retry on schedule\n", item.ID)
	}
	return nil
}

// Remove deletes a subscription and its history.
func (a *App) Remove(ctx context.Context, monitorID int64) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn is required to remove monitors")
	}
	defer closeStore()

	if err := a.newMonitor(store).Remove(ctx, monitorID); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "monitor %d removed\n", monitorID)
	return nil
}

// Reenable turns tracking back on for a disabled item.
func (a *App) Reenable(ctx context.Context, monitorID int64) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn is required to re-enable monitors")
	}
	defer closeStore()

	if err := a.newMonitor(store).Reenable(ctx, monitorID); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "monitor %d re-enabled\n", monitorID)
	return nil
}

// List prints every monitored item, disabled ones included.
func (a *App) List(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn is required to list monitors")
	}
	defer closeStore()

	items, err := store.ListItems(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(os.Stdout, "no monitors found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tUser\tStore\tLast\tLowest\tTarget\tFailures\tTracking\tURL")
	for _, item := range items {
		last, lowest, target := "-", "-", "-"
		if item.LastPrice != nil {
			last = item.LastPrice.StringFixed(2)
		}
		if item.LowestPrice != nil {
			lowest = item.LowestPrice.StringFixed(2)
		}
		if item.TargetPrice != nil {
			target = item.TargetPrice.StringFixed(2)
		}

		tracking := "on"
		if !item.TrackingEnabled {
			tracking = "off"
		}

		fmt.Fprintf(writer, "%d\t%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			item.ID, item.UserID, item.StoreName, last, lowest, target,
			item.ConsecutiveFailures, tracking, item.ProductURL)
	}
	writer.Flush()
	return nil
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// MarkAlertRead flips an alert's read flag.
func (a *App) MarkAlertRead(ctx context.Context, alertID int64) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn is required to update alerts")
	}
	defer closeStore()

	if err := store.MarkAlertRead(ctx, alertID); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "alert %d marked read\n", alertID)
	return nil
}

// Show prints recent price alerts.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn is required to show alerts")
	}
	defer closeStore()

	alerts, err := store.ListRecentAlerts(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		fmt.Fprintln(os.Stdout, "no alerts found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tMonitor\tSeverity\tWas\tNow\tOff%\tRead\tMessage")
	for _, alert := range alerts {
		read := ""
		if alert.Read {
			read = "read"
		}
		fmt.Fprintf(writer, "%s\t%d\t%s\t%s\t%s\t%d\t%s\t%s\n",
			alert.CreatedAt.UTC().Format(time.RFC3339),
			alert.MonitorID,
			alert.Severity,
			alert.PreviousPrice.StringFixed(2),
			alert.CurrentPrice.StringFixed(2),
			alert.PercentageOff,
			read,
			sanitizeInline(alert.Message),
		)
	}
	writer.Flush()
	return nil
}
