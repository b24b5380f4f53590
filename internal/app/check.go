package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"dropwatch/internal/monitor"
)

// CheckNow runs one immediate check cycle, or a single item when id is set,
// and prints per-item outcomes.
func (a *App) CheckNow(ctx context.Context, monitorID int64) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn is required to run checks")
	}
	defer closeStore()

	svc := a.newService(store)

	if monitorID > 0 {
		outcome, checkErr := svc.Monitor().CheckOne(ctx, monitorID)
		if checkErr != nil {
			if errors.Is(checkErr, monitor.ErrTrackingDisabled) {
				fmt.Fprintf(os.Stdout, "monitor %d is disabled; re-enable it before checking\n", monitorID)
				return nil
			}
			return checkErr
		}
		printOutcomes([]monitor.ItemOutcome{outcome})
		return nil
	}

	result := svc.CheckNow(ctx)
	if !result.OK {
		return errors.New(result.Message)
	}

	fmt.Fprintln(os.Stdout, result.Message)
	printOutcomes(result.Outcomes)
	return nil
}

func printOutcomes(outcomes []monitor.ItemOutcome) {
	if len(outcomes) == 0 {
		return
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tPrice\tAlert\tStatus")
	for _, outcome := range outcomes {
		price := "-"
		if outcome.Price != nil {
			price = outcome.Price.StringFixed(2)
		}

		alertCol := "-"
		if outcome.Alert != nil {
			alertCol = fmt.Sprintf("%s (-%d%%)", outcome.Alert.Severity, outcome.Alert.PercentageOff)
		}

		status := "ok"
		if !outcome.OK() {
			status = sanitizeInline(outcome.Err)
			if outcome.Disabled {
				status += " [disabled]"
			}
		}
		fmt.Fprintf(writer, "%d\t%s\t%s\t%s\n", outcome.MonitorID, price, alertCol, status)
	}
	writer.Flush()
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
