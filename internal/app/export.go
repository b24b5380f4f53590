package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"dropwatch/internal/storage"
)

// ExportOptions hold parameters for exporting a monitor's price history.
type ExportOptions struct {
	MonitorID int64
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// Export renders one monitor's price history as CSV and/or a PNG chart.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}
	if opts.MonitorID <= 0 {
		return errors.New("--id must be greater than zero")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn is required to export history")
	}
	defer closeStore()

	item, err := store.GetItem(ctx, opts.MonitorID)
	if err != nil {
		return err
	}

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}
	from := item.CreatedAt.UTC()
	if opts.From != nil {
		from = opts.From.UTC()
	}
	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	entries, err := store.ListHistory(ctx, opts.MonitorID, from, to)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		a.Logger.Info().Int64("monitor_id", opts.MonitorID).Msg("no history found for export window")
		return nil
	}

	downsampled := downsampleHistory(entries, opts.MaxPoints)
	a.Logger.Info().Int("total", len(entries)).Int("exported", len(downsampled)).Msg("exporting history")

	if opts.CSVPath != "" {
		if err := writeHistoryCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeHistoryPNG(opts.PNGPath, item, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleHistory(entries []storage.PriceHistoryEntry, max int) []storage.PriceHistoryEntry {
	if max <= 0 || len(entries) <= max {
		return entries
	}

	result := make([]storage.PriceHistoryEntry, 0, max)
	step := float64(len(entries)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(entries) {
			idx = len(entries) - 1
		}
		result = append(result, entries[idx])
	}
	return result
}

func writeHistoryCSV(path string, entries []storage.PriceHistoryEntry) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"observed_at", "price", "in_stock", "source"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, entry := range entries {
		record := []string{
			entry.ObservedAt.Format(time.RFC3339),
			entry.Price.String(),
			fmt.Sprintf("%t", entry.InStock),
			entry.Source,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeHistoryPNG(path string, item storage.MonitoredItem, entries []storage.PriceHistoryEntry) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(entries))
	prices := make([]float64, len(entries))
	for i, entry := range entries {
		x[i] = entry.ObservedAt
		prices[i] = entry.Price.InexactFloat64()
	}

	series := []chart.Series{
		chart.TimeSeries{
			Name:    "price",
			XValues: x,
			YValues: prices,
		},
	}

	if item.TargetPrice != nil {
		target := item.TargetPrice.InexactFloat64()
		targets := make([]float64, len(entries))
		for i := range targets {
			targets[i] = target
		}
		series = append(series, chart.TimeSeries{
			Name:    "target",
			XValues: x,
			YValues: targets,
			Style: chart.Style{
				StrokeColor:     chart.ColorAlternateGray,
				StrokeDashArray: []float64{4, 4},
			},
		})
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("monitor %d price history", item.ID),
		Width:  1280,
		Height: 720,
		XAxis:  chart.XAxis{Name: "time"},
		YAxis:  chart.YAxis{Name: "price"},
		Series: series,
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
