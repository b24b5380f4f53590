package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"dropwatch/internal/monitor"
	"dropwatch/internal/scheduler"
)

// ControlResult is the uniform reply of the monitoring control surface.
type ControlResult struct {
	OK      bool
	Message string

	// Populated by Status.
	Running bool
	Jobs    int

	// Populated by CheckNow.
	Checked   int
	Succeeded int
	Failed    int
	Outcomes  []monitor.ItemOutcome
}

// Service bundles the wired monitor and scheduler behind the four control
// operations: start, stop, check-now, status.
type Service struct {
	mon    *monitor.Monitor
	sched  *scheduler.Scheduler
	logger zerolog.Logger
}

// NewService constructs a Service.
func NewService(mon *monitor.Monitor, sched *scheduler.Scheduler, logger zerolog.Logger) *Service {
	return &Service{mon: mon, sched: sched, logger: logger.With().Str("component", "service").Logger()}
}

// Monitor exposes the underlying monitor for on-demand operations.
func (s *Service) Monitor() *monitor.Monitor {
	return s.mon
}

// StartMonitoring begins the scheduled cadences.
func (s *Service) StartMonitoring(ctx context.Context) ControlResult {
	if err := s.sched.Start(ctx); err != nil {
		return ControlResult{Message: fmt.Sprintf("start monitoring: %v", err)}
	}
	status := s.sched.Status()
	return ControlResult{OK: true, Message: "monitoring started", Running: status.Running, Jobs: status.Jobs}
}

// StopMonitoring cancels pending triggers and waits for an in-flight cycle.
func (s *Service) StopMonitoring() ControlResult {
	<-s.sched.Stop()
	return ControlResult{OK: true, Message: "monitoring stopped"}
}

// MonitoringStatus reports whether monitoring is active.
func (s *Service) MonitoringStatus() ControlResult {
	status := s.sched.Status()
	message := "monitoring inactive"
	if status.Running {
		message = fmt.Sprintf("monitoring active with %d scheduled jobs", status.Jobs)
	}
	return ControlResult{OK: true, Message: message, Running: status.Running, Jobs: status.Jobs}
}

// CheckNow runs one full check cycle immediately.
func (s *Service) CheckNow(ctx context.Context) ControlResult {
	report, err := s.sched.CheckNow(ctx)
	if err != nil {
		return ControlResult{Message: fmt.Sprintf("check cycle: %v", err)}
	}
	return ControlResult{
		OK:        true,
		Message:   fmt.Sprintf("checked %d items: %d succeeded, %d failed", report.Checked, report.Succeeded, report.Failed),
		Checked:   report.Checked,
		Succeeded: report.Succeeded,
		Failed:    report.Failed,
		Outcomes:  report.Outcomes,
	}
}

// Run executes the long-running monitoring service until interrupted.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn is required to run the monitoring service")
	}
	defer closeStore()

	svc := a.newService(store)

	result := svc.StartMonitoring(context.Background())
	if !result.OK {
		return errors.New(result.Message)
	}
	a.Logger.Info().Int("jobs", result.Jobs).Msg("monitoring service running")

	<-ctx.Done()

	a.Logger.Info().Msg("shutting down; waiting for in-flight cycle")
	svc.StopMonitoring()
	a.Logger.Info().Msg("monitoring service stopped")
	return nil
}
