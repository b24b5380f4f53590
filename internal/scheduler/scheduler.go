// Package scheduler drives periodic check cycles. State is an explicit,
// injectable object rather than process-global, so instances in tests or
// parallel workers never collide. It is intentionally ephemeral: a restarted
// process starts monitoring again only when told to.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"dropwatch/internal/monitor"
)

// Runner is what the scheduler triggers; the monitor satisfies it.
type Runner interface {
	CheckAll(ctx context.Context) (monitor.CycleReport, error)
	DailySummary(ctx context.Context) error
}

// Options carry the two cadences as cron specs.
type Options struct {
	CheckSpec   string
	SummarySpec string
}

// Status reports scheduler state for the control surface.
type Status struct {
	Running bool
	Jobs    int
}

// Scheduler owns the cron instance and its on/off state.
type Scheduler struct {
	runner Runner
	opts   Options
	logger zerolog.Logger

	mu      sync.Mutex
	c       *cron.Cron
	running bool
}

// New constructs a stopped scheduler.
func New(runner Runner, opts Options, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		runner: runner,
		opts:   opts,
		logger: logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start registers the periodic jobs and begins scheduling.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("scheduler already running")
	}

	c := cron.New()

	if _, err := c.AddFunc(s.opts.CheckSpec, func() {
		if _, err := s.runner.CheckAll(ctx); err != nil {
			s.logger.Error().Err(err).Msg("scheduled check cycle failed")
		}
	}); err != nil {
		return fmt.Errorf("register check job (%q): %w", s.opts.CheckSpec, err)
	}

	if _, err := c.AddFunc(s.opts.SummarySpec, func() {
		if err := s.runner.DailySummary(ctx); err != nil {
			s.logger.Error().Err(err).Msg("daily summary failed")
		}
	}); err != nil {
		return fmt.Errorf("register summary job (%q): %w", s.opts.SummarySpec, err)
	}

	c.Start()
	s.c = c
	s.running = true
	s.logger.Info().
		Str("check_spec", s.opts.CheckSpec).
		Str("summary_spec", s.opts.SummarySpec).
		Msg("scheduler started")
	return nil
}

// Stop cancels pending triggers. An in-flight cycle is allowed to finish;
// the returned channel closes once it has.
func (s *Scheduler) Stop() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	done := make(chan struct{})
	if !s.running {
		close(done)
		return done
	}

	stopCtx := s.c.Stop()
	s.running = false
	s.logger.Info().Msg("scheduler stopped")

	go func() {
		<-stopCtx.Done()
		close(done)
	}()
	return done
}

// Status reports whether monitoring is active and how many jobs are scheduled.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{Running: s.running}
	if s.c != nil {
		status.Jobs = len(s.c.Entries())
	}
	return status
}

// CheckNow runs one check cycle immediately, independent of the cadence.
// Nothing stops it racing a scheduled cycle; item updates are snapshot writes.
func (s *Scheduler) CheckNow(ctx context.Context) (monitor.CycleReport, error) {
	return s.runner.CheckAll(ctx)
}
