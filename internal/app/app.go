package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"dropwatch/internal/alerting"
	"dropwatch/internal/config"
	"dropwatch/internal/extraction"
	"dropwatch/internal/monitor"
	"dropwatch/internal/resilience"
	"dropwatch/internal/scheduler"
	"dropwatch/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) fetchOptions() extraction.FetchOptions {
	return extraction.FetchOptions{
		Timeout:       a.Config.Extraction.RequestTimeout,
		UserAgent:     a.Config.Extraction.UserAgent,
		RetryAttempts: a.Config.Resilience.RetryAttempts,
		RetryDelay:    a.Config.Resilience.RetryInitialDelay,
	}
}

func (a *App) newExtractor() extraction.Extractor {
	fetchOpts := a.fetchOptions()

	structured := extraction.NewStructuredStrategy(fetchOpts, a.Config.Extraction.MaxImages, a.Logger)
	fetcher := extraction.NewPageFetcher(fetchOpts, a.Logger)
	locator := extraction.NewLocatorStrategy(a.Config.Extraction.MaxImages, a.Logger)

	var ai *extraction.AIStrategy
	if a.Config.AI.Enabled {
		breaker := a.newBreaker("inference", a.Config.Resilience.ReadFailureThreshold, a.Config.Resilience.WriteOpenTimeout)
		ai = extraction.NewAIStrategy(extraction.AIOptions{
			BaseURL:      a.Config.AI.BaseURL,
			APIKey:       a.Config.AI.APIKey,
			Model:        a.Config.AI.Model,
			Timeout:      a.Config.AI.RequestTimeout,
			MaxHTMLChars: a.Config.AI.MaxHTMLChars,
		}, breaker, a.Logger)
	}

	return extraction.NewChain(structured, fetcher, locator, ai, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Enabled && a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) newBreaker(name string, failureThreshold int, openTimeout time.Duration) *resilience.Breaker {
	logger := a.Logger
	return resilience.NewBreaker(name, resilience.BreakerOptions{
		FailureThreshold: failureThreshold,
		OpenTimeout:      openTimeout,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})
}

func (a *App) newMonitor(store *storage.Store) *monitor.Monitor {
	// Reads recover quickly behind a short open-timeout; fragile write paths
	// open sooner with a lower failure threshold.
	readBreaker := a.newBreaker("store-read", a.Config.Resilience.ReadFailureThreshold, a.Config.Resilience.ReadOpenTimeout)
	writeBreaker := a.newBreaker("store-write", a.Config.Resilience.WriteFailureThreshold, a.Config.Resilience.WriteOpenTimeout)

	retryOpts := resilience.RetryOptions{
		Attempts:     a.Config.Resilience.RetryAttempts,
		InitialDelay: a.Config.Resilience.RetryInitialDelay,
	}

	return monitor.New(
		store, store, store,
		a.newExtractor(),
		a.newNotifier(),
		readBreaker, writeBreaker,
		retryOpts,
		monitor.Options{
			CheckDelay:       a.Config.Monitor.CheckDelay,
			FailureThreshold: a.Config.Monitor.FailureThreshold,
		},
		a.Logger,
	)
}

func (a *App) newService(store *storage.Store) *Service {
	mon := a.newMonitor(store)
	sched := scheduler.New(mon, scheduler.Options{
		CheckSpec:   a.Config.Scheduler.CheckCron,
		SummarySpec: a.Config.Scheduler.SummaryCron,
	}, a.Logger)
	return NewService(mon, sched, a.Logger)
}
