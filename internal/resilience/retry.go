package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrAttemptsExhausted wraps the last error once every retry attempt failed.
var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

// RetryOptions bound a retried operation.
type RetryOptions struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// InitialDelay is the pause before the second attempt; it doubles each retry.
	InitialDelay time.Duration
	// MaxDelay caps the backoff growth.
	MaxDelay time.Duration
}

// Retry runs fn up to opts.Attempts times with an increasing backoff between
// attempts. The label is diagnostics only. Retry knows nothing about circuit
// state; wrap the call in a Breaker when endpoint-level protection is wanted.
func Retry(ctx context.Context, label string, opts RetryOptions, fn func(ctx context.Context) error) error {
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = 200 * time.Millisecond
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 10 * time.Second
	}

	var lastErr error
	delay := opts.InitialDelay

	for attempt := 1; attempt <= opts.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt == opts.Attempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: %w", label, ctx.Err())
		case <-timer.C:
		}

		delay *= 2
		if delay > opts.MaxDelay {
			delay = opts.MaxDelay
		}
	}

	return fmt.Errorf("%s: %w after %d attempts: %w", label, ErrAttemptsExhausted, opts.Attempts, lastErr)
}
