// Package resilience provides the circuit breaker and bounded retry primitives
// that guard persistence and network calls elsewhere in the pipeline. The two
// primitives compose at call sites; they are deliberately unaware of each other.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when a protected call is rejected without being attempted.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State models the breaker state machine.
type State int

const (
	// StateClosed allows calls through and counts failures.
	StateClosed State = iota
	// StateOpen rejects calls immediately.
	StateOpen
	// StateHalfOpen lets trial calls through to probe recovery.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerOptions configure a Breaker.
type BreakerOptions struct {
	// FailureThreshold is the number of consecutive failures that trips Closed to Open.
	FailureThreshold int
	// SuccessThreshold is the number of consecutive half-open successes that closes the circuit.
	SuccessThreshold int
	// OpenTimeout is how long the circuit stays open before a trial is allowed.
	OpenTimeout time.Duration
	// OnStateChange is invoked outside the lock on every transition.
	OnStateChange func(name string, from, to State)
}

// Breaker protects one named downstream operation.
type Breaker struct {
	name string
	opts BreakerOptions

	mu          sync.Mutex
	state       State
	failures    int
	successes   int
	lastFailure time.Time
}

// NewBreaker constructs a breaker with sane defaults for unset options.
func NewBreaker(name string, opts BreakerOptions) *Breaker {
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = 5
	}
	if opts.SuccessThreshold <= 0 {
		opts.SuccessThreshold = 2
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = 60 * time.Second
	}
	return &Breaker{name: name, opts: opts, state: StateClosed}
}

// Name identifies the protected operation.
func (b *Breaker) Name() string {
	return b.name
}

// State reports the current state, promoting Open to HalfOpen when the timeout elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeHalfOpen()
	return b.state
}

// Execute runs fn under breaker protection. While open it fails fast with
// ErrCircuitOpen; any error from fn counts as a failure, any nil return as a success.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.beforeCall(); err != nil {
		return fmt.Errorf("%w: %s", err, b.name)
	}

	err := fn(ctx)
	b.afterCall(err)
	return err
}

func (b *Breaker) beforeCall() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.maybeHalfOpen()
	if b.state == StateOpen {
		return ErrCircuitOpen
	}
	return nil
}

func (b *Breaker) afterCall(err error) {
	b.mu.Lock()

	var transition func()
	if err != nil {
		b.failures++
		b.successes = 0
		b.lastFailure = time.Now()
		switch b.state {
		case StateHalfOpen:
			transition = b.transitionTo(StateOpen)
		case StateClosed:
			if b.failures >= b.opts.FailureThreshold {
				transition = b.transitionTo(StateOpen)
			}
		}
	} else {
		b.failures = 0
		if b.state == StateHalfOpen {
			b.successes++
			if b.successes >= b.opts.SuccessThreshold {
				transition = b.transitionTo(StateClosed)
			}
		}
	}

	b.mu.Unlock()
	if transition != nil {
		transition()
	}
}

// maybeHalfOpen must be called with the lock held.
func (b *Breaker) maybeHalfOpen() {
	if b.state == StateOpen && time.Since(b.lastFailure) >= b.opts.OpenTimeout {
		b.successes = 0
		b.state = StateHalfOpen
	}
}

// transitionTo must be called with the lock held; the returned func runs the
// state-change callback after the lock is released.
func (b *Breaker) transitionTo(to State) func() {
	from := b.state
	if from == to {
		return nil
	}
	b.state = to
	b.successes = 0
	if to == StateClosed {
		b.failures = 0
	}
	if b.opts.OnStateChange == nil {
		return nil
	}
	name := b.name
	cb := b.opts.OnStateChange
	return func() { cb(name, from, to) }
}
