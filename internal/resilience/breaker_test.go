package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func failing(context.Context) error { return errBoom }
func succeeding(context.Context) error { return nil }

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b := NewBreaker("db", BreakerOptions{FailureThreshold: 3, OpenTimeout: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := b.Execute(ctx, failing); !errors.Is(err, errBoom) {
			t.Fatalf("attempt %d: err = %v, want %v", i+1, err, errBoom)
		}
	}
	if got := b.State(); got != StateOpen {
		t.Fatalf("state = %s, want %s", got, StateOpen)
	}

	err := b.Execute(ctx, succeeding)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want %v", err, ErrCircuitOpen)
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker("db", BreakerOptions{FailureThreshold: 3, OpenTimeout: time.Minute})
	ctx := context.Background()

	_ = b.Execute(ctx, failing)
	_ = b.Execute(ctx, failing)
	if err := b.Execute(ctx, succeeding); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = b.Execute(ctx, failing)
	_ = b.Execute(ctx, failing)

	if got := b.State(); got != StateClosed {
		t.Fatalf("state = %s, want %s", got, StateClosed)
	}
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	b := NewBreaker("db", BreakerOptions{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		OpenTimeout:      10 * time.Millisecond,
	})
	ctx := context.Background()

	_ = b.Execute(ctx, failing)
	if got := b.State(); got != StateOpen {
		t.Fatalf("state = %s, want %s", got, StateOpen)
	}

	time.Sleep(20 * time.Millisecond)
	if got := b.State(); got != StateHalfOpen {
		t.Fatalf("state = %s, want %s", got, StateHalfOpen)
	}

	if err := b.Execute(ctx, succeeding); err != nil {
		t.Fatalf("first trial: %v", err)
	}
	if got := b.State(); got != StateHalfOpen {
		t.Fatalf("after one success state = %s, want %s", got, StateHalfOpen)
	}
	if err := b.Execute(ctx, succeeding); err != nil {
		t.Fatalf("second trial: %v", err)
	}
	if got := b.State(); got != StateClosed {
		t.Fatalf("state = %s, want %s", got, StateClosed)
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := NewBreaker("db", BreakerOptions{
		FailureThreshold: 1,
		OpenTimeout:      10 * time.Millisecond,
	})
	ctx := context.Background()

	_ = b.Execute(ctx, failing)
	time.Sleep(20 * time.Millisecond)

	if err := b.Execute(ctx, failing); !errors.Is(err, errBoom) {
		t.Fatalf("trial err = %v, want %v", err, errBoom)
	}
	if got := b.State(); got != StateOpen {
		t.Fatalf("state = %s, want %s", got, StateOpen)
	}
}

func TestBreakerStateChangeCallback(t *testing.T) {
	type change struct{ from, to State }
	var changes []change

	b := NewBreaker("api", BreakerOptions{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		OpenTimeout:      5 * time.Millisecond,
		OnStateChange: func(name string, from, to State) {
			if name != "api" {
				t.Errorf("callback name = %q, want %q", name, "api")
			}
			changes = append(changes, change{from, to})
		},
	})
	ctx := context.Background()

	_ = b.Execute(ctx, failing)
	time.Sleep(10 * time.Millisecond)
	_ = b.Execute(ctx, succeeding)

	want := []change{
		{StateClosed, StateOpen},
		{StateHalfOpen, StateClosed},
	}
	if len(changes) != len(want) {
		t.Fatalf("changes = %v, want %v", changes, want)
	}
	for i := range want {
		if changes[i] != want[i] {
			t.Errorf("change %d = %v, want %v", i, changes[i], want[i])
		}
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		StateClosed:   "closed",
		StateOpen:     "open",
		StateHalfOpen: "half-open",
		State(42):     "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
