package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func failingOp(err error) Operation {
	return func(ctx context.Context) (any, error) { return nil, err }
}

func succeedingOp(v any) Operation {
	return func(ctx context.Context) (any, error) { return v, nil }
}

func tripBreaker(t *testing.T, cb *CircuitBreaker, failures int) {
	t.Helper()
	for i := 0; i < failures; i++ {
		_, _, _ = cb.Execute(context.Background(), failingOp(errors.New("boom")), nil)
	}
}

func TestCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker(CircuitConfig{})

	if cb.config.FailureThreshold != 5 {
		t.Errorf("FailureThreshold = %d, want 5", cb.config.FailureThreshold)
	}
	if cb.config.ResetTimeout != 30*time.Second {
		t.Errorf("ResetTimeout = %v, want 30s", cb.config.ResetTimeout)
	}
	if cb.config.TrialSuccesses != 3 {
		t.Errorf("TrialSuccesses = %d, want 3", cb.config.TrialSuccesses)
	}
	if cb.State() != StateClosed {
		t.Errorf("State = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitConfig{Dependency: "ai-inference", FailureThreshold: 3})

	tripBreaker(t, cb, 2)
	if cb.State() != StateClosed {
		t.Fatalf("State = %v after 2 failures, want closed", cb.State())
	}

	tripBreaker(t, cb, 1)
	if cb.State() != StateOpen {
		t.Fatalf("State = %v after 3 failures, want open", cb.State())
	}

	// The next call must be rejected without invoking the operation.
	invoked := false
	_, _, err := cb.Execute(context.Background(), func(ctx context.Context) (any, error) {
		invoked = true
		return nil, nil
	}, nil)

	if invoked {
		t.Error("operation invoked while circuit open")
	}
	if !IsKind(err, KindCircuitOpen) {
		t.Errorf("error kind = %v, want circuit-open", Classify(err))
	}
	var rerr *Error
	if errors.As(err, &rerr) && rerr.Dependency != "ai-inference" {
		t.Errorf("Dependency = %q, want ai-inference", rerr.Dependency)
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(CircuitConfig{FailureThreshold: 3})

	tripBreaker(t, cb, 2)
	_, _, _ = cb.Execute(context.Background(), succeedingOp("ok"), nil)
	tripBreaker(t, cb, 2)

	if cb.State() != StateClosed {
		t.Errorf("State = %v, want closed; success should reset the streak", cb.State())
	}
}

func TestCircuitBreaker_TrippingCallGetsOperationError(t *testing.T) {
	cb := NewCircuitBreaker(CircuitConfig{FailureThreshold: 1})
	opErr := errors.New("first failure")
	fellBack := false

	_, usedFB, err := cb.Execute(context.Background(), failingOp(opErr),
		func(ctx context.Context, cause error) (any, error) {
			fellBack = true
			return "stale", nil
		})

	if !errors.Is(err, opErr) {
		t.Errorf("error = %v, want the operation error", err)
	}
	if usedFB || fellBack {
		t.Error("fallback must not run on the call that trips the circuit")
	}
}

func TestCircuitBreaker_FallbackWhenOpen(t *testing.T) {
	cb := NewCircuitBreaker(CircuitConfig{FailureThreshold: 1})
	tripBreaker(t, cb, 1)

	v, usedFB, err := cb.Execute(context.Background(), succeedingOp("live"),
		func(ctx context.Context, cause error) (any, error) {
			if !IsKind(cause, KindCircuitOpen) {
				t.Errorf("cause kind = %v, want circuit-open", Classify(cause))
			}
			return "stale", nil
		})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !usedFB {
		t.Error("fallbackUsed = false, want true")
	}
	if v != "stale" {
		t.Errorf("value = %v, want stale", v)
	}
}

func TestCircuitBreaker_FallbackFailureSuppressed(t *testing.T) {
	cb := NewCircuitBreaker(CircuitConfig{FailureThreshold: 1})
	tripBreaker(t, cb, 1)

	fbErr := errors.New("cache miss")
	_, _, err := cb.Execute(context.Background(), succeedingOp("live"),
		func(ctx context.Context, cause error) (any, error) { return nil, fbErr })

	if !IsKind(err, KindCircuitOpen) {
		t.Fatalf("error kind = %v, want circuit-open", Classify(err))
	}
	var rerr *Error
	if !errors.As(err, &rerr) {
		t.Fatal("error is not *Error")
	}
	if len(rerr.Suppressed) != 1 || !errors.Is(rerr.Suppressed[0], fbErr) {
		t.Errorf("Suppressed = %v, want the fallback error", rerr.Suppressed)
	}
}

func TestCircuitBreaker_HalfOpenAfterResetTimeout(t *testing.T) {
	cb := NewCircuitBreaker(CircuitConfig{FailureThreshold: 1, ResetTimeout: 20 * time.Millisecond})
	tripBreaker(t, cb, 1)

	if cb.State() != StateOpen {
		t.Fatalf("State = %v, want open", cb.State())
	}

	time.Sleep(30 * time.Millisecond)
	if cb.State() != StateHalfOpen {
		t.Fatalf("State = %v after reset timeout, want half-open", cb.State())
	}
}

func TestCircuitBreaker_ClosesAfterTrialSuccesses(t *testing.T) {
	cb := NewCircuitBreaker(CircuitConfig{
		FailureThreshold: 1,
		ResetTimeout:     10 * time.Millisecond,
		TrialSuccesses:   3,
	})
	tripBreaker(t, cb, 1)
	time.Sleep(20 * time.Millisecond)

	for i := 0; i < 2; i++ {
		_, _, _ = cb.Execute(context.Background(), succeedingOp("ok"), nil)
		if cb.State() != StateHalfOpen {
			t.Fatalf("State = %v after %d trial successes, want half-open", cb.State(), i+1)
		}
	}

	_, _, _ = cb.Execute(context.Background(), succeedingOp("ok"), nil)
	if cb.State() != StateClosed {
		t.Fatalf("State = %v after 3 trial successes, want closed", cb.State())
	}

	snap := cb.Snapshot()
	if snap.Failures != 0 || snap.TrialSuccesses != 0 {
		t.Errorf("Snapshot counters = %d/%d, want 0/0", snap.Failures, snap.TrialSuccesses)
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(CircuitConfig{
		FailureThreshold: 1,
		ResetTimeout:     10 * time.Millisecond,
		TrialSuccesses:   3,
	})
	tripBreaker(t, cb, 1)
	time.Sleep(20 * time.Millisecond)

	// Two trial successes, then a failure: back to open, progress gone.
	_, _, _ = cb.Execute(context.Background(), succeedingOp("ok"), nil)
	_, _, _ = cb.Execute(context.Background(), succeedingOp("ok"), nil)
	tripBreaker(t, cb, 1)

	if cb.State() != StateOpen {
		t.Fatalf("State = %v, want open", cb.State())
	}
	if cb.Snapshot().TrialSuccesses != 0 {
		t.Errorf("TrialSuccesses = %d, want 0", cb.Snapshot().TrialSuccesses)
	}

	// The reset window restarts from the trial failure.
	time.Sleep(20 * time.Millisecond)
	if cb.State() != StateHalfOpen {
		t.Errorf("State = %v, want half-open again", cb.State())
	}
}

func TestCircuitBreaker_ForceReset(t *testing.T) {
	cb := NewCircuitBreaker(CircuitConfig{FailureThreshold: 1})
	tripBreaker(t, cb, 1)

	cb.ForceReset()

	if cb.State() != StateClosed {
		t.Errorf("State = %v, want closed", cb.State())
	}
	snap := cb.Snapshot()
	if snap.Failures != 0 || !snap.LastFailure.IsZero() {
		t.Errorf("Snapshot = %+v, want zeroed counters", snap)
	}
}

func TestCircuitBreaker_DisabledPassesThrough(t *testing.T) {
	cb := NewCircuitBreaker(CircuitConfig{FailureThreshold: 1})
	tripBreaker(t, cb, 1)
	cb.Disable()

	invoked := false
	v, _, err := cb.Execute(context.Background(), func(ctx context.Context) (any, error) {
		invoked = true
		return "live", nil
	}, nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !invoked {
		t.Error("operation not invoked with breaker disabled")
	}
	if v != "live" {
		t.Errorf("value = %v, want live", v)
	}

	// Outcomes are not counted while disabled.
	tripBreaker(t, cb, 10)
	cb.Enable()
	cb.ForceReset()
	if cb.State() != StateClosed {
		t.Errorf("State = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	type transition struct{ from, to State }
	var transitions []transition

	cb := NewCircuitBreaker(CircuitConfig{
		FailureThreshold: 1,
		ResetTimeout:     10 * time.Millisecond,
		TrialSuccesses:   1,
		OnStateChange: func(from, to State) {
			transitions = append(transitions, transition{from, to})
		},
	})

	tripBreaker(t, cb, 1)
	time.Sleep(20 * time.Millisecond)
	cb.State() // forces the lazy open -> half-open transition
	_, _, _ = cb.Execute(context.Background(), succeedingOp("ok"), nil)

	want := []transition{
		{StateClosed, StateOpen},
		{StateOpen, StateHalfOpen},
		{StateHalfOpen, StateClosed},
	}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition[%d] = %v, want %v", i, transitions[i], want[i])
		}
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(7), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %v, want %v", tt.state, got, tt.want)
		}
	}
}
