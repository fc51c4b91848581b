package resilience

import (
	"context"
	"errors"
	"time"
)

// Operation is a unit of work against an external dependency.
type Operation func(ctx context.Context) (any, error)

// Fallback is an alternative strategy invoked with the error that made
// the primary path fail.
type Fallback func(ctx context.Context, cause error) (any, error)

// DeadlineConfig configures the deadline enforcer.
type DeadlineConfig struct {
	// Timeout is the maximum duration for the operation.
	// Default: 30 seconds
	Timeout time.Duration
}

// Deadline races operations against a timer. The losing operation is not
// forcibly terminated: it receives a context carrying the deadline as a
// cooperative signal, keeps running if it ignores it, and its eventual
// result is discarded.
type Deadline struct {
	config DeadlineConfig
}

// NewDeadline creates a new deadline enforcer.
func NewDeadline(config DeadlineConfig) *Deadline {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &Deadline{config: config}
}

// Execute runs the operation against the configured timer. If the timer
// wins, the call fails with a timeout-kind error carrying the duration.
func (d *Deadline) Execute(ctx context.Context, op Operation) (any, error) {
	return ExecuteWithDeadline(ctx, d.config.Timeout, op)
}

// ExecuteOrFallback substitutes the fallback's result specifically on
// timeout. Other failures propagate unchanged.
func (d *Deadline) ExecuteOrFallback(ctx context.Context, op Operation, fb Fallback) (any, error) {
	v, err := d.Execute(ctx, op)
	if err != nil && IsKind(err, KindTimeout) && fb != nil {
		return fb(ctx, err)
	}
	return v, err
}

// Config returns the deadline configuration.
func (d *Deadline) Config() DeadlineConfig {
	return d.config
}

type outcome struct {
	value any
	err   error
}

// ExecuteWithDeadline runs a single operation with an explicit timeout.
func ExecuteWithDeadline(ctx context.Context, timeout time.Duration, op Operation) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome, 1)

	go func() {
		defer func() {
			// A panicking operation must not take the process down; it
			// surfaces as an internal error at the call boundary.
			if r := recover(); r != nil {
				done <- outcome{err: NewError(KindInternal, "operation panicked: %v", r)}
			}
		}()
		v, err := op(ctx)
		done <- outcome{value: v, err: err}
	}()

	select {
	case o := <-done:
		return o.value, o.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, NewTimeoutError(timeout)
		}
		return nil, ctx.Err()
	}
}
