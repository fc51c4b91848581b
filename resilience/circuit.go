package resilience

import (
	"context"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means the circuit is operating normally.
	StateClosed State = iota
	// StateOpen means the circuit is short-circuiting all requests.
	StateOpen
	// StateHalfOpen means the circuit is trialing the dependency.
	StateHalfOpen
)

// String returns the string representation of the state.
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

// CircuitConfig configures the circuit breaker.
type CircuitConfig struct {
	// Dependency names the guarded dependency; used in errors.
	Dependency string

	// FailureThreshold is the number of consecutive failures before the
	// circuit opens.
	// Default: 5
	FailureThreshold int

	// ResetTimeout is how long the circuit stays open before a half-open
	// trial is allowed.
	// Default: 30 seconds
	ResetTimeout time.Duration

	// TrialSuccesses is the number of consecutive half-open successes
	// required to close the circuit again.
	// Default: 3
	TrialSuccesses int

	// OnStateChange is called when the circuit state changes.
	OnStateChange func(from, to State)
}

// CircuitBreaker is a per-dependency failure-counting state machine that
// short-circuits calls once the dependency is known to be failing.
type CircuitBreaker struct {
	config CircuitConfig

	mu             sync.Mutex
	enabled        bool
	state          State
	failures       int
	trialSuccesses int
	lastFailure    time.Time
}

// CircuitSnapshot is a point-in-time view of a circuit breaker.
type CircuitSnapshot struct {
	Dependency     string    `json:"dependency"`
	State          string    `json:"state"`
	Enabled        bool      `json:"enabled"`
	Failures       int       `json:"failures"`
	TrialSuccesses int       `json:"trialSuccesses"`
	LastFailure    time.Time `json:"lastFailure,omitzero"`
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 30 * time.Second
	}
	if config.TrialSuccesses <= 0 {
		config.TrialSuccesses = 3
	}

	return &CircuitBreaker{
		config:  config,
		enabled: true,
		state:   StateClosed,
	}
}

// Execute runs the operation through the circuit breaker. When the
// circuit is open at call entry the operation is not invoked: the
// fallback runs instead when provided, otherwise a circuit-open error is
// returned. The second return value reports whether the fallback
// produced the result.
func (cb *CircuitBreaker) Execute(ctx context.Context, op Operation, fb Fallback) (any, bool, error) {
	if !cb.admit() {
		openErr := NewCircuitOpenError(cb.config.Dependency)
		if fb != nil {
			v, err := fb(ctx, openErr)
			if err == nil {
				return v, true, nil
			}
			openErr.Suppressed = append(openErr.Suppressed, err)
		}
		return nil, false, openErr
	}

	v, err := op(ctx)
	cb.record(err)
	return v, false, err
}

// admit decides whether a call may proceed. A disabled breaker admits
// everything without counting.
func (cb *CircuitBreaker) admit() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !cb.enabled {
		return true
	}
	return cb.currentStateLocked() != StateOpen
}

// record applies a call outcome to the state machine.
func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !cb.enabled {
		return
	}

	oldState := cb.state

	switch cb.state {
	case StateClosed:
		if err != nil {
			cb.failures++
			cb.lastFailure = time.Now()
			if cb.failures >= cb.config.FailureThreshold {
				cb.state = StateOpen
			}
		} else {
			cb.failures = 0
		}

	case StateHalfOpen:
		if err != nil {
			// Failed trial: reopen and restart the reset window.
			cb.state = StateOpen
			cb.trialSuccesses = 0
			cb.lastFailure = time.Now()
		} else {
			cb.trialSuccesses++
			if cb.trialSuccesses >= cb.config.TrialSuccesses {
				cb.state = StateClosed
				cb.failures = 0
				cb.trialSuccesses = 0
			}
		}
	}

	cb.notifyLocked(oldState)
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentStateLocked()
}

// currentStateLocked applies the open -> half-open transition lazily once
// the reset timeout has elapsed since the last failure.
func (cb *CircuitBreaker) currentStateLocked() State {
	if cb.state == StateOpen && time.Since(cb.lastFailure) > cb.config.ResetTimeout {
		cb.state = StateHalfOpen
		cb.trialSuccesses = 0
		if cb.config.OnStateChange != nil {
			cb.config.OnStateChange(StateOpen, StateHalfOpen)
		}
	}
	return cb.state
}

func (cb *CircuitBreaker) notifyLocked(oldState State) {
	if oldState != cb.state && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(oldState, cb.state)
	}
}

// ForceReset returns the breaker to closed with zeroed counters.
func (cb *CircuitBreaker) ForceReset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	oldState := cb.state
	cb.state = StateClosed
	cb.failures = 0
	cb.trialSuccesses = 0
	cb.lastFailure = time.Time{}

	cb.notifyLocked(oldState)
}

// Disable makes the breaker pass every call through without counting.
func (cb *CircuitBreaker) Disable() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.enabled = false
}

// Enable restores normal breaker behavior.
func (cb *CircuitBreaker) Enable() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.enabled = true
}

// Snapshot returns a point-in-time view of the breaker.
func (cb *CircuitBreaker) Snapshot() CircuitSnapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return CircuitSnapshot{
		Dependency:     cb.config.Dependency,
		State:          cb.currentStateLocked().String(),
		Enabled:        cb.enabled,
		Failures:       cb.failures,
		TrialSuccesses: cb.trialSuccesses,
		LastFailure:    cb.lastFailure,
	}
}
