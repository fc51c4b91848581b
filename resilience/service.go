package resilience

import (
	"context"
	"sync"
	"time"
)

// ServiceConfig configures a resilient service façade for one dependency.
type ServiceConfig struct {
	// Name is the dependency name.
	Name string

	// Timeout is the per-call deadline.
	// Default: 30 seconds
	Timeout time.Duration

	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int

	// RetryBaseDelay, RetryMaxDelay and RetryMultiplier shape the
	// backoff between attempts; zero values take the retry defaults.
	RetryBaseDelay  time.Duration
	RetryMaxDelay   time.Duration
	RetryMultiplier float64

	// FailureThreshold is the consecutive exhausted failures before the
	// circuit opens.
	FailureThreshold int

	// ResetTimeout is how long the circuit stays open.
	ResetTimeout time.Duration

	// EnableRetries and EnableFallbacks gate those layers globally.
	// Both default to true in DefaultServiceConfig.
	EnableRetries   bool
	EnableFallbacks bool

	// Fallbacks is the shared chain registry; the chain registered under
	// Name is consulted when the composed call still fails.
	Fallbacks *FallbackRegistry

	// Stale, when set, records every successful result so stale-serving
	// fallbacks have data to work with.
	Stale *StaleCache

	// OnStateChange observes circuit transitions.
	OnStateChange func(from, to State)

	// OnRetry observes retry attempts.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultServiceConfig returns a config with retries and fallbacks on.
func DefaultServiceConfig(name string) ServiceConfig {
	return ServiceConfig{
		Name:            name,
		EnableRetries:   true,
		EnableFallbacks: true,
	}
}

// Service composes the deadline enforcer, retry coordinator, circuit
// breaker and fallback chain into a single execute entry point for one
// dependency.
//
// Composition order is CircuitBreaker(Retry(Deadline(op))): the breaker
// counts exhausted failures, never raw per-attempt ones, so a flaky call
// that recovers within its retry budget does not move the breaker.
type Service struct {
	name    string
	breaker *CircuitBreaker
	retry   *Retry

	retriesEnabled   bool
	fallbacksEnabled bool
	fallbacks        *FallbackRegistry
	stale            *StaleCache

	// mu guards the working timeout, which degradation control scales
	// and recovery restores while calls are in flight.
	mu      sync.RWMutex
	timeout time.Duration
}

// Result is the envelope returned for every successful execution.
type Result struct {
	Success      bool      `json:"success"`
	Data         any       `json:"data"`
	Dependency   string    `json:"dependency"`
	Timestamp    time.Time `json:"timestamp"`
	FallbackUsed bool      `json:"fallbackUsed"`
}

// NewService creates a façade for one dependency.
func NewService(config ServiceConfig) *Service {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Fallbacks == nil {
		config.Fallbacks = NewFallbackRegistry()
	}

	breaker := NewCircuitBreaker(CircuitConfig{
		Dependency:       config.Name,
		FailureThreshold: config.FailureThreshold,
		ResetTimeout:     config.ResetTimeout,
		OnStateChange:    config.OnStateChange,
	})

	retry := NewRetryCount(config.MaxRetries, RetryConfig{
		BaseDelay:  config.RetryBaseDelay,
		MaxDelay:   config.RetryMaxDelay,
		Multiplier: config.RetryMultiplier,
		OnRetry:    config.OnRetry,
	})

	return &Service{
		name:             config.Name,
		breaker:          breaker,
		retry:            retry,
		retriesEnabled:   config.EnableRetries,
		fallbacksEnabled: config.EnableFallbacks,
		fallbacks:        config.Fallbacks,
		stale:            config.Stale,
		timeout:          config.Timeout,
	}
}

// ExecOptions carries per-call overrides.
type ExecOptions struct {
	// Timeout overrides the working deadline for this call.
	Timeout time.Duration

	// NoRetries disables retries for this call, for non-idempotent
	// operations.
	NoRetries bool

	// Fallback is an ad hoc fallback for this call, consulted when the
	// circuit is open and before the registered chain.
	Fallback Fallback

	// Language selects the message-catalog locale for user-facing error
	// text. Formatting only; never a control input.
	Language string

	// Context is free-form detail for message formatting.
	Context map[string]any
}

// ExecOption mutates the per-call options.
type ExecOption func(*ExecOptions)

// NewExecOptions folds a list of options into a struct.
func NewExecOptions(opts ...ExecOption) ExecOptions {
	var o ExecOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithTimeout overrides the call deadline.
func WithTimeout(d time.Duration) ExecOption {
	return func(o *ExecOptions) { o.Timeout = d }
}

// WithoutRetries disables retries for a single call.
func WithoutRetries() ExecOption {
	return func(o *ExecOptions) { o.NoRetries = true }
}

// WithFallback supplies an ad hoc fallback for a single call.
func WithFallback(fb Fallback) ExecOption {
	return func(o *ExecOptions) { o.Fallback = fb }
}

// WithLanguage sets the locale for user-facing error text.
func WithLanguage(tag string) ExecOption {
	return func(o *ExecOptions) { o.Language = tag }
}

// WithCallContext attaches free-form detail for message formatting.
func WithCallContext(details map[string]any) ExecOption {
	return func(o *ExecOptions) { o.Context = details }
}

// Execute runs the operation through the composed resilience layers and
// returns the result envelope, or an enriched error once every layer is
// exhausted.
func (s *Service) Execute(ctx context.Context, op Operation, opts ...ExecOption) (Result, error) {
	return s.ExecuteOpts(ctx, op, NewExecOptions(opts...))
}

// ExecuteOpts is Execute with pre-folded options.
func (s *Service) ExecuteOpts(ctx context.Context, op Operation, o ExecOptions) (Result, error) {
	timeout := s.Timeout()
	if o.Timeout > 0 {
		timeout = o.Timeout
	}

	deadlined := func(ctx context.Context) (any, error) {
		return ExecuteWithDeadline(ctx, timeout, op)
	}

	composed := deadlined
	if s.retriesEnabled && !o.NoRetries {
		composed = func(ctx context.Context) (any, error) {
			return s.retry.Execute(ctx, deadlined)
		}
	}

	value, usedFallback, err := s.breaker.Execute(ctx, composed, o.Fallback)

	if err != nil && s.fallbacksEnabled {
		value, usedFallback, err = s.recover(ctx, err, o)
	}

	if err != nil {
		return Result{}, s.enrich(err)
	}

	if s.stale != nil && !usedFallback {
		s.stale.Store(s.name, value)
	}

	return Result{
		Success:      true,
		Data:         value,
		Dependency:   s.name,
		Timestamp:    time.Now(),
		FallbackUsed: usedFallback,
	}, nil
}

// recover walks the ad hoc fallback and the registered chain after the
// composed call failed. An open circuit already consumed the ad hoc
// fallback inside the breaker, so it is not retried here.
func (s *Service) recover(ctx context.Context, cause error, o ExecOptions) (any, bool, error) {
	var chain []Fallback
	if o.Fallback != nil && !IsKind(cause, KindCircuitOpen) {
		chain = append(chain, o.Fallback)
	}
	chain = append(chain, s.fallbacks.Chain(s.name)...)

	return runChain(ctx, chain, cause)
}

// enrich guarantees the outgoing error is tagged and carries the
// dependency name and a circuit snapshot.
func (s *Service) enrich(err error) *Error {
	e, ok := err.(*Error)
	if !ok {
		e = &Error{Kind: Classify(err), Message: "operation failed", Err: err}
	}
	if e.Dependency == "" {
		e.Dependency = s.name
	}
	snapshot := s.breaker.Snapshot()
	e.Circuit = &snapshot
	return e
}

// Name returns the dependency name.
func (s *Service) Name() string {
	return s.name
}

// Breaker exposes the circuit breaker for degradation control.
func (s *Service) Breaker() *CircuitBreaker {
	return s.breaker
}

// Timeout returns the current working deadline.
func (s *Service) Timeout() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timeout
}

// SetTimeout replaces the working deadline. Degradation control scales
// it down; recovery restores the configured baseline.
func (s *Service) SetTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeout = d
}
