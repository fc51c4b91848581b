package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig configures the retry coordinator.
type RetryConfig struct {
	// MaxRetries is the number of retries after the initial attempt,
	// so MaxRetries+1 attempts happen in total.
	// Default: 3
	MaxRetries int

	// BaseDelay is the delay before the first retry.
	// Default: 100ms
	BaseDelay time.Duration

	// MaxDelay caps the deterministic component of the delay.
	// Default: 30s
	MaxDelay time.Duration

	// Multiplier is the exponential backoff multiplier.
	// Default: 2.0
	Multiplier float64

	// RetryIf determines whether an error should trigger a retry.
	// Default: Retryable (transient network and timeout kinds).
	RetryIf func(err error) bool

	// OnRetry is called before each retry attempt.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retry repeats failing operations with exponential backoff and jitter.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a new retry coordinator.
func NewRetry(config RetryConfig) *Retry {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	} else if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.RetryIf == nil {
		config.RetryIf = Retryable
	}

	return &Retry{config: config}
}

// NewRetryCount creates a retry coordinator with an explicit retry count,
// where zero means a single attempt and no retries.
func NewRetryCount(retries int, config RetryConfig) *Retry {
	r := NewRetry(config)
	if retries >= 0 {
		r.config.MaxRetries = retries
	}
	return r
}

// Execute runs the operation, retrying classified-retryable failures up
// to the configured budget. A non-retryable error aborts on first
// occurrence. On the final attempt the error propagates regardless of
// classification. No delay precedes the first attempt.
func (r *Retry) Execute(ctx context.Context, op Operation) (any, error) {
	for attempt := 0; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}

		if attempt >= r.config.MaxRetries || !r.config.RetryIf(err) {
			return nil, err
		}

		delay := r.delayFor(attempt)

		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt+1, err, delay)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// delayFor computes the delay after attempt i (0-indexed): the
// deterministic component min(maxDelay, baseDelay*multiplier^i), scaled
// by a uniform random factor in [0.5, 1.0] so that synchronized callers
// spread out their retries.
func (r *Retry) delayFor(attempt int) time.Duration {
	base := baseDelay(r.config, attempt)

	// #nosec G404 -- jitter is non-cryptographic timing variance.
	factor := 0.5 + rand.Float64()*0.5
	return time.Duration(float64(base) * factor)
}

func baseDelay(config RetryConfig, attempt int) time.Duration {
	multiplier := math.Pow(config.Multiplier, float64(attempt))
	delay := time.Duration(float64(config.BaseDelay) * multiplier)
	if delay > config.MaxDelay || delay <= 0 {
		delay = config.MaxDelay
	}
	return delay
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}
