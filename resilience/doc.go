// Package resilience wraps calls to unreliable external dependencies
// (AI inference endpoints, blockchain networks, collaboration APIs, the
// database) with deadline enforcement, retry with backoff, circuit
// breaking and ordered fallback chains.
//
// # Building blocks
//
//   - Deadline: races an operation against a timer. The loser is not
//     forcibly terminated; it gets a context deadline as a cooperative
//     signal and its late result is discarded.
//
//   - Retry: repeats classified-retryable failures with exponential
//     backoff and jitter. Non-retryable failures abort immediately.
//
//   - CircuitBreaker: per-dependency CLOSED/OPEN/HALF_OPEN state machine
//     that short-circuits calls to a dependency already known to fail.
//
//   - FallbackRegistry: ordered alternative strategies per dependency,
//     tried in registration order once the primary path is exhausted.
//
//   - StaleCache: last-known-good results, servable as a fallback.
//
// # Composition
//
// Service stacks the pieces for one dependency:
//
//	svc := resilience.NewService(resilience.ServiceConfig{
//	    Name:             "ai-inference",
//	    Timeout:          10 * time.Second,
//	    MaxRetries:       2,
//	    FailureThreshold: 5,
//	    ResetTimeout:     30 * time.Second,
//	    EnableRetries:    true,
//	    EnableFallbacks:  true,
//	})
//
//	res, err := svc.Execute(ctx, func(ctx context.Context) (any, error) {
//	    return client.Generate(ctx, prompt)
//	})
//
// The breaker wraps the retry/deadline stack, so it counts exhausted
// failures: a flaky call that recovers within its retry budget never
// counts against the circuit.
package resilience
