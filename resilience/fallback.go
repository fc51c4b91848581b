package resilience

import (
	"context"
	"sync"
)

// FallbackRegistry holds ordered fallback chains keyed by dependency
// name. Chains are registered once at startup and read-mostly afterward.
type FallbackRegistry struct {
	mu     sync.RWMutex
	chains map[string][]Fallback
}

// NewFallbackRegistry creates an empty registry.
func NewFallbackRegistry() *FallbackRegistry {
	return &FallbackRegistry{chains: make(map[string][]Fallback)}
}

// Register appends fallbacks to the chain for a dependency. Order of
// registration is the order of execution.
func (r *FallbackRegistry) Register(dependency string, fbs ...Fallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chains[dependency] = append(r.chains[dependency], fbs...)
}

// Chain returns a copy of the registered chain for a dependency.
func (r *FallbackRegistry) Chain(dependency string) []Fallback {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chain := r.chains[dependency]
	out := make([]Fallback, len(chain))
	copy(out, chain)
	return out
}

// Len returns the number of fallbacks registered for a dependency.
func (r *FallbackRegistry) Len(dependency string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.chains[dependency])
}

// Run executes the primary operation and, on failure, walks the
// registered chain for the dependency. The first fallback that succeeds
// short-circuits the chain. If every fallback fails, the original
// primary error is surfaced with the fallback errors attached as
// diagnostic context. The bool reports whether a fallback produced the
// result.
func (r *FallbackRegistry) Run(ctx context.Context, dependency string, primary Operation) (any, bool, error) {
	v, err := primary(ctx)
	if err == nil {
		return v, false, nil
	}
	return r.Recover(ctx, dependency, err)
}

// Recover walks the chain for a dependency after the primary path has
// already failed with cause. Each fallback receives the cause.
func (r *FallbackRegistry) Recover(ctx context.Context, dependency string, cause error) (any, bool, error) {
	return runChain(ctx, r.Chain(dependency), cause)
}

// runChain tries each fallback in order, collecting failures. All-fail
// surfaces the original cause, never the last fallback's error.
func runChain(ctx context.Context, chain []Fallback, cause error) (any, bool, error) {
	var suppressed []error

	for _, fb := range chain {
		v, err := fb(ctx, cause)
		if err == nil {
			return v, true, nil
		}
		suppressed = append(suppressed, err)
	}

	if len(suppressed) > 0 {
		return nil, false, attachSuppressed(cause, suppressed)
	}
	return nil, false, cause
}

// attachSuppressed records fallback failures on the surfaced error
// without replacing it. Untagged causes are wrapped so the diagnostics
// have somewhere to live.
func attachSuppressed(cause error, suppressed []error) error {
	if e, ok := cause.(*Error); ok {
		e.Suppressed = append(e.Suppressed, suppressed...)
		return e
	}
	return &Error{
		Kind:       Classify(cause),
		Message:    "all fallbacks failed",
		Suppressed: suppressed,
		Err:        cause,
	}
}
