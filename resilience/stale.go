package resilience

import (
	"context"
	"sync"
	"time"
)

// StaleCache keeps the last successful result per dependency so that a
// fallback can serve slightly stale data while the dependency is down.
type StaleCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]staleEntry
}

type staleEntry struct {
	value    any
	storedAt time.Time
}

// NewStaleCache creates a cache whose entries are servable for ttl after
// they were stored. A non-positive ttl keeps entries forever.
func NewStaleCache(ttl time.Duration) *StaleCache {
	return &StaleCache{
		ttl:     ttl,
		entries: make(map[string]staleEntry),
	}
}

// Store records the latest successful result for a dependency.
func (c *StaleCache) Store(dependency string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[dependency] = staleEntry{value: value, storedAt: time.Now()}
}

// Load returns the cached result if one exists and is still fresh.
func (c *StaleCache) Load(dependency string) (any, bool) {
	c.mu.RLock()
	entry, ok := c.entries[dependency]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if c.ttl > 0 && time.Since(entry.storedAt) > c.ttl {
		c.mu.Lock()
		delete(c.entries, dependency)
		c.mu.Unlock()
		return nil, false
	}
	return entry.value, true
}

// Fallback returns a Fallback that serves the last known good result for
// the dependency, or fails if nothing fresh is cached.
func (c *StaleCache) Fallback(dependency string) Fallback {
	return func(ctx context.Context, cause error) (any, error) {
		if v, ok := c.Load(dependency); ok {
			return v, nil
		}
		return nil, NewError(KindInternal, "no cached result for %s", dependency)
	}
}
