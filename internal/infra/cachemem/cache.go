// Package cachemem is an in-process cache for verification results. A
// verification is deterministic for a fixed request and trust snapshot, so
// entries are keyed by the request digest plus the snapshot version and
// expire when the snapshot ages out.
package cachemem

import (
	"context"
	"sync"
	"time"

	"veritas/internal/domain"
)

const maxEntries = 4096

type Cache struct {
	now func() time.Time

	mu      sync.Mutex
	results map[string]entry
}

type entry struct {
	result  domain.VerificationResult
	staleAt time.Time
}

func New() *Cache {
	return NewWithClock(time.Now)
}

// NewWithClock is for tests that need to control expiry.
func NewWithClock(now func() time.Time) *Cache {
	return &Cache{
		now:     now,
		results: make(map[string]entry),
	}
}

func (c *Cache) Get(_ context.Context, key string) (*domain.VerificationResult, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.results[key]
	if !ok {
		return nil, false, nil
	}
	if !e.staleAt.IsZero() && !c.now().Before(e.staleAt) {
		delete(c.results, key)
		return nil, false, nil
	}
	result := e.result
	return &result, true, nil
}

func (c *Cache) Put(_ context.Context, key string, result domain.VerificationResult, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.results[key]; !exists && len(c.results) >= maxEntries {
		c.dropStale()
		if len(c.results) >= maxEntries {
			// Full of live entries; the verification is recomputed on the
			// next upload instead.
			return nil
		}
	}
	e := entry{result: result}
	if ttl > 0 {
		e.staleAt = c.now().Add(ttl)
	}
	c.results[key] = e
	return nil
}

func (c *Cache) dropStale() {
	now := c.now()
	for key, e := range c.results {
		if !e.staleAt.IsZero() && !now.Before(e.staleAt) {
			delete(c.results, key)
		}
	}
}
