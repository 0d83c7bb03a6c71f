// Package cache provides a short-TTL in-memory store used to coalesce
// repeated fetches of the same upstream resource. It is advisory: a miss
// is always satisfiable by refetching, and the cache is never the sole
// source of truth.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned by Get when a key is absent or expired.
var ErrNotFound = errors.New("cache: not found")

const (
	// DefaultTTL is the reference freshness window for odds data.
	DefaultTTL = 60 * time.Second

	// DefaultSweepInterval is how often the background sweep evicts
	// expired entries that are no longer being read.
	DefaultSweepInterval = 120 * time.Second
)

type entry[T any] struct {
	data      T
	expiresAt time.Time
}

// Cache is a time-expiring key/value store. Instances are constructed
// explicitly and own their sweep loop through Start/Stop; there is no
// package-level singleton.
type Cache[T any] struct {
	ttl   time.Duration
	sweep time.Duration

	mu      sync.RWMutex
	entries map[string]entry[T]

	runMu   sync.Mutex
	running bool
	stopCh  chan struct{}

	// now is swappable for expiry tests.
	now func() time.Time
}

// New creates a cache with the given TTL and sweep interval. Zero values
// fall back to the defaults.
func New[T any](ttl, sweepInterval time.Duration) *Cache[T] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	return &Cache[T]{
		ttl:     ttl,
		sweep:   sweepInterval,
		entries: make(map[string]entry[T]),
		now:     time.Now,
	}
}

// Set stores a value under key, overwriting any previous entry.
// Concurrent writers on the same key race last-write-wins, which is
// acceptable because a fresher fetch is always a valid overwrite.
func (c *Cache[T]) Set(key string, value T) {
	c.mu.Lock()
	c.entries[key] = entry[T]{data: value, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// SetMany stores a batch of values in one lock acquisition.
func (c *Cache[T]) SetMany(values map[string]T) {
	exp := c.now().Add(c.ttl)
	c.mu.Lock()
	for k, v := range values {
		c.entries[k] = entry[T]{data: v, expiresAt: exp}
	}
	c.mu.Unlock()
}

// Get returns the value for key. Expired entries are deleted on read and
// reported as ErrNotFound, so stale data is never returned.
func (c *Cache[T]) Get(key string) (T, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	var zero T
	if !ok {
		return zero, ErrNotFound
	}
	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock: a concurrent Set may have
		// refreshed the key since the read above.
		if cur, ok := c.entries[key]; ok && c.now().After(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return zero, ErrNotFound
	}
	return e.data, nil
}

// Cleanup evicts every expired entry and returns how many were removed.
func (c *Cache[T]) Cleanup() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Stats describes the live contents of the cache.
type Stats struct {
	Size int      `json:"size"`
	Keys []string `json:"keys"`
}

// Stats returns a snapshot of the current keys, including entries that
// have expired but not yet been evicted.
func (c *Cache[T]) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	return Stats{Size: len(c.entries), Keys: keys}
}

// Start launches the background sweep loop. It returns an error if the
// loop is already running. The loop exits on Stop or context
// cancellation.
func (c *Cache[T]) Start(ctx context.Context) error {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	if c.running {
		return errors.New("cache: sweep already running")
	}
	c.running = true
	c.stopCh = make(chan struct{})

	go c.sweepLoop(ctx, c.stopCh)
	return nil
}

// Stop halts the background sweep loop. Safe to call when not running.
func (c *Cache[T]) Stop() {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	if c.running {
		close(c.stopCh)
		c.running = false
	}
}

func (c *Cache[T]) sweepLoop(ctx context.Context, stopCh chan struct{}) {
	ticker := time.NewTicker(c.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			c.Cleanup()
		}
	}
}
