// Package cache provides a small in-process key/value cache with per-entry TTL.
//
// Entries are checked lazily on Get and evicted on first access after expiry.
// Run sweeps the whole map on an interval so keys that are written once and
// never read again do not accumulate.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultTTL           = 5 * time.Minute
	DefaultSweepInterval = time.Minute
)

type entry[V any] struct {
	value    V
	storedAt time.Time
	ttl      time.Duration
}

func (e *entry[V]) expired(now time.Time) bool {
	return now.Sub(e.storedAt) > e.ttl
}

// Cache is safe for concurrent use. Values are stored as given; callers that
// cache mutable values are responsible for copying them.
type Cache[V any] struct {
	mu         sync.Mutex
	entries    map[string]*entry[V]
	defaultTTL time.Duration
	now        func() time.Time
}

type Option[V any] func(*Cache[V])

// WithClock replaces time.Now, used by tests.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *Cache[V]) {
		c.now = now
	}
}

func WithDefaultTTL[V any](ttl time.Duration) Option[V] {
	return func(c *Cache[V]) {
		c.defaultTTL = ttl
	}
}

func New[V any](opts ...Option[V]) *Cache[V] {
	c := &Cache[V]{
		entries:    make(map[string]*entry[V]),
		defaultTTL: DefaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Set stores value under key, replacing any previous entry. A non-positive ttl
// falls back to the default TTL.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &entry[V]{
		value:    value,
		storedAt: c.now(),
		ttl:      ttl,
	}
}

func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}

	if e.expired(c.now()) {
		delete(c.entries, key)
		return zero, false
	}

	return e.value, true
}

func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry[V])
}

// Len counts stored entries, including expired ones not yet swept.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Cleanup evicts every expired entry and reports how many were removed.
func (c *Cache[V]) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Run sweeps expired entries every interval until ctx is done.
func (c *Cache[V]) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := c.Cleanup(); removed > 0 {
				slog.Debug("已清理过期缓存", "removed", removed)
			}
		}
	}
}
