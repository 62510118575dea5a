// Package cache provides the process-local read cache for hot aggregates
// such as child counts. Values are never authoritative: everything in the
// cache is reconstructible from the store, and a missed invalidation self
// heals at the next TTL expiry.
package cache

import (
	"strings"
	"sync"
	"time"
)

// evictFraction is the share of entries dropped when the size bound is
// crossed, oldest first.
const evictFraction = 0.2

type entry struct {
	value      any
	insertedAt time.Time
	expiresAt  time.Time
}

// Cache is a bounded TTL cache safe for concurrent use. The clock is
// injected so tests can control expiry deterministically.
type Cache struct {
	mu      sync.Mutex
	max     int
	now     func() time.Time
	entries map[string]entry
}

// New creates a cache holding at most maxEntries values. A nil now
// function uses wall-clock time.
func New(maxEntries int, now func() time.Time) *Cache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{
		max:     maxEntries,
		now:     now,
		entries: make(map[string]entry),
	}
}

// Get returns the cached value for key and whether it was present and
// fresh. Expired entries are removed on access.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key for ttl. Crossing the size bound evicts the
// oldest entries by insertion time.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[key] = entry{
		value:      value,
		insertedAt: now,
		expiresAt:  now.Add(ttl),
	}

	if len(c.entries) > c.max {
		c.evictOldestLocked()
	}
}

// Invalidate removes every entry whose key starts with prefix and returns
// the number removed. An exact key is its own prefix.
func (c *Cache) Invalidate(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries currently held, including any that
// have expired but not yet been touched.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictOldestLocked drops expired entries first, then the oldest live
// entries until roughly 20% of the bound has been reclaimed.
// The caller must hold c.mu.
func (c *Cache) evictOldestLocked() {
	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}

	target := c.max - int(float64(c.max)*evictFraction)
	if target < 1 {
		target = 1
	}
	for len(c.entries) > target {
		oldestKey := ""
		var oldest time.Time
		for k, e := range c.entries {
			if oldestKey == "" || e.insertedAt.Before(oldest) {
				oldestKey = k
				oldest = e.insertedAt
			}
		}
		delete(c.entries, oldestKey)
	}
}
