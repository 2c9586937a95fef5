// Package cache provides a small goroutine-safe map cache with per-entry TTL,
// used to avoid refetching slow-changing tracker metadata (sprints, sprint
// lists) on every report request.
package cache

import (
	"sync"
	"time"
)

// entry stores a cached value and its absolute expiration timestamp.
type entry[V any] struct {
	value     V
	expiresAt time.Time // zero means no expiration
}

// TTL is a lightweight map-backed cache with per-item TTL. Cleanup is lazy;
// call PurgeExpired to reclaim memory eagerly.
type TTL[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]entry[V]
}

// New constructs an empty TTL cache.
func New[K comparable, V any]() *TTL[K, V] {
	return &TTL[K, V]{items: make(map[K]entry[V])}
}

// now is a small indirection to allow test stubbing.
var now = time.Now

// Get returns the value and whether it was present and not expired.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var zero V
	e, ok := c.items[key]
	if !ok {
		return zero, false
	}
	if !e.expiresAt.IsZero() && now().After(e.expiresAt) {
		// expired; treat as miss (cleanup deferred to PurgeExpired)
		return zero, false
	}
	return e.value, true
}

// Set stores the value with an optional TTL. If ttl <= 0, the entry does not expire.
func (c *TTL[K, V]) Set(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = now().Add(ttl)
	}
	c.items[key] = entry[V]{value: value, expiresAt: expiresAt}
}

// Delete removes a key if present.
func (c *TTL[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Len returns the number of non-expired items currently stored.
func (c *TTL[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, e := range c.items {
		if e.expiresAt.IsZero() || !now().After(e.expiresAt) {
			n++
		}
	}
	return n
}

// PurgeExpired scans and removes expired entries.
func (c *TTL[K, V]) PurgeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, e := range c.items {
		if !e.expiresAt.IsZero() && now().After(e.expiresAt) {
			delete(c.items, k)
		}
	}
}
