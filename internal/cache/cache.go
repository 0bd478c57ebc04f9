// Package cache provides a small bounded TTL cache used in front of
// read-heavy listings. Eviction policy: entries expire after the TTL; when
// the size cap is reached the entry closest to expiry is evicted first.
package cache

import (
	"sync"
	"time"
)

type entry[T any] struct {
	value   T
	expires time.Time
}

type Cache[T any] struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	entries    map[string]entry[T]
}

func New[T any](ttl time.Duration, maxEntries int) *Cache[T] {
	return &Cache[T]{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    map[string]entry[T]{},
	}
}

func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expires) {
		delete(c.entries, key)
		var zero T
		return zero, false
	}
	return e.value, true
}

func (c *Cache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for k, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, k)
		}
	}

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		var oldestKey string
		var oldest time.Time
		first := true
		for k, e := range c.entries {
			if first || e.expires.Before(oldest) {
				oldestKey, oldest = k, e.expires
				first = false
			}
		}
		delete(c.entries, oldestKey)
	}

	c.entries[key] = entry[T]{value: value, expires: now.Add(c.ttl)}
}

func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}
