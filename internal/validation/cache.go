// Package validation resolves the layout as it would look after publishing a
// set of drafts and checks it against the publication rules.
package validation

import "sync"

type cached[V any] struct {
	value V
	found bool
}

// NullableCache memoizes lookups, including lookups that found nothing. A key
// that was looked up and missed is never fetched again.
type NullableCache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]cached[V]
}

// NewNullableCache returns an empty cache.
func NewNullableCache[K comparable, V any]() *NullableCache[K, V] {
	return &NullableCache[K, V]{entries: make(map[K]cached[V])}
}

// Get returns the cached value for key, calling fetch on the first lookup.
func (c *NullableCache[K, V]) Get(key K, fetch func(K) (V, bool)) (V, bool) {
	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		return e.value, e.found
	}
	v, found := fetch(key)
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e.value, e.found
	}
	c.entries[key] = cached[V]{value: v, found: found}
	return v, found
}

// Preload fetches every key not yet looked up in a single batch. Keys absent
// from the batch result are cached as misses.
func (c *NullableCache[K, V]) Preload(keys []K, fetch func([]K) map[K]V) {
	missing := make([]K, 0, len(keys))
	seen := make(map[K]struct{}, len(keys))
	c.mu.Lock()
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if _, ok := c.entries[k]; !ok {
			missing = append(missing, k)
		}
	}
	c.mu.Unlock()
	if len(missing) == 0 {
		return
	}
	found := fetch(missing)
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range missing {
		if _, ok := c.entries[k]; ok {
			continue
		}
		v, hit := found[k]
		c.entries[k] = cached[V]{value: v, found: hit}
	}
}

// PutMissing caches values for keys not looked up yet.
func (c *NullableCache[K, V]) PutMissing(values map[K]V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range values {
		if _, ok := c.entries[k]; !ok {
			c.entries[k] = cached[V]{value: v, found: true}
		}
	}
}

// Contains reports whether key has been looked up, hit or miss.
func (c *NullableCache[K, V]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// Len returns the number of looked-up keys.
func (c *NullableCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
