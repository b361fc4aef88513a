package fingerprint

import "sync"

// Cache stores computed values by input fingerprint. Entries never expire on
// their own; callers drop them with Invalidate or Purge.
type Cache[V any] interface {
	Get(key Fingerprint) (V, bool)
	Put(key Fingerprint, v V)
	Invalidate(key Fingerprint) bool
	Purge()
	Len() int
}

// MemoryCache is a process-local Cache safe for concurrent use.
type MemoryCache[V any] struct {
	mu      sync.RWMutex
	entries map[Fingerprint]V
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache[V any]() *MemoryCache[V] {
	return &MemoryCache[V]{entries: make(map[Fingerprint]V)}
}

func (c *MemoryCache[V]) Get(key Fingerprint) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *MemoryCache[V]) Put(key Fingerprint, v V) {
	c.mu.Lock()
	c.entries[key] = v
	c.mu.Unlock()
}

// Invalidate removes key and reports whether it was present.
func (c *MemoryCache[V]) Invalidate(key Fingerprint) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok
}

func (c *MemoryCache[V]) Purge() {
	c.mu.Lock()
	c.entries = make(map[Fingerprint]V)
	c.mu.Unlock()
}

func (c *MemoryCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
