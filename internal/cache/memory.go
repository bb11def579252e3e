package cache

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// evictFraction is the share of entries dropped when a bounded cache overflows
const evictFraction = 5

// MemoryCache is an in-memory cache with optional size bound.
// When more than maxEntries keys are held, the oldest fifth (by insertion) is evicted.
type MemoryCache struct {
	cache      *gocache.Cache
	maxEntries int

	mu      sync.Mutex
	order   []string
	tracked map[string]struct{}
}

// NewMemoryCache creates an unbounded memory cache
func NewMemoryCache(defaultTTL time.Duration, cleanupInterval time.Duration) *MemoryCache {
	return NewBoundedMemoryCache(0, defaultTTL, cleanupInterval)
}

// NewBoundedMemoryCache creates a memory cache holding at most maxEntries keys.
// A maxEntries of 0 disables the bound.
func NewBoundedMemoryCache(maxEntries int, defaultTTL time.Duration, cleanupInterval time.Duration) *MemoryCache {
	if defaultTTL <= 0 {
		defaultTTL = gocache.NoExpiration
	}
	return &MemoryCache{
		cache:      gocache.New(defaultTTL, cleanupInterval),
		maxEntries: maxEntries,
		tracked:    make(map[string]struct{}),
	}
}

// Get retrieves a value from the cache
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	if val, found := c.cache.Get(key); found {
		return val.([]byte), true
	}
	return nil, false
}

// Set stores a value; a zero ttl uses the cache default
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	c.cache.Set(key, value, ttl)

	if c.maxEntries <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.tracked[key]; !ok {
		c.tracked[key] = struct{}{}
		c.order = append(c.order, key)
	}
	if len(c.order) > c.maxEntries {
		c.evictOldestLocked()
	}
	return nil
}

func (c *MemoryCache) evictOldestLocked() {
	n := c.maxEntries / evictFraction
	if n < 1 {
		n = 1
	}
	for _, key := range c.order[:n] {
		c.cache.Delete(key)
		delete(c.tracked, key)
	}
	c.order = append([]string(nil), c.order[n:]...)
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(key string) error {
	c.cache.Delete(key)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tracked[key]; ok {
		delete(c.tracked, key)
		for i, k := range c.order {
			if k == key {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
	}
	return nil
}

// Clear removes all values from the cache
func (c *MemoryCache) Clear() error {
	c.cache.Flush()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = nil
	c.tracked = make(map[string]struct{})
	return nil
}

// Len returns the number of unexpired entries
func (c *MemoryCache) Len() int {
	return c.cache.ItemCount()
}
