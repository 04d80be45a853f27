// Package memorycache provides an in-memory LRU implementation of the cache
// interface. Entries are bounded by count rather than byte size: the cached
// values here are a handful of schema registries, so counting entries is the
// honest measure.
package memorycache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/asakaida/ifcheck/pkg/cache"
)

// entry represents a cache entry with value and expiry
type entry struct {
	key       string
	value     interface{}
	expiresAt time.Time
}

// Cache implements a count-bounded LRU cache with TTL support.
type Cache struct {
	mu sync.Mutex

	items     map[string]*list.Element
	evictList *list.List // front = most recent, back = least recent

	maxEntries int
	ttl        time.Duration

	metrics cache.Metrics
}

// Config holds configuration for the memory cache.
type Config struct {
	// MaxEntries is the maximum number of cached entries. When exceeded,
	// the least recently used entry is evicted. Zero means 1.
	MaxEntries int

	// DefaultTTL applies to Set calls with a zero TTL.
	DefaultTTL time.Duration
}

// New creates a new memory cache with the given configuration.
func New(config *Config) *Cache {
	maxEntries := config.MaxEntries
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &Cache{
		items:      make(map[string]*list.Element),
		evictList:  list.New(),
		maxEntries: maxEntries,
		ttl:        config.DefaultTTL,
	}
}

// Get retrieves a value from cache.
func (c *Cache) Get(ctx context.Context, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.items[key]
	if !exists {
		c.metrics.Misses++
		return nil, false
	}

	ent := elem.Value.(*entry)
	if !ent.expiresAt.IsZero() && time.Now().After(ent.expiresAt) {
		c.removeElement(elem)
		c.metrics.Misses++
		return nil, false
	}

	c.evictList.MoveToFront(elem)
	c.metrics.Hits++
	return ent.value, true
}

// Set stores a value in cache with the specified TTL.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl == 0 {
		ttl = c.ttl
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	if elem, exists := c.items[key]; exists {
		ent := elem.Value.(*entry)
		ent.value = value
		ent.expiresAt = expiresAt
		c.evictList.MoveToFront(elem)
		return nil
	}

	elem := c.evictList.PushFront(&entry{key: key, value: value, expiresAt: expiresAt})
	c.items[key] = elem
	c.metrics.KeysAdded++

	for c.evictList.Len() > c.maxEntries {
		oldest := c.evictList.Back()
		if oldest == nil {
			break
		}
		c.removeElement(oldest)
		c.metrics.Evictions++
	}
	return nil
}

// Delete removes a value from cache.
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.items[key]; exists {
		c.removeElement(elem)
	}
	return nil
}

// Clear removes all entries from cache.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.evictList.Init()
	return nil
}

// Metrics returns a snapshot of cache statistics.
func (c *Cache) Metrics() *cache.Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.metrics
	return &m
}

// removeElement removes an element; caller must hold the lock.
func (c *Cache) removeElement(elem *list.Element) {
	c.evictList.Remove(elem)
	ent := elem.Value.(*entry)
	delete(c.items, ent.key)
}
