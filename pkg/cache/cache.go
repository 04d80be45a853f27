package cache

import (
	"context"
	"time"
)

// Cache is the interface for caching expensive derived values, such as
// flattened schema registries shared across a batch run.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns the value and true if found, or nil and false if not found.
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores a value in cache. A zero TTL uses the cache's default.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, key string) error

	// Clear removes all entries from cache.
	Clear(ctx context.Context) error

	// Metrics returns cache statistics.
	Metrics() *Metrics
}

// Metrics holds cache performance statistics.
type Metrics struct {
	Hits      uint64
	Misses    uint64
	KeysAdded uint64
	Evictions uint64
}
