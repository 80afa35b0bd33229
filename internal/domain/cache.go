package domain

import (
	"context"
	"time"
)

// CacheError represents an error originating from the cache.
type CacheError string

func (e CacheError) Error() string {
	return string(e)
}

// ErrCacheMiss is returned when a key is not found in the cache.
const ErrCacheMiss = CacheError("cache: key not found")

// Cache defines the interface (port) for the shared key-value store backing
// the per-client generation counter.
// Implementations of this interface will be the adapters (e.g., RedisCacheAdapter).
type Cache interface {
	// Get retrieves an item from the cache.
	// It returns ErrCacheMiss if the key is not found.
	Get(ctx context.Context, key string) (string, error)

	// Ping checks the health of the cache service.
	Ping(ctx context.Context) error

	// IncrWithExpiry atomically increments the counter at key and, when the
	// key has no expiration yet, sets one in the same transaction. It returns
	// the new value.
	IncrWithExpiry(ctx context.Context, key string, expiration time.Duration) (int64, error)
}
