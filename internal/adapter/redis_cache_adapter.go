package adapter

import (
	"context"
	"errors"
	"flashgen/internal/domain"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCacheAdapter implements the domain.Cache interface using a Redis client.
type RedisCacheAdapter struct {
	client *redis.Client
}

// NewRedisCacheAdapter creates a new instance of RedisCacheAdapter.
// It expects a connected *redis.Client.
func NewRedisCacheAdapter(client *redis.Client) domain.Cache {
	return &RedisCacheAdapter{client: client}
}

// Get retrieves an item from the Redis cache.
// It translates redis.Nil to domain.ErrCacheMiss.
func (r *RedisCacheAdapter) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrCacheMiss
		}
		return "", err
	}
	return val, nil
}

// Ping checks the health of the Redis server.
func (r *RedisCacheAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// IncrWithExpiry implements Cache.IncrWithExpiry.
// INCR and EXPIRE NX run in one MULTI/EXEC transaction: the window is fixed
// by the first increment, and a key that somehow lost its TTL gets one back
// on the next increment instead of counting forever. EXPIRE NX needs
// Redis 7.0 or later.
func (r *RedisCacheAdapter) IncrWithExpiry(ctx context.Context, key string, expiration time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, expiration)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
