package ratelimit

import (
	"strconv"
	"time"

	"flashgen/internal/cache"
	"flashgen/internal/domain"
	"flashgen/internal/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"
)

const (
	storeMaxRetry        = 3
	storeCleanUpInterval = time.Minute
)

var throttlePrefix = cache.GlobalKeyPrefix + ":ratelimit:http"

// NewStore returns a Redis-backed limiter store, or an in-process store when
// client is nil.
func NewStore(client *redis.Client) (limiter.Store, error) {
	if client == nil {
		return memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          throttlePrefix,
			CleanUpInterval: storeCleanUpInterval,
		}), nil
	}
	return sredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix:   throttlePrefix,
		MaxRetry: storeMaxRetry,
	})
}

// Throttle limits raw requests per client IP. It sets the usual
// X-RateLimit-* headers and rejects requests over the limit with a
// RATE_LIMITED error. Store errors let the request through.
func Throttle(store limiter.Store, limit int64, period time.Duration) fiber.Handler {
	lim := limiter.New(store, limiter.Rate{Period: period, Limit: limit})

	return func(c *fiber.Ctx) error {
		state, err := lim.Get(c.UserContext(), c.IP())
		if err != nil {
			logger.Get().Warn("Rate limiter store unavailable, skipping throttle",
				zap.String("ip", c.IP()), zap.Error(err))
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.FormatInt(state.Limit, 10))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(state.Remaining, 10))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(state.Reset, 10))

		if state.Reached {
			logger.Get().Info("Request throttled", zap.String("ip", c.IP()), zap.String("path", c.Path()))
			return domain.NewRateLimitedError("Too many requests, please slow down")
		}
		return c.Next()
	}
}
