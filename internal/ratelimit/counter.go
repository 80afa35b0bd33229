// Package ratelimit holds the per-client generation budget and the HTTP
// request throttle.
package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"time"

	"flashgen/internal/cache"
	"flashgen/internal/domain"
	"flashgen/internal/logger"

	"go.uber.org/zap"
)

// GenerationCounter counts successful generations per client in a fixed
// window. Store failures never fail a request: they are logged and the
// request is let through. A counter without a cache does nothing.
type GenerationCounter struct {
	cache  domain.Cache
	max    int64
	window time.Duration
}

func NewGenerationCounter(c domain.Cache, limit int64, window time.Duration) *GenerationCounter {
	return &GenerationCounter{cache: c, max: limit, window: window}
}

// Key returns the counter key for clientKey.
func Key(clientKey string) string {
	return cache.GenerateCacheKey("ratelimit", "generation", clientKey)
}

func (g *GenerationCounter) enabled(clientKey string) bool {
	return g != nil && g.cache != nil && clientKey != "" && g.max > 0
}

// Allow returns a RateLimited error once clientKey has used up its budget
// for the current window.
func (g *GenerationCounter) Allow(ctx context.Context, clientKey string) error {
	if !g.enabled(clientKey) {
		return nil
	}
	raw, err := g.cache.Get(ctx, Key(clientKey))
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			logger.Get().Warn("Generation counter lookup failed, allowing request",
				zap.String("client", clientKey), zap.Error(err))
		}
		return nil
	}
	used, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		logger.Get().Warn("Generation counter holds a non-numeric value, allowing request",
			zap.String("client", clientKey), zap.String("value", raw))
		return nil
	}
	if used >= g.max {
		return domain.NewRateLimitedError("Too many generation requests, please try again later").
			WithContext("limit", g.max).
			WithContext("window_seconds", int64(g.window/time.Second))
	}
	return nil
}

// Record counts one successful generation for clientKey. The first
// increment in a window starts the window.
func (g *GenerationCounter) Record(ctx context.Context, clientKey string) {
	if !g.enabled(clientKey) {
		return
	}
	used, err := g.cache.IncrWithExpiry(ctx, Key(clientKey), g.window)
	if err != nil {
		logger.Get().Warn("Failed to record generation",
			zap.String("client", clientKey), zap.Int64("count", used), zap.Error(err))
		return
	}
	logger.Get().Debug("Generation recorded", zap.String("client", clientKey), zap.Int64("count", used))
}
