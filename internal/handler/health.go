package handler

import (
	"context"
	"time"

	"flashgen/internal/domain"
	"flashgen/internal/dto"
	"flashgen/internal/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const healthPingTimeout = 2 * time.Second

// HealthHandler reports process and Redis health
type HealthHandler struct {
	cache domain.Cache
}

// NewHealthHandler creates a health handler. cache may be nil when Redis is
// not configured.
func NewHealthHandler(cache domain.Cache) *HealthHandler {
	return &HealthHandler{cache: cache}
}

// Health godoc
// @Summary Health check
// @Description Reports "ok", or "degraded" when Redis is configured but unreachable. Generation keeps working without Redis.
// @Tags health
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	if h.cache == nil {
		return c.JSON(dto.HealthResponse{Status: "ok", Redis: "disabled"})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), healthPingTimeout)
	defer cancel()

	if err := h.cache.Ping(ctx); err != nil {
		logger.Get().Warn("Redis health check failed", zap.Error(err))
		return c.JSON(dto.HealthResponse{Status: "degraded", Redis: "unavailable"})
	}
	return c.JSON(dto.HealthResponse{Status: "ok", Redis: "ok"})
}
