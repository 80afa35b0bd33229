// @title Flashgen API
// @version 1.0
// @description Generates flashcards, quizzes and study notes from user supplied text.
// @contact.name API Support
// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html
// @host localhost:8090
// @BasePath /api
// @schemes http https
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "flashgen/cmd/api/docs"
	"flashgen/internal/adapter"
	"flashgen/internal/adapter/llm"
	"flashgen/internal/cache"
	"flashgen/internal/config"
	"flashgen/internal/domain"
	"flashgen/internal/extract"
	"flashgen/internal/logger"
	"flashgen/internal/metrics"
	"flashgen/internal/normalizer"
	"flashgen/internal/ratelimit"
	"flashgen/internal/server"
	"flashgen/internal/service"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Initialize(cfg.Logger); err != nil {
		panic(err)
	}
	appLogger := logger.Get()
	defer logger.Sync()

	ctx := context.Background()
	m := metrics.New()

	completionClient, err := llm.NewFromConfig(ctx, cfg.LLM, m)
	if err != nil {
		appLogger.Fatal("Failed to create LLM client", zap.Error(err))
	}

	// Redis is optional: without it the generation budget is off and the
	// request throttle keeps its counters in memory.
	var (
		redisClient  *redis.Client
		cacheAdapter domain.Cache
	)
	if cfg.Redis.Address != "" {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		cacheAdapter = adapter.NewRedisCacheAdapter(redisClient)
		appLogger.Info("Successfully connected to Redis", zap.String("address", cfg.Redis.Address))
	} else {
		appLogger.Warn("Redis not configured, per-client generation budget disabled")
	}

	throttleStore, err := ratelimit.NewStore(redisClient)
	if err != nil {
		appLogger.Fatal("Failed to create rate limiter store", zap.Error(err))
	}

	counter := ratelimit.NewGenerationCounter(cacheAdapter, cfg.RateLimit.GenerationMax, cfg.RateLimit.GenerationWindow)
	generationService := service.NewGenerationService(completionClient, counter, normalizer.DefaultExpertPolicy(), cfg.LLM, m)

	app := server.NewApp(cfg, server.Dependencies{
		Generation:    generationService,
		Extractor:     extract.New(cfg.Extract.MaxChars, extract.WithMaxXMLBytes(cfg.Extract.MaxXMLBytes)),
		Cache:         cacheAdapter,
		ThrottleStore: throttleStore,
		Metrics:       m,
	})

	// Start server
	go func() {
		appLogger.Info("Starting server", zap.Int("port", cfg.Server.Port), zap.String("env", cfg.Logger.Env))
		if err := app.Listen(":" + strconv.Itoa(cfg.Server.Port)); err != nil {
			appLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		appLogger.Fatal("Server forced to shutdown", zap.Error(err))
	}
	appLogger.Info("Server exited gracefully")
}
