// Package server assembles the fiber application: middleware, routes and the
// error handler.
package server

import (
	"flashgen/internal/config"
	"flashgen/internal/domain"
	"flashgen/internal/handler"
	"flashgen/internal/metrics"
	"flashgen/internal/middleware"
	"flashgen/internal/ratelimit"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/ulule/limiter/v3"
)

// Dependencies are the collaborators the HTTP layer needs. Cache may be nil.
type Dependencies struct {
	Generation    domain.GenerationService
	Extractor     handler.TextExtractor
	Cache         domain.Cache
	ThrottleStore limiter.Store
	Metrics       *metrics.Metrics
}

// NewApp builds the fiber application for cfg.
func NewApp(cfg *config.Config, deps Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "flashgen",
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		BodyLimit:    cfg.Server.BodyLimit,
		ErrorHandler: middleware.ErrorHandler(),
		// c.IP() reads ProxyHeader only when the peer is a trusted proxy;
		// it keys the throttle and the generation counter.
		ProxyHeader:             cfg.Server.ProxyHeader,
		EnableTrustedProxyCheck: len(cfg.Server.TrustedProxies) > 0,
		TrustedProxies:          cfg.Server.TrustedProxies,
		EnableIPValidation:      cfg.Server.ProxyHeader != "",
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept," + middleware.RequestIDHeader,
		MaxAge:       300,
	}))

	healthHandler := handler.NewHealthHandler(deps.Cache)
	app.Get("/health", healthHandler.Health)
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	}
	app.Get("/swagger/*", swagger.HandlerDefault)

	api := app.Group("/api")
	if deps.ThrottleStore != nil {
		api.Use(ratelimit.Throttle(deps.ThrottleStore, cfg.RateLimit.HTTPLimit, cfg.RateLimit.HTTPPeriod))
	}

	generationHandler := handler.NewGenerationHandler(deps.Generation)
	vm := middleware.NewValidationMiddleware()
	api.Post("/generate-flashcards", vm.ValidateGenerateRequest(0), generationHandler.GenerateFlashcards)
	api.Post("/generate-quiz", vm.ValidateGenerateRequest(0), generationHandler.GenerateQuiz)
	api.Post("/generate-notes", vm.ValidateGenerateRequest(domain.DefaultNotesSections), generationHandler.GenerateNotes)

	extractHandler := handler.NewExtractHandler(deps.Extractor, cfg.Extract.MaxUploadBytes)
	api.Post("/extract-text", extractHandler.ExtractText)

	return app
}
