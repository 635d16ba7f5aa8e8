package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"gmaps-scraper/internal/api/handlers"
	"gmaps-scraper/internal/api/middleware"
	"gmaps-scraper/internal/callback"
	"gmaps-scraper/internal/config"
	"gmaps-scraper/internal/scraper"
	"gmaps-scraper/internal/session"
)

// Dependencies are the services the HTTP handlers call into
type Dependencies struct {
	Store       session.Store
	Fetcher     scraper.Fetcher
	Deliverer   callback.Deliverer
	Verifier    handlers.TokenVerifier
	Uploader    handlers.UploaderFactory
	Storage     handlers.StorageChecker
	RateLimiter *middleware.ClientRateLimiter
}

// SetupRoutes configures all API routes
func SetupRoutes(e *echo.Echo, cfg *config.Config, deps Dependencies) {
	// Global middleware
	e.Use(echomiddleware.Recover())
	e.Use(middleware.RequestValidation())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.CORSConfig())
	// Scrape and webhook calls block for the whole remote run or delivery loop
	e.Use(middleware.SelectiveTimeoutConfig(cfg.Server.ReadTimeout, cfg.Server.LongTimeout))

	// Health check routes
	health := e.Group("/health")
	{
		health.GET("", handlers.HealthHandler)
		health.GET("/ready", handlers.ReadinessHandler(cfg, deps.Store))
		health.GET("/live", handlers.LivenessHandler)
	}

	// Status route
	e.GET("/status", handlers.StatusHandler(cfg, deps.Store, deps.Storage))

	// API v1 routes
	v1 := e.Group("/api/v1")
	{
		v1.GET("/token", handlers.TokenHandler(cfg, deps.Verifier))

		sessions := v1.Group("/sessions")
		{
			sessions.POST("", handlers.CreateSessionHandler(deps.Store))
			sessions.GET("", handlers.ListSessionsHandler(deps.Store))
			sessions.GET("/:id", handlers.GetSessionHandler(deps.Store))
			sessions.DELETE("/:id", handlers.DeleteSessionHandler(deps.Store))

			scrape := handlers.ScrapeHandler(cfg, deps.Store, deps.Fetcher, deps.Deliverer)
			if deps.RateLimiter != nil {
				sessions.POST("/:id/scrape", scrape, deps.RateLimiter.Middleware())
			} else {
				sessions.POST("/:id/scrape", scrape)
			}

			sessions.GET("/:id/results", handlers.ResultsHandler(deps.Store))
			sessions.GET("/:id/stats", handlers.StatsHandler(deps.Store))
			sessions.POST("/:id/webhook", handlers.WebhookHandler(deps.Store, deps.Deliverer))
			sessions.GET("/:id/webhook/preview", handlers.WebhookPreviewHandler(deps.Store))
			sessions.GET("/:id/export/:format", handlers.ExportHandler(cfg, deps.Store, deps.Uploader))
		}
	}

	// Root route
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"service": "Google Maps Scraper",
			"version": handlers.Version,
			"status":  "running",
		})
	})
}
