package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"gmaps-scraper/internal/api/handlers"
	"gmaps-scraper/internal/api/middleware"
	"gmaps-scraper/internal/api/routes"
	"gmaps-scraper/internal/apify"
	"gmaps-scraper/internal/callback"
	"gmaps-scraper/internal/config"
	"gmaps-scraper/internal/exporter"
	"gmaps-scraper/internal/grpc/server"
	"gmaps-scraper/internal/logging"
	"gmaps-scraper/internal/mux"
	"gmaps-scraper/internal/scraper"
	"gmaps-scraper/internal/session"
	"gmaps-scraper/pkg/utils"
)

const cleanupInterval = 10 * time.Minute

func main() {
	configPath := flag.String("config", utils.GetStringOrDefault(os.Getenv("CONFIG_PATH"), "configs/config.yaml"), "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logging.InitializeLogging(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logging.CloseLogging()

	logger := logging.GetGlobalLogger()
	logger.Info("Starting Google Maps Scraper", map[string]interface{}{
		"version": handlers.Version,
	})

	fetcher, err := scraper.NewApifyFetcher(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Scraping API token is required (set APIFY_API_TOKEN)")
	}

	store, err := session.NewStore(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create session store")
	}
	defer store.Close()

	var uploader handlers.UploaderFactory
	var storage handlers.StorageChecker
	if utils.SpacesConfigured(cfg) {
		uploader = func() (exporter.Uploader, error) {
			return exporter.NewUploader(cfg)
		}
		if spaces, err := utils.NewSpacesClient(cfg); err != nil {
			logger.WithError(err).Warn("Spaces client unavailable for health checks")
		} else {
			storage = spaces
		}
	}

	rateLimiter := middleware.NewClientRateLimiter(cfg.RateLimit.ScrapePerMinute, cfg.RateLimit.Burst)
	defer rateLimiter.Stop()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	routes.SetupRoutes(e, cfg, routes.Dependencies{
		Store:       store,
		Fetcher:     fetcher,
		Deliverer:   callback.NewClient(callback.ConfigFromApp(cfg), logger.WithField(logging.FieldComponent, "webhook")),
		Verifier:    apify.NewClient(cfg),
		Uploader:    uploader,
		Storage:     storage,
		RateLimiter: rateLimiter,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cleanupRoutine(ctx, store, cfg.Session.TTL)

	address := cfg.Address()

	var multiplexer *mux.Multiplexer
	if cfg.GRPC.Enabled {
		multiplexer = mux.NewMultiplexer(cfg, server.NewServer(cfg, store), e)
		if err := multiplexer.Start(address); err != nil {
			logger.WithError(err).Fatal("Server failed to start")
		}
	} else {
		e.Server.ReadTimeout = cfg.Server.ReadTimeout
		e.Server.WriteTimeout = cfg.Server.LongTimeout + 10*time.Second
		e.Server.IdleTimeout = cfg.Server.IdleTimeout
		go func() {
			logger.Info("Server starting", map[string]interface{}{"address": address})
			if err := e.Start(address); err != nil && err != http.ErrServerClosed {
				logger.WithError(err).Fatal("Server failed to start")
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if multiplexer != nil {
		if err := multiplexer.Stop(shutdownCtx); err != nil {
			logger.WithError(err).Error("Error stopping multiplexer")
		}
	} else if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Error shutting down server")
	}

	logger.Info("Server shutdown complete")
}

// cleanupRoutine drops sessions idle for longer than ttl
func cleanupRoutine(ctx context.Context, store session.Store, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := store.Cleanup(ctx, ttl); err != nil {
				logging.GetGlobalLogger().WithError(err).Warn("Session cleanup failed")
			}
		case <-ctx.Done():
			return
		}
	}
}
