package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"gmaps-scraper/internal/config"
	"gmaps-scraper/internal/logging"
	"gmaps-scraper/internal/session"
	"gmaps-scraper/pkg/models"
)

// Version is reported by the health endpoints
const Version = "1.0.0"

var startTime = time.Now()

// HealthHandler handles health check requests
func HealthHandler(c echo.Context) error {
	logging.GetGlobalLogger().Debug("Health check requested", map[string]interface{}{
		"request_id": requestIDFrom(c),
	})

	return c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   Version,
		Uptime:    time.Since(startTime),
		Checks: map[string]string{
			"api": "ok",
		},
	})
}

// ReadinessHandler reports ready once the API token is configured and the
// session store answers
func ReadinessHandler(cfg *config.Config, store session.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		checks := dependencyChecks(c, cfg, store)

		status, code := "ready", http.StatusOK
		for _, v := range checks {
			if v != "ok" {
				status, code = "not_ready", http.StatusServiceUnavailable
				break
			}
		}

		return c.JSON(code, models.HealthResponse{
			Status:    status,
			Timestamp: time.Now(),
			Version:   Version,
			Uptime:    time.Since(startTime),
			Checks:    checks,
		})
	}
}

// LivenessHandler handles liveness probe requests
func LivenessHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   Version,
		Uptime:    time.Since(startTime),
	})
}

// StorageChecker probes the object storage used for uploaded exports
type StorageChecker interface {
	IsHealthy(ctx context.Context) bool
}

// StatusHandler provides detailed service status. storage is nil when export
// uploads are not configured.
func StatusHandler(cfg *config.Config, store session.Store, storage StorageChecker) echo.HandlerFunc {
	return func(c echo.Context) error {
		checks := dependencyChecks(c, cfg, store)
		checks["actor"] = cfg.Apify.ActorID
		checks["session_backend"] = cfg.Session.Store

		switch {
		case storage == nil:
			checks["storage"] = "not_configured"
		case storage.IsHealthy(c.Request().Context()):
			checks["storage"] = "ok"
		default:
			checks["storage"] = "unreachable"
		}

		checks["logging"] = "ok"
		if err := logging.GetGlobalLogger().Health(); err != nil {
			checks["logging"] = "error: " + err.Error()
		}

		if sessions, err := store.List(c.Request().Context()); err == nil {
			active := 0
			for _, s := range sessions {
				if s.InProgress {
					active++
				}
			}
			checks["sessions"] = strconv.Itoa(len(sessions))
			checks["sessions_in_progress"] = strconv.Itoa(active)
		}

		return c.JSON(http.StatusOK, models.HealthResponse{
			Status:    "operational",
			Timestamp: time.Now(),
			Version:   Version,
			Uptime:    time.Since(startTime),
			Checks:    checks,
		})
	}
}

func dependencyChecks(c echo.Context, cfg *config.Config, store session.Store) map[string]string {
	checks := map[string]string{"api": "ok"}

	if cfg.HasAPIToken() {
		checks["apify_token"] = "ok"
	} else {
		checks["apify_token"] = "missing"
	}

	if err := store.Ping(c.Request().Context()); err != nil {
		logging.GetGlobalLogger().WithError(err).Warn("Session store ping failed")
		checks["session_store"] = "unreachable"
	} else {
		checks["session_store"] = "ok"
	}

	return checks
}
