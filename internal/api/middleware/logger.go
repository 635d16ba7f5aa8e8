package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"gmaps-scraper/internal/logging"
)

// RequestLogger writes one structured log line per request
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			requestID, _ := c.Get(RequestIDKey).(string)
			fields := map[string]interface{}{
				"request_id": requestID,
				"method":     c.Request().Method,
				"path":       c.Path(),
				"status":     c.Response().Status,
				"latency_ms": time.Since(start).Milliseconds(),
				"remote_ip":  c.RealIP(),
			}

			logger := logging.GetGlobalLogger()
			if c.Response().Status >= 500 {
				logger.Error("HTTP request", fields)
			} else {
				logger.Info("HTTP request", fields)
			}

			return nil
		}
	}
}
