package middleware

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// SelectiveTimeoutConfig applies the default timeout to every request except
// scrape and webhook calls, which block until the remote run or the delivery
// loop finishes and get the long timeout instead.
func SelectiveTimeoutConfig(defaultTimeout, longTimeout time.Duration) echo.MiddlewareFunc {
	short := middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
		Timeout: defaultTimeout,
	})
	long := middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
		Timeout: longTimeout,
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		shortNext := short(next)
		longNext := long(next)

		return func(c echo.Context) error {
			if isLongRunning(c.Request().Method, c.Request().URL.Path) {
				return longNext(c)
			}
			return shortNext(c)
		}
	}
}

func isLongRunning(method, path string) bool {
	if method != echo.POST {
		return false
	}
	return strings.HasSuffix(path, "/scrape") || strings.HasSuffix(path, "/webhook")
}
