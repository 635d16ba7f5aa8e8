package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"gmaps-scraper/internal/logging"
	"gmaps-scraper/pkg/models"
)

// clientLimiter tracks the token bucket of one client
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientRateLimiter limits requests per client IP
type ClientRateLimiter struct {
	limit    rate.Limit
	burst    int
	clients  map[string]*clientLimiter
	mu       sync.Mutex
	logger   logging.Logger
	idleTTL  time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

// NewClientRateLimiter allows perMinute requests per client with the given burst.
// A non-positive perMinute disables limiting.
func NewClientRateLimiter(perMinute, burst int) *ClientRateLimiter {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	if burst <= 0 {
		burst = 1
	}

	rl := &ClientRateLimiter{
		limit:   limit,
		burst:   burst,
		clients: make(map[string]*clientLimiter),
		logger:  logging.GetGlobalLogger().WithField(logging.FieldComponent, "rate_limiter"),
		idleTTL: 10 * time.Minute,
		stop:    make(chan struct{}),
	}

	go rl.cleanupRoutine()

	return rl
}

// Allow reports whether the client may make a request now
func (rl *ClientRateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl, exists := rl.clients[client]
	if !exists {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[client] = cl
	}
	cl.lastSeen = time.Now()

	return cl.limiter.Allow()
}

// Middleware rejects requests over the limit with 429
func (rl *ClientRateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			client := c.RealIP()
			if rl.Allow(client) {
				return next(c)
			}

			requestID, _ := c.Get(RequestIDKey).(string)
			rl.logger.Warn("Request rejected by rate limiter", map[string]interface{}{
				"client":     client,
				"path":       c.Path(),
				"request_id": requestID,
			})

			return c.JSON(http.StatusTooManyRequests, models.ErrorResponse{
				Error:     "rate_limited",
				Message:   "Too many scrape requests, try again later",
				RequestID: requestID,
				Timestamp: time.Now(),
			})
		}
	}
}

// Stop ends the cleanup goroutine
func (rl *ClientRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *ClientRateLimiter) cleanupRoutine() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now().Add(-rl.idleTTL))
		case <-rl.stop:
			return
		}
	}
}

func (rl *ClientRateLimiter) cleanup(cutoff time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for client, cl := range rl.clients {
		if cl.lastSeen.Before(cutoff) {
			delete(rl.clients, client)
		}
	}
}
