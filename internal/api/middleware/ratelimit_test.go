package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestClientRateLimiter_BurstPerClient(t *testing.T) {
	rl := NewClientRateLimiter(1, 2)
	defer rl.Stop()

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("burst of 2 not allowed")
	}
	if rl.Allow("a") {
		t.Error("third request within the minute allowed")
	}
	if !rl.Allow("b") {
		t.Error("second client throttled by the first")
	}
}

func TestClientRateLimiter_Disabled(t *testing.T) {
	rl := NewClientRateLimiter(0, 1)
	defer rl.Stop()

	for i := 0; i < 100; i++ {
		if !rl.Allow("a") {
			t.Fatalf("request %d rejected with limiting disabled", i)
		}
	}
}

func TestClientRateLimiter_Cleanup(t *testing.T) {
	rl := NewClientRateLimiter(1, 1)
	defer rl.Stop()

	rl.Allow("a")
	rl.cleanup(time.Now().Add(time.Minute))

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if len(rl.clients) != 0 {
		t.Errorf("%d clients left after cleanup", len(rl.clients))
	}
}

func TestClientRateLimiter_Middleware(t *testing.T) {
	rl := NewClientRateLimiter(1, 1)
	defer rl.Stop()

	e := echo.New()
	handler := rl.Middleware()(func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/x/scrape", nil)
		req.RemoteAddr = "203.0.113.7:5000"
		rec := httptest.NewRecorder()
		if err := handler(e.NewContext(req, rec)); err != nil {
			t.Fatalf("handler: %v", err)
		}
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusNoContent || codes[1] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}
}

func TestRequestValidation_SetsRequestID(t *testing.T) {
	e := echo.New()
	var seen string
	handler := RequestValidation()(func(c echo.Context) error {
		seen, _ = c.Get(RequestIDKey).(string)
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(echo.HeaderXRequestID, "client-supplied")
	rec := httptest.NewRecorder()
	handler(e.NewContext(req, rec))

	if seen != "client-supplied" || rec.Header().Get(echo.HeaderXRequestID) != "client-supplied" {
		t.Errorf("request id = %q / %q", seen, rec.Header().Get(echo.HeaderXRequestID))
	}
}

func TestIsLongRunning(t *testing.T) {
	if !isLongRunning(http.MethodPost, "/api/v1/sessions/abc/scrape") {
		t.Error("scrape not long running")
	}
	if !isLongRunning(http.MethodPost, "/api/v1/sessions/abc/webhook") {
		t.Error("webhook not long running")
	}
	if isLongRunning(http.MethodGet, "/api/v1/sessions/abc/webhook/preview") {
		t.Error("preview treated as long running")
	}
}
