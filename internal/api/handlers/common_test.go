package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"gmaps-scraper/internal/exporter"
	"gmaps-scraper/internal/scraper"
	"gmaps-scraper/internal/session"
	"gmaps-scraper/pkg/utils"
)

func TestToHTTPError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"session missing", fmt.Errorf("get: %w", session.ErrSessionNotFound), http.StatusNotFound, "session_not_found"},
		{"in progress", session.ErrInProgress, http.StatusConflict, "in_progress"},
		{"fetch failed", &scraper.FetchError{Op: "run", Err: errors.New("status FAILED")}, http.StatusBadGateway, "scraping_failed"},
		{"bad format", fmt.Errorf("%w: pdf", exporter.ErrUnsupportedFormat), http.StatusBadRequest, "unsupported_format"},
		{"storage missing", exporter.ErrStorageConfig, http.StatusServiceUnavailable, "storage_not_configured"},
		{"upload failed", exporter.ErrUpload, http.StatusBadGateway, "upload_failed"},
		{"render failed", exporter.ErrRender, http.StatusInternalServerError, "export_failed"},
		{"deadline", fmt.Errorf("wait: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "timeout"},
		{"validation", utils.NewValidationError("query required"), http.StatusBadRequest, "validation_failed"},
		{"conflict", errNoResults, http.StatusConflict, "conflict"},
		{"unavailable", utils.NewServiceUnavailableError("no token"), http.StatusServiceUnavailable, "unavailable"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr, code := toHTTPError(tt.err)
			if httpErr.Code != tt.wantStatus || code != tt.wantCode {
				t.Errorf("toHTTPError() = %d %q, want %d %q", httpErr.Code, code, tt.wantStatus, tt.wantCode)
			}
		})
	}
}

func TestToHTTPError_FetchMessageKeepsCause(t *testing.T) {
	fetchErr := &scraper.FetchError{Op: "run", Err: errors.New("actor run finished with status FAILED")}

	httpErr, _ := toHTTPError(fetchErr)
	if want := "Scraping failed: " + fetchErr.Error(); httpErr.Error() != want {
		t.Errorf("message = %q, want %q", httpErr.Error(), want)
	}
}
