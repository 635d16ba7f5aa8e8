package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"gmaps-scraper/internal/api/middleware"
	"gmaps-scraper/internal/api/validation"
	"gmaps-scraper/internal/exporter"
	"gmaps-scraper/internal/logging"
	"gmaps-scraper/internal/scraper"
	"gmaps-scraper/internal/session"
	"gmaps-scraper/pkg/models"
	"gmaps-scraper/pkg/redact"
	"gmaps-scraper/pkg/utils"
)

var validate = validation.New()

// requestIDFrom returns the ID assigned by the request validation middleware
func requestIDFrom(c echo.Context) string {
	if id, ok := c.Get(middleware.RequestIDKey).(string); ok && id != "" {
		return id
	}
	return utils.GenerateRequestID()
}

func errorJSON(c echo.Context, status int, code, message, requestID string) error {
	return c.JSON(status, models.ErrorResponse{
		Error:     code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now(),
	})
}

// respondError maps domain errors onto HTTP responses
func respondError(c echo.Context, logger logging.Logger, err error, requestID string) error {
	httpErr, code := toHTTPError(err)

	if httpErr.Code >= http.StatusInternalServerError {
		logger.WithError(err).Error("Request failed", map[string]interface{}{"error_code": code})
	} else {
		logger.WithError(err).Warn("Request rejected", map[string]interface{}{"error_code": code})
	}

	return errorJSON(c, httpErr.Code, code, redact.Secrets(httpErr.Error()), requestID)
}

// toHTTPError converts err into a CustomError carrying the response status,
// plus the machine-readable error code
func toHTTPError(err error) (*utils.CustomError, string) {
	var fetchErr *scraper.FetchError
	msg := err.Error()

	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return utils.NewNotFoundError(msg), "session_not_found"
	case errors.Is(err, session.ErrInProgress):
		return utils.NewConflictError(msg), "in_progress"
	case errors.As(err, &fetchErr):
		return utils.NewScrapingError(msg), "scraping_failed"
	case errors.Is(err, exporter.ErrUnsupportedFormat):
		return utils.NewBadRequestError(msg), "unsupported_format"
	case errors.Is(err, exporter.ErrStorageConfig):
		return utils.NewServiceUnavailableError(msg), "storage_not_configured"
	case errors.Is(err, exporter.ErrUpload):
		return utils.NewUpstreamError(msg), "upload_failed"
	case errors.Is(err, exporter.ErrRender):
		return utils.NewInternalServerError(msg), "export_failed"
	case errors.Is(err, context.DeadlineExceeded):
		return utils.NewTimeoutError(msg), "timeout"
	}

	if customErr, ok := utils.AsCustomError(err); ok {
		switch customErr.Code {
		case http.StatusBadRequest:
			return customErr, "validation_failed"
		case http.StatusNotFound:
			return customErr, "not_found"
		case http.StatusConflict:
			return customErr, "conflict"
		case http.StatusBadGateway:
			return customErr, "upstream_error"
		case http.StatusServiceUnavailable:
			return customErr, "unavailable"
		case http.StatusGatewayTimeout:
			return customErr, "timeout"
		default:
			return customErr, "internal_error"
		}
	}

	return utils.NewInternalServerError(msg), "internal_error"
}

func toSessionResponse(s *session.Session) models.SessionResponse {
	return models.SessionResponse{
		ID:         s.ID,
		Label:      s.Label,
		InProgress: s.InProgress,
		Query:      s.Query,
		Location:   s.Location,
		Count:      len(s.Results),
		CreatedAt:  s.CreatedAt,
		FetchedAt:  s.FetchedAt,
	}
}

// errNoResults is returned for actions that need a completed fetch
var errNoResults = utils.NewConflictError("Run a search before using its results")
