package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"gmaps-scraper/internal/logging"
	"gmaps-scraper/internal/session"
	"gmaps-scraper/pkg/models"
)

// ResultsHandler returns the results table, optionally filtered by title or address
func ResultsHandler(store session.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := requestIDFrom(c)

		s, err := store.Get(c.Request().Context(), c.Param("id"))
		if err != nil {
			return respondError(c, logging.LogWithRequestID(requestID), err, requestID)
		}

		filter := strings.TrimSpace(c.QueryParam("filter"))
		filtered := s.Results.Filter(filter)

		return c.JSON(http.StatusOK, models.ResultsResponse{
			SessionID: s.ID,
			Columns:   models.TableColumns,
			Rows:      filtered.TableRows(),
			Count:     len(filtered),
			Total:     len(s.Results),
			Filter:    filter,
		})
	}
}

// StatsHandler returns the quick statistics of the session's results
func StatsHandler(store session.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := requestIDFrom(c)

		s, err := store.Get(c.Request().Context(), c.Param("id"))
		if err != nil {
			return respondError(c, logging.LogWithRequestID(requestID), err, requestID)
		}

		return c.JSON(http.StatusOK, models.StatsResponse{
			SessionID: s.ID,
			Stats:     s.Results.Stats(),
		})
	}
}
