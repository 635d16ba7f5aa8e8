package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"gmaps-scraper/internal/logging"
	"gmaps-scraper/internal/session"
	"gmaps-scraper/pkg/models"
	"gmaps-scraper/pkg/utils"
)

// CreateSessionHandler creates a new empty session
func CreateSessionHandler(store session.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := requestIDFrom(c)
		logger := logging.LogWithRequestID(requestID)

		var req models.CreateSessionRequest
		if err := c.Bind(&req); err != nil {
			return respondError(c, logger, utils.NewBadRequestError("Invalid request format"), requestID)
		}
		if err := validate.Struct(&req); err != nil {
			return respondError(c, logger, utils.NewValidationError(err.Error()), requestID)
		}

		s, err := store.Create(c.Request().Context(), req.Label)
		if err != nil {
			return respondError(c, logger, err, requestID)
		}

		logger.Info("Session created", map[string]interface{}{"session_id": s.ID})
		return c.JSON(http.StatusCreated, toSessionResponse(s))
	}
}

// GetSessionHandler returns the state of one session
func GetSessionHandler(store session.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := requestIDFrom(c)

		s, err := store.Get(c.Request().Context(), c.Param("id"))
		if err != nil {
			return respondError(c, logging.LogWithRequestID(requestID), err, requestID)
		}
		return c.JSON(http.StatusOK, toSessionResponse(s))
	}
}

// ListSessionsHandler lists all sessions
func ListSessionsHandler(store session.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := requestIDFrom(c)

		sessions, err := store.List(c.Request().Context())
		if err != nil {
			return respondError(c, logging.LogWithRequestID(requestID), err, requestID)
		}

		response := make([]models.SessionResponse, 0, len(sessions))
		for _, s := range sessions {
			response = append(response, toSessionResponse(s))
		}
		return c.JSON(http.StatusOK, response)
	}
}

// DeleteSessionHandler removes a session unless a scrape is running in it
func DeleteSessionHandler(store session.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := requestIDFrom(c)
		logger := logging.LogWithRequestID(requestID)
		ctx := c.Request().Context()
		id := c.Param("id")

		release, err := store.Acquire(ctx, id)
		if err != nil {
			return respondError(c, logger, err, requestID)
		}
		defer release()

		if err := store.Delete(ctx, id); err != nil {
			return respondError(c, logger, err, requestID)
		}

		logger.Info("Session deleted", map[string]interface{}{"session_id": id})
		return c.NoContent(http.StatusNoContent)
	}
}
