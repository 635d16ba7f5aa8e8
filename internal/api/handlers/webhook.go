package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"gmaps-scraper/internal/callback"
	"gmaps-scraper/internal/logging"
	"gmaps-scraper/internal/session"
	"gmaps-scraper/pkg/models"
	"gmaps-scraper/pkg/utils"
)

// WebhookHandler sends the session's results to a webhook. The delivery
// outcome is returned with 200 whether or not the webhook accepted it.
func WebhookHandler(store session.Store, deliverer callback.Deliverer) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := requestIDFrom(c)
		sessionID := c.Param("id")
		logger := logging.LogWithRequestID(requestID).WithField(logging.FieldSessionID, sessionID)
		ctx := c.Request().Context()

		var req models.WebhookRequest
		if err := c.Bind(&req); err != nil {
			return respondError(c, logger, utils.NewBadRequestError("Invalid request format"), requestID)
		}
		if err := validate.Struct(&req); err != nil {
			return respondError(c, logger, utils.NewValidationError(err.Error()), requestID)
		}
		if req.Mode == "" {
			req.Mode = models.DeliveryModeBulk
		}

		release, err := store.Acquire(ctx, sessionID)
		if err != nil {
			return respondError(c, logger, err, requestID)
		}
		defer release()

		s, err := store.Get(ctx, sessionID)
		if err != nil {
			return respondError(c, logger, err, requestID)
		}
		if !s.Fetched() {
			return respondError(c, logger, errNoResults, requestID)
		}

		outcome := deliverer.Deliver(ctx, s.Results, req.URL, req.Mode)

		s.LastDelivery = &outcome
		if err := store.Save(ctx, s); err != nil {
			logger.WithError(err).Warn("Failed to record delivery outcome on session")
		}

		logger.Info("Webhook delivery finished", map[string]interface{}{
			"mode":    req.Mode,
			"success": outcome.Success,
			"sent":    outcome.Sent,
			"failed":  outcome.Failed,
		})

		return c.JSON(http.StatusOK, outcome)
	}
}

// WebhookPreviewHandler shows the payload the webhook would receive
func WebhookPreviewHandler(store session.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := requestIDFrom(c)
		logger := logging.LogWithRequestID(requestID)

		mode := models.DeliveryMode(c.QueryParam("mode"))
		if mode == "" {
			mode = models.DeliveryModeBulk
		}
		if err := validate.Var(string(mode), "delivery_mode"); err != nil {
			return respondError(c, logger, utils.NewValidationError("mode must be bulk or individual"), requestID)
		}

		s, err := store.Get(c.Request().Context(), c.Param("id"))
		if err != nil {
			return respondError(c, logger, err, requestID)
		}

		return c.JSON(http.StatusOK, callback.Preview(s.Results, mode, time.Now()))
	}
}
