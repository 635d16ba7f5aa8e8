package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"gmaps-scraper/internal/callback"
	"gmaps-scraper/internal/config"
	"gmaps-scraper/internal/logging"
	"gmaps-scraper/internal/scraper"
	"gmaps-scraper/internal/session"
	"gmaps-scraper/pkg/models"
	"gmaps-scraper/pkg/utils"
)

// ScrapeHandler runs a search for the session and replaces its results.
// When a webhook URL is given (or configured by default) the new results are
// sent to it in bulk.
func ScrapeHandler(cfg *config.Config, store session.Store, fetcher scraper.Fetcher, deliverer callback.Deliverer) echo.HandlerFunc {
	return func(c echo.Context) error {
		startTime := time.Now()
		requestID := requestIDFrom(c)
		sessionID := c.Param("id")
		logger := logging.LogWithRequestID(requestID).WithField(logging.FieldSessionID, sessionID)
		ctx := c.Request().Context()

		logger.Info("Scrape request received")

		if fetcher == nil {
			return respondError(c, logger, utils.NewServiceUnavailableError("Apify API token not configured"), requestID)
		}

		var req models.ScrapeRequest
		if err := c.Bind(&req); err != nil {
			logger.WithError(err).Error("Failed to bind request")
			return respondError(c, logger, utils.NewBadRequestError("Invalid request format"), requestID)
		}
		req.Query = strings.TrimSpace(req.Query)
		req.Location = strings.TrimSpace(req.Location)

		if err := validate.Struct(&req); err != nil {
			return respondError(c, logger, utils.NewValidationError(err.Error()), requestID)
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
		s.ClearResults()
		if err := store.Save(ctx, s); err != nil {
			return respondError(c, logger, err, requestID)
		}

		logger.WithFields(map[string]interface{}{
			"query":       req.Query,
			"location":    req.Location,
			"max_results": req.Limit(),
		}).Info("Processing scrape request")

		results, err := fetcher.Fetch(ctx, req.Query, req.Location, req.Limit(), req.OptionSetOrDefault())
		if err != nil {
			s.LastError = err.Error()
			if saveErr := store.Save(ctx, s); saveErr != nil {
				logger.WithError(saveErr).Warn("Failed to record scrape failure on session")
			}
			return respondError(c, logger, err, requestID)
		}

		s.ReplaceResults(req.Query, req.Location, req.Limit(), results, time.Now())

		response := models.ScrapeResponse{
			Success:   true,
			SessionID: sessionID,
			Count:     len(results),
			Results:   results,
			RequestID: requestID,
		}

		webhookURL := utils.GetStringOrDefault(req.WebhookURL, cfg.Webhook.DefaultURL)
		if webhookURL != "" {
			outcome := deliverer.Deliver(ctx, results, webhookURL, models.DeliveryModeBulk)
			s.LastDelivery = &outcome
			response.Webhook = &outcome
		}

		if err := store.Save(ctx, s); err != nil {
			return respondError(c, logger, err, requestID)
		}

		response.ProcessingTime = time.Since(startTime)

		logger.WithFields(map[string]interface{}{
			"processing_time": utils.FormatDuration(response.ProcessingTime),
			"records":         len(results),
			"webhook":         webhookURL != "",
		}).Info("Scrape request completed successfully")

		return c.JSON(http.StatusOK, response)
	}
}
