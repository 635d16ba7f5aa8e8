package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"gmaps-scraper/internal/apify"
	"gmaps-scraper/internal/config"
	"gmaps-scraper/internal/logging"
	"gmaps-scraper/pkg/models"
	"gmaps-scraper/pkg/redact"
)

// TokenVerifier looks up the account behind the API token
type TokenVerifier interface {
	GetUser(ctx context.Context) (*apify.User, error)
}

// TokenHandler reports the masked API token and, with ?verify=true, the
// account it belongs to
func TokenHandler(cfg *config.Config, verifier TokenVerifier) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := requestIDFrom(c)
		logger := logging.LogWithRequestID(requestID)

		response := models.TokenResponse{Configured: cfg.HasAPIToken()}
		if !response.Configured {
			return c.JSON(http.StatusOK, response)
		}
		response.Masked = redact.Mask(cfg.Apify.APIToken)

		if c.QueryParam("verify") != "true" || verifier == nil {
			return c.JSON(http.StatusOK, response)
		}

		user, err := verifier.GetUser(c.Request().Context())
		if err != nil {
			logger.WithError(err).Warn("API token verification failed")
			response.Error = redact.Secrets(err.Error())
			return c.JSON(http.StatusOK, response)
		}

		response.Verified = true
		response.Username = user.Username
		return c.JSON(http.StatusOK, response)
	}
}
