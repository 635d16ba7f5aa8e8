package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"gmaps-scraper/internal/config"
	"gmaps-scraper/internal/exporter"
	"gmaps-scraper/internal/logging"
	"gmaps-scraper/internal/session"
	"gmaps-scraper/pkg/models"
	"gmaps-scraper/pkg/utils"
)

// UploaderFactory builds the storage client for uploaded exports
type UploaderFactory func() (exporter.Uploader, error)

// ExportHandler renders the session's results as json, csv or xlsx. With
// ?upload=true the file is stored in Spaces and its URL returned instead.
func ExportHandler(cfg *config.Config, store session.Store, newUploader UploaderFactory) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := requestIDFrom(c)
		logger := logging.LogWithRequestID(requestID)
		ctx := c.Request().Context()

		format := strings.ToLower(c.Param("format"))
		if err := validate.Var(format, "export_format"); err != nil {
			return respondError(c, logger, fmt.Errorf("%w: %s", exporter.ErrUnsupportedFormat, format), requestID)
		}

		s, err := store.Get(ctx, c.Param("id"))
		if err != nil {
			return respondError(c, logger, err, requestID)
		}
		if !s.Fetched() {
			return respondError(c, logger, errNoResults, requestID)
		}

		filter := strings.TrimSpace(c.QueryParam("filter"))
		file, err := exporter.Export(exporter.Format(format), s.Query, s.Location, s.Results, filter, time.Now())
		if err != nil {
			return respondError(c, logger, err, requestID)
		}

		logger.Info("Export rendered", map[string]interface{}{
			"session_id": s.ID,
			"format":     format,
			"filename":   file.Name,
			"size_bytes": len(file.Data),
		})

		if c.QueryParam("upload") != "true" {
			c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", file.Name))
			return c.Blob(http.StatusOK, file.ContentType, file.Data)
		}

		if newUploader == nil {
			return respondError(c, logger, fmt.Errorf("%w: %v", exporter.ErrStorageConfig, utils.ErrSpacesNotConfigured), requestID)
		}
		uploader, err := newUploader()
		if err != nil {
			return respondError(c, logger, err, requestID)
		}

		url, err := exporter.Upload(ctx, uploader, cfg.Export.Prefix, file)
		if err != nil {
			return respondError(c, logger, err, requestID)
		}

		count := len(s.Results)
		if exporter.Format(format) != exporter.FormatJSON {
			count = len(s.Results.Filter(filter))
		}

		return c.JSON(http.StatusOK, models.ExportResponse{
			Filename: file.Name,
			URL:      url,
			Format:   format,
			Count:    count,
		})
	}
}
