// Package callback delivers scrape results to a user supplied webhook.
package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"gmaps-scraper/internal/config"
	"gmaps-scraper/internal/logging"
	"gmaps-scraper/pkg/models"
	"gmaps-scraper/pkg/redact"
)

// Deliverer sends a result set to a webhook
type Deliverer interface {
	Deliver(ctx context.Context, records models.ResultSet, url string, mode models.DeliveryMode) models.DeliveryOutcome
}

// Client posts delivery payloads over HTTP
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	delay      time.Duration
	userAgent  string
	logger     logging.Logger

	// now and sleep are replaced in tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

// ClientConfig holds configuration for the webhook client
type ClientConfig struct {
	Timeout         time.Duration `yaml:"timeout"`
	IndividualDelay time.Duration `yaml:"individual_delay"`
	UserAgent       string        `yaml:"user_agent"`
}

// ConfigFromApp extracts the webhook section of the application config
func ConfigFromApp(cfg *config.Config) *ClientConfig {
	return &ClientConfig{
		Timeout:         cfg.Webhook.Timeout,
		IndividualDelay: cfg.Webhook.IndividualDelay,
		UserAgent:       cfg.Webhook.UserAgent,
	}
}

// NewClient creates a new webhook client
func NewClient(config *ClientConfig, logger logging.Logger) *Client {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.IndividualDelay < 0 {
		config.IndividualDelay = 0
	}

	return &Client{
		httpClient: &http.Client{},
		timeout:    config.Timeout,
		delay:      config.IndividualDelay,
		userAgent:  config.UserAgent,
		logger:     logger.WithField("component", "webhook"),
		now:        time.Now,
		sleep:      sleepContext,
	}
}

// Deliver sends records to url in the given mode. Every failure is reported
// through the returned outcome.
func (c *Client) Deliver(ctx context.Context, records models.ResultSet, url string, mode models.DeliveryMode) models.DeliveryOutcome {
	switch mode {
	case models.DeliveryModeIndividual:
		return c.Individual(ctx, records, url)
	case models.DeliveryModeBulk, "":
		return c.Bulk(ctx, records, url)
	default:
		return models.DeliveryOutcome{
			Success: false,
			Message: fmt.Sprintf("Webhook error: unsupported delivery mode %q", mode),
			Mode:    mode,
		}
	}
}

// Bulk sends the whole result set in one POST. An empty set is still sent.
func (c *Client) Bulk(ctx context.Context, records models.ResultSet, url string) models.DeliveryOutcome {
	if records == nil {
		records = models.ResultSet{}
	}

	payload := models.BulkPayload{
		Timestamp:    c.timestamp(),
		TotalResults: len(records),
		Data:         records,
	}

	c.logger.Info("Sending bulk webhook delivery", map[string]interface{}{
		"records": len(records),
	})

	if err := c.post(ctx, url, payload); err != nil {
		c.logger.WithError(err).Error("Bulk webhook delivery failed")
		return models.DeliveryOutcome{
			Success: false,
			Message: fmt.Sprintf("Webhook error: %s", redact.Secrets(err.Error())),
			Mode:    models.DeliveryModeBulk,
			Failed:  len(records),
		}
	}

	c.logger.Info("Bulk webhook delivery sent", map[string]interface{}{
		"records": len(records),
	})

	return models.DeliveryOutcome{
		Success: true,
		Message: fmt.Sprintf("Successfully sent %d records in bulk to webhook", len(records)),
		Mode:    models.DeliveryModeBulk,
		Sent:    len(records),
	}
}

// Individual sends one POST per record in order, pausing between attempts.
// A failed record is counted and the loop continues; the outcome is always
// successful and carries the counts.
func (c *Client) Individual(ctx context.Context, records models.ResultSet, url string) models.DeliveryOutcome {
	total := len(records)
	sent, failed := 0, 0

	c.logger.Info("Sending individual webhook deliveries", map[string]interface{}{
		"records": total,
	})

	cancelLogged := false
	for i, record := range records {
		if i > 0 && c.delay > 0 {
			c.sleep(ctx, c.delay)
		}

		// remaining records fail fast once the request deadline passes
		if err := ctx.Err(); err != nil && !cancelLogged {
			cancelLogged = true
			c.logger.WithError(err).Warn("Webhook delivery context ended, remaining records will fail", map[string]interface{}{
				"record_number": i + 1,
				"remaining":     total - i,
			})
		}

		payload := models.IndividualPayload{
			Timestamp:    c.timestamp(),
			RecordNumber: i + 1,
			TotalRecords: total,
			Data:         record,
		}

		if err := c.post(ctx, url, payload); err != nil {
			failed++
			c.logger.WithError(err).Warn("Webhook delivery failed for record", map[string]interface{}{
				"record_number": i + 1,
			})
			continue
		}
		sent++
	}

	outcome := models.DeliveryOutcome{
		Success: true,
		Mode:    models.DeliveryModeIndividual,
		Sent:    sent,
		Failed:  failed,
	}
	if failed > 0 {
		outcome.Message = fmt.Sprintf("Sent %d records successfully, %d failed", sent, failed)
	} else {
		outcome.Message = fmt.Sprintf("Successfully sent all %d records individually to webhook", sent)
	}

	c.logger.Info("Individual webhook deliveries finished", map[string]interface{}{
		"sent":   sent,
		"failed": failed,
	})

	return outcome
}

// post sends one JSON document. A status of 400 or above is an error.
func (c *Client) post(ctx context.Context, url string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("invalid webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	// drain so the connection can be reused
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s for url: %s", resp.Status, url)
	}
	return nil
}

func (c *Client) timestamp() string {
	return c.now().Format(time.RFC3339Nano)
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
