// Package apify is a small client for the parts of the Apify API v2 used to
// run an actor and read its output dataset.
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"gmaps-scraper/internal/config"
	"gmaps-scraper/internal/logging"
	"gmaps-scraper/pkg/redact"
)

// Run statuses reported by the API
const (
	StatusReady     = "READY"
	StatusRunning   = "RUNNING"
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
	StatusAborting  = "ABORTING"
	StatusAborted   = "ABORTED"
	StatusTimingOut = "TIMING-OUT"
	StatusTimedOut  = "TIMED-OUT"
)

// maxWaitForFinish is the longest server-side wait the API accepts per request
const maxWaitForFinish = 60 * time.Second

// ErrRunTimeout is returned when a run is still active after the configured wait
var ErrRunTimeout = errors.New("timed out waiting for actor run to finish")

// Run is the subset of the actor run object the service reads
type Run struct {
	ID               string     `json:"id"`
	ActID            string     `json:"actId"`
	Status           string     `json:"status"`
	StatusMessage    string     `json:"statusMessage,omitempty"`
	StartedAt        *time.Time `json:"startedAt,omitempty"`
	FinishedAt       *time.Time `json:"finishedAt,omitempty"`
	DefaultDatasetID string     `json:"defaultDatasetId"`
}

// IsTerminal reports whether the run will not change status anymore
func (r *Run) IsTerminal() bool {
	switch r.Status {
	case StatusSucceeded, StatusFailed, StatusAborted, StatusTimedOut:
		return true
	default:
		return false
	}
}

// User is the account the API token belongs to
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// APIError is a sanitized summary of a non-2xx API response
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("apify API error %d (%s): %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("apify API error %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether retrying the request may succeed
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// RunError is returned when an actor run ends in a status other than SUCCEEDED
type RunError struct {
	RunID         string
	Status        string
	StatusMessage string
}

func (e *RunError) Error() string {
	if e.StatusMessage != "" {
		return fmt.Sprintf("actor run %s finished with status %s: %s", e.RunID, e.Status, e.StatusMessage)
	}
	return fmt.Sprintf("actor run %s finished with status %s", e.RunID, e.Status)
}

// Client talks to the Apify API with a bearer token
type Client struct {
	baseURL      string
	token        string
	httpClient   *http.Client
	pollWait     time.Duration
	waitTimeout  time.Duration
	maxRetries   int
	retryBackoff time.Duration
	pageSize     int
	pageLimiter  *rate.Limiter
	logger       logging.Logger
}

// NewClient creates a client from the apify configuration section
func NewClient(cfg *config.Config) *Client {
	pageRate := rate.Inf
	if cfg.Apify.PageRate > 0 {
		pageRate = rate.Limit(cfg.Apify.PageRate)
	}

	pollWait := cfg.Apify.PollWait
	if pollWait > maxWaitForFinish {
		pollWait = maxWaitForFinish
	}

	pageSize := cfg.Apify.PageSize
	if pageSize <= 0 {
		pageSize = 1000
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.Apify.BaseURL, "/"),
		token:   cfg.Apify.APIToken,
		httpClient: &http.Client{
			Timeout: cfg.Apify.RequestTimeout,
		},
		pollWait:     pollWait,
		waitTimeout:  cfg.Apify.WaitTimeout,
		maxRetries:   cfg.Apify.MaxRetries,
		retryBackoff: time.Second,
		pageSize:     pageSize,
		pageLimiter:  rate.NewLimiter(pageRate, 1),
		logger:       logging.GetGlobalLogger().WithField("component", "apify"),
	}
}

// StartRun starts an actor run with the given input document
func (c *Client) StartRun(ctx context.Context, actorID string, input interface{}) (*Run, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal actor input: %w", err)
	}

	path := fmt.Sprintf("/acts/%s/runs", url.PathEscape(actorPathID(actorID)))

	var run Run
	if err := c.do(ctx, http.MethodPost, path, nil, body, &run); err != nil {
		return nil, fmt.Errorf("failed to start actor %s: %w", actorID, err)
	}

	c.logger.Info("Actor run started", map[string]interface{}{
		"actor_id": actorID,
		"run_id":   run.ID,
		"status":   run.Status,
	})

	return &run, nil
}

// GetRun fetches the run, letting the server hold the request for up to wait
// while the run is still active
func (c *Client) GetRun(ctx context.Context, runID string, wait time.Duration) (*Run, error) {
	query := url.Values{}
	if wait > 0 {
		query.Set("waitForFinish", strconv.Itoa(int(wait.Seconds())))
	}

	var run Run
	if err := c.do(ctx, http.MethodGet, "/actor-runs/"+url.PathEscape(runID), query, nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// WaitForRun polls the run until it reaches a terminal status. Transient
// failures are retried up to the configured limit; the whole wait is bounded
// by the configured wait timeout.
func (c *Client) WaitForRun(ctx context.Context, runID string) (*Run, error) {
	if c.waitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.waitTimeout)
		defer cancel()
	}

	failures := 0
	for {
		run, err := c.GetRun(ctx, runID, c.pollWait)
		if err != nil {
			if ctx.Err() != nil {
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return nil, fmt.Errorf("run %s: %w", runID, ErrRunTimeout)
				}
				return nil, ctx.Err()
			}
			if !isTemporary(err) || failures >= c.maxRetries {
				return nil, fmt.Errorf("failed to poll run %s: %w", runID, err)
			}
			failures++
			c.logger.WithError(err).Warn("Retrying actor run poll", map[string]interface{}{
				"run_id":  runID,
				"attempt": failures,
			})
			if err := sleepContext(ctx, time.Duration(failures)*c.retryBackoff); err != nil {
				return nil, fmt.Errorf("run %s: %w", runID, ErrRunTimeout)
			}
			continue
		}
		failures = 0

		c.logger.Debug("Actor run status", map[string]interface{}{
			"run_id": runID,
			"status": run.Status,
		})

		if run.IsTerminal() {
			return run, nil
		}

		// The server returns early on a short wait; avoid a hot loop when
		// it does not honor waitForFinish.
		if c.pollWait <= 0 {
			if err := sleepContext(ctx, c.retryBackoff); err != nil {
				return nil, fmt.Errorf("run %s: %w", runID, ErrRunTimeout)
			}
		}
	}
}

// ListItems reads one page of dataset items
func (c *Client) ListItems(ctx context.Context, datasetID string, offset, limit int) ([]map[string]interface{}, error) {
	query := url.Values{}
	query.Set("format", "json")
	query.Set("clean", "true")
	query.Set("offset", strconv.Itoa(offset))
	query.Set("limit", strconv.Itoa(limit))

	var items []map[string]interface{}
	if err := c.do(ctx, http.MethodGet, "/datasets/"+url.PathEscape(datasetID)+"/items", query, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// IterateItems pages through the whole dataset in order, calling fn per item.
// Iteration stops at the first short page or at the first error.
func (c *Client) IterateItems(ctx context.Context, datasetID string, fn func(item map[string]interface{}) error) error {
	offset := 0
	for {
		if err := c.pageLimiter.Wait(ctx); err != nil {
			return err
		}

		items, err := c.ListItems(ctx, datasetID, offset, c.pageSize)
		if err != nil {
			return fmt.Errorf("failed to read dataset %s at offset %d: %w", datasetID, offset, err)
		}

		for _, item := range items {
			if err := fn(item); err != nil {
				return err
			}
		}

		offset += len(items)
		if len(items) < c.pageSize {
			return nil
		}
	}
}

// GetUser returns the account that owns the configured token
func (c *Client) GetUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// do performs one API call. Object responses arrive wrapped in {"data": ...};
// dataset item listings are returned bare.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error embeds the request URL; strip anything secret from it
		return fmt.Errorf("HTTP request failed: %s", redact.Secrets(err.Error()))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if _, isList := out.(*[]map[string]interface{}); isList {
		if err := dec.Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}

	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := dec.Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if len(envelope.Data) == 0 {
		return fmt.Errorf("response has no data field")
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var payload struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		apiErr.Type = payload.Error.Type
		apiErr.Message = redact.Secrets(payload.Error.Message)
		return apiErr
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	apiErr.Message = redact.Secrets(msg)
	return apiErr
}

// actorPathID converts "username/actor-name" into the "username~actor-name"
// form used in URL paths
func actorPathID(actorID string) string {
	return strings.Replace(actorID, "/", "~", 1)
}

func isTemporary(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	// transport and decode failures
	return true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
