package models

import "time"

// ScrapeResponse represents the response from a scrape request
type ScrapeResponse struct {
	Success        bool             `json:"success"`
	SessionID      string           `json:"session_id"`
	Count          int              `json:"count"`
	Results        ResultSet        `json:"results"`
	Webhook        *DeliveryOutcome `json:"webhook,omitempty"`
	ProcessingTime time.Duration    `json:"processing_time"`
	RequestID      string           `json:"request_id"`
}

// SessionResponse describes the state of a session
type SessionResponse struct {
	ID         string     `json:"id"`
	Label      string     `json:"label,omitempty"`
	InProgress bool       `json:"in_progress"`
	Query      string     `json:"query,omitempty"`
	Location   string     `json:"location,omitempty"`
	Count      int        `json:"count"`
	CreatedAt  time.Time  `json:"created_at"`
	FetchedAt  *time.Time `json:"fetched_at,omitempty"`
}

// ResultsResponse is the filtered results table
type ResultsResponse struct {
	SessionID string     `json:"session_id"`
	Columns   []string   `json:"columns"`
	Rows      []TableRow `json:"rows"`
	Count     int        `json:"count"`
	Total     int        `json:"total"`
	Filter    string     `json:"filter,omitempty"`
}

// StatsResponse carries the quick stats for a session
type StatsResponse struct {
	SessionID string      `json:"session_id"`
	Stats     ResultStats `json:"stats"`
}

// ExportResponse is returned when an export is uploaded instead of downloaded
type ExportResponse struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Format   string `json:"format"`
	Count    int    `json:"count"`
}

// TokenResponse reports the configured API token status
type TokenResponse struct {
	Configured bool   `json:"configured"`
	Masked     string `json:"masked,omitempty"`
	Verified   bool   `json:"verified"`
	Username   string `json:"username,omitempty"`
	Error      string `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Uptime    time.Duration     `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}
