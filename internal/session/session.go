// Package session keeps the per-client scrape state: the last result set and
// the in-progress flag that serializes fetches and deliveries.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gmaps-scraper/internal/config"
	"gmaps-scraper/pkg/models"
)

// Common errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInProgress      = errors.New("a scrape or delivery is already in progress for this session")
)

// Session holds the state of one interactive client
type Session struct {
	ID           string                  `json:"id"`
	Label        string                  `json:"label,omitempty"`
	Query        string                  `json:"query,omitempty"`
	Location     string                  `json:"location,omitempty"`
	MaxResults   int                     `json:"max_results,omitempty"`
	Results      models.ResultSet        `json:"results"`
	InProgress   bool                    `json:"in_progress"`
	LastError    string                  `json:"last_error,omitempty"`
	LastDelivery *models.DeliveryOutcome `json:"last_delivery,omitempty"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
	FetchedAt    *time.Time              `json:"fetched_at,omitempty"`
}

// ReplaceResults swaps in the result set of a completed fetch
func (s *Session) ReplaceResults(query, location string, maxResults int, results models.ResultSet, at time.Time) {
	s.Query = query
	s.Location = location
	s.MaxResults = maxResults
	s.Results = results
	s.LastError = ""
	s.FetchedAt = &at
}

// ClearResults drops the previous result set before a new fetch starts
func (s *Session) ClearResults() {
	s.Results = models.ResultSet{}
	s.FetchedAt = nil
	s.LastDelivery = nil
}

// Fetched reports whether a fetch has completed, possibly with zero records
func (s *Session) Fetched() bool {
	return s.FetchedAt != nil
}

// Store persists sessions and their in-progress locks
type Store interface {
	// Create stores a new empty session
	Create(ctx context.Context, label string) (*Session, error)

	// Get returns a copy of the session with InProgress reflecting the lock
	Get(ctx context.Context, id string) (*Session, error)

	// Save overwrites an existing session
	Save(ctx context.Context, s *Session) error

	// Delete removes the session and its lock
	Delete(ctx context.Context, id string) error

	// Acquire takes the session's in-progress lock. The returned function
	// releases it and is safe to call more than once.
	Acquire(ctx context.Context, id string) (release func(), err error)

	// List returns all sessions (for monitoring)
	List(ctx context.Context) ([]*Session, error)

	// Cleanup removes sessions not updated within maxAge
	Cleanup(ctx context.Context, maxAge time.Duration) error

	// Ping reports whether the backing store is reachable
	Ping(ctx context.Context) error

	Close() error
}

// NewStore builds the store selected by session.store
func NewStore(cfg *config.Config) (Store, error) {
	switch cfg.Session.Store {
	case "", "memory":
		return NewInMemoryStore(), nil
	case "redis":
		return NewRedisStore(cfg)
	default:
		return nil, fmt.Errorf("unsupported session store: %s", cfg.Session.Store)
	}
}
