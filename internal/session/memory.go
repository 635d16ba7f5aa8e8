package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"gmaps-scraper/pkg/models"
)

// InMemoryStore implements Store using in-memory storage
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	locks    map[string]bool
	now      func() time.Time
}

// NewInMemoryStore creates a new in-memory session store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]*Session),
		locks:    make(map[string]bool),
		now:      time.Now,
	}
}

// Create stores a new empty session
func (s *InMemoryStore) Create(ctx context.Context, label string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	session := &Session{
		ID:        uuid.New().String(),
		Label:     label,
		Results:   models.ResultSet{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sessions[session.ID] = session

	copied := *session
	return &copied, nil
}

// Get returns a copy of the session
func (s *InMemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[id]
	if !exists {
		return nil, ErrSessionNotFound
	}

	copied := *session
	copied.InProgress = s.locks[id]
	return &copied, nil
}

// Save overwrites an existing session
func (s *InMemoryStore) Save(ctx context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; !exists {
		return ErrSessionNotFound
	}

	copied := *session
	copied.InProgress = false
	copied.UpdatedAt = s.now()
	s.sessions[session.ID] = &copied
	return nil
}

// Delete removes the session and its lock
func (s *InMemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[id]; !exists {
		return ErrSessionNotFound
	}

	delete(s.sessions, id)
	delete(s.locks, id)
	return nil
}

// Acquire takes the in-progress lock for the session
func (s *InMemoryStore) Acquire(ctx context.Context, id string) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[id]; !exists {
		return nil, ErrSessionNotFound
	}
	if s.locks[id] {
		return nil, ErrInProgress
	}
	s.locks[id] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.locks, id)
		})
	}, nil
}

// List returns all sessions ordered by creation time
func (s *InMemoryStore) List(ctx context.Context) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]*Session, 0, len(s.sessions))
	for id, session := range s.sessions {
		copied := *session
		copied.InProgress = s.locks[id]
		sessions = append(sessions, &copied)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions, nil
}

// Cleanup removes idle sessions. Locked sessions are kept.
func (s *InMemoryStore) Cleanup(ctx context.Context, maxAge time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxAge)
	for id, session := range s.sessions {
		if session.UpdatedAt.Before(cutoff) && !s.locks[id] {
			delete(s.sessions, id)
		}
	}
	return nil
}

// Ping always succeeds for the in-memory store
func (s *InMemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op
func (s *InMemoryStore) Close() error {
	return nil
}
