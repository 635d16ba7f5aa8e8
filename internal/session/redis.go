package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"gmaps-scraper/internal/config"
	"gmaps-scraper/internal/logging"
	"gmaps-scraper/pkg/models"
)

const (
	keyPrefix  = "gmaps:session:"
	lockSuffix = ":lock"
)

// releaseScript deletes the lock only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore implements Store on Redis. Sessions are JSON documents that
// expire after the configured TTL; the in-progress flag is a separate key.
type RedisStore struct {
	client  *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
	logger  logging.Logger
}

// NewRedisStore creates a new Redis backed session store
func NewRedisStore(cfg *config.Config) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}

	timeout := cfg.Redis.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	opts.DialTimeout = timeout
	opts.ReadTimeout = timeout
	opts.WriteTimeout = timeout

	return newRedisStore(redis.NewClient(opts), cfg.Session.TTL, cfg.Server.LongTimeout), nil
}

func newRedisStore(client *redis.Client, ttl, lockTTL time.Duration) *RedisStore {
	if lockTTL <= 0 {
		lockTTL = time.Hour
	}
	return &RedisStore{
		client:  client,
		ttl:     ttl,
		lockTTL: lockTTL,
		logger:  logging.GetGlobalLogger().WithField(logging.FieldComponent, "session_store"),
	}
}

func sessionKey(id string) string {
	return keyPrefix + id
}

func lockKey(id string) string {
	return keyPrefix + id + lockSuffix
}

// Create stores a new empty session
func (s *RedisStore) Create(ctx context.Context, label string) (*Session, error) {
	now := time.Now()
	session := &Session{
		ID:        uuid.New().String(),
		Label:     label,
		Results:   models.ResultSet{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	data, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}

	ok, err := s.client.SetNX(ctx, sessionKey(session.ID), data, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("session %s already exists", session.ID)
	}

	return session, nil
}

// Get loads the session and reports whether its lock is held
func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	session, err := decodeSession(data)
	if err != nil {
		return nil, err
	}

	locked, err := s.client.Exists(ctx, lockKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to check session lock: %w", err)
	}
	session.InProgress = locked > 0

	return session, nil
}

// Save overwrites an existing session and refreshes its TTL
func (s *RedisStore) Save(ctx context.Context, session *Session) error {
	copied := *session
	copied.InProgress = false
	copied.UpdatedAt = time.Now()

	data, err := json.Marshal(&copied)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ok, err := s.client.SetXX(ctx, sessionKey(session.ID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	if !ok {
		return ErrSessionNotFound
	}
	return nil
}

// Delete removes the session and its lock
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	removed, err := s.client.Del(ctx, sessionKey(id), lockKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if removed == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Acquire takes the lock with SET NX. The lock expires on its own if the
// process dies before releasing it.
func (s *RedisStore) Acquire(ctx context.Context, id string) (func(), error) {
	exists, err := s.client.Exists(ctx, sessionKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to check session: %w", err)
	}
	if exists == 0 {
		return nil, ErrSessionNotFound
	}

	token := uuid.New().String()
	ok, err := s.client.SetNX(ctx, lockKey(id), token, s.lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire session lock: %w", err)
	}
	if !ok {
		return nil, ErrInProgress
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// the caller's context may already be cancelled
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := releaseScript.Run(releaseCtx, s.client, []string{lockKey(id)}, token).Err(); err != nil {
				s.logger.WithError(err).Error("Failed to release session lock", map[string]interface{}{
					logging.FieldSessionID: id,
				})
			}
		})
	}, nil
}

// List returns all sessions ordered by creation time
func (s *RedisStore) List(ctx context.Context) ([]*Session, error) {
	var sessions []*Session

	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if strings.HasSuffix(key, lockSuffix) {
			continue
		}

		session, err := s.Get(ctx, strings.TrimPrefix(key, keyPrefix))
		if err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				continue // expired between SCAN and GET
			}
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions, nil
}

// Cleanup is handled by key expiry
func (s *RedisStore) Cleanup(ctx context.Context, maxAge time.Duration) error {
	return nil
}

// Ping tests the Redis connection
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// decodeSession keeps numbers in the stored results as json.Number so values
// read back match what the scraping API returned
func decodeSession(data []byte) (*Session, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var session Session
	if err := dec.Decode(&session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if session.Results == nil {
		session.Results = models.ResultSet{}
	}
	return &session, nil
}
