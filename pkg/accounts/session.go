package accounts

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const sessionKeyPrefix = "session:"

// DefaultSessionTTL is how long a session lives without a refresh
const DefaultSessionTTL = 7 * 24 * time.Hour

// SessionStore keeps opaque session tokens in Redis with a TTL
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore creates a session store. A zero ttl uses DefaultSessionTTL.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{client: client, ttl: ttl}
}

// Create issues a new session token for a user
func (s *SessionStore) Create(ctx context.Context, userID int64) (string, error) {
	token := uuid.New().String()
	key := sessionKeyPrefix + token

	if err := s.client.Set(ctx, key, strconv.FormatInt(userID, 10), s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return token, nil
}

// Get resolves a token to a user ID and slides the expiry forward
func (s *SessionStore) Get(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, ErrSessionNotFound
	}
	key := sessionKeyPrefix + token

	value, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return 0, ErrSessionNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get session: %w", err)
	}

	userID, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		// Corrupt entries are dropped rather than served
		s.client.Del(ctx, key)
		return 0, ErrSessionNotFound
	}

	s.client.Expire(ctx, key, s.ttl)
	return userID, nil
}

// Delete revokes a session token. Deleting an unknown token is not an error.
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// TTL returns the configured session lifetime
func (s *SessionStore) TTL() time.Duration {
	return s.ttl
}
