package sessions

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps backend connectivity failures. These are fatal
// from the core's point of view and are never retried here.
var ErrRedisUnavailable = errors.New("redis unavailable")

// RedisStore is a Redis-backed session Store.
type RedisStore struct {
	redis redis.UniversalClient
	ttl   time.Duration
}

// NewRedisStore creates a session store on the given Redis client. Every
// Create and Update resets the record's expiry to ttl.
func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{redis: client, ttl: ttl}
}

// key returns the Redis key for a session: the hex form of the 128-bit id.
func (s *RedisStore) key(sessionID uuid.UUID) string {
	return hex.EncodeToString(sessionID[:])
}

// Create serializes data and writes it under the session id with a fresh TTL.
// An existing record under the same id is overwritten.
func (s *RedisStore) Create(ctx context.Context, sessionID uuid.UUID, data *Session) error {
	return s.set(ctx, sessionID, data)
}

// Read fetches and deserializes the session record. A missing or expired key
// yields (nil, nil). Reading does not touch the TTL.
func (s *RedisStore) Read(ctx context.Context, sessionID uuid.UUID) (*Session, error) {
	raw, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	session := &Session{}
	if err := json.Unmarshal(raw, session); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return session, nil
}

// Update has create semantics: full overwrite, full TTL reset. There is no
// partial-field update.
func (s *RedisStore) Update(ctx context.Context, sessionID uuid.UUID, data *Session) error {
	return s.set(ctx, sessionID, data)
}

// Delete removes the session. Deleting a missing session is a no-op.
func (s *RedisStore) Delete(ctx context.Context, sessionID uuid.UUID) error {
	if err := s.redis.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *RedisStore) set(ctx context.Context, sessionID uuid.UUID, data *Session) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(sessionID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
