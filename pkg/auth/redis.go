package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	sessionKeyPrefix   = "session:token:"
	userIndexKeyPrefix = "session:user:"

	// redisRetentionSlack keeps expired sessions readable for a grace period
	// so lazy validation can distinguish "expired" from "not found" before
	// Redis drops the key entirely.
	redisRetentionSlack = time.Hour
)

// RedisStore implements SessionStore over Redis. Each session is a JSON
// value keyed by token with a TTL slightly past its expiry; a per-user set
// indexes tokens for InvalidateAllSessions.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed session store
func NewRedisStore(client *redis.Client) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &RedisStore{client: client}, nil
}

// storedSession mirrors Session for Redis serialization; the token must be
// persisted here because Session excludes it from JSON.
type storedSession struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Active    bool      `json:"active"`
}

func toStored(s *Session) *storedSession {
	return &storedSession{
		ID:        s.ID,
		UserID:    s.UserID,
		Token:     s.Token,
		IssuedAt:  s.IssuedAt,
		ExpiresAt: s.ExpiresAt,
		IPAddress: s.IPAddress,
		UserAgent: s.UserAgent,
		Active:    s.Active,
	}
}

func (ss *storedSession) toSession() *Session {
	return &Session{
		ID:        ss.ID,
		UserID:    ss.UserID,
		Token:     ss.Token,
		IssuedAt:  ss.IssuedAt,
		ExpiresAt: ss.ExpiresAt,
		IPAddress: ss.IPAddress,
		UserAgent: ss.UserAgent,
		Active:    ss.Active,
	}
}

func sessionTTL(expiresAt time.Time, now time.Time) time.Duration {
	ttl := expiresAt.Sub(now) + redisRetentionSlack
	if ttl < time.Minute {
		ttl = time.Minute
	}
	return ttl
}

func (s *RedisStore) write(ctx context.Context, session *Session) error {
	data, err := json.Marshal(toStored(session))
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ttl := sessionTTL(session.ExpiresAt, time.Now())
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+session.Token, data, ttl)
	pipe.SAdd(ctx, userIndexKeyPrefix+session.UserID, session.Token)
	pipe.Expire(ctx, userIndexKeyPrefix+session.UserID, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

func (s *RedisStore) Create(ctx context.Context, session *Session) error {
	return s.write(ctx, session)
}

func (s *RedisStore) GetByToken(ctx context.Context, token string) (*Session, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+token).Bytes()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var stored storedSession
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return stored.toSession(), nil
}

func (s *RedisStore) Update(ctx context.Context, session *Session) error {
	exists, err := s.client.Exists(ctx, sessionKeyPrefix+session.Token).Result()
	if err != nil {
		return fmt.Errorf("failed to check session existence: %w", err)
	}
	if exists == 0 {
		return ErrSessionNotFound
	}
	return s.write(ctx, session)
}

func (s *RedisStore) ListByUser(ctx context.Context, userID string) ([]*Session, error) {
	tokens, err := s.client.SMembers(ctx, userIndexKeyPrefix+userID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read user session index: %w", err)
	}

	var sessions []*Session
	for _, token := range tokens {
		session, err := s.GetByToken(ctx, token)
		if err == ErrSessionNotFound {
			// Key already aged out; drop the stale index entry.
			s.client.SRem(ctx, userIndexKeyPrefix+userID, token)
			continue
		}
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

func (s *RedisStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	// Redis TTLs age session keys out on their own; this sweep removes
	// sessions already past expiry and prunes stale index entries.
	var removed int64
	var cursor uint64

	for {
		keys, next, err := s.client.Scan(ctx, cursor, sessionKeyPrefix+"*", 100).Result()
		if err != nil {
			return removed, fmt.Errorf("failed to scan sessions: %w", err)
		}

		for _, key := range keys {
			data, err := s.client.Get(ctx, key).Bytes()
			if err == redis.Nil {
				continue
			}
			if err != nil {
				return removed, fmt.Errorf("failed to read session %s: %w", key, err)
			}

			var stored storedSession
			if err := json.Unmarshal(data, &stored); err != nil {
				continue
			}
			if stored.ExpiresAt.After(cutoff) {
				continue
			}

			pipe := s.client.TxPipeline()
			pipe.Del(ctx, key)
			pipe.SRem(ctx, userIndexKeyPrefix+stored.UserID, stored.Token)
			if _, err := pipe.Exec(ctx); err != nil {
				return removed, fmt.Errorf("failed to delete session %s: %w", key, err)
			}
			removed++
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return removed, nil
}
