package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/edushield/edushield/pkg/observability"
)

// DefaultSessionTTL is the session lifetime used when no TTL is supplied
const DefaultSessionTTL = 8 * time.Hour

// SessionManager creates, validates, extends, and revokes sessions. It holds
// no in-process mutable state; all session state lives in the store.
type SessionManager struct {
	store         SessionStore
	defaultTTL    time.Duration
	allowMultiple bool
	logger        *observability.Logger
}

// SessionManagerOption configures a SessionManager
type SessionManagerOption func(*SessionManager)

// WithDefaultTTL overrides the default session lifetime
func WithDefaultTTL(ttl time.Duration) SessionManagerOption {
	return func(sm *SessionManager) {
		if ttl > 0 {
			sm.defaultTTL = ttl
		}
	}
}

// WithAllowMultipleSessions controls whether a user may hold concurrent
// sessions. When disabled, creating a session revokes the user's others.
func WithAllowMultipleSessions(allow bool) SessionManagerOption {
	return func(sm *SessionManager) {
		sm.allowMultiple = allow
	}
}

// NewSessionManager creates a session manager over the given store
func NewSessionManager(store SessionStore, logger *observability.Logger, opts ...SessionManagerOption) *SessionManager {
	sm := &SessionManager{
		store:         store,
		defaultTTL:    DefaultSessionTTL,
		allowMultiple: true,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(sm)
	}
	return sm
}

// CreateSession issues a new session for the user. ttl of zero means the
// configured default. Fails only if the store write fails.
func (sm *SessionManager) CreateSession(ctx context.Context, userID, ip, userAgent string, ttl time.Duration) (*Session, error) {
	if !sm.allowMultiple {
		if err := sm.InvalidateAllSessions(ctx, userID); err != nil {
			return nil, fmt.Errorf("failed to revoke prior sessions: %w", err)
		}
	}

	token, err := GenerateToken()
	if err != nil {
		return nil, err
	}

	if ttl <= 0 {
		ttl = sm.defaultTTL
	}

	now := time.Now()
	session := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     token,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
		IPAddress: ip,
		UserAgent: userAgent,
		Active:    true,
	}

	if err := sm.store.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	sm.logger.WithFields(map[string]interface{}{
		"session_id": session.ID,
		"user_id":    userID,
	}).Debug("session created")

	return session, nil
}

// GetSession retrieves a session by token with no side effects
func (sm *SessionManager) GetSession(ctx context.Context, token string) (*Session, error) {
	return sm.store.GetByToken(ctx, token)
}

// ValidateSession reports whether a valid session exists for the token.
// Expiry is checked lazily at read time. The error is non-nil only for
// store failures, never for a merely invalid session.
func (sm *SessionManager) ValidateSession(ctx context.Context, token string) (bool, error) {
	session, err := sm.store.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}
	return session.Valid(time.Now()), nil
}

// ResolveSession retrieves the session for the token and classifies its
// state: ErrSessionNotFound, ErrSessionInactive, or ErrSessionExpired on
// failure, the valid session otherwise.
func (sm *SessionManager) ResolveSession(ctx context.Context, token string) (*Session, error) {
	session, err := sm.store.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !session.Active {
		return nil, ErrSessionInactive
	}
	if session.Expired(time.Now()) {
		return nil, ErrSessionExpired
	}
	return session, nil
}

// InvalidateSession revokes the session addressed by the token. Idempotent:
// invalidating an already-inactive or unknown session is a no-op success.
func (sm *SessionManager) InvalidateSession(ctx context.Context, token string) error {
	session, err := sm.store.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil
		}
		return err
	}
	if !session.Active {
		return nil
	}

	session.Active = false
	if err := sm.store.Update(ctx, session); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	sm.logger.WithField("session_id", session.ID).Debug("session invalidated")
	return nil
}

// InvalidateAllSessions revokes every session owned by the user. Used on
// account deactivation and explicit "log out everywhere".
func (sm *SessionManager) InvalidateAllSessions(ctx context.Context, userID string) error {
	sessions, err := sm.store.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	for _, session := range sessions {
		if !session.Active {
			continue
		}
		session.Active = false
		if err := sm.store.Update(ctx, session); err != nil {
			return fmt.Errorf("failed to revoke session %s: %w", session.ID, err)
		}
	}

	return nil
}

// ExtendSession pushes the session's expiry forward by the given duration.
// Silent no-op when the session is invalid or expired; extension never
// resurrects a dead session.
func (sm *SessionManager) ExtendSession(ctx context.Context, token string, extension time.Duration) error {
	session, err := sm.store.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil
		}
		return err
	}
	if !session.Valid(time.Now()) {
		return nil
	}

	session.ExpiresAt = session.ExpiresAt.Add(extension)
	if err := sm.store.Update(ctx, session); err != nil {
		return fmt.Errorf("failed to extend session: %w", err)
	}
	return nil
}

// SweepExpiredSessions removes expired sessions from the store. Scheduled
// externally; cleanup only, not a correctness requirement.
func (sm *SessionManager) SweepExpiredSessions(ctx context.Context) (int64, error) {
	removed, err := sm.store.DeleteExpired(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired sessions: %w", err)
	}
	if removed > 0 {
		sm.logger.WithField("removed", removed).Info("swept expired sessions")
	}
	return removed, nil
}
