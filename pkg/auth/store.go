package auth

import (
	"context"
	"sync"
	"time"
)

// SessionStore is the durable record of issued sessions. Implementations own
// their concurrency control; the manager treats every mutation as a single
// atomic store operation.
type SessionStore interface {
	// Create persists a new session
	Create(ctx context.Context, session *Session) error

	// GetByToken retrieves a session by its opaque token.
	// Returns ErrSessionNotFound when no session exists for the token.
	GetByToken(ctx context.Context, token string) (*Session, error)

	// Update persists mutations to an existing session (revocation, extension)
	Update(ctx context.Context, session *Session) error

	// ListByUser returns all sessions owned by a user
	ListByUser(ctx context.Context, userID string) ([]*Session, error)

	// DeleteExpired removes sessions whose expiry predates the cutoff.
	// Hygiene only; lazy validation already rejects expired sessions.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// MemoryStore is an in-memory SessionStore for tests and development
type MemoryStore struct {
	mu      sync.RWMutex
	byToken map[string]*Session
}

// NewMemoryStore creates an empty in-memory session store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byToken: make(map[string]*Session),
	}
}

func (m *MemoryStore) Create(ctx context.Context, session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *session
	m.byToken[session.Token] = &cp
	return nil
}

func (m *MemoryStore) GetByToken(ctx context.Context, token string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byToken[token]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) Update(ctx context.Context, session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byToken[session.Token]; !ok {
		return ErrSessionNotFound
	}
	cp := *session
	m.byToken[session.Token] = &cp
	return nil
}

func (m *MemoryStore) ListByUser(ctx context.Context, userID string) ([]*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Session
	for _, s := range m.byToken {
		if s.UserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for token, s := range m.byToken {
		if !s.ExpiresAt.After(cutoff) {
			delete(m.byToken, token)
			removed++
		}
	}
	return removed, nil
}
