// Package ratelimit implements the per-client request limiter: a fixed
// 60-second counting window with a stricter sub-limit for authentication
// endpoints and a 15-minute block once either limit is breached.
//
// State is process-local and rebuilt from empty on restart. Distinct clients
// never contend: the client map is guarded only for lookup/insert, and all
// counter mutation is serialized by a lock scoped to the single entry.
package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Config defines the limiter's window, limits, and retention
type Config struct {
	// Window is the counting interval; counters reset wholesale when it elapses
	Window time.Duration
	// MaxRequests is the general per-window limit
	MaxRequests int
	// MaxAuthRequests is the stricter per-window limit for auth endpoints
	MaxAuthRequests int
	// BlockDuration is how long a client stays blocked after a breach
	BlockDuration time.Duration
	// IdleRetention is how long an idle, unblocked entry is kept in memory
	IdleRetention time.Duration
	// CleanupInterval is the period of the background eviction sweep
	CleanupInterval time.Duration
	// AuthPathPrefixes lists the path prefixes treated as auth endpoints
	AuthPathPrefixes []string
}

// DefaultConfig returns the standard limits: 60 requests/minute general,
// 10/minute on auth endpoints, 15-minute blocks, 1-hour idle retention.
func DefaultConfig() Config {
	return Config{
		Window:           time.Minute,
		MaxRequests:      60,
		MaxAuthRequests:  10,
		BlockDuration:    15 * time.Minute,
		IdleRetention:    time.Hour,
		CleanupInterval:  5 * time.Minute,
		AuthPathPrefixes: []string{"/api/v1/auth/"},
	}
}

// Decision is the outcome of a single admission check
type Decision struct {
	Allowed bool
	// RetryAfter is the remaining block duration when the request is rejected
	RetryAfter time.Duration
}

// clientCounter tracks one client's window. All fields are guarded by mu.
type clientCounter struct {
	mu               sync.Mutex
	requestCount     int
	authRequestCount int
	windowStart      time.Time
	blockUntil       time.Time
	lastSeen         time.Time
}

// Limiter is the process-wide client rate limiter. Construct once at server
// startup and inject where needed; it is safe for concurrent use.
type Limiter struct {
	cfg     Config
	mu      sync.RWMutex
	clients map[string]*clientCounter

	// now is swappable for tests
	now func() time.Time
}

// NewLimiter creates a limiter with the given configuration
func NewLimiter(cfg Config) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	return &Limiter{
		cfg:     cfg,
		clients: make(map[string]*clientCounter),
		now:     time.Now,
	}
}

/// ClientKey builds the limiter key for a caller: the remote IP, combined
// with the user ID once the caller is identified.
func ClientKey(ip, userID string) string {
	if userID == "" {
		return ip
	}
	return ip + ":" + userID
}

// IsAuthPath reports whether the path falls under an auth endpoint prefix
// (case-insensitive prefix match)
func (l *Limiter) IsAuthPath(path string) bool {
	lower := strings.ToLower(path)
	for _, prefix := range l.cfg.AuthPathPrefixes {
		if strings.HasPrefix(lower, strings.ToLower(prefix)) {
			return true
		}
	}
	return false
}

// Allow runs the admission check for one request from the client key.
// authEndpoint marks requests that count against the stricter auth limit.
func (l *Limiter) Allow(key string, authEndpoint bool) Decision {
	entry := l.entry(key)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := l.now()
	entry.lastSeen = now

	// An unexpired block rejects before any counter mutation.
	if now.Before(entry.blockUntil) {
		return Decision{Allowed: false, RetryAfter: entry.blockUntil.Sub(now)}
	}

	// Wholesale window reset. The block check above has already passed, so
	// clearing blockUntil here never shortens an active block.
	if now.Sub(entry.windowStart) > l.cfg.Window {
		entry.requestCount = 0
		entry.authRequestCount = 0
		entry.windowStart = now
		entry.blockUntil = time.Time{}
	}

	entry.requestCount++
	if authEndpoint {
		entry.authRequestCount++
	}

	if entry.requestCount > l.cfg.MaxRequests ||
		(authEndpoint && entry.authRequestCount > l.cfg.MaxAuthRequests) {
		entry.blockUntil = now.Add(l.cfg.BlockDuration)
		return Decision{Allowed: false, RetryAfter: l.cfg.BlockDuration}
	}

	return Decision{Allowed: true}
}

// entry returns the counter for the key, creating it lazily
func (l *Limiter) entry(key string) *clientCounter {
	l.mu.RLock()
	entry, ok := l.clients[key]
	l.mu.RUnlock()
	if ok {
		return entry
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if entry, ok = l.clients[key]; ok {
		return entry
	}
	entry = &clientCounter{windowStart: l.now()}
	l.clients[key] = entry
	return entry
}

// Size returns the number of tracked client entries
func (l *Limiter) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.clients)
}

// Cleanup evicts entries idle beyond the retention horizon and not currently
// blocked. Each candidate's own lock is taken before eviction so the sweep
// never races a concurrent request on the same entry.
func (l *Limiter) Cleanup() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, entry := range l.clients {
		entry.mu.Lock()
		stale := now.Sub(entry.lastSeen) > l.cfg.IdleRetention && !now.Before(entry.blockUntil)
		entry.mu.Unlock()
		if stale {
			delete(l.clients, key)
		}
	}
}

// StartCleanup runs the eviction sweep periodically until the context is
// cancelled. Tie the context to the server lifetime.
func (l *Limiter) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()
}
