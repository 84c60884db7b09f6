package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edushield/edushield/pkg/audit"
	"github.com/edushield/edushield/pkg/auth"
	"github.com/edushield/edushield/pkg/authz"
	"github.com/edushield/edushield/pkg/observability"
	"github.com/edushield/edushield/pkg/ratelimit"
	"github.com/edushield/edushield/pkg/school"
)

const unauthorizedBody = `{"error":"Unauthorized","message":"Authentication required"}`
const forbiddenBody = `{"error":"Access forbidden"}`

// fakeUserRepo serves a fixed user set
type fakeUserRepo struct {
	users map[string]*school.User
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*school.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, school.ErrNotFound
}

func (f *fakeUserRepo) GetByExternalID(_ context.Context, externalID string) (*school.User, error) {
	for _, u := range f.users {
		if u.ExternalID == externalID {
			return u, nil
		}
	}
	return nil, school.ErrNotFound
}

func (f *fakeUserRepo) Upsert(_ context.Context, user *school.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) SetActive(_ context.Context, id string, active bool) error {
	if u, ok := f.users[id]; ok {
		u.Active = active
		return nil
	}
	return school.ErrNotFound
}

type gateFixture struct {
	gate     *Gate
	sessions *auth.SessionManager
	users    *fakeUserRepo
	limiter  *ratelimit.Limiter
}

func newGateFixture(t *testing.T, cfg GateConfig) *gateFixture {
	t.Helper()
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	sessions := auth.NewSessionManager(auth.NewMemoryStore(), logger)
	users := &fakeUserRepo{users: map[string]*school.User{
		"user-1": {ID: "user-1", DisplayName: "Pat Example", Email: "pat@example.edu",
			Role: auth.RoleStudent, Active: true},
		"user-gone": {ID: "user-gone", Role: auth.RoleStudent, Active: false},
	}}
	limiter := ratelimit.NewLimiter(ratelimit.DefaultConfig())
	engine := authz.NewEngine(audit.NopSink{}, logger)

	if cfg.CookieName == "" {
		cfg.CookieName = "EduShield.Auth"
	}

	return &gateFixture{
		gate:     NewGate(cfg, limiter, sessions, users, engine, audit.NopSink{}, nil, logger),
		sessions: sessions,
		users:    users,
		limiter:  limiter,
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func (f *gateFixture) login(t *testing.T, userID string) *http.Cookie {
	t.Helper()
	session, err := f.sessions.CreateSession(context.Background(), userID, "", "", time.Hour)
	require.NoError(t, err)
	return &http.Cookie{Name: "EduShield.Auth", Value: session.Token}
}

func TestCorrelationGeneratesID(t *testing.T) {
	f := newGateFixture(t, GateConfig{})

	var seen string
	handler := f.gate.Correlation(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = w.Header().Get(CorrelationHeader)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/students", nil))

	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}$`), seen)
	assert.Equal(t, seen, rec.Header().Get(CorrelationHeader))
}

func TestCorrelationEchoesInbound(t *testing.T) {
	f := newGateFixture(t, GateConfig{})

	handler := f.gate.Correlation(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/students", nil)
	req.Header.Set(CorrelationHeader, "client-supplied-id")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "client-supplied-id", rec.Header().Get(CorrelationHeader))
}

func TestSessionMissingCookie(t *testing.T) {
	f := newGateFixture(t, GateConfig{})

	handler := f.gate.Session(okHandler())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/students", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, unauthorizedBody, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestSessionSkipList(t *testing.T) {
	f := newGateFixture(t, GateConfig{})
	handler := f.gate.Session(okHandler())

	for _, path := range []string{
		"/api/v1/health",
		"/api/v1/auth/login",
		"/API/V1/AUTH/CALLBACK",
		"/swagger/index.html",
		"/favicon.ico",
	} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, "path %s should bypass session validation", path)
	}
}

func TestSessionBindsIdentity(t *testing.T) {
	f := newGateFixture(t, GateConfig{})

	var bound *auth.Identity
	handler := f.gate.Session(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bound = auth.IdentityFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/students", nil)
	req.AddCookie(f.login(t, "user-1"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, bound)
	assert.Equal(t, "user-1", bound.UserID)
	assert.Equal(t, "Pat Example", bound.DisplayName)
	assert.Equal(t, auth.RoleStudent, bound.Role)
	assert.NotEmpty(t, bound.SessionID)
}

func TestSessionRejectsRevokedSession(t *testing.T) {
	f := newGateFixture(t, GateConfig{})

	cookie := f.login(t, "user-1")
	require.NoError(t, f.sessions.InvalidateSession(context.Background(), cookie.Value))

	handler := f.gate.Session(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/students", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, unauthorizedBody, rec.Body.String())
}

func TestSessionRejectsDeactivatedUser(t *testing.T) {
	f := newGateFixture(t, GateConfig{})

	handler := f.gate.Session(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/students", nil)
	req.AddCookie(f.login(t, "user-gone"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionRejectsMalformedToken(t *testing.T) {
	f := newGateFixture(t, GateConfig{})

	handler := f.gate.Session(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/students", nil)
	req.AddCookie(&http.Cookie{Name: "EduShield.Auth", Value: "garbage"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, unauthorizedBody, rec.Body.String())
}

func TestDevBypass(t *testing.T) {
	f := newGateFixture(t, GateConfig{
		DevBypassEnabled: true,
		DevBypassUserID:  "dev-user",
		DevBypassRole:    auth.RoleSystemAdmin,
	})

	var bound *auth.Identity
	handler := f.gate.Session(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bound = auth.IdentityFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/students", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, bound)
	assert.Equal(t, "dev-user", bound.UserID)
	assert.Equal(t, auth.RoleSystemAdmin, bound.Role)
}

func TestDevBypassUnreachableWhenDisabled(t *testing.T) {
	f := newGateFixture(t, GateConfig{
		DevBypassEnabled: false,
		DevBypassUserID:  "dev-user",
		DevBypassRole:    auth.RoleSystemAdmin,
	})

	handler := f.gate.Session(okHandler())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/students", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimitRejectsWithRetryAfter(t *testing.T) {
	f := newGateFixture(t, GateConfig{})
	handler := f.gate.RateLimit(okHandler())

	req := func() *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/students", nil)
		r.RemoteAddr = "203.0.113.7:55123"
		return r
	}

	for i := 0; i < 60; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req())
		require.Equal(t, http.StatusOK, rec.Code, "request %d should pass", i+1)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req())
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "900", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.NotEmpty(t, rec.Body.String())
}

func TestRateLimitAuthEndpointsStricter(t *testing.T) {
	f := newGateFixture(t, GateConfig{})
	handler := f.gate.RateLimit(okHandler())

	req := func() *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		r.RemoteAddr = "203.0.113.8:55123"
		return r
	}

	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req())
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req())
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
