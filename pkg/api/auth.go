package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/edushield/edushield/pkg/auth"
	"github.com/edushield/edushield/pkg/httputil"
	"github.com/edushield/edushield/pkg/observability"
	"github.com/edushield/edushield/pkg/school"
	"github.com/edushield/edushield/pkg/sso"
)

// stateCookieName carries the OAuth CSRF state across the redirect
const stateCookieName = "EduShield.OAuthState"

// handleLogin starts the OAuth2 flow: set the state cookie and redirect to
// the provider's authorize URL
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.provider == nil || !s.provider.Enabled() {
		httputil.WriteErrorMessage(w, http.StatusServiceUnavailable, "login is not configured")
		return
	}

	state, err := sso.GenerateState()
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("failed to generate login state")
		httputil.WriteInternalError(w, errors.New("login unavailable"))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Auth.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(10 * time.Minute),
	})

	http.Redirect(w, r, s.provider.AuthCodeURL(state), http.StatusFound)
}

// handleCallback completes the OAuth2 flow: state check, code exchange,
// userinfo fetch, user upsert, session issue, auth cookie set
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	logger := observability.FromContext(r.Context())
	ip := httputil.ClientIP(r)
	userAgent := r.UserAgent()

	if s.provider == nil || !s.provider.Enabled() {
		httputil.WriteErrorMessage(w, http.StatusServiceUnavailable, "login is not configured")
		return
	}

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		s.auditAuth(r, "", "Login", false, "state mismatch", ip, userAgent)
		httputil.WriteErrorMessage(w, http.StatusBadRequest, "invalid login state")
		return
	}
	clearCookie(w, stateCookieName, s.cfg.Auth.CookieSecure)

	code := r.URL.Query().Get("code")
	if code == "" {
		httputil.WriteErrorMessage(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	token, err := s.provider.Exchange(r.Context(), code)
	if err != nil {
		logger.WithError(err).Warn("authorization code exchange failed")
		s.auditAuth(r, "", "Login", false, "code exchange failed", ip, userAgent)
		httputil.WriteErrorMessage(w, http.StatusBadGateway, "login failed")
		return
	}

	info, err := s.provider.FetchUserInfo(r.Context(), token)
	if err != nil {
		logger.WithError(err).Warn("userinfo fetch failed")
		s.auditAuth(r, "", "Login", false, "userinfo fetch failed", ip, userAgent)
		httputil.WriteErrorMessage(w, http.StatusBadGateway, "login failed")
		return
	}

	user, err := s.resolveUser(r, info)
	if err != nil {
		logger.WithError(err).Error("failed to resolve login user")
		httputil.WriteInternalError(w, errors.New("login failed"))
		return
	}
	if !user.Active {
		s.auditAuth(r, user.ID, "Login", false, "UserDeactivated", ip, userAgent)
		httputil.WriteForbidden(w)
		return
	}

	session, err := s.sessions.CreateSession(r.Context(), user.ID, ip, userAgent, s.cfg.Auth.SessionTimeout)
	if err != nil {
		logger.WithError(err).Error("failed to create session")
		httputil.WriteInternalError(w, errors.New("login failed"))
		return
	}
	if s.metrics != nil {
		s.metrics.SessionsCreatedTotal.Inc()
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.Auth.CookieName,
		Value:    session.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Auth.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(s.cfg.Auth.SessionTimeout),
	})

	s.auditAuth(r, user.ID, "Login", true, "", ip, userAgent)
	http.Redirect(w, r, "/", http.StatusFound)
}

// resolveUser finds the account for the provider identity, provisioning a
// Student-role account on first login and refreshing name/email on return
func (s *Server) resolveUser(r *http.Request, info *sso.UserInfo) (*school.User, error) {
	user, err := s.repos.Users.GetByExternalID(r.Context(), info.Subject)
	if err != nil && !errors.Is(err, school.ErrNotFound) {
		return nil, err
	}

	if user == nil {
		user = &school.User{
			ID:         uuid.NewString(),
			ExternalID: info.Subject,
			Role:       auth.RoleStudent,
			Active:     true,
			CreatedAt:  time.Now(),
		}
	}
	user.DisplayName = info.Name
	user.Email = info.Email

	if err := s.repos.Users.Upsert(r.Context(), user); err != nil {
		return nil, err
	}
	return user, nil
}

// handleLogout revokes the caller's session and clears the auth cookie.
// Idempotent: logging out without a live session still succeeds.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ident := auth.IdentityFromContext(r.Context())
	if ident == nil {
		httputil.WriteUnauthorized(w)
		return
	}

	if err := s.sessions.InvalidateSession(r.Context(), ident.Token); err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("failed to invalidate session")
		httputil.WriteInternalError(w, errors.New("logout failed"))
		return
	}
	if s.metrics != nil {
		s.metrics.SessionsInvalidatedTotal.Inc()
	}

	clearCookie(w, s.cfg.Auth.CookieName, s.cfg.Auth.CookieSecure)
	s.auditAuth(r, ident.UserID, "Logout", true, "", httputil.ClientIP(r), r.UserAgent())
	httputil.WriteSuccess(w, map[string]string{"status": "logged out"})
}

func (s *Server) auditAuth(r *http.Request, userID, action string, success bool, failure, ip, userAgent string) {
	if err := s.gate.Sink().LogAuthentication(r.Context(), userID, action, success, failure, ip, userAgent); err != nil {
		s.logger.WithError(err).Warn("failed to write authentication audit event")
	}
}

func clearCookie(w http.ResponseWriter, name string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
