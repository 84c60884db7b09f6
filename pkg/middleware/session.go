package middleware

import (
	"errors"
	"net/http"

	"github.com/edushield/edushield/pkg/auth"
	"github.com/edushield/edushield/pkg/contextkeys"
	"github.com/edushield/edushield/pkg/httputil"
	"github.com/edushield/edushield/pkg/observability"
)

// Session resolves the session from the auth cookie and binds the caller's
// identity to the request context. Paths on the skip list pass through
// untouched. Anything short of a valid session for an active user answers
// 401 with the canonical body.
func (g *Gate) Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.skipSession(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if ident := g.bypassIdentity(); ident != nil {
			ctx := auth.WithIdentity(r.Context(), ident)
			ctx = contextkeys.WithUserID(ctx, ident.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		cookie, err := r.Cookie(g.cfg.CookieName)
		if err != nil || cookie.Value == "" {
			g.reject(w, r, "missing session cookie", "SessionNotFound")
			return
		}
		token := cookie.Value

		if err := auth.ValidateTokenFormat(token); err != nil {
			g.reject(w, r, "malformed session token", "InvalidClaims")
			return
		}

		session, err := g.sessions.ResolveSession(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrSessionNotFound):
				g.reject(w, r, "unknown session token", "SessionNotFound")
			case errors.Is(err, auth.ErrSessionInactive):
				g.reject(w, r, "session revoked", "SessionInactive")
			case errors.Is(err, auth.ErrSessionExpired):
				g.reject(w, r, "session expired", "SessionExpired")
			default:
				// Store unavailable. Still a 401 outward; detail stays internal.
				observability.FromContext(r.Context()).WithError(err).
					Error("session store lookup failed")
				g.reject(w, r, "session lookup failed", "SessionNotFound")
			}
			return
		}

		user, err := g.users.GetByID(r.Context(), session.UserID)
		if err != nil {
			observability.FromContext(r.Context()).WithError(err).
				WithField("user_id", session.UserID).
				Error("failed to resolve session user")
			g.reject(w, r, "unknown session user", "SessionNotFound")
			return
		}
		if !user.Active {
			g.reject(w, r, "user deactivated", "UserDeactivated")
			return
		}

		if g.metrics != nil {
			g.metrics.SessionValidationsTotal.WithLabelValues("valid").Inc()
		}

		ident := &auth.Identity{
			UserID:      user.ID,
			DisplayName: user.DisplayName,
			Email:       user.Email,
			Role:        user.Role,
			SessionID:   session.ID,
			Token:       token,
		}
		ctx := auth.WithIdentity(r.Context(), ident)
		ctx = contextkeys.WithUserID(ctx, user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// reject answers the canonical 401 and records the refusal
func (g *Gate) reject(w http.ResponseWriter, r *http.Request, detail, result string) {
	if g.metrics != nil {
		g.metrics.SessionValidationsTotal.WithLabelValues(result).Inc()
	}
	if err := g.sink.LogAuthentication(r.Context(), "", "SessionValidation", false,
		result, httputil.ClientIP(r), r.UserAgent()); err != nil {
		g.logger.WithError(err).Warn("failed to write authentication audit event")
	}
	observability.FromContext(r.Context()).WithFields(map[string]interface{}{
		"path":   r.URL.Path,
		"detail": detail,
	}).Debug("request rejected: " + result)

	httputil.WriteUnauthorized(w)
}
