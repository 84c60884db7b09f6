package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/edushield/edushield/pkg/auth"
	"github.com/edushield/edushield/pkg/authz"
	"github.com/edushield/edushield/pkg/contextkeys"
	"github.com/edushield/edushield/pkg/httputil"
	"github.com/edushield/edushield/pkg/observability"
	"github.com/edushield/edushield/pkg/school"
)

// ResourceLoader fetches the resource instance targeted by the request,
// typically by the mux path id
type ResourceLoader func(r *http.Request) (interface{}, error)

// RequireResource guards an id-scoped endpoint with the resource type's
// requirement. The target instance is loaded first, the engine consulted,
// and on allow the instance is bound to the context so the handler does not
// load it twice. Deny answers the canonical 403.
func (g *Gate) RequireResource(kind authz.ResourceKind, action authz.Action, load ResourceLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident := auth.IdentityFromContext(r.Context())
			if ident == nil {
				httputil.WriteUnauthorized(w)
				return
			}

			resource, err := load(r)
			if err != nil {
				if errors.Is(err, school.ErrNotFound) {
					httputil.WriteNotFoundError(w, "resource not found")
					return
				}
				// Lookup failure denies; it never falls through to an allow.
				observability.FromContext(r.Context()).WithError(err).
					WithField("resource", string(kind)).
					Error("authorization lookup failed")
				g.reportLookupFailure(r, ident, kind, err)
				httputil.WriteForbidden(w)
				return
			}

			decision := g.engine.Authorize(r.Context(), ident, kind, action, resource)
			if g.metrics != nil {
				g.metrics.AuthzDecisionsTotal.WithLabelValues(
					string(kind), decisionLabel(decision.Allowed), decision.Reason).Inc()
			}
			if !decision.Allowed {
				httputil.WriteForbidden(w)
				return
			}

			ctx := contextkeys.WithResource(r.Context(), resource)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole guards an endpoint behind a minimum role rank. Used for the
// list and create endpoints, which have no single target instance.
func (g *Gate) RequireRole(min auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident := auth.IdentityFromContext(r.Context())
			if ident == nil {
				httputil.WriteUnauthorized(w)
				return
			}
			if !ident.Role.AtLeast(min) {
				if err := g.sink.LogAuthorization(r.Context(), ident.UserID,
					r.URL.Path, "Access", false, authz.ReasonInsufficientPermissions); err != nil {
					g.logger.WithError(err).Warn("failed to write authorization audit event")
				}
				httputil.WriteForbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (g *Gate) reportLookupFailure(r *http.Request, ident *auth.Identity, kind authz.ResourceKind, err error) {
	reason := fmt.Sprintf("%s: %v", authz.ReasonError, err)
	if sinkErr := g.sink.LogAuthorization(r.Context(), ident.UserID,
		string(kind), "Access", false, reason); sinkErr != nil {
		g.logger.WithError(sinkErr).Warn("failed to write authorization audit event")
	}
	if g.metrics != nil {
		g.metrics.AuthzDecisionsTotal.WithLabelValues(
			string(kind), "deny", authz.ReasonError).Inc()
	}
}

func decisionLabel(allowed bool) string {
	if allowed {
		return "allow"
	}
	return "deny"
}
