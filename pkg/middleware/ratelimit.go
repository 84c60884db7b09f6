package middleware

import (
	"fmt"
	"math"
	"net/http"

	"github.com/edushield/edushield/pkg/contextkeys"
	"github.com/edushield/edushield/pkg/httputil"
	"github.com/edushield/edushield/pkg/observability"
	"github.com/edushield/edushield/pkg/ratelimit"
)

// RateLimit runs the admission check before any identity work. Rejections
// answer 429 with a Retry-After header carrying the remaining block in
// seconds and a plain-text body.
func (g *Gate) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.cfg.DevBypassEnabled {
			next.ServeHTTP(w, r)
			return
		}

		ip := httputil.ClientIP(r)
		key := ratelimit.ClientKey(ip, contextkeys.GetUserID(r.Context()))
		authEndpoint := g.limiter.IsAuthPath(r.URL.Path)

		decision := g.limiter.Allow(key, authEndpoint)

		endpointClass := "general"
		if authEndpoint {
			endpointClass = "auth"
		}

		if decision.Allowed {
			if g.metrics != nil {
				g.metrics.RateLimitAllowedTotal.WithLabelValues(endpointClass).Inc()
			}
			next.ServeHTTP(w, r)
			return
		}

		if g.metrics != nil {
			g.metrics.RateLimitBlockedTotal.WithLabelValues(endpointClass).Inc()
		}
		if err := g.sink.LogSecurityEvent(r.Context(), "RateLimitExceeded",
			fmt.Sprintf("client %s blocked on %s", key, r.URL.Path),
			"", ip, r.UserAgent()); err != nil {
			g.logger.WithError(err).Warn("failed to write rate limit audit event")
		}

		observability.FromContext(r.Context()).WithFields(map[string]interface{}{
			"client": key,
			"path":   r.URL.Path,
		}).Warn("rate limit exceeded")

		retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprintf(w, "Rate limit exceeded. Try again in %d seconds.\n", retryAfter)
	})
}
