package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/edushield/edushield/pkg/contextkeys"
)

// CorrelationHeader is the request/response correlation header
const CorrelationHeader = "X-Correlation-Id"

// newCorrelationID generates a 32-character lowercase hex identifier
func newCorrelationID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Correlation tags every request with a correlation identifier: the inbound
// header value when present and non-blank, a generated one otherwise. The
// identifier is always echoed on the response and bound to the context
// together with the request start time.
func (g *Gate) Correlation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := strings.TrimSpace(r.Header.Get(CorrelationHeader))
		if correlationID == "" {
			correlationID = newCorrelationID()
		}

		w.Header().Set(CorrelationHeader, correlationID)

		ctx := contextkeys.WithCorrelationID(r.Context(), correlationID)
		ctx = contextkeys.WithRequestStartTime(ctx, time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
