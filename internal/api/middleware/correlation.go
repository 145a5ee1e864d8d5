package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const correlationIDKey contextKey = "correlation_id"

// correlationHeaders are read in order; the first non-empty value wins.
var correlationHeaders = []string{"X-Correlation-ID", "X-Request-ID"}

// CorrelationID takes the caller's correlation ID from X-Correlation-ID or
// X-Request-ID, generating a UUID when neither is set. The value is stored on
// the request context and echoed back as X-Correlation-ID so producers can
// match a queued job to the log lines of the request that enqueued it.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		for _, h := range correlationHeaders {
			if id = r.Header.Get(h); id != "" {
				break
			}
		}
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Correlation-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), correlationIDKey, id)))
	})
}

// GetCorrelationID returns "" when the middleware was not applied.
func GetCorrelationID(ctx context.Context) string {
	v, _ := ctx.Value(correlationIDKey).(string)
	return v
}
