package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/procurement-backend/pkg/logger"
)

const (
	// RequestIDHeader carries the correlation id in both directions.
	RequestIDHeader = "X-Request-Id"
	traceParent     = "Traceparent"
	maxRequestIDLen = 128
)

// RequestID picks the correlation id for a request: the caller's
// X-Request-Id, then the trace id of a W3C traceparent, then a fresh uuid.
// The id is echoed on the response and tagged on every log line.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := requestID(r.Header)
			w.Header().Set(RequestIDHeader, id)
			if logg != nil {
				r = r.WithContext(logg.WithRequestID(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestID(h http.Header) string {
	if id := h.Get(RequestIDHeader); printable(id) {
		return id
	}
	if id, ok := traceID(h.Get(traceParent)); ok {
		return id
	}
	return uuid.NewString()
}

// traceID extracts the 32 hex trace id from "00-<trace>-<span>-<flags>".
// The all-zero id is invalid.
func traceID(header string) (string, bool) {
	parts := strings.Split(strings.TrimSpace(header), "-")
	if len(parts) != 4 || len(parts[1]) != 32 {
		return "", false
	}
	id := strings.ToLower(parts[1])
	if strings.Trim(id, "0") == "" || strings.Trim(id, "0123456789abcdef") != "" {
		return "", false
	}
	return id, true
}

func printable(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	return !strings.ContainsFunc(id, func(c rune) bool { return c <= ' ' || c > '~' })
}
