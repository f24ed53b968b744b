package request

import (
	"context"
	"net/http"
	"strings"

	"github.com/bacaltosclinic/portal-api/internal/models"
)

type contextKey string

const callerContextKey contextKey = "caller"

// CallerContextKey returns the context key used for the caller. Exposed for tests that inject non-caller values.
func CallerContextKey() contextKey { return callerContextKey }

// ClientIP extracts the client IP from the request, respecting X-Forwarded-For and X-Real-IP.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return r.RemoteAddr
}

// BearerToken extracts the bearer token from the Authorization header, or ""
// when the header is missing or malformed.
func BearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// WithCaller returns a context with the verified caller attached.
func WithCaller(ctx context.Context, caller *models.Caller) context.Context {
	return context.WithValue(ctx, callerContextKey, caller)
}

// CallerFromContext returns the caller from the request context, or nil if missing or wrong type.
func CallerFromContext(r *http.Request) *models.Caller {
	c, _ := r.Context().Value(callerContextKey).(*models.Caller)
	return c
}
