package request

import (
	"context"
	"net/http"
	"strings"

	"github.com/benvon/smart-bookmarks/internal/models"
	"github.com/google/uuid"
)

type contextKey string

const userContextKey contextKey = "user"

// UserContextKey returns the context key used for the user. Exposed for tests that inject non-user values.
func UserContextKey() contextKey { return userContextKey }

// ClientIP extracts the client IP from the request, respecting X-Forwarded-For and X-Real-IP.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return r.RemoteAddr
}

// WithUser returns a context with the authenticated user attached.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext returns the user from the request context, or nil if missing or wrong type.
func UserFromContext(r *http.Request) *models.User {
	u, _ := r.Context().Value(userContextKey).(*models.User)
	return u
}

// UserID returns the authenticated user's ID
func UserID(r *http.Request) (uuid.UUID, bool) {
	u := UserFromContext(r)
	if u == nil {
		return uuid.Nil, false
	}
	return u.ID, true
}

// LimitKey identifies the caller for rate limiting: the user when authenticated, else the client IP.
func LimitKey(r *http.Request) string {
	if id, ok := UserID(r); ok {
		return "user:" + id.String()
	}
	return "ip:" + ClientIP(r)
}
