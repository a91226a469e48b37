package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	logpkg "github.com/benvon/smart-bookmarks/internal/logger"
	"github.com/benvon/smart-bookmarks/internal/models"
	"github.com/benvon/smart-bookmarks/internal/request"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenVerifier validates bearer tokens
type TokenVerifier interface {
	Verify(token string) (*models.AccessClaims, error)
}

// UserLoader loads the user a token was issued to
type UserLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// UserFromContext extracts the user from the request context
func UserFromContext(r *http.Request) *models.User {
	return request.UserFromContext(r)
}

// Auth creates authentication middleware that validates JWT bearer tokens.
// The token's user is reloaded on every request so status changes apply immediately.
func Auth(tokens TokenVerifier, users UserLoader, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondErrorJSON(w, r, http.StatusUnauthorized, "Unauthorized", "Missing Authorization header", logger)
				return
			}

			scheme, tokenString, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tokenString) == "" {
				respondErrorJSON(w, r, http.StatusUnauthorized, "Unauthorized", "Invalid Authorization header format", logger)
				return
			}

			claims, err := tokens.Verify(strings.TrimSpace(tokenString))
			if err != nil {
				logger.Debug("token_verification_failed",
					zap.String("path", logpkg.SanitizePath(r.URL.Path)),
					zap.String("error", logpkg.SanitizeError(err)),
				)
				respondErrorJSON(w, r, http.StatusUnauthorized, "Unauthorized", "Invalid or expired token", logger)
				return
			}

			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				respondErrorJSON(w, r, http.StatusUnauthorized, "Unauthorized", "Invalid or expired token", logger)
				return
			}

			user, err := users.GetByID(r.Context(), userID)
			switch {
			case errors.Is(err, models.ErrNotFound):
				respondErrorJSON(w, r, http.StatusUnauthorized, "Unauthorized", "User no longer exists", logger)
				return
			case err != nil:
				logger.Error("auth_user_lookup_failed",
					zap.String("user_id", logpkg.SanitizeUserID(claims.Subject)),
					zap.String("error", logpkg.SanitizeError(err)),
				)
				respondErrorJSON(w, r, http.StatusInternalServerError, "Internal Server Error", "Database error", logger)
				return
			}

			if user.Status != models.UserStatusActive {
				respondErrorJSON(w, r, http.StatusUnauthorized, "Unauthorized", "User account is not active", logger)
				return
			}

			r = r.WithContext(request.WithUser(r.Context(), user))
			recordUser(w, r)
			next.ServeHTTP(w, r)
		})
	}
}
