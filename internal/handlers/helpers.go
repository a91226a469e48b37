package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	logpkg "github.com/benvon/smart-bookmarks/internal/logger"
	"github.com/benvon/smart-bookmarks/internal/models"
	"github.com/benvon/smart-bookmarks/internal/validation"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// maxErrorMessageLength caps messages returned to clients
const maxErrorMessageLength = 200

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// sanitizeErrorMessage truncates long messages
func sanitizeErrorMessage(message string) string {
	if len(message) > maxErrorMessageLength {
		return message[:maxErrorMessageLength] + "..."
	}
	return message
}

// respondJSONError sends an error JSON response with sanitized error messages
func respondJSONError(w http.ResponseWriter, status int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   false,
		"error":     errorType,
		"message":   sanitizeErrorMessage(message),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// statusFor maps a domain error kind to its HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrInvalidTransition), errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as an envelope. Errors without a client message are logged
// and reported as a generic internal error.
func respondError(w http.ResponseWriter, r *http.Request, err error, logger *zap.Logger) {
	status := statusFor(err)
	msg, ok := models.ErrorMessage(err)
	if !ok || status == http.StatusInternalServerError {
		if logger != nil {
			logger.Error("request_failed",
				zap.String("method", r.Method),
				zap.String("path", logpkg.SanitizePath(r.URL.Path)),
				zap.String("error", logpkg.SanitizeError(err)),
			)
		}
		respondJSONError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), "An unexpected error occurred")
		return
	}
	respondJSONError(w, status, http.StatusText(status), msg)
}

// decodeJSON strictly decodes the body into dst and validates it.
// It writes a 400 response and returns false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		msg := "Invalid request body"
		if !errors.Is(err, io.EOF) {
			msg = fmt.Sprintf("Invalid request body: %s", err.Error())
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", msg)
		return false
	}
	if err := validation.Validate.Struct(dst); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Validation Error", validationMessage(err))
		return false
	}
	return true
}

// validationMessage renders validator errors as "field: rule" pairs
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		parts = append(parts, fmt.Sprintf("%s: %s", strings.ToLower(fe.Field()), rule))
	}
	return "Validation failed: " + strings.Join(parts, ", ")
}

// pathUUID parses the {id} route variable. It writes a 400 response and returns false on failure.
func pathUUID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid ID format")
		return uuid.Nil, false
	}
	return id, true
}

// sanitizedText applies validation.SanitizeText to an optional field
func sanitizedText(s *string) *string {
	if s == nil {
		return nil
	}
	v := validation.SanitizeText(*s)
	return &v
}
