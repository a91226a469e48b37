package nlp

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
)

// APIError represents an error returned by a remote classifier
type APIError struct {
	Message     string
	Type        string
	Code        string
	StatusCode  int
	IsPermanent bool // quota exhaustion; retrying will not help
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d, type %s): %s", e.StatusCode, e.Type, e.Message)
}

// IsRateLimitError checks if an error is a transient rate limit error
func IsRateLimitError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests && !apiErr.IsPermanent
	}
	return false
}

// IsQuotaError checks if an error is a quota exhaustion error
func IsQuotaError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsPermanent || apiErr.Code == "insufficient_quota"
	}
	return false
}

// ExtractAPIError converts an OpenAI SDK error into an APIError, or returns nil
func ExtractAPIError(err error) *APIError {
	var oaErr *openai.Error
	if !errors.As(err, &oaErr) {
		return nil
	}
	apiErr := &APIError{
		Message:    oaErr.Message,
		Type:       oaErr.Type,
		Code:       oaErr.Code,
		StatusCode: oaErr.StatusCode,
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(oaErr.Error())
	}
	if apiErr.Code == "insufficient_quota" {
		apiErr.IsPermanent = true
	}
	return apiErr
}
