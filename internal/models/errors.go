package models

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness violation
	ErrConflict = errors.New("conflict")
	// ErrForbidden indicates the caller does not own the resource
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthorized indicates missing or wrong credentials
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidTransition indicates a disallowed user status change
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrValidation indicates a request that is well-formed but not acceptable
	ErrValidation = errors.New("validation failed")
)

// DomainError pairs a sentinel kind with the message shown to API clients.
type DomainError struct {
	Kind    error
	Message string
}

// NewDomainError creates a DomainError of the given kind
func NewDomainError(kind error, message string) *DomainError {
	return &DomainError{Kind: kind, Message: message}
}

func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap exposes the sentinel so errors.Is works against the kind
func (e *DomainError) Unwrap() error {
	return e.Kind
}

// ErrorMessage returns the client-facing message of err when it carries one.
func ErrorMessage(err error) (string, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Message, true
	}
	return "", false
}
