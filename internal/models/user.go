package models

import (
	"time"

	"github.com/google/uuid"
)

// UserStatus represents the lifecycle state of an account
type UserStatus string

const (
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusInactive UserStatus = "INACTIVE"
	UserStatusPending  UserStatus = "PENDING"
	UserStatusBlocked  UserStatus = "BLOCKED"
)

// StatusAction is an administrative action that moves a user between statuses
type StatusAction string

const (
	StatusActionActivate   StatusAction = "activate"
	StatusActionDeactivate StatusAction = "deactivate"
	StatusActionBlock      StatusAction = "block"
	StatusActionUnblock    StatusAction = "unblock"
)

// Valid reports whether s is a known status.
func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusActive, UserStatusInactive, UserStatusPending, UserStatusBlocked:
		return true
	default:
		return false
	}
}

// Transition returns the status reached by applying action to s.
// Disallowed transitions return an ErrInvalidTransition domain error carrying the user-facing message.
func (s UserStatus) Transition(action StatusAction) (UserStatus, error) {
	switch action {
	case StatusActionActivate:
		switch s {
		case UserStatusActive:
			return s, NewDomainError(ErrInvalidTransition, "User is already active")
		case UserStatusBlocked:
			return s, NewDomainError(ErrInvalidTransition, "Cannot activate a blocked user. Please unblock first.")
		}
		return UserStatusActive, nil
	case StatusActionDeactivate:
		if s != UserStatusActive {
			return s, NewDomainError(ErrInvalidTransition, "Can only deactivate users with ACTIVE status")
		}
		return UserStatusInactive, nil
	case StatusActionBlock:
		if s == UserStatusBlocked {
			return s, NewDomainError(ErrInvalidTransition, "User is already blocked")
		}
		if s != UserStatusActive {
			return s, NewDomainError(ErrInvalidTransition, "Can only block users with ACTIVE status")
		}
		return UserStatusBlocked, nil
	case StatusActionUnblock:
		if s != UserStatusBlocked {
			return s, NewDomainError(ErrInvalidTransition, "Can only unblock users with BLOCKED status")
		}
		return UserStatusActive, nil
	default:
		return s, NewDomainError(ErrValidation, "unknown status action: "+string(action))
	}
}

// User represents a user in the system
type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	Name         *string    `json:"name,omitempty"`
	PasswordHash string     `json:"-"`
	Status       UserStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsActive reports whether the user may authenticate.
func (u *User) IsActive() bool {
	return u != nil && u.Status == UserStatusActive
}

// DisplayName returns the name or an empty string.
func (u *User) DisplayName() string {
	if u == nil || u.Name == nil {
		return ""
	}
	return *u.Name
}

// UserSummary is the trimmed user shape embedded in bookmark responses
type UserSummary struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// UserWithCount is a user listing row
type UserWithCount struct {
	User
	BookmarkCount int `json:"bookmark_count"`
}

// UserDetail is a user together with their bookmarks
type UserDetail struct {
	User
	Bookmarks []Bookmark `json:"bookmarks"`
}
