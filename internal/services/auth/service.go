// Package auth handles registration, login and the caller's own credentials.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/benvon/smart-bookmarks/internal/database"
	"github.com/benvon/smart-bookmarks/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LoginUser is the user shape returned with an access token
type LoginUser struct {
	ID     uuid.UUID         `json:"id"`
	Email  string            `json:"email"`
	Status models.UserStatus `json:"status"`
	Name   *string           `json:"name,omitempty"`
}

// LoginResponse carries an access token
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	User        LoginUser `json:"user"`
}

// RegisterResponse is returned after a successful registration
type RegisterResponse struct {
	Message string       `json:"message"`
	User    *models.User `json:"user"`
}

var errInvalidCredentials = models.NewDomainError(models.ErrUnauthorized, "Invalid credentials")

// Service implements the auth operations
type Service struct {
	users  database.UserRepositoryInterface
	tokens *TokenManager
	logger *zap.Logger
}

// NewService creates an auth service
func NewService(users database.UserRepositoryInterface, tokens *TokenManager, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{users: users, tokens: tokens, logger: logger}
}

// NormalizeEmail trims and lowercases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an ACTIVE user
func (s *Service) Register(ctx context.Context, email, password string, name *string) (*RegisterResponse, error) {
	email = NormalizeEmail(email)
	if err := s.ensureEmailFree(ctx, email, uuid.Nil, "User with this email already exists"); err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, models.NewDomainError(models.ErrValidation, fmt.Sprintf("Password must be at least %d characters long", MinPasswordLength))
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Status:       models.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user_registered", zap.String("user_id", user.ID.String()))
	return &RegisterResponse{Message: "User created successfully", User: user}, nil
}

// Login checks credentials and issues an access token. Only ACTIVE users may log in.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	user, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive() || !CheckPassword(user.PasswordHash, password) {
		s.logger.Info("login_rejected",
			zap.String("user_id", user.ID.String()),
			zap.String("status", string(user.Status)),
		)
		return nil, errInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{
		AccessToken: token,
		User: LoginUser{
			ID:     user.ID,
			Email:  user.Email,
			Status: user.Status,
			Name:   user.Name,
		},
	}, nil
}

// Profile returns the caller's account
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NewDomainError(models.ErrNotFound, "User not found")
		}
		return nil, err
	}
	return user, nil
}

// UpdateProfile changes the caller's email and/or name
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, email, name *string) (*models.User, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if email != nil {
		normalized := NormalizeEmail(*email)
		if normalized != user.Email {
			if err := s.ensureEmailFree(ctx, normalized, user.ID, "Email is already in use"); err != nil {
				return nil, err
			}
			user.Email = normalized
		}
	}
	if name != nil {
		user.Name = name
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword replaces the caller's password after checking the old one
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) (*models.MessageResponse, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !CheckPassword(user.PasswordHash, oldPassword) {
		return nil, models.NewDomainError(models.ErrUnauthorized, "Old password is incorrect")
	}
	if oldPassword == newPassword {
		return nil, models.NewDomainError(models.ErrValidation, "New password must be different from the old password")
	}
	if len(newPassword) < MinPasswordLength {
		return nil, models.NewDomainError(models.ErrValidation, fmt.Sprintf("New password must be at least %d characters long", MinPasswordLength))
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return nil, err
	}

	s.logger.Info("password_changed", zap.String("user_id", user.ID.String()))
	return &models.MessageResponse{Message: "Password changed successfully"}, nil
}

// ensureEmailFree returns a conflict when email belongs to a user other than self
func (s *Service) ensureEmailFree(ctx context.Context, email string, self uuid.UUID, message string) error {
	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.ID != self {
			return models.NewDomainError(models.ErrConflict, message)
		}
		return nil
	case errors.Is(err, models.ErrNotFound):
		return nil
	default:
		return err
	}
}
