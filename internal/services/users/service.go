// Package users implements administrative user management.
package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/benvon/smart-bookmarks/internal/database"
	"github.com/benvon/smart-bookmarks/internal/models"
	"github.com/benvon/smart-bookmarks/internal/services/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateInput is the payload for creating a user
type CreateInput struct {
	Email    string
	Password string
	Name     *string
}

// UpdateInput holds optional user changes
type UpdateInput struct {
	Email    *string
	Password *string
	Name     *string
}

// Service manages users
type Service struct {
	users     database.UserRepositoryInterface
	bookmarks database.BookmarkRepositoryInterface
	logger    *zap.Logger
}

// NewService creates a user service
func NewService(users database.UserRepositoryInterface, bookmarks database.BookmarkRepositoryInterface, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{users: users, bookmarks: bookmarks, logger: logger}
}

func notFound(id uuid.UUID) error {
	return models.NewDomainError(models.ErrNotFound, fmt.Sprintf("User with ID %s not found", id))
}

// Create adds an ACTIVE user
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.User, error) {
	email := auth.NormalizeEmail(in.Email)
	if err := s.ensureEmailFree(ctx, email, uuid.Nil); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:        email,
		Name:         in.Name,
		PasswordHash: hash,
		Status:       models.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user_created", zap.String("user_id", user.ID.String()))
	return user, nil
}

// List returns every user with a bookmark count
func (s *Service) List(ctx context.Context) ([]*models.UserWithCount, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []*models.UserWithCount{}
	}
	return users, nil
}

// Get returns a user with their bookmarks and tags
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.UserDetail, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, notFound(id)
		}
		return nil, err
	}
	bookmarks, err := s.bookmarks.List(ctx, &id)
	if err != nil {
		return nil, err
	}
	detail := &models.UserDetail{User: *user, Bookmarks: make([]models.Bookmark, 0, len(bookmarks))}
	for _, b := range bookmarks {
		detail.Bookmarks = append(detail.Bookmarks, *b)
	}
	return detail, nil
}

// Update changes email, name and password. A new password is rehashed.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, notFound(id)
		}
		return nil, err
	}

	if in.Email != nil {
		email := auth.NormalizeEmail(*in.Email)
		if email != user.Email {
			if err := s.ensureEmailFree(ctx, email, user.ID); err != nil {
				return nil, err
			}
			user.Email = email
		}
	}
	if in.Name != nil {
		user.Name = in.Name
	}
	if in.Password != nil {
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes a user and, by cascade, their bookmarks
func (s *Service) Delete(ctx context.Context, id uuid.UUID) (*models.MessageResponse, error) {
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, notFound(id)
		}
		return nil, err
	}
	s.logger.Info("user_deleted", zap.String("user_id", id.String()))
	return &models.MessageResponse{Message: "User deleted successfully"}, nil
}

// ChangeStatus applies an activate, deactivate, block or unblock action
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, action models.StatusAction) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, notFound(id)
		}
		return nil, err
	}
	next, err := user.Status.Transition(action)
	if err != nil {
		return nil, err
	}
	updated, err := s.users.UpdateStatus(ctx, id, next)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user_status_changed",
		zap.String("user_id", id.String()),
		zap.String("from", string(user.Status)),
		zap.String("to", string(next)),
	)
	return updated, nil
}

// SetStatus forces a status without transition checks. Used by operator tooling.
func (s *Service) SetStatus(ctx context.Context, email string, status models.UserStatus) (*models.User, error) {
	if !status.Valid() {
		return nil, models.NewDomainError(models.ErrValidation, fmt.Sprintf("invalid status %q", status))
	}
	user, err := s.users.GetByEmail(ctx, auth.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NewDomainError(models.ErrNotFound, fmt.Sprintf("User with email %s not found", email))
		}
		return nil, err
	}
	return s.users.UpdateStatus(ctx, user.ID, status)
}

func (s *Service) ensureEmailFree(ctx context.Context, email string, self uuid.UUID) error {
	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.ID != self {
			return models.NewDomainError(models.ErrConflict, "User with this email already exists")
		}
		return nil
	case errors.Is(err, models.ErrNotFound):
		return nil
	default:
		return err
	}
}
