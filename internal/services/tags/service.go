// Package tags implements tag CRUD and per-user tag statistics.
package tags

import (
	"context"
	"errors"
	"fmt"

	"github.com/benvon/smart-bookmarks/internal/database"
	"github.com/benvon/smart-bookmarks/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	errNameTaken = models.NewDomainError(models.ErrConflict, "Tag with this name already exists")
	errEmptyName = models.NewDomainError(models.ErrValidation, "Tag name must not be empty")
)

// Service manages tags
type Service struct {
	tags   database.TagRepositoryInterface
	stats  database.TagStatisticsRepositoryInterface
	logger *zap.Logger
}

// NewService creates a tag service
func NewService(tags database.TagRepositoryInterface, stats database.TagStatisticsRepositoryInterface, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{tags: tags, stats: stats, logger: logger}
}

func notFound(id uuid.UUID) error {
	return models.NewDomainError(models.ErrNotFound, fmt.Sprintf("Tag with ID %s not found", id))
}

// Create adds a tag with a normalized name
func (s *Service) Create(ctx context.Context, name string) (*models.Tag, error) {
	name = models.NormalizeTagName(name)
	if name == "" {
		return nil, errEmptyName
	}
	if err := s.ensureNameFree(ctx, name, uuid.Nil); err != nil {
		return nil, err
	}
	tag := &models.Tag{Name: name}
	if err := s.tags.Create(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

// List returns every tag with its bookmark count, by name
func (s *Service) List(ctx context.Context) ([]*models.TagWithCount, error) {
	list, err := s.tags.List(ctx)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*models.TagWithCount{}
	}
	return list, nil
}

// Get returns a tag with the bookmarks that carry it
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.TagDetail, error) {
	tag, err := s.tags.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, notFound(id)
		}
		return nil, err
	}
	return tag, nil
}

// GetByName looks a tag up by its normalized name
func (s *Service) GetByName(ctx context.Context, name string) (*models.Tag, error) {
	normalized := models.NormalizeTagName(name)
	tag, err := s.tags.GetByName(ctx, normalized)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NewDomainError(models.ErrNotFound, fmt.Sprintf("Tag with name %s not found", normalized))
		}
		return nil, err
	}
	return tag, nil
}

// Update renames a tag
func (s *Service) Update(ctx context.Context, id uuid.UUID, name string) (*models.Tag, error) {
	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	name = models.NormalizeTagName(name)
	if name == "" {
		return nil, errEmptyName
	}
	if name != detail.Name {
		if err := s.ensureNameFree(ctx, name, id); err != nil {
			return nil, err
		}
	}
	tag := detail.Tag
	tag.Name = name
	if err := s.tags.Update(ctx, &tag); err != nil {
		return nil, err
	}
	return &tag, nil
}

// Delete removes a tag and its bookmark links
func (s *Service) Delete(ctx context.Context, id uuid.UUID) (*models.MessageResponse, error) {
	if err := s.tags.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, notFound(id)
		}
		return nil, err
	}
	return &models.MessageResponse{Message: "Tag deleted successfully"}, nil
}

// Stats returns the user's tag statistics, creating an empty tainted row on first use
func (s *Service) Stats(ctx context.Context, userID uuid.UUID) (*models.TagStatistics, error) {
	return s.stats.GetByUserIDOrCreate(ctx, userID)
}

func (s *Service) ensureNameFree(ctx context.Context, name string, self uuid.UUID) error {
	existing, err := s.tags.GetByName(ctx, name)
	switch {
	case err == nil:
		if existing.ID != self {
			return errNameTaken
		}
		return nil
	case errors.Is(err, models.ErrNotFound):
		return nil
	default:
		return err
	}
}
