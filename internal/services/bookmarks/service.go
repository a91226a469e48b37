// Package bookmarks implements bookmark CRUD. Creating or retagging a bookmark runs the
// tagging pipeline and merges its candidates with the tags supplied by the user.
package bookmarks

import (
	"context"
	"errors"
	"fmt"

	"github.com/benvon/smart-bookmarks/internal/database"
	logpkg "github.com/benvon/smart-bookmarks/internal/logger"
	"github.com/benvon/smart-bookmarks/internal/models"
	"github.com/benvon/smart-bookmarks/internal/tagging"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TagChangeHandler is notified after a user's tag links change
type TagChangeHandler func(ctx context.Context, userID uuid.UUID) error

// CreateInput is the payload for creating a bookmark
type CreateInput struct {
	URL         string
	Title       string
	Description *string
	Tags        []string
}

// Service manages bookmarks
type Service struct {
	bookmarks   database.BookmarkRepositoryInterface
	tags        database.TagRepositoryInterface
	tagger      tagging.Tagger
	onTagChange TagChangeHandler
	logger      *zap.Logger
}

// NewService creates a bookmark service. onTagChange may be nil.
func NewService(
	bookmarks database.BookmarkRepositoryInterface,
	tags database.TagRepositoryInterface,
	tagger tagging.Tagger,
	onTagChange TagChangeHandler,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		bookmarks:   bookmarks,
		tags:        tags,
		tagger:      tagger,
		onTagChange: onTagChange,
		logger:      logger,
	}
}

func notFound(id uuid.UUID) error {
	return models.NewDomainError(models.ErrNotFound, fmt.Sprintf("Bookmark with ID %s not found", id))
}

var errURLExists = models.NewDomainError(models.ErrConflict, "Bookmark with this URL already exists")

// Create saves a bookmark tagged with the pipeline's candidates and the user's tags
func (s *Service) Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*models.Bookmark, error) {
	if err := s.ensureURLFree(ctx, userID, in.URL); err != nil {
		return nil, err
	}

	links, err := s.resolveTags(ctx, in.URL, in.Tags)
	if err != nil {
		return nil, err
	}

	bookmark := &models.Bookmark{
		URL:         in.URL,
		Title:       in.Title,
		Description: in.Description,
		UserID:      userID,
	}
	if err := s.bookmarks.Create(ctx, bookmark, links); err != nil {
		return nil, err
	}

	s.logger.Info("bookmark_created",
		zap.String("bookmark_id", bookmark.ID.String()),
		zap.String("user_id", userID.String()),
		zap.Int("tag_count", len(links)),
	)
	s.notify(ctx, userID)
	return s.bookmarks.GetByID(ctx, bookmark.ID)
}

// List returns the user's bookmarks, or every bookmark when all is set
func (s *Service) List(ctx context.Context, userID uuid.UUID, all bool) ([]*models.Bookmark, error) {
	if all {
		return s.bookmarks.List(ctx, nil)
	}
	return s.bookmarks.List(ctx, &userID)
}

// Get returns a bookmark owned by userID
func (s *Service) Get(ctx context.Context, id, userID uuid.UUID) (*models.Bookmark, error) {
	return s.owned(ctx, id, userID, "You do not have access to this bookmark")
}

// Update applies patch. Tags are regenerated only when the patch carries tags.
func (s *Service) Update(ctx context.Context, id, userID uuid.UUID, patch models.BookmarkPatch) (*models.Bookmark, error) {
	bookmark, err := s.owned(ctx, id, userID, "You do not have permission to update this bookmark")
	if err != nil {
		return nil, err
	}

	if patch.URL != nil && *patch.URL != bookmark.URL {
		if err := s.ensureURLFree(ctx, userID, *patch.URL); err != nil {
			return nil, err
		}
		bookmark.URL = *patch.URL
	}
	if patch.Title != nil {
		bookmark.Title = *patch.Title
	}
	if patch.Description != nil {
		bookmark.Description = patch.Description
	}

	var links []models.TagLink
	if patch.HasTags() {
		links, err = s.resolveTags(ctx, bookmark.URL, patch.Tags)
		if err != nil {
			return nil, err
		}
	}

	if err := s.bookmarks.Update(ctx, bookmark, links, patch.HasTags()); err != nil {
		return nil, err
	}
	if patch.HasTags() {
		s.notify(ctx, userID)
	}
	return s.bookmarks.GetByID(ctx, bookmark.ID)
}

// Delete removes a bookmark owned by userID
func (s *Service) Delete(ctx context.Context, id, userID uuid.UUID) (*models.MessageResponse, error) {
	if _, err := s.owned(ctx, id, userID, "You do not have permission to delete this bookmark"); err != nil {
		return nil, err
	}
	if err := s.bookmarks.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, notFound(id)
		}
		return nil, err
	}
	s.notify(ctx, userID)
	return &models.MessageResponse{Message: "Bookmark deleted successfully"}, nil
}

func (s *Service) owned(ctx context.Context, id, userID uuid.UUID, forbidden string) (*models.Bookmark, error) {
	bookmark, err := s.bookmarks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, notFound(id)
		}
		return nil, err
	}
	if bookmark.UserID != userID {
		return nil, models.NewDomainError(models.ErrForbidden, forbidden)
	}
	return bookmark, nil
}

func (s *Service) ensureURLFree(ctx context.Context, userID uuid.UUID, url string) error {
	_, err := s.bookmarks.GetByUserAndURL(ctx, userID, url)
	switch {
	case err == nil:
		return errURLExists
	case errors.Is(err, models.ErrNotFound):
		return nil
	default:
		return err
	}
}

// resolveTags runs the pipeline for url, merges with userTags and finds or creates each tag
func (s *Service) resolveTags(ctx context.Context, url string, userTags []string) ([]models.TagLink, error) {
	var auto []string
	if s.tagger != nil {
		auto = s.tagger.GenerateTags(ctx, url, tagging.DefaultTopN)
	}
	s.logger.Debug("tag_candidates_generated",
		zap.String("url", logpkg.SanitizeURL(url)),
		zap.Strings("candidates", auto),
	)

	merged := MergeTags(auto, userTags)
	links := make([]models.TagLink, 0, len(merged))
	for _, m := range merged {
		tag, err := s.tags.FindOrCreate(ctx, m.Name)
		if err != nil {
			return nil, err
		}
		links = append(links, models.TagLink{TagID: tag.ID, Source: m.Source})
	}
	return links, nil
}

func (s *Service) notify(ctx context.Context, userID uuid.UUID) {
	if s.onTagChange == nil {
		return
	}
	if err := s.onTagChange(ctx, userID); err != nil {
		s.logger.Warn("tag_change_notification_failed",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}
}
