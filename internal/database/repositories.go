package database

import (
	"context"

	"github.com/benvon/smart-bookmarks/internal/models"
	"github.com/google/uuid"
)

// UserRepositoryInterface defines user persistence operations.
// Services depend on this interface so they can be tested with mocks.
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.UserWithCount, error)
	Update(ctx context.Context, user *models.User) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.UserStatus) (*models.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// BookmarkRepositoryInterface defines bookmark persistence operations
type BookmarkRepositoryInterface interface {
	Create(ctx context.Context, bookmark *models.Bookmark, links []models.TagLink) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Bookmark, error)
	GetByUserAndURL(ctx context.Context, userID uuid.UUID, url string) (*models.Bookmark, error)
	List(ctx context.Context, userID *uuid.UUID) ([]*models.Bookmark, error)
	Update(ctx context.Context, bookmark *models.Bookmark, links []models.TagLink, replaceLinks bool) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListTagRowsByUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]models.BookmarkTagRow, error)
}

// TagRepositoryInterface defines tag persistence operations
type TagRepositoryInterface interface {
	Create(ctx context.Context, tag *models.Tag) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.TagDetail, error)
	GetByName(ctx context.Context, name string) (*models.Tag, error)
	FindOrCreate(ctx context.Context, name string) (*models.Tag, error)
	List(ctx context.Context) ([]*models.TagWithCount, error)
	Update(ctx context.Context, tag *models.Tag) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// TagStatisticsRepositoryInterface defines the interface for tag statistics repository operations
type TagStatisticsRepositoryInterface interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.TagStatistics, error)
	GetByUserIDOrCreate(ctx context.Context, userID uuid.UUID) (*models.TagStatistics, error)
	UpdateStatistics(ctx context.Context, stats *models.TagStatistics) (bool, error)
	MarkTainted(ctx context.Context, userID uuid.UUID) (bool, error)
}

// Ensure concrete types implement the interfaces
var (
	_ UserRepositoryInterface          = (*UserRepository)(nil)
	_ BookmarkRepositoryInterface      = (*BookmarkRepository)(nil)
	_ TagRepositoryInterface           = (*TagRepository)(nil)
	_ TagStatisticsRepositoryInterface = (*TagStatisticsRepository)(nil)
)
