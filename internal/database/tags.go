package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/smart-bookmarks/internal/models"
	"github.com/google/uuid"
)

// TagRepository handles tag database operations
type TagRepository struct {
	db *DB
}

// NewTagRepository creates a new tag repository
func NewTagRepository(db *DB) *TagRepository {
	return &TagRepository{db: db}
}

// Create inserts a tag; the name must already be normalized
func (r *TagRepository) Create(ctx context.Context, tag *models.Tag) error {
	if tag.ID == uuid.Nil {
		tag.ID = uuid.New()
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO tags (id, name, created_at) VALUES ($1, $2, $3)
		RETURNING created_at
	`, tag.ID, tag.Name, time.Now()).Scan(&tag.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.NewDomainError(models.ErrConflict, "Tag with this name already exists")
		}
		return fmt.Errorf("failed to create tag: %w", err)
	}
	return nil
}

// GetByID retrieves a tag with its bookmarks and their owners
func (r *TagRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.TagDetail, error) {
	detail := &models.TagDetail{Bookmarks: []models.Bookmark{}}
	err := r.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM tags WHERE id = $1`, id).
		Scan(&detail.ID, &detail.Name, &detail.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tag %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT b.id, b.url, b.title, b.description, b.user_id, b.created_at, u.email
		FROM bookmark_tags bt
		JOIN bookmarks b ON b.id = bt.bookmark_id
		JOIN users u ON u.id = b.user_id
		WHERE bt.tag_id = $1
		ORDER BY b.created_at DESC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load tag bookmarks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tag bookmark: %w", err)
		}
		b.Tags = nil
		detail.Bookmarks = append(detail.Bookmarks, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tag bookmarks: %w", err)
	}
	return detail, nil
}

// GetByName retrieves a tag by its normalized name
func (r *TagRepository) GetByName(ctx context.Context, name string) (*models.Tag, error) {
	tag := &models.Tag{}
	err := r.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM tags WHERE name = $1`, name).
		Scan(&tag.ID, &tag.Name, &tag.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tag %q: %w", name, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get tag by name: %w", err)
	}
	return tag, nil
}

// FindOrCreate returns the tag named name, creating it if absent.
// Concurrent callers racing on the same name all receive the same row.
func (r *TagRepository) FindOrCreate(ctx context.Context, name string) (*models.Tag, error) {
	tag := &models.Tag{}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO tags (id, name, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, created_at
	`, uuid.New(), name, time.Now()).Scan(&tag.ID, &tag.Name, &tag.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to find or create tag: %w", err)
	}
	return tag, nil
}

// List returns all tags ordered by name with the number of bookmarks carrying each
func (r *TagRepository) List(ctx context.Context) ([]*models.TagWithCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.created_at, COUNT(bt.bookmark_id)
		FROM tags t
		LEFT JOIN bookmark_tags bt ON bt.tag_id = t.id
		GROUP BY t.id
		ORDER BY t.name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tags := []*models.TagWithCount{}
	for rows.Next() {
		tc := &models.TagWithCount{}
		if err := rows.Scan(&tc.ID, &tc.Name, &tc.CreatedAt, &tc.BookmarkCount); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tags: %w", err)
	}
	return tags, nil
}

// Update renames a tag
func (r *TagRepository) Update(ctx context.Context, tag *models.Tag) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE tags SET name = $1 WHERE id = $2 RETURNING created_at
	`, tag.Name, tag.ID).Scan(&tag.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("tag %s: %w", tag.ID, models.ErrNotFound)
		}
		if isUniqueViolation(err) {
			return models.NewDomainError(models.ErrConflict, "Tag with this name already exists")
		}
		return fmt.Errorf("failed to update tag: %w", err)
	}
	return nil
}

// Delete removes a tag; bookmark links cascade
func (r *TagRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}
	return expectOneRow(res, fmt.Sprintf("tag %s", id))
}
