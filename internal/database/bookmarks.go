package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/smart-bookmarks/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const bookmarkSelect = `
	SELECT b.id, b.url, b.title, b.description, b.user_id, b.created_at, u.email
	FROM bookmarks b
	JOIN users u ON u.id = b.user_id
`

// BookmarkRepository handles bookmark database operations
type BookmarkRepository struct {
	db *DB
}

// NewBookmarkRepository creates a new bookmark repository
func NewBookmarkRepository(db *DB) *BookmarkRepository {
	return &BookmarkRepository{db: db}
}

func scanBookmark(row rowScanner) (*models.Bookmark, error) {
	b := &models.Bookmark{}
	var description sql.NullString
	var email string
	if err := row.Scan(&b.ID, &b.URL, &b.Title, &description, &b.UserID, &b.CreatedAt, &email); err != nil {
		return nil, err
	}
	if description.Valid {
		b.Description = &description.String
	}
	b.User = &models.UserSummary{ID: b.UserID, Email: email}
	b.Tags = []models.Tag{}
	return b, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertLinks(ctx context.Context, ex execer, bookmarkID uuid.UUID, links []models.TagLink) error {
	for _, l := range links {
		if _, err := ex.ExecContext(ctx, `
			INSERT INTO bookmark_tags (bookmark_id, tag_id, source)
			VALUES ($1, $2, $3)
			ON CONFLICT (bookmark_id, tag_id) DO UPDATE SET source = EXCLUDED.source
		`, bookmarkID, l.TagID, string(l.Source)); err != nil {
			return fmt.Errorf("failed to link tag %s: %w", l.TagID, err)
		}
	}
	return nil
}

// Create inserts a bookmark and its tag links in one transaction
func (r *BookmarkRepository) Create(ctx context.Context, bookmark *models.Bookmark, links []models.TagLink) error {
	if bookmark.ID == uuid.Nil {
		bookmark.ID = uuid.New()
	}
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO bookmarks (id, url, title, description, user_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at
		`, bookmark.ID, bookmark.URL, bookmark.Title, bookmark.Description, bookmark.UserID, time.Now(),
		).Scan(&bookmark.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return models.NewDomainError(models.ErrConflict, "Bookmark with this URL already exists")
			}
			return fmt.Errorf("failed to create bookmark: %w", err)
		}
		return insertLinks(ctx, tx, bookmark.ID, links)
	})
}

// GetByID retrieves a bookmark with its tags and owner summary
func (r *BookmarkRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Bookmark, error) {
	b, err := scanBookmark(r.db.QueryRowContext(ctx, bookmarkSelect+` WHERE b.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("bookmark %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get bookmark: %w", err)
	}
	if err := r.attachTags(ctx, []*models.Bookmark{b}); err != nil {
		return nil, err
	}
	return b, nil
}

// GetByUserAndURL finds the bookmark a user saved for url
func (r *BookmarkRepository) GetByUserAndURL(ctx context.Context, userID uuid.UUID, url string) (*models.Bookmark, error) {
	b, err := scanBookmark(r.db.QueryRowContext(ctx, bookmarkSelect+` WHERE b.user_id = $1 AND b.url = $2`, userID, url))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("bookmark for url: %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get bookmark by url: %w", err)
	}
	return b, nil
}

// List returns bookmarks newest first. A nil userID lists every user's bookmarks.
func (r *BookmarkRepository) List(ctx context.Context, userID *uuid.UUID) ([]*models.Bookmark, error) {
	query := bookmarkSelect
	var args []any
	if userID != nil {
		query += ` WHERE b.user_id = $1`
		args = append(args, *userID)
	}
	query += ` ORDER BY b.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	bookmarks := []*models.Bookmark{}
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bookmark: %w", err)
		}
		bookmarks = append(bookmarks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookmarks: %w", err)
	}
	if err := r.attachTags(ctx, bookmarks); err != nil {
		return nil, err
	}
	return bookmarks, nil
}

// attachTags loads tags for all bookmarks with a single query
func (r *BookmarkRepository) attachTags(ctx context.Context, bookmarks []*models.Bookmark) error {
	if len(bookmarks) == 0 {
		return nil
	}
	ids := make([]string, 0, len(bookmarks))
	byID := make(map[uuid.UUID]*models.Bookmark, len(bookmarks))
	for _, b := range bookmarks {
		ids = append(ids, b.ID.String())
		byID[b.ID] = b
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT bt.bookmark_id, t.id, t.name, t.created_at
		FROM bookmark_tags bt
		JOIN tags t ON t.id = bt.tag_id
		WHERE bt.bookmark_id = ANY($1::uuid[])
		ORDER BY t.name ASC
	`, pq.StringArray(ids))
	if err != nil {
		return fmt.Errorf("failed to load bookmark tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var bookmarkID uuid.UUID
		var tag models.Tag
		if err := rows.Scan(&bookmarkID, &tag.ID, &tag.Name, &tag.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan bookmark tag: %w", err)
		}
		if b, ok := byID[bookmarkID]; ok {
			b.Tags = append(b.Tags, tag)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate bookmark tags: %w", err)
	}
	return nil
}

// Update persists url, title and description. When replaceLinks is set the tag links are replaced by links.
func (r *BookmarkRepository) Update(ctx context.Context, bookmark *models.Bookmark, links []models.TagLink, replaceLinks bool) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE bookmarks SET url = $1, title = $2, description = $3
			WHERE id = $4
		`, bookmark.URL, bookmark.Title, bookmark.Description, bookmark.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return models.NewDomainError(models.ErrConflict, "Bookmark with this URL already exists")
			}
			return fmt.Errorf("failed to update bookmark: %w", err)
		}
		if err := expectOneRow(res, fmt.Sprintf("bookmark %s", bookmark.ID)); err != nil {
			return err
		}
		if !replaceLinks {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM bookmark_tags WHERE bookmark_id = $1`, bookmark.ID); err != nil {
			return fmt.Errorf("failed to clear bookmark tags: %w", err)
		}
		return insertLinks(ctx, tx, bookmark.ID, links)
	})
}

// Delete removes a bookmark; tag links cascade
func (r *BookmarkRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bookmarks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete bookmark: %w", err)
	}
	return expectOneRow(res, fmt.Sprintf("bookmark %s", id))
}

// ListTagRowsByUser pages through every (bookmark, tag, source) link owned by a user
func (r *BookmarkRepository) ListTagRowsByUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]models.BookmarkTagRow, error) {
	if page < 1 {
		page = 1
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT bt.bookmark_id, t.name, bt.source
		FROM bookmark_tags bt
		JOIN bookmarks b ON b.id = bt.bookmark_id
		JOIN tags t ON t.id = bt.tag_id
		WHERE b.user_id = $1
		ORDER BY bt.bookmark_id, t.name
		LIMIT $2 OFFSET $3
	`, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list tag rows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.BookmarkTagRow
	for rows.Next() {
		var row models.BookmarkTagRow
		var source string
		if err := rows.Scan(&row.BookmarkID, &row.TagName, &source); err != nil {
			return nil, fmt.Errorf("failed to scan tag row: %w", err)
		}
		row.Source = models.TagSource(source)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tag rows: %w", err)
	}
	return out, nil
}
