package models

import (
	"time"

	"github.com/google/uuid"
)

// Bookmark represents a saved URL owned by a user
type Bookmark struct {
	ID          uuid.UUID    `json:"id"`
	URL         string       `json:"url"`
	Title       string       `json:"title"`
	Description *string      `json:"description,omitempty"`
	UserID      uuid.UUID    `json:"user_id"`
	CreatedAt   time.Time    `json:"created_at"`
	Tags        []Tag        `json:"tags"`
	User        *UserSummary `json:"user,omitempty"`
}

// BookmarkPatch carries the optional fields of a bookmark update.
// A nil Tags leaves tag links untouched; a non-nil empty slice clears user tags.
type BookmarkPatch struct {
	URL         *string
	Title       *string
	Description *string
	Tags        []string
}

// HasTags reports whether the patch replaces tag links.
func (p BookmarkPatch) HasTags() bool {
	return p.Tags != nil
}

// TagLink is a tag attached to a bookmark together with how it got there
type TagLink struct {
	TagID  uuid.UUID `json:"tag_id"`
	Source TagSource `json:"source"`
}

// BookmarkTagRow is one (tag name, source) association used for statistics
type BookmarkTagRow struct {
	BookmarkID uuid.UUID
	TagName    string
	Source     TagSource
}
