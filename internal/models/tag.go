package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TagSource records whether a tag was generated or supplied by the user
type TagSource string

const (
	TagSourceAuto TagSource = "auto"
	TagSourceUser TagSource = "user"
)

// Tag is a globally unique, normalized label
type Tag struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TagWithCount is a tag listing row
type TagWithCount struct {
	Tag
	BookmarkCount int `json:"bookmark_count"`
}

// TagDetail is a tag with the bookmarks that carry it
type TagDetail struct {
	Tag
	Bookmarks []Bookmark `json:"bookmarks"`
}

// NormalizeTagName trims and lowercases a tag name. An empty result means the name is discarded.
func NormalizeTagName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
