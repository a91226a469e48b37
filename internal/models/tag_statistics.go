package models

import (
	"time"

	"github.com/google/uuid"
)

// TagStats represents aggregated statistics for a single tag
type TagStats struct {
	Total int `json:"total"` // bookmarks carrying the tag
	Auto  int `json:"auto"`  // links created by the tagging pipeline
	User  int `json:"user"`  // links supplied by the user
}

// TagStatistics represents tag statistics for a user
type TagStatistics struct {
	UserID          uuid.UUID           `json:"user_id"`
	TagStats        map[string]TagStats `json:"tag_stats"`
	Tainted         bool                `json:"tainted"`
	LastAnalyzedAt  *time.Time          `json:"last_analyzed_at,omitempty"`
	AnalysisVersion int                 `json:"analysis_version"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}
