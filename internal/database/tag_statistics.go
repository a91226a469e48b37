package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/smart-bookmarks/internal/models"
	"github.com/google/uuid"
)

// TagStatisticsRepository handles per-user tag statistics
type TagStatisticsRepository struct {
	db *DB
}

// NewTagStatisticsRepository creates a new tag statistics repository
func NewTagStatisticsRepository(db *DB) *TagStatisticsRepository {
	return &TagStatisticsRepository{db: db}
}

// GetByUserID retrieves tag statistics by user ID
func (r *TagStatisticsRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.TagStatistics, error) {
	stats := &models.TagStatistics{}
	var tagStatsJSON []byte
	var lastAnalyzedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, tag_stats, tainted, last_analyzed_at, analysis_version, created_at, updated_at
		FROM tag_statistics
		WHERE user_id = $1
	`, userID).Scan(
		&stats.UserID,
		&tagStatsJSON,
		&stats.Tainted,
		&lastAnalyzedAt,
		&stats.AnalysisVersion,
		&stats.CreatedAt,
		&stats.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tag statistics for user %s: %w", userID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get tag statistics: %w", err)
	}

	stats.TagStats = make(map[string]models.TagStats)
	if len(tagStatsJSON) > 0 {
		if err := json.Unmarshal(tagStatsJSON, &stats.TagStats); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tag_stats: %w", err)
		}
	}
	if lastAnalyzedAt.Valid {
		stats.LastAnalyzedAt = &lastAnalyzedAt.Time
	}
	return stats, nil
}

// GetByUserIDOrCreate retrieves tag statistics or creates a tainted empty record
func (r *TagStatisticsRepository) GetByUserIDOrCreate(ctx context.Context, userID uuid.UUID) (*models.TagStatistics, error) {
	stats, err := r.GetByUserID(ctx, userID)
	if err == nil {
		return stats, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO tag_statistics (user_id, tag_stats, tainted, analysis_version, created_at, updated_at)
		VALUES ($1, '{}', true, 0, $2, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, now); err != nil {
		return nil, fmt.Errorf("failed to create tag statistics: %w", err)
	}
	return r.GetByUserID(ctx, userID)
}

// UpdateStatistics writes new statistics if AnalysisVersion still matches the stored version.
// Returns false without error on a version conflict.
func (r *TagStatisticsRepository) UpdateStatistics(ctx context.Context, stats *models.TagStatistics) (bool, error) {
	tagStatsJSON, err := json.Marshal(stats.TagStats)
	if err != nil {
		return false, fmt.Errorf("failed to marshal tag_stats: %w", err)
	}

	now := time.Now()
	analyzedAt := now
	if stats.LastAnalyzedAt != nil {
		analyzedAt = *stats.LastAnalyzedAt
	}

	var newVersion int
	err = r.db.QueryRowContext(ctx, `
		UPDATE tag_statistics
		SET tag_stats = $1, tainted = false, last_analyzed_at = $2,
		    analysis_version = analysis_version + 1, updated_at = $3
		WHERE user_id = $4 AND analysis_version = $5
		RETURNING analysis_version, created_at, updated_at
	`, tagStatsJSON, analyzedAt, now, stats.UserID, stats.AnalysisVersion,
	).Scan(&newVersion, &stats.CreatedAt, &stats.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to update tag statistics: %w", err)
	}

	stats.AnalysisVersion = newVersion
	stats.Tainted = false
	stats.LastAnalyzedAt = &analyzedAt
	return true, nil
}

// MarkTainted flags statistics as stale, creating the record when missing.
// Returns true when the flag transitioned from clean to tainted.
func (r *TagStatisticsRepository) MarkTainted(ctx context.Context, userID uuid.UUID) (bool, error) {
	var resultID uuid.UUID
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO tag_statistics (user_id, tag_stats, tainted, analysis_version, created_at, updated_at)
		VALUES ($1, '{}', true, 0, $2, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET tainted = true, updated_at = $2
		WHERE tag_statistics.tainted = false
		RETURNING user_id
	`, userID, time.Now()).Scan(&resultID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to mark tainted: %w", err)
	}
	return true, nil
}
