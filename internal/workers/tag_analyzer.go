package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/benvon/smart-bookmarks/internal/database"
	logpkg "github.com/benvon/smart-bookmarks/internal/logger"
	"github.com/benvon/smart-bookmarks/internal/models"
	"github.com/benvon/smart-bookmarks/internal/queue"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TagRowPageSize is how many bookmark tag rows are read per query
const TagRowPageSize = 500

// TagAnalyzer processes tag analysis jobs to aggregate tag statistics
type TagAnalyzer struct {
	bookmarkRepo database.BookmarkRepositoryInterface
	tagStatsRepo database.TagStatisticsRepositoryInterface
	requeue      Requeuer
	metrics      *Metrics
	logger       *zap.Logger
	registry     map[queue.JobType]processorEntry
	pageSize     int
}

// NewTagAnalyzer creates a new tag analyzer and registers the tag_analysis processor.
// requeue may be nil, in which case failed jobs are dead-lettered immediately.
func NewTagAnalyzer(
	bookmarkRepo database.BookmarkRepositoryInterface,
	tagStatsRepo database.TagStatisticsRepositoryInterface,
	requeue Requeuer,
	metrics *Metrics,
	logger *zap.Logger,
) *TagAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = defaultMetrics
	}
	a := &TagAnalyzer{
		bookmarkRepo: bookmarkRepo,
		tagStatsRepo: tagStatsRepo,
		requeue:      requeue,
		metrics:      metrics,
		logger:       logger,
		registry:     make(map[queue.JobType]processorEntry),
		pageSize:     TagRowPageSize,
	}
	a.RegisterProcessor(queue.JobTypeTagAnalysis, a.ProcessTagAnalysisJob, true)
	return a
}

// RegisterProcessor registers a processor for a job type.
func (a *TagAnalyzer) RegisterProcessor(typ queue.JobType, proc JobProcessor, retry bool) {
	a.registry[typ] = processorEntry{proc: proc, retry: retry}
}

// ProcessTagAnalysisJob recomputes the user's tag statistics from their bookmark tag links
func (a *TagAnalyzer) ProcessTagAnalysisJob(ctx context.Context, job *queue.Job) error {
	if job.UserID == uuid.Nil {
		return fmt.Errorf("user_id is required for tag analysis job")
	}
	userID := logpkg.SanitizeUserID(job.UserID.String())
	a.logger.Info("processing_tag_analysis_job",
		zap.String("job_id", logpkg.SanitizeUserID(job.ID.String())),
		zap.String("user_id", userID),
	)

	stats, err := a.tagStatsRepo.GetByUserIDOrCreate(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("failed to get or create tag statistics: %w", err)
	}
	a.logger.Debug("tag_statistics_status",
		zap.String("user_id", userID),
		zap.Bool("tainted", stats.Tainted),
		zap.Int("existing_tags", len(stats.TagStats)),
	)

	rows, err := a.loadTagRows(ctx, job.UserID)
	if err != nil {
		return err
	}
	tagStatsMap, bookmarksWithTags := aggregateTagStats(rows)
	a.logger.Info("aggregated_tag_statistics",
		zap.String("user_id", userID),
		zap.Int("bookmarks_with_tags", bookmarksWithTags),
		zap.Int("unique_tags", len(tagStatsMap)),
	)

	stats.TagStats = tagStatsMap
	now := time.Now()
	stats.LastAnalyzedAt = &now
	updated, err := a.tagStatsRepo.UpdateStatistics(ctx, stats)
	if err != nil {
		return fmt.Errorf("failed to update tag statistics: %w", err)
	}
	if !updated {
		// A concurrent worker won; its result is at least as fresh.
		a.logger.Debug("tag_statistics_version_conflict", zap.String("user_id", userID))
		return nil
	}
	a.logger.Info("successfully_analyzed_tags",
		zap.String("user_id", userID),
		zap.Int("unique_tags", len(tagStatsMap)),
	)
	a.logTagBreakdownIfDebug(job.UserID, tagStatsMap)
	return nil
}

func (a *TagAnalyzer) loadTagRows(ctx context.Context, userID uuid.UUID) ([]models.BookmarkTagRow, error) {
	var all []models.BookmarkTagRow
	page := 1
	for {
		rows, err := a.bookmarkRepo.ListTagRowsByUser(ctx, userID, page, a.pageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to list bookmark tags: %w", err)
		}
		all = append(all, rows...)
		if len(rows) < a.pageSize {
			break
		}
		page++
	}
	a.logger.Debug("loaded_tag_rows_for_analysis",
		zap.String("user_id", logpkg.SanitizeUserID(userID.String())),
		zap.Int("rows", len(all)),
		zap.Int("pages", page),
	)
	return all, nil
}

func aggregateTagStats(rows []models.BookmarkTagRow) (map[string]models.TagStats, int) {
	tagStatsMap := make(map[string]models.TagStats)
	bookmarks := make(map[uuid.UUID]struct{})
	for _, row := range rows {
		bookmarks[row.BookmarkID] = struct{}{}
		st := tagStatsMap[row.TagName]
		st.Total++
		switch row.Source {
		case models.TagSourceUser:
			st.User++
		default:
			st.Auto++
		}
		tagStatsMap[row.TagName] = st
	}
	return tagStatsMap, len(bookmarks)
}

func (a *TagAnalyzer) logTagBreakdownIfDebug(userID uuid.UUID, tagStatsMap map[string]models.TagStats) {
	if len(tagStatsMap) == 0 || !a.logger.Core().Enabled(zap.DebugLevel) {
		return
	}
	tagList := make([]string, 0, len(tagStatsMap))
	for tag := range tagStatsMap {
		tagList = append(tagList, tag)
	}
	a.logger.Debug("tag_breakdown",
		zap.String("user_id", logpkg.SanitizeUserID(userID.String())),
		zap.Strings("tags", tagList),
	)
}

// ProcessJob processes a job based on its type using the processor registry.
// A job that is not yet due is held until its NotBefore passes or ctx ends.
func (a *TagAnalyzer) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()
	jobID := logpkg.SanitizeUserID(job.ID.String())

	if job.IsExpired() {
		a.logger.Debug("job_expired", zap.String("job_id", jobID))
		a.metrics.observe(job.Type, OutcomeExpired)
		return a.ack(msg, jobID)
	}
	if !job.ShouldProcess() {
		if err := waitUntil(ctx, *job.NotBefore); err != nil {
			if nackErr := msg.Nack(true); nackErr != nil {
				a.logger.Warn("failed_to_requeue_pending_job",
					zap.String("job_id", jobID),
					zap.String("error", logpkg.SanitizeError(nackErr)),
				)
			}
			return err
		}
	}

	ent, ok := a.registry[job.Type]
	if !ok {
		if nackErr := msg.Nack(false); nackErr != nil {
			a.logger.Error("failed_to_nack_unknown_job_type",
				zap.String("job_id", jobID),
				zap.String("job_type", string(job.Type)),
				zap.String("error", logpkg.SanitizeError(nackErr)),
			)
		}
		a.metrics.observe(job.Type, OutcomeDeadLettered)
		return fmt.Errorf("unknown job type: %s", job.Type)
	}

	if err := ent.proc(ctx, job); err != nil {
		a.logger.Error("job_failed",
			zap.String("operation", "process_job"),
			zap.String("job_id", jobID),
			zap.String("job_type", string(job.Type)),
			zap.String("user_id", logpkg.SanitizeUserID(job.UserID.String())),
			zap.Int("retry_count", job.RetryCount),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		return a.handleJobError(ctx, msg, job, ent, err)
	}

	a.metrics.observe(job.Type, OutcomeSucceeded)
	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("failed to ack %s job: %w", job.Type, ackErr)
	}
	return nil
}

// handleJobError re-enqueues a failed job with backoff, or dead-letters it once retries are spent
func (a *TagAnalyzer) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, ent processorEntry, cause error) error {
	jobID := logpkg.SanitizeUserID(job.ID.String())

	if ent.retry && a.requeue != nil && job.CanRetry() {
		next := retryJob(job, retryDelay(job.RetryCount))
		err := a.requeue.Enqueue(ctx, next)
		if err == nil {
			a.metrics.observe(job.Type, OutcomeRetried)
			a.logger.Info("job_requeued",
				zap.String("job_id", jobID),
				zap.Int("retry_count", next.RetryCount),
				zap.Time("not_before", *next.NotBefore),
			)
			if ackErr := msg.Ack(); ackErr != nil {
				a.logger.Warn("failed_to_ack_requeued_job",
					zap.String("job_id", jobID),
					zap.String("error", logpkg.SanitizeError(ackErr)),
				)
			}
			return fmt.Errorf("%s failed, retry scheduled: %w", job.Type, cause)
		}
		a.logger.Warn("failed_to_requeue_job",
			zap.String("job_id", jobID),
			zap.String("error", logpkg.SanitizeError(err)),
		)
	}

	a.metrics.observe(job.Type, OutcomeDeadLettered)
	if nackErr := msg.Nack(false); nackErr != nil {
		a.logger.Warn("failed_to_nack_job",
			zap.String("job_id", jobID),
			zap.String("error", logpkg.SanitizeError(nackErr)),
		)
	}
	return fmt.Errorf("%s failed: %w", job.Type, cause)
}

func (a *TagAnalyzer) ack(msg queue.MessageInterface, jobID string) error {
	if err := msg.Ack(); err != nil {
		a.logger.Warn("failed_to_ack_job",
			zap.String("job_id", jobID),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		return err
	}
	return nil
}

func waitUntil(ctx context.Context, t time.Time) error {
	timer := time.NewTimer(time.Until(t))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
