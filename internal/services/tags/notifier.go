package tags

import (
	"context"
	"errors"
	"fmt"

	"github.com/benvon/smart-bookmarks/internal/database"
	"github.com/benvon/smart-bookmarks/internal/queue"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Enqueuer publishes jobs
type Enqueuer interface {
	Enqueue(ctx context.Context, job *queue.Job) error
}

// ChangeNotifier reacts to a user's tag links changing
type ChangeNotifier struct {
	stats  database.TagStatisticsRepositoryInterface
	jobs   Enqueuer
	logger *zap.Logger
}

// NewChangeNotifier creates a notifier. A nil jobs only marks statistics tainted.
func NewChangeNotifier(stats database.TagStatisticsRepositoryInterface, jobs Enqueuer, logger *zap.Logger) *ChangeNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChangeNotifier{stats: stats, jobs: jobs, logger: logger}
}

// TagsChanged marks the user's statistics tainted and enqueues a debounced tag_analysis job.
// Both steps always run; the job is enqueued even when the statistics were already tainted.
// The returned error joins whichever steps failed.
func (n *ChangeNotifier) TagsChanged(ctx context.Context, userID uuid.UUID) error {
	var markErr, enqueueErr error

	if _, err := n.stats.MarkTainted(ctx, userID); err != nil {
		markErr = fmt.Errorf("failed to mark tag statistics tainted: %w", err)
	}

	if n.jobs != nil {
		job := queue.NewTagAnalysisJob(userID, queue.TagAnalysisDebounce)
		if err := n.jobs.Enqueue(ctx, job); err != nil {
			enqueueErr = fmt.Errorf("failed to enqueue tag analysis job: %w", err)
		} else {
			n.logger.Debug("tag_analysis_enqueued",
				zap.String("user_id", userID.String()),
				zap.String("job_id", job.ID.String()),
			)
		}
	}

	return errors.Join(markErr, enqueueErr)
}
