package workers

import (
	"context"
	"math"
	"time"

	"github.com/benvon/smart-bookmarks/internal/queue"
)

// JobProcessor handles one decoded job
type JobProcessor func(ctx context.Context, job *queue.Job) error

type processorEntry struct {
	proc JobProcessor
	// retry re-enqueues failed jobs with backoff until MaxRetries is reached
	retry bool
}

// Requeuer republishes a job
type Requeuer interface {
	Enqueue(ctx context.Context, job *queue.Job) error
}

const (
	baseRetryDelay = 2 * time.Second
	maxRetryDelay  = 5 * time.Minute
)

// retryDelay is an exponential backoff keyed on the attempt number
func retryDelay(retryCount int) time.Duration {
	d := time.Duration(float64(baseRetryDelay) * math.Pow(2, float64(retryCount)))
	if d <= 0 || d > maxRetryDelay {
		return maxRetryDelay
	}
	return d
}

// retryJob copies job for its next attempt, due after delay
func retryJob(job *queue.Job, delay time.Duration) *queue.Job {
	next := *job
	notBefore := time.Now().Add(delay)
	next.NotBefore = &notBefore
	next.IncrementRetry()
	return &next
}
