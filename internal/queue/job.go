package queue

import (
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeTagAnalysis recomputes a user's tag statistics
	JobTypeTagAnalysis JobType = "tag_analysis"
)

const (
	// DefaultMaxRetries is how often a failed job is retried before it is dead-lettered
	DefaultMaxRetries = 3
	// TagAnalysisDebounce delays analysis so a burst of bookmark edits collapses into one run
	TagAnalysisDebounce = 5 * time.Second
)

// Job represents a job in the queue
type Job struct {
	ID         uuid.UUID      `json:"id"`
	Type       JobType        `json:"type"`
	UserID     uuid.UUID      `json:"user_id"`
	BookmarkID *uuid.UUID     `json:"bookmark_id,omitempty"`
	NotBefore  *time.Time     `json:"not_before,omitempty"` // nil = immediate
	NotAfter   *time.Time     `json:"not_after,omitempty"`  // nil = never expires
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	RetryCount int            `json:"retry_count"`
	MaxRetries int            `json:"max_retries"`
}

// NewJob creates a new job
func NewJob(jobType JobType, userID uuid.UUID, bookmarkID *uuid.UUID) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		UserID:     userID,
		BookmarkID: bookmarkID,
		Metadata:   make(map[string]any),
		CreatedAt:  time.Now(),
		MaxRetries: DefaultMaxRetries,
	}
}

// NewTagAnalysisJob creates a tag_analysis job for userID that becomes due after delay
func NewTagAnalysisJob(userID uuid.UUID, delay time.Duration) *Job {
	job := NewJob(JobTypeTagAnalysis, userID, nil)
	if delay > 0 {
		notBefore := job.CreatedAt.Add(delay)
		job.NotBefore = &notBefore
	}
	return job
}

// ShouldProcess reports whether the job is inside its processing window
func (j *Job) ShouldProcess() bool {
	now := time.Now()
	if j.NotBefore != nil && now.Before(*j.NotBefore) {
		return false
	}
	return !j.IsExpired()
}

// IsExpired reports whether NotAfter has passed
func (j *Job) IsExpired() bool {
	return j.NotAfter != nil && time.Now().After(*j.NotAfter)
}

// CanRetry reports whether another attempt is allowed
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry increments the retry count
func (j *Job) IncrementRetry() {
	j.RetryCount++
}
