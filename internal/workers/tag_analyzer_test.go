package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/benvon/smart-bookmarks/internal/database"
	"github.com/benvon/smart-bookmarks/internal/models"
	"github.com/benvon/smart-bookmarks/internal/queue"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// mockTagStatisticsRepoForWorker is a mock for testing tag analyzer worker
type mockTagStatisticsRepoForWorker struct {
	t                       *testing.T
	getByUserIDOrCreateFunc func(ctx context.Context, userID uuid.UUID) (*models.TagStatistics, error)
	updateStatisticsFunc    func(ctx context.Context, stats *models.TagStatistics) (bool, error)

	// Call tracking (protected by mutex for concurrent access)
	mu                    sync.Mutex
	updateStatisticsCalls []*models.TagStatistics
}

func (m *mockTagStatisticsRepoForWorker) GetByUserID(context.Context, uuid.UUID) (*models.TagStatistics, error) {
	m.t.Fatal("GetByUserID called but not expected")
	return nil, nil
}

func (m *mockTagStatisticsRepoForWorker) GetByUserIDOrCreate(ctx context.Context, userID uuid.UUID) (*models.TagStatistics, error) {
	if m.getByUserIDOrCreateFunc == nil {
		m.t.Fatal("GetByUserIDOrCreate called but not configured in test - mock requires explicit setup")
	}
	return m.getByUserIDOrCreateFunc(ctx, userID)
}

func (m *mockTagStatisticsRepoForWorker) UpdateStatistics(ctx context.Context, stats *models.TagStatistics) (bool, error) {
	m.mu.Lock()
	m.updateStatisticsCalls = append(m.updateStatisticsCalls, stats)
	m.mu.Unlock()
	if m.updateStatisticsFunc == nil {
		m.t.Fatal("UpdateStatistics called but not configured in test - mock requires explicit setup")
	}
	return m.updateStatisticsFunc(ctx, stats)
}

func (m *mockTagStatisticsRepoForWorker) MarkTainted(context.Context, uuid.UUID) (bool, error) {
	m.t.Fatal("MarkTainted called but not expected")
	return false, nil
}

func (m *mockTagStatisticsRepoForWorker) updates() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.updateStatisticsCalls)
}

var _ database.TagStatisticsRepositoryInterface = (*mockTagStatisticsRepoForWorker)(nil)

// mockBookmarkRepo only serves tag rows; every other method is unused by the worker
type mockBookmarkRepo struct {
	database.BookmarkRepositoryInterface
	listTagRowsFunc func(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]models.BookmarkTagRow, error)

	mu    sync.Mutex
	pages []int
}

func (m *mockBookmarkRepo) ListTagRowsByUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]models.BookmarkTagRow, error) {
	m.mu.Lock()
	m.pages = append(m.pages, page)
	m.mu.Unlock()
	return m.listTagRowsFunc(ctx, userID, page, pageSize)
}

// pagedRows serves rows the way the repository pages them
func pagedRows(rows []models.BookmarkTagRow) func(context.Context, uuid.UUID, int, int) ([]models.BookmarkTagRow, error) {
	return func(_ context.Context, _ uuid.UUID, page, pageSize int) ([]models.BookmarkTagRow, error) {
		offset := (page - 1) * pageSize
		if offset >= len(rows) {
			return []models.BookmarkTagRow{}, nil
		}
		end := min(offset+pageSize, len(rows))
		return rows[offset:end], nil
	}
}

// mockMessage is a mock implementation of MessageInterface
type mockMessage struct {
	job *queue.Job

	mu      sync.Mutex
	acks    int
	nacks   []bool
	ackFunc func() error
}

func (m *mockMessage) Ack() error {
	m.mu.Lock()
	m.acks++
	m.mu.Unlock()
	if m.ackFunc != nil {
		return m.ackFunc()
	}
	return nil
}

func (m *mockMessage) Nack(requeue bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nacks = append(m.nacks, requeue)
	return nil
}

func (m *mockMessage) GetJob() *queue.Job {
	return m.job
}

var _ queue.MessageInterface = (*mockMessage)(nil)

type mockRequeuer struct {
	mu      sync.Mutex
	jobs    []*queue.Job
	failErr error
}

func (m *mockRequeuer) Enqueue(_ context.Context, job *queue.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.jobs = append(m.jobs, job)
	return nil
}

func tagAnalysisJob(userID uuid.UUID) *queue.Job {
	return queue.NewJob(queue.JobTypeTagAnalysis, userID, nil)
}

func newTestAnalyzer(bookmarks *mockBookmarkRepo, stats *mockTagStatisticsRepoForWorker, requeue Requeuer) (*TagAnalyzer, *Metrics) {
	metrics := NewMetrics(prometheus.NewRegistry())
	return NewTagAnalyzer(bookmarks, stats, requeue, metrics, nil), metrics
}

func freshStats(userID uuid.UUID) func(context.Context, uuid.UUID) (*models.TagStatistics, error) {
	return func(context.Context, uuid.UUID) (*models.TagStatistics, error) {
		return &models.TagStatistics{UserID: userID, TagStats: map[string]models.TagStats{}, Tainted: true}, nil
	}
}

func TestTagAnalyzer_ProcessJob_AggregatesBySource(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	b1, b2 := uuid.New(), uuid.New()
	rows := []models.BookmarkTagRow{
		{BookmarkID: b1, TagName: "golang", Source: models.TagSourceAuto},
		{BookmarkID: b1, TagName: "reading", Source: models.TagSourceUser},
		{BookmarkID: b2, TagName: "golang", Source: models.TagSourceAuto},
		{BookmarkID: b2, TagName: "reading", Source: models.TagSourceAuto},
	}

	var saved *models.TagStatistics
	stats := &mockTagStatisticsRepoForWorker{
		t:                       t,
		getByUserIDOrCreateFunc: freshStats(userID),
		updateStatisticsFunc: func(_ context.Context, s *models.TagStatistics) (bool, error) {
			saved = s
			return true, nil
		},
	}
	analyzer, metrics := newTestAnalyzer(&mockBookmarkRepo{listTagRowsFunc: pagedRows(rows)}, stats, nil)

	msg := &mockMessage{job: tagAnalysisJob(userID)}
	if err := analyzer.ProcessJob(context.Background(), msg); err != nil {
		t.Fatalf("ProcessJob failed: %v", err)
	}

	want := map[string]models.TagStats{
		"golang":  {Total: 2, Auto: 2},
		"reading": {Total: 2, Auto: 1, User: 1},
	}
	if saved == nil {
		t.Fatal("UpdateStatistics was not called")
	}
	if len(saved.TagStats) != len(want) {
		t.Fatalf("TagStats = %v, want %v", saved.TagStats, want)
	}
	for tag, w := range want {
		if got := saved.TagStats[tag]; got != w {
			t.Errorf("TagStats[%q] = %+v, want %+v", tag, got, w)
		}
	}
	if saved.LastAnalyzedAt == nil {
		t.Error("LastAnalyzedAt was not set")
	}
	if msg.acks != 1 || len(msg.nacks) != 0 {
		t.Errorf("acks=%d nacks=%v, want one ack", msg.acks, msg.nacks)
	}
	if got := testutil.ToFloat64(metrics.Jobs.WithLabelValues(string(queue.JobTypeTagAnalysis), OutcomeSucceeded)); got != 1 {
		t.Errorf("succeeded count = %v, want 1", got)
	}
}

func TestTagAnalyzer_ProcessTagAnalysisJob_LoadsAllPages(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	rows := make([]models.BookmarkTagRow, 750)
	for i := range rows {
		rows[i] = models.BookmarkTagRow{BookmarkID: uuid.New(), TagName: "test", Source: models.TagSourceAuto}
	}

	bookmarks := &mockBookmarkRepo{listTagRowsFunc: pagedRows(rows)}
	stats := &mockTagStatisticsRepoForWorker{
		t:                       t,
		getByUserIDOrCreateFunc: freshStats(userID),
		updateStatisticsFunc: func(_ context.Context, s *models.TagStatistics) (bool, error) {
			if s.TagStats["test"].Total != 750 {
				t.Errorf("Expected test tag total=750, got %d", s.TagStats["test"].Total)
			}
			return true, nil
		},
	}
	analyzer, _ := newTestAnalyzer(bookmarks, stats, nil)

	if err := analyzer.ProcessTagAnalysisJob(context.Background(), tagAnalysisJob(userID)); err != nil {
		t.Fatalf("ProcessTagAnalysisJob failed: %v", err)
	}
	if len(bookmarks.pages) != 2 {
		t.Errorf("pages read = %v, want [1 2]", bookmarks.pages)
	}
}

func TestTagAnalyzer_ProcessTagAnalysisJob_HandlesEmptyTags(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	stats := &mockTagStatisticsRepoForWorker{
		t: t,
		getByUserIDOrCreateFunc: func(context.Context, uuid.UUID) (*models.TagStatistics, error) {
			return &models.TagStatistics{
				UserID:   userID,
				TagStats: map[string]models.TagStats{"stale": {Total: 3, Auto: 3}},
			}, nil
		},
		updateStatisticsFunc: func(_ context.Context, s *models.TagStatistics) (bool, error) {
			if len(s.TagStats) != 0 {
				t.Errorf("Expected empty tag stats, got %v", s.TagStats)
			}
			return true, nil
		},
	}
	analyzer, _ := newTestAnalyzer(&mockBookmarkRepo{listTagRowsFunc: pagedRows(nil)}, stats, nil)

	if err := analyzer.ProcessTagAnalysisJob(context.Background(), tagAnalysisJob(userID)); err != nil {
		t.Fatalf("ProcessTagAnalysisJob failed: %v", err)
	}
	if stats.updates() != 1 {
		t.Errorf("UpdateStatistics calls = %d, want 1", stats.updates())
	}
}

func TestTagAnalyzer_ProcessTagAnalysisJob_VersionConflict(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	stats := &mockTagStatisticsRepoForWorker{
		t:                       t,
		getByUserIDOrCreateFunc: freshStats(userID),
		updateStatisticsFunc: func(context.Context, *models.TagStatistics) (bool, error) {
			return false, nil
		},
	}
	analyzer, _ := newTestAnalyzer(&mockBookmarkRepo{listTagRowsFunc: pagedRows(nil)}, stats, nil)

	msg := &mockMessage{job: tagAnalysisJob(userID)}
	if err := analyzer.ProcessJob(context.Background(), msg); err != nil {
		t.Fatalf("a lost version race is not an error, got %v", err)
	}
	if msg.acks != 1 {
		t.Errorf("acks = %d, want 1", msg.acks)
	}
}

func TestTagAnalyzer_ProcessJob_Failures(t *testing.T) {
	t.Parallel()

	dbErr := errors.New("database unavailable")

	tests := []struct {
		name        string
		job         func() *queue.Job
		requeue     *mockRequeuer
		wantAcks    int
		wantNacks   []bool
		wantRetried int
		wantOutcome string
	}{
		{
			name:        "retryable failure is requeued with backoff",
			job:         func() *queue.Job { return tagAnalysisJob(uuid.New()) },
			requeue:     &mockRequeuer{},
			wantAcks:    1,
			wantRetried: 1,
			wantOutcome: OutcomeRetried,
		},
		{
			name: "exhausted retries are dead-lettered",
			job: func() *queue.Job {
				job := tagAnalysisJob(uuid.New())
				job.RetryCount = job.MaxRetries
				return job
			},
			requeue:     &mockRequeuer{},
			wantNacks:   []bool{false},
			wantOutcome: OutcomeDeadLettered,
		},
		{
			name:        "requeue failure falls back to the dead letter queue",
			job:         func() *queue.Job { return tagAnalysisJob(uuid.New()) },
			requeue:     &mockRequeuer{failErr: errors.New("broker down")},
			wantNacks:   []bool{false},
			wantOutcome: OutcomeDeadLettered,
		},
		{
			name:        "no requeuer dead-letters immediately",
			job:         func() *queue.Job { return tagAnalysisJob(uuid.New()) },
			wantNacks:   []bool{false},
			wantOutcome: OutcomeDeadLettered,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			stats := &mockTagStatisticsRepoForWorker{
				t: t,
				getByUserIDOrCreateFunc: func(context.Context, uuid.UUID) (*models.TagStatistics, error) {
					return nil, dbErr
				},
			}
			var rq Requeuer
			if tt.requeue != nil {
				rq = tt.requeue
			}
			metrics := NewMetrics(prometheus.NewRegistry())
			analyzer := NewTagAnalyzer(&mockBookmarkRepo{}, stats, rq, metrics, nil)

			job := tt.job()
			msg := &mockMessage{job: job}
			err := analyzer.ProcessJob(context.Background(), msg)
			if !errors.Is(err, dbErr) {
				t.Fatalf("error = %v, want wrapping %v", err, dbErr)
			}
			if msg.acks != tt.wantAcks {
				t.Errorf("acks = %d, want %d", msg.acks, tt.wantAcks)
			}
			if fmt.Sprint(msg.nacks) != fmt.Sprint(tt.wantNacks) {
				t.Errorf("nacks = %v, want %v", msg.nacks, tt.wantNacks)
			}
			if tt.requeue != nil && len(tt.requeue.jobs) != tt.wantRetried {
				t.Fatalf("requeued %d jobs, want %d", len(tt.requeue.jobs), tt.wantRetried)
			}
			if tt.wantRetried > 0 {
				next := tt.requeue.jobs[0]
				if next.ID != job.ID || next.RetryCount != job.RetryCount+1 {
					t.Errorf("requeued job = %+v, want same ID with retry count %d", next, job.RetryCount+1)
				}
				if next.NotBefore == nil || !next.NotBefore.After(time.Now()) {
					t.Errorf("requeued job NotBefore = %v, want a future time", next.NotBefore)
				}
			}
			if got := testutil.ToFloat64(metrics.Jobs.WithLabelValues(string(queue.JobTypeTagAnalysis), tt.wantOutcome)); got != 1 {
				t.Errorf("%s count = %v, want 1", tt.wantOutcome, got)
			}
		})
	}
}

func TestTagAnalyzer_ProcessTagAnalysisJob_MissingUserID(t *testing.T) {
	t.Parallel()

	analyzer, _ := newTestAnalyzer(&mockBookmarkRepo{}, &mockTagStatisticsRepoForWorker{t: t}, nil)
	job := &queue.Job{ID: uuid.New(), Type: queue.JobTypeTagAnalysis}
	if err := analyzer.ProcessTagAnalysisJob(context.Background(), job); err == nil {
		t.Fatal("expected error for missing user id")
	}
}

func TestTagAnalyzer_ProcessJob_InvalidJobType(t *testing.T) {
	t.Parallel()

	analyzer, _ := newTestAnalyzer(&mockBookmarkRepo{}, &mockTagStatisticsRepoForWorker{t: t}, &mockRequeuer{})
	msg := &mockMessage{job: queue.NewJob("reprocess_everything", uuid.New(), nil)}

	if err := analyzer.ProcessJob(context.Background(), msg); err == nil {
		t.Fatal("expected error for unknown job type")
	}
	if len(msg.nacks) != 1 || msg.nacks[0] {
		t.Errorf("nacks = %v, want a single nack without requeue", msg.nacks)
	}
}

func TestTagAnalyzer_ProcessJob_ExpiredJobIsDropped(t *testing.T) {
	t.Parallel()

	analyzer, metrics := newTestAnalyzer(&mockBookmarkRepo{}, &mockTagStatisticsRepoForWorker{t: t}, nil)
	job := tagAnalysisJob(uuid.New())
	past := time.Now().Add(-time.Minute)
	job.NotAfter = &past
	msg := &mockMessage{job: job}

	if err := analyzer.ProcessJob(context.Background(), msg); err != nil {
		t.Fatalf("ProcessJob failed: %v", err)
	}
	if msg.acks != 1 {
		t.Errorf("acks = %d, want 1", msg.acks)
	}
	if got := testutil.ToFloat64(metrics.Jobs.WithLabelValues(string(queue.JobTypeTagAnalysis), OutcomeExpired)); got != 1 {
		t.Errorf("expired count = %v, want 1", got)
	}
}

func TestTagAnalyzer_ProcessJob_DebouncedJobs(t *testing.T) {
	t.Parallel()

	t.Run("waits for NotBefore then processes", func(t *testing.T) {
		t.Parallel()

		userID := uuid.New()
		stats := &mockTagStatisticsRepoForWorker{
			t:                       t,
			getByUserIDOrCreateFunc: freshStats(userID),
			updateStatisticsFunc: func(context.Context, *models.TagStatistics) (bool, error) {
				return true, nil
			},
		}
		analyzer, _ := newTestAnalyzer(&mockBookmarkRepo{listTagRowsFunc: pagedRows(nil)}, stats, nil)

		job := queue.NewTagAnalysisJob(userID, 50*time.Millisecond)
		start := time.Now()
		if err := analyzer.ProcessJob(context.Background(), &mockMessage{job: job}); err != nil {
			t.Fatalf("ProcessJob failed: %v", err)
		}
		if time.Since(start) < 40*time.Millisecond {
			t.Error("job was processed before its NotBefore")
		}
		if stats.updates() != 1 {
			t.Errorf("UpdateStatistics calls = %d, want 1", stats.updates())
		}
	})

	t.Run("shutdown while waiting requeues the message", func(t *testing.T) {
		t.Parallel()

		analyzer, _ := newTestAnalyzer(&mockBookmarkRepo{}, &mockTagStatisticsRepoForWorker{t: t}, nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		msg := &mockMessage{job: queue.NewTagAnalysisJob(uuid.New(), time.Hour)}
		if err := analyzer.ProcessJob(ctx, msg); !errors.Is(err, context.Canceled) {
			t.Fatalf("error = %v, want context.Canceled", err)
		}
		if len(msg.nacks) != 1 || !msg.nacks[0] {
			t.Errorf("nacks = %v, want a single requeue", msg.nacks)
		}
	})
}

func TestTagAnalyzer_ProcessJob_ConcurrentWorkers(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	rows := []models.BookmarkTagRow{{BookmarkID: uuid.New(), TagName: "golang", Source: models.TagSourceAuto}}

	var versionMu sync.Mutex
	version := 0
	stats := &mockTagStatisticsRepoForWorker{
		t: t,
		getByUserIDOrCreateFunc: func(context.Context, uuid.UUID) (*models.TagStatistics, error) {
			versionMu.Lock()
			defer versionMu.Unlock()
			return &models.TagStatistics{UserID: userID, AnalysisVersion: version}, nil
		},
		updateStatisticsFunc: func(_ context.Context, s *models.TagStatistics) (bool, error) {
			versionMu.Lock()
			defer versionMu.Unlock()
			if s.AnalysisVersion != version {
				return false, nil
			}
			version++
			return true, nil
		},
	}
	analyzer, metrics := newTestAnalyzer(&mockBookmarkRepo{listTagRowsFunc: pagedRows(rows)}, stats, nil)

	const workers = 8
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := analyzer.ProcessJob(context.Background(), &mockMessage{job: tagAnalysisJob(userID)}); err != nil {
				t.Errorf("ProcessJob failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if stats.updates() != workers {
		t.Errorf("UpdateStatistics calls = %d, want %d", stats.updates(), workers)
	}
	if got := testutil.ToFloat64(metrics.Jobs.WithLabelValues(string(queue.JobTypeTagAnalysis), OutcomeSucceeded)); got != workers {
		t.Errorf("succeeded count = %v, want %d", got, workers)
	}
}

func TestRetryDelay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		retry int
		want  time.Duration
	}{
		{0, 2 * time.Second},
		{1, 4 * time.Second},
		{3, 16 * time.Second},
		{20, maxRetryDelay},
	}
	for _, tt := range tests {
		if got := retryDelay(tt.retry); got != tt.want {
			t.Errorf("retryDelay(%d) = %v, want %v", tt.retry, got, tt.want)
		}
	}
}
