package workers

import (
	"github.com/benvon/smart-bookmarks/internal/queue"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Job outcomes
const (
	OutcomeSucceeded    = "succeeded"
	OutcomeRetried      = "retried"
	OutcomeDeadLettered = "dead_lettered"
	OutcomeExpired      = "expired"
)

// Metrics counts processed jobs
type Metrics struct {
	Jobs *prometheus.CounterVec
}

// NewMetrics registers worker metrics with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Jobs: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "smart_bookmarks",
			Subsystem: "worker",
			Name:      "jobs_total",
			Help:      "Jobs handled by the worker, by type and outcome.",
		}, []string{"type", "outcome"}),
	}
}

var defaultMetrics = NewMetrics(prometheus.DefaultRegisterer)

func (m *Metrics) observe(typ queue.JobType, outcome string) {
	m.Jobs.WithLabelValues(string(typ), outcome).Inc()
}
