package tagging

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run outcomes recorded by the runs counter
const (
	OutcomeTagged           = "tagged"
	OutcomeUntitled         = "untitled"
	OutcomeClassifierFailed = "classifier_failed"
	OutcomeEmpty            = "empty"
)

// Metrics holds the pipeline's Prometheus collectors
type Metrics struct {
	Runs          *prometheus.CounterVec
	FetchDuration prometheus.Histogram
	Candidates    prometheus.Histogram
}

// NewMetrics registers the pipeline collectors with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smart_bookmarks",
			Subsystem: "tagging",
			Name:      "runs_total",
			Help:      "Tagging pipeline runs by outcome.",
		}, []string{"outcome"}),
		FetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "smart_bookmarks",
			Subsystem: "tagging",
			Name:      "fetch_duration_seconds",
			Help:      "Time spent fetching bookmark pages.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 10},
		}),
		Candidates: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "smart_bookmarks",
			Subsystem: "tagging",
			Name:      "candidates",
			Help:      "Tag candidates returned per run.",
			Buckets:   prometheus.LinearBuckets(0, 1, 11),
		}),
	}
}

var defaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
