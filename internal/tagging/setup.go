package tagging

import (
	"time"

	"github.com/benvon/smart-bookmarks/internal/services/nlp"
	"go.uber.org/zap"
)

// Settings is the runtime configuration of a pipeline
type Settings struct {
	Provider        string
	Classifier      nlp.ProviderConfig
	FetchTimeout    time.Duration
	MaxBodyBytes    int64
	UserAgent       string
	ExtractFromHTML bool
	Metrics         *Metrics
}

// BuildClassifier creates the configured classifier. A provider that cannot be built
// falls back to the rules classifier so tagging stays available.
func BuildClassifier(provider string, pc nlp.ProviderConfig, logger *zap.Logger) nlp.Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pc.Logger == nil {
		pc.Logger = logger
	}
	registry := nlp.NewRegistry()
	classifier, err := registry.Build(provider, pc)
	if err == nil {
		logger.Info("nlp_classifier_ready", zap.String("provider", provider))
		return classifier
	}

	logger.Warn("nlp_provider_unavailable_using_rules",
		zap.String("provider", provider),
		zap.Error(err),
	)
	// The gazetteer may be what failed; the built-in one always loads.
	pc.GazetteerPath = ""
	classifier, err = registry.Build(nlp.ProviderRules, pc)
	if err != nil {
		return nlp.NewRuleClassifier()
	}
	return classifier
}

// NewFromSettings wires a pipeline with an HTTP fetcher and the configured classifier
func NewFromSettings(s Settings, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	fetcher := NewHTTPFetcher(
		WithTimeout(s.FetchTimeout),
		WithMaxBodyBytes(s.MaxBodyBytes),
		WithUserAgent(s.UserAgent),
		WithFetchLogger(logger),
	)
	return NewService(
		BuildClassifier(s.Provider, s.Classifier, logger),
		logger,
		WithFetcher(fetcher),
		WithExtractFromHTML(s.ExtractFromHTML),
		WithMetrics(s.Metrics),
	)
}
