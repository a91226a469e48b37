// Package tagging derives tag candidates for a bookmark from the text of its page.
package tagging

import (
	"context"
	"time"

	logpkg "github.com/benvon/smart-bookmarks/internal/logger"
	"github.com/benvon/smart-bookmarks/internal/services/nlp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	// DefaultTopN is the number of candidates callers ask for
	DefaultTopN = 5
	// UntitledTag is returned alone when a page yields no text
	UntitledTag = "Untitled"
	// DefaultMaxClassifierText caps the bytes of page text handed to the classifier
	DefaultMaxClassifierText = 100_000
)

const tracerName = "github.com/benvon/smart-bookmarks/internal/tagging"

// Tagger produces tag candidates for a URL
type Tagger interface {
	GenerateTags(ctx context.Context, url string, topN int) []string
}

// Service runs fetch, strip, readability, clean, classify, dedupe and bound.
// It is stateless per call and safe for concurrent use.
type Service struct {
	fetcher         Fetcher
	extractor       Extractor
	classifier      nlp.Classifier
	logger          *zap.Logger
	metrics         *Metrics
	tracer          trace.Tracer
	extractFromHTML bool
	maxText         int
}

var _ Tagger = (*Service)(nil)

// Option configures a Service
type Option func(*Service)

// WithFetcher replaces the default HTTP fetcher
func WithFetcher(f Fetcher) Option {
	return func(s *Service) {
		if f != nil {
			s.fetcher = f
		}
	}
}

// WithExtractor replaces the default readability extractor
func WithExtractor(e Extractor) Option {
	return func(s *Service) {
		if e != nil {
			s.extractor = e
		}
	}
}

// WithMetrics replaces the collectors registered on the default registry
func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithExtractFromHTML runs readability on the fetched HTML instead of on the stripped text
func WithExtractFromHTML(enabled bool) Option {
	return func(s *Service) {
		s.extractFromHTML = enabled
	}
}

// WithMaxClassifierText changes how many bytes of text reach the classifier.
// Values below 1 are ignored.
func WithMaxClassifierText(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxText = n
		}
	}
}

// NewService creates a pipeline around a classifier that was built once at startup
func NewService(classifier nlp.Classifier, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		fetcher:    NewHTTPFetcher(WithFetchLogger(logger)),
		extractor:  NewReadabilityExtractor(),
		classifier: classifier,
		logger:     logger,
		metrics:    defaultMetrics,
		tracer:     otel.Tracer(tracerName),
		maxText:    DefaultMaxClassifierText,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateTags returns at most topN distinct candidates in classifier order.
// A page without text yields ["Untitled"]; a failed classification yields [].
// It never returns an error and never normalizes the candidates.
func (s *Service) GenerateTags(ctx context.Context, url string, topN int) []string {
	ctx, span := s.tracer.Start(ctx, "tagging.generate_tags",
		trace.WithAttributes(attribute.Int("tagging.top_n", topN)))
	defer span.End()

	if topN < 0 {
		topN = 0
	}

	text := s.pageText(ctx, url)
	if text == "" {
		s.finish(span, OutcomeUntitled, 1)
		return []string{UntitledTag}
	}

	res, err := s.classify(ctx, text)
	if err != nil || res == nil || res.Entities == nil {
		fields := []zap.Field{zap.String("url", logpkg.SanitizeURL(url))}
		if err != nil {
			fields = append(fields, zap.String("error", logpkg.SanitizeError(err)))
			span.RecordError(err)
		}
		s.logger.Warn("classifier_result_malformed", fields...)
		s.finish(span, OutcomeClassifierFailed, 0)
		return []string{}
	}

	tags := boundTags(res.Entities, topN)
	if len(tags) == 0 {
		s.finish(span, OutcomeEmpty, 0)
	} else {
		s.finish(span, OutcomeTagged, len(tags))
	}
	return tags
}

// pageText fetches url and reduces it to the text handed to the classifier
func (s *Service) pageText(ctx context.Context, url string) string {
	fetchCtx, span := s.tracer.Start(ctx, "tagging.fetch")
	start := time.Now()
	body := s.fetcher.Fetch(fetchCtx, url)
	s.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("tagging.body_bytes", len(body)))
	span.End()

	if s.extractFromHTML {
		return CleanWhitespace(s.extract(body, url))
	}
	return CleanWhitespace(s.extract(StripBoilerplate(body), url))
}

func (s *Service) extract(doc, url string) string {
	article, err := s.extractor.Extract(doc, url)
	if err != nil {
		s.logger.Debug("readability_extract_failed",
			zap.String("url", logpkg.SanitizeURL(url)),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		return ""
	}
	return article
}

func (s *Service) classify(ctx context.Context, text string) (*nlp.Result, error) {
	ctx, span := s.tracer.Start(ctx, "tagging.classify",
		trace.WithAttributes(attribute.Int("tagging.text_length", len(text))))
	defer span.End()

	if len(text) > s.maxText {
		text = nlp.TruncateText(text, s.maxText)
		span.SetAttributes(attribute.Bool("tagging.text_truncated", true))
	}

	if s.classifier == nil {
		return nil, nil
	}
	res, err := s.classifier.Process(ctx, nlp.LocaleEnglish, text)
	if err != nil {
		span.SetStatus(codes.Error, "classification failed")
	}
	return res, err
}

func (s *Service) finish(span trace.Span, outcome string, candidates int) {
	s.metrics.Runs.WithLabelValues(outcome).Inc()
	s.metrics.Candidates.Observe(float64(candidates))
	span.SetAttributes(
		attribute.String("tagging.outcome", outcome),
		attribute.Int("tagging.candidates", candidates),
	)
}

// boundTags extracts one tag per entity, dedupes in first-seen order and keeps the first topN
func boundTags(entities []nlp.Entity, topN int) []string {
	seen := make(map[string]struct{}, len(entities))
	tags := make([]string, 0, min(len(entities), topN))
	for _, e := range entities {
		if len(tags) == topN {
			break
		}
		tag, ok := e.Tag()
		if !ok {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}
