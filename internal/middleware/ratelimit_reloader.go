package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/benvon/smart-bookmarks/internal/models"
	"github.com/ulule/limiter/v3"
	"go.uber.org/zap"
)

// RateLimitReloader wraps ulule/limiter and periodically reloads the rate from the database.
type RateLimitReloader struct {
	store       limiter.Store
	repo        RatelimitConfigStore
	defaultRate string
	log         *zap.Logger
	interval    time.Duration

	mu      sync.Mutex
	rate    limiter.Rate
	loaded  bool
	handles []*reloadingHandler
}

// NewRateLimitReloader creates a rate limit middleware that loads its rate from repo and hot-reloads it.
func NewRateLimitReloader(store limiter.Store, repo RatelimitConfigStore, defaultRate string, log *zap.Logger, reloadInterval time.Duration) *RateLimitReloader {
	if defaultRate == "" {
		defaultRate = DefaultRateLimit
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RateLimitReloader{
		store:       store,
		repo:        repo,
		defaultRate: defaultRate,
		log:         log,
		interval:    reloadInterval,
	}
}

// Middleware returns a middleware that wraps next with the current rate.
// It may be applied to several routers; all of them follow reloads.
func (r *RateLimitReloader) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		h := &reloadingHandler{next: next}

		r.mu.Lock()
		r.handles = append(r.handles, h)
		loaded, rate := r.loaded, r.rate
		r.mu.Unlock()

		if loaded {
			h.set(limitHandler(r.store, rate)(next))
		} else {
			r.Load(context.Background())
		}
		return h
	}
}

// Start runs the reload loop until ctx is cancelled. Call after Middleware() is applied.
func (r *RateLimitReloader) Start(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Load(ctx)
		}
	}
}

// Load reads the stored rate, seeding the default when none exists, and swaps it in.
func (r *RateLimitReloader) Load(ctx context.Context) {
	rate, err := limiter.NewRateFromFormatted(r.currentRate(ctx))
	if err != nil {
		r.log.Error("failed_to_parse_rate_limit_using_default",
			zap.Error(err),
			zap.String("default_rate", r.defaultRate),
		)
		if rate, err = limiter.NewRateFromFormatted(r.defaultRate); err != nil {
			r.log.Error("failed_to_parse_default_rate_limit",
				zap.Error(err),
				zap.String("default_rate", r.defaultRate),
			)
			return
		}
	}

	r.mu.Lock()
	changed := !r.loaded || rate != r.rate
	r.rate = rate
	r.loaded = true
	handles := append([]*reloadingHandler(nil), r.handles...)
	r.mu.Unlock()

	if !changed {
		return
	}
	r.log.Info("rate_limit_loaded",
		zap.Int64("limit", rate.Limit),
		zap.Duration("period", rate.Period),
	)
	// The store is reused; only the limiter instance carries the new rate.
	for _, h := range handles {
		h.set(limitHandler(r.store, rate)(h.next))
	}
}

func (r *RateLimitReloader) currentRate(ctx context.Context) string {
	cfg, err := r.repo.Get(ctx)
	switch {
	case err != nil:
		r.log.Warn("failed_to_load_ratelimit_config_from_db_using_default",
			zap.Error(err),
			zap.String("default_rate", r.defaultRate),
		)
		return r.defaultRate
	case cfg != nil && cfg.Rate != "":
		return cfg.Rate
	}
	if err := r.repo.Set(ctx, &models.RatelimitConfig{Rate: r.defaultRate}); err != nil {
		r.log.Error("failed_to_save_default_ratelimit_config",
			zap.Error(err),
			zap.String("default_rate", r.defaultRate),
		)
	}
	return r.defaultRate
}

// reloadingHandler serves through whichever limiter was installed last
type reloadingHandler struct {
	next    http.Handler
	mu      sync.RWMutex
	current http.Handler
}

func (h *reloadingHandler) set(handler http.Handler) {
	h.mu.Lock()
	h.current = handler
	h.mu.Unlock()
}

// ServeHTTP implements http.Handler.
func (h *reloadingHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	h.mu.RLock()
	current := h.current
	h.mu.RUnlock()
	if current != nil {
		current.ServeHTTP(w, req)
		return
	}
	h.next.ServeHTTP(w, req)
}
