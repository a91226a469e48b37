package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/smart-bookmarks/internal/config"
	"github.com/benvon/smart-bookmarks/internal/database"
	"github.com/benvon/smart-bookmarks/internal/handlers"
	"github.com/benvon/smart-bookmarks/internal/logger"
	"github.com/benvon/smart-bookmarks/internal/middleware"
	"github.com/benvon/smart-bookmarks/internal/queue"
	"github.com/benvon/smart-bookmarks/internal/services/auth"
	"github.com/benvon/smart-bookmarks/internal/services/bookmarks"
	"github.com/benvon/smart-bookmarks/internal/services/nlp"
	"github.com/benvon/smart-bookmarks/internal/services/tags"
	"github.com/benvon/smart-bookmarks/internal/services/users"
	"github.com/benvon/smart-bookmarks/internal/tagging"
	"github.com/benvon/smart-bookmarks/internal/telemetry"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

const serviceName = "smart-bookmarks-api"

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for classifier API logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewLogger(debugMode, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("env", cfg.AppEnv),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("nlp_provider", cfg.NLPProvider),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	shutdownTracer := telemetry.Setup(context.Background(), telemetry.Options{
		Enabled:     cfg.OTELEnabled,
		ServiceName: serviceName,
		Version:     cfg.Version,
		Endpoint:    cfg.OTELEndpoint,
	}, zapLogger)
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
		}
	}()

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_database")

	// Without Redis the limiter counts per process.
	redisClient, err := middleware.NewRedisClient(context.Background(), cfg.RedisURL)
	if err != nil {
		zapLogger.Warn("failed_to_connect_to_redis_using_memory_store", zap.Error(err))
		redisClient = nil
	} else {
		zapLogger.Info("connected_to_redis")
		defer func() {
			if err := redisClient.Close(); err != nil {
				zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
			}
		}()
	}
	limiterStore, err := middleware.NewLimiterStore(redisClient, "smart_bookmarks_ratelimit")
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limit_store", zap.Error(err))
	}

	var jobQueue queue.JobQueue
	if cfg.RabbitMQURL != "" {
		jobQueue = connectQueue(cfg.RabbitMQURL, zapLogger)
		defer func() {
			if err := jobQueue.Close(); err != nil {
				zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
			}
		}()
	} else {
		zapLogger.Warn("rabbitmq_not_configured_tag_statistics_will_not_refresh")
	}

	userRepo := database.NewUserRepository(db)
	bookmarkRepo := database.NewBookmarkRepository(db)
	tagRepo := database.NewTagRepository(db)
	tagStatsRepo := database.NewTagStatisticsRepository(db)
	corsConfigRepo := database.NewCorsConfigRepository(db)
	ratelimitConfigRepo := database.NewRatelimitConfigRepository(db)

	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL, cfg.JWTIssuer)
	if err != nil {
		zapLogger.Fatal("failed_to_create_token_manager", zap.Error(err))
	}

	// A nil Enqueuer must stay a nil interface for the notifier to skip enqueueing.
	var enqueuer tags.Enqueuer
	if jobQueue != nil {
		enqueuer = jobQueue
	}
	notifier := tags.NewChangeNotifier(tagStatsRepo, enqueuer, zapLogger)

	tagger := tagging.NewFromSettings(tagging.Settings{
		Provider: cfg.NLPProvider,
		Classifier: nlp.ProviderConfig{
			APIKey:        cfg.OpenAIKey,
			BaseURL:       cfg.AIBaseURL,
			Model:         cfg.AIModel,
			GazetteerPath: cfg.GazetteerPath,
			DebugMode:     debugMode,
		},
		FetchTimeout:    cfg.FetchTimeout,
		MaxBodyBytes:    cfg.MaxBodyBytes,
		UserAgent:       cfg.TaggingUserAgent,
		ExtractFromHTML: cfg.ExtractFromHTML,
	}, zapLogger)

	authService := auth.NewService(userRepo, tokens, zapLogger)
	userService := users.NewService(userRepo, bookmarkRepo, zapLogger)
	tagService := tags.NewService(tagRepo, tagStatsRepo, zapLogger)
	bookmarkService := bookmarks.NewService(bookmarkRepo, tagRepo, tagger, notifier.TagsChanged, zapLogger)

	authHandler := handlers.NewAuthHandler(authService, zapLogger)
	userHandler := handlers.NewUserHandler(userService, zapLogger)
	bookmarkHandler := handlers.NewBookmarkHandler(bookmarkService, zapLogger)
	tagHandler := handlers.NewTagHandler(tagService, zapLogger)

	healthChecker := handlers.NewHealthChecker(cfg.AppEnv, cfg.Version, zapLogger)
	healthChecker.AddCheck("database", db.PingContext)
	if redisClient != nil {
		healthChecker.AddCheck("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	if jobQueue != nil {
		healthChecker.AddCheck("queue", jobQueue.HealthCheck)
	}

	r := mux.NewRouter()

	// gorilla/mux runs middleware in registration order: the first registered is outermost.
	zapLogger.Info("setting_up_middleware")
	if cfg.OTELEnabled {
		r.Use(otelmux.Middleware(serviceName))
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	corsReloader := middleware.NewCORSReloader(corsConfigRepo, cfg.FrontendURL, zapLogger, cfg.ReloadInterval)
	r.Use(corsReloader.Middleware())
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(middleware.DefaultRequestTimeout))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Audit(zapLogger))
	r.Use(middleware.Metrics(middleware.NewHTTPMetrics(prometheus.DefaultRegisterer)))
	r.Use(middleware.Logging(zapLogger))

	rateLimitReloader := middleware.NewRateLimitReloader(limiterStore, ratelimitConfigRepo, cfg.RateLimitDefault, zapLogger, cfg.ReloadInterval)
	rateLimitMW := rateLimitReloader.Middleware()
	authRateLimitMW, err := middleware.StaticRateLimit(limiterStore, cfg.RateLimitAuth)
	if err != nil {
		zapLogger.Fatal("invalid_auth_rate_limit", zap.String("rate", cfg.RateLimitAuth), zap.Error(err))
	}
	authMW := middleware.Auth(tokens, userRepo, zapLogger)

	healthChecker.RegisterRoutes(r)
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	handlers.NewOpenAPIHandler(cfg.OpenAPIPath).RegisterRoutes(r)

	apiRouter := r.PathPrefix("/api/v1").Subrouter()

	publicAuthRouter := apiRouter.PathPrefix("/auth").Subrouter()
	publicAuthRouter.Use(authRateLimitMW)
	authHandler.RegisterPublicRoutes(publicAuthRouter)

	protectedAuthRouter := apiRouter.PathPrefix("/auth").Subrouter()
	protectedAuthRouter.Use(authMW)
	protectedAuthRouter.Use(rateLimitMW)
	authHandler.RegisterRoutes(protectedAuthRouter)

	for prefix, register := range map[string]func(*mux.Router){
		"/users":     userHandler.RegisterRoutes,
		"/bookmarks": bookmarkHandler.RegisterRoutes,
		"/tags":      tagHandler.RegisterRoutes,
	} {
		sub := apiRouter.PathPrefix(prefix).Subrouter()
		sub.Use(authMW)
		sub.Use(rateLimitMW)
		register(sub)
	}

	// CORS middleware has already answered; this only gives preflights a matching route.
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   middleware.DefaultRequestTimeout + 5*time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	go corsReloader.Start(bgCtx)
	go rateLimitReloader.Start(bgCtx)

	if dlqPurger, ok := jobQueue.(queue.DLQPurger); ok {
		const gcInterval = time.Hour
		dlqGC := queue.NewGarbageCollector(dlqPurger, gcInterval, cfg.DLQRetention, zapLogger)
		go func() {
			if err := dlqGC.Start(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
			}
		}()
		zapLogger.Info("started_dlq_garbage_collector",
			zap.Duration("interval", gcInterval),
			zap.Duration("retention", cfg.DLQRetention),
		)
	}

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	bgCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
		return
	}

	zapLogger.Info("server_exited")
}

// connectQueue dials RabbitMQ with exponential backoff to ride out broker startup delays.
// It exits the process when every attempt fails.
func connectQueue(url string, zapLogger *zap.Logger) queue.JobQueue {
	const (
		maxRetries   = 10
		initialDelay = 2 * time.Second
		maxDelay     = 30 * time.Second
	)

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		q, err := queue.NewRabbitMQQueue(url, zapLogger)
		if err == nil {
			zapLogger.Info("connected_to_rabbitmq")
			return q
		}

		lastErr = err
		delay := initialDelay * time.Duration(1<<uint(attempt))
		if delay > maxDelay {
			delay = maxDelay
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Duration("retry_delay", delay),
			zap.Error(err),
		)
		time.Sleep(delay)
	}

	zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries",
		zap.Int("max_retries", maxRetries),
		zap.Error(lastErr),
	)
	return nil
}
