package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// MinJWTSecretLength is the shortest JWT_SECRET accepted outside development
const MinJWTSecretLength = 32

// EnvDevelopment is the APP_ENV value that relaxes secret checks
const EnvDevelopment = "development"

// Config holds application configuration
type Config struct {
	DatabaseURL string
	ServerPort  string
	AppEnv      string
	LogFormat   string
	Version     string
	FrontendURL string
	EnableHSTS  bool

	JWTSecret string
	JWTTTL    time.Duration
	JWTIssuer string

	RedisURL         string
	RabbitMQURL      string
	RabbitMQPrefetch int
	DLQRetention     time.Duration

	RateLimitDefault string
	RateLimitAuth    string
	ReloadInterval   time.Duration

	NLPProvider      string
	GazetteerPath    string
	OpenAIKey        string
	AIModel          string
	AIBaseURL        string
	FetchTimeout     time.Duration
	MaxBodyBytes     int64
	ExtractFromHTML  bool
	TaggingUserAgent string

	OpenAPIPath string

	WorkerDebugMode bool
	ServerDebugMode bool
	OTELEnabled     bool
	OTELEndpoint    string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	return load(os.Getenv)
}

// Read returns the environment's configuration without validating it.
// Tools that use only part of the configuration start here.
func Read() *Config {
	return read(os.Getenv)
}

func load(getenv func(string) string) (*Config, error) {
	cfg := read(getenv)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func read(getenv func(string) string) *Config {
	return &Config{
		DatabaseURL: getEnv(getenv, "DATABASE_URL", ""),
		ServerPort:  getEnv(getenv, "SERVER_PORT", "3000"),
		AppEnv:      getEnv(getenv, "APP_ENV", EnvDevelopment),
		LogFormat:   getEnv(getenv, "LOG_FORMAT", "json"),
		Version:     getEnv(getenv, "APP_VERSION", "dev"),
		FrontendURL: getEnv(getenv, "FRONTEND_URL", "http://localhost:3000"),
		EnableHSTS:  getEnvBool(getenv, "ENABLE_HSTS", false),

		JWTSecret: getEnv(getenv, "JWT_SECRET", ""),
		JWTTTL:    getEnvDuration(getenv, "JWT_TTL", 24*time.Hour),
		JWTIssuer: getEnv(getenv, "JWT_ISSUER", "smart-bookmarks"),

		RedisURL:         getEnv(getenv, "REDIS_URL", "redis://localhost:6379/0"),
		RabbitMQURL:      getEnv(getenv, "RABBITMQ_URL", ""),
		RabbitMQPrefetch: getEnvInt(getenv, "RABBITMQ_PREFETCH", 1),
		DLQRetention:     getEnvDuration(getenv, "DLQ_RETENTION", 7*24*time.Hour),

		RateLimitDefault: getEnv(getenv, "RATE_LIMIT_DEFAULT", "5-S"),
		RateLimitAuth:    getEnv(getenv, "RATE_LIMIT_AUTH", "10-M"),
		ReloadInterval:   getEnvDuration(getenv, "CONFIG_RELOAD_INTERVAL", 30*time.Second),

		NLPProvider:      getEnv(getenv, "NLP_PROVIDER", "prose"),
		GazetteerPath:    getEnv(getenv, "NLP_GAZETTEER_PATH", ""),
		OpenAIKey:        getEnv(getenv, "OPENAI_API_KEY", ""),
		AIModel:          getEnv(getenv, "AI_MODEL", ""),
		AIBaseURL:        getEnv(getenv, "AI_BASE_URL", ""),
		FetchTimeout:     getEnvDuration(getenv, "TAGGING_FETCH_TIMEOUT", 5*time.Second),
		MaxBodyBytes:     int64(getEnvInt(getenv, "TAGGING_MAX_BODY_BYTES", 5<<20)),
		ExtractFromHTML:  getEnvBool(getenv, "TAGGING_EXTRACT_FROM_HTML", false),
		TaggingUserAgent: getEnv(getenv, "TAGGING_USER_AGENT", ""),

		OpenAPIPath: getEnv(getenv, "OPENAPI_PATH", "api/openapi/openapi.yaml"),

		WorkerDebugMode: getEnvBool(getenv, "WORKER_DEBUG_MODE", false),
		ServerDebugMode: getEnvBool(getenv, "SERVER_DEBUG_MODE", false),
		OTELEnabled:     getEnvBool(getenv, "OTEL_ENABLED", false),
		OTELEndpoint:    getEnv(getenv, "OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.AppEnv != EnvDevelopment && len(c.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes when APP_ENV is %s", MinJWTSecretLength, c.AppEnv)
	}
	if c.RabbitMQPrefetch < 1 {
		return fmt.Errorf("RABBITMQ_PREFETCH must be positive")
	}
	return nil
}

// IsDevelopment reports whether APP_ENV is development
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == EnvDevelopment
}

func getEnv(getenv func(string) string, key, defaultValue string) string {
	if value := getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(getenv func(string) string, key string, defaultValue bool) bool {
	if value := getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(getenv func(string) string, key string, defaultValue int) int {
	if value := getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s") or a bare number of seconds
func getEnvDuration(getenv func(string) string, key string, defaultValue time.Duration) time.Duration {
	value := getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
