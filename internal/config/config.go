// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database, the LinkedIn platform client,
// the publish scheduler, rate limiting, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "linkedin-publisher")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// LinkedInConfig defines how the platform client talks to LinkedIn and how the
// publish strategy retries.
type LinkedInConfig struct {
	Mode           string        // LINKEDIN_MODE: live|fake
	APIBaseURL     string        // LINKEDIN_API_BASE_URL
	ReadTimeout    time.Duration // LINKEDIN_READ_TIMEOUT (register, analytics, media fetch)
	PostTimeout    time.Duration // LINKEDIN_POST_TIMEOUT (create-post and byte upload calls)
	RetryAttempts  int           // LINKEDIN_MODERN_RETRIES: extra modern attempts after a 500 on media posts
	RetryDelay     time.Duration // LINKEDIN_RETRY_DELAY
	SettleDelay    time.Duration // LINKEDIN_IMAGE_SETTLE_DELAY
	LegacyForMedia bool          // LINKEDIN_LEGACY_FOR_MEDIA
	RPS            float64       // LINKEDIN_RPS outbound calls per second (0 = unlimited)
	UploadWorkers  int           // LINKEDIN_UPLOAD_WORKERS concurrent asset uploads per publish
}

// SchedulerConfig defines the background dispatch and reconciliation loops.
type SchedulerConfig struct {
	Enabled           bool          // SCHEDULER_ENABLED
	TickInterval      time.Duration // SCHEDULER_TICK
	BatchSize         int           // SCHEDULER_BATCH_SIZE
	Concurrency       int           // SCHEDULER_CONCURRENCY
	ReconcileInterval time.Duration // RECONCILE_INTERVAL
	RedisURL          string        // REDIS_URL (empty = in-process lock)
	LockTTL           time.Duration // DISPATCH_LOCK_TTL
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Database
	DBDriver    string // sqlite|postgres
	DBPath      string // SQLite path
	DatabaseURL string // Postgres DSN when DBDriver=postgres

	// Publishing
	LinkedIn  LinkedInConfig
	Scheduler SchedulerConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Database
		DBDriver:    strings.ToLower(getenv("DB_DRIVER", "sqlite")),
		DBPath:      getenv("DB_PATH", "publisher.db"),
		DatabaseURL: getenv("DATABASE_URL", ""),

		// Publishing
		LinkedIn: LinkedInConfig{
			Mode:           strings.ToLower(getenv("LINKEDIN_MODE", "live")),
			APIBaseURL:     strings.TrimRight(getenv("LINKEDIN_API_BASE_URL", "https://api.linkedin.com"), "/"),
			ReadTimeout:    getdur("LINKEDIN_READ_TIMEOUT", 15*time.Second),
			PostTimeout:    getdur("LINKEDIN_POST_TIMEOUT", 60*time.Second),
			RetryAttempts:  getint("LINKEDIN_MODERN_RETRIES", 2),
			RetryDelay:     getdur("LINKEDIN_RETRY_DELAY", 3*time.Second),
			SettleDelay:    getdur("LINKEDIN_IMAGE_SETTLE_DELAY", 5*time.Second),
			LegacyForMedia: getbool("LINKEDIN_LEGACY_FOR_MEDIA", false),
			RPS:            getfloat("LINKEDIN_RPS", 10),
			UploadWorkers:  getint("LINKEDIN_UPLOAD_WORKERS", 4),
		},
		Scheduler: SchedulerConfig{
			Enabled:           getbool("SCHEDULER_ENABLED", true),
			TickInterval:      getdur("SCHEDULER_TICK", 30*time.Second),
			BatchSize:         getint("SCHEDULER_BATCH_SIZE", 50),
			Concurrency:       getint("SCHEDULER_CONCURRENCY", 4),
			ReconcileInterval: getdur("RECONCILE_INTERVAL", time.Hour),
			RedisURL:          getenv("REDIS_URL", ""),
			LockTTL:           getdur("DISPATCH_LOCK_TTL", 10*time.Minute),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "linkedin-publisher"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	switch cfg.DBDriver {
	case "sqlite":
	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return cfg, errors.New("DATABASE_URL must be set when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	switch cfg.LinkedIn.Mode {
	case "live", "fake":
	default:
		return cfg, errors.New("LINKEDIN_MODE must be one of: live, fake")
	}
	if cfg.LinkedIn.ReadTimeout <= 0 || cfg.LinkedIn.PostTimeout <= 0 {
		return cfg, errors.New("LINKEDIN_READ_TIMEOUT and LINKEDIN_POST_TIMEOUT must be positive durations")
	}
	if cfg.LinkedIn.RetryAttempts < 0 {
		return cfg, errors.New("LINKEDIN_MODERN_RETRIES must be >= 0")
	}
	if cfg.LinkedIn.RetryDelay < 0 || cfg.LinkedIn.SettleDelay < 0 {
		return cfg, errors.New("LINKEDIN_RETRY_DELAY and LINKEDIN_IMAGE_SETTLE_DELAY must be >= 0")
	}
	if cfg.LinkedIn.RPS < 0 {
		return cfg, errors.New("LINKEDIN_RPS must be >= 0")
	}
	if cfg.LinkedIn.UploadWorkers < 1 {
		return cfg, errors.New("LINKEDIN_UPLOAD_WORKERS must be >= 1")
	}
	if cfg.Scheduler.TickInterval <= 0 || cfg.Scheduler.ReconcileInterval <= 0 || cfg.Scheduler.LockTTL <= 0 {
		return cfg, errors.New("scheduler intervals must be positive durations")
	}
	if cfg.Scheduler.BatchSize < 1 || cfg.Scheduler.Concurrency < 1 {
		return cfg, errors.New("SCHEDULER_BATCH_SIZE and SCHEDULER_CONCURRENCY must be >= 1")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
