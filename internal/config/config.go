package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	RunMigrations      bool
	CORSAllowedOrigins []string

	LogFormat        string
	LogLevel         string
	TracingEnabled   bool
	OTLPEndpoint     string
	ServiceName      string
	TraceSampleRatio float64

	RequestTimeout time.Duration
	BodyLimitBytes int64
	IdempotencyTTL time.Duration

	CartTTL           time.Duration
	ProductCacheTTL   time.Duration
	AnalyticsCacheTTL time.Duration
	CheckoutLockTTL   time.Duration
	CheckoutRateLimit string

	FlatCarrierBase     int64
	FlatCarrierPerKg    int64
	DefaultLineWeightKg decimal.Decimal
	PickupKeywords      []string

	CurrencySymbol string
	WhatsAppPhone  string

	AdminJWTSecret  string
	AdminAPIKeyHash string
	AdminTokenTTL   time.Duration

	AuditEnabled      bool
	AuditSampling     float64
	AsynqQueue        string
	WorkerConcurrency int
	NotifyWebhookURL  string
	NotifySecret      string
	NotifyReplayTTL   time.Duration
	MessagePrefix     string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		RunMigrations:      parseBoolDefault(k.String("RUN_MIGRATIONS"), true),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		LogFormat:        valueOrDefault(k.String("LOG_FORMAT"), "json"),
		LogLevel:         valueOrDefault(k.String("LOG_LEVEL"), "info"),
		TracingEnabled:   parseBool(k.String("TRACING_ENABLED")),
		OTLPEndpoint:     strings.TrimSpace(k.String("OTEL_EXPORTER_OTLP_ENDPOINT")),
		ServiceName:      valueOrDefault(k.String("OTEL_SERVICE_NAME"), "isa-store-api"),
		TraceSampleRatio: parseFloat(k.String("TRACE_SAMPLE_RATIO"), 1),

		RequestTimeout: parseDuration(k.String("REQUEST_TIMEOUT"), "15s"),
		BodyLimitBytes: parseInt64(k.String("BODY_LIMIT_BYTES"), 1<<20),
		IdempotencyTTL: parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),

		CartTTL:           parseDuration(k.String("CART_TTL"), "720h"),
		ProductCacheTTL:   parseDuration(k.String("PRODUCT_CACHE_TTL"), "60s"),
		AnalyticsCacheTTL: parseDuration(k.String("ANALYTICS_CACHE_TTL"), "5m"),
		CheckoutLockTTL:   parseDuration(k.String("CHECKOUT_LOCK_TTL"), "10s"),
		CheckoutRateLimit: valueOrDefault(k.String("CHECKOUT_RATE_LIMIT"), "10-M"),

		FlatCarrierBase:     parseInt64(k.String("SHIPPING_FLAT_BASE"), 3500),
		FlatCarrierPerKg:    parseInt64(k.String("SHIPPING_FLAT_PER_KG"), 1300),
		DefaultLineWeightKg: parseDecimal(k.String("SHIPPING_DEFAULT_WEIGHT_KG"), "0.5"),
		PickupKeywords:      splitAndTrim(valueOrDefault(k.String("PICKUP_KEYWORDS"), "belén,belen,heredia")),

		CurrencySymbol: valueOrDefault(k.String("CURRENCY_SYMBOL"), "₡"),
		WhatsAppPhone:  strings.TrimSpace(k.String("WHATSAPP_PHONE")),

		AdminJWTSecret:  k.String("ADMIN_JWT_SECRET"),
		AdminAPIKeyHash: strings.TrimSpace(k.String("ADMIN_API_KEY_HASH")),
		AdminTokenTTL:   parseDuration(k.String("ADMIN_TOKEN_TTL"), "24h"),

		AuditEnabled:      parseBoolDefault(k.String("AUDIT_ENABLED"), true),
		AuditSampling:     parseFloat(k.String("AUDIT_SAMPLING"), 1),
		AsynqQueue:        valueOrDefault(k.String("ASYNQ_QUEUE"), "default"),
		WorkerConcurrency: int(parseInt64(k.String("WORKER_CONCURRENCY"), 5)),
		NotifyWebhookURL:  strings.TrimSpace(k.String("NOTIFY_WEBHOOK_URL")),
		NotifySecret:      k.String("NOTIFY_WEBHOOK_SECRET"),
		NotifyReplayTTL:   parseDuration(k.String("NOTIFY_REPLAY_TTL"), "24h"),
		MessagePrefix:     strings.TrimSpace(k.String("WHATSAPP_MESSAGE_PREFIX")),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.AdminJWTSecret == "" && cfg.AdminAPIKeyHash == "" {
		return nil, errors.New("ADMIN_JWT_SECRET or ADMIN_API_KEY_HASH is required")
	}
	if cfg.FlatCarrierBase < 0 || cfg.FlatCarrierPerKg < 0 {
		return nil, errors.New("shipping rates must not be negative")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// IsProduction reports whether the app runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	return parseBoolDefault(value, false)
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseInt64(value string, fallback int64) int64 {
	parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseDecimal(value, fallback string) decimal.Decimal {
	if d, err := decimal.NewFromString(strings.TrimSpace(value)); err == nil && d.IsPositive() {
		return d
	}
	return decimal.RequireFromString(fallback)
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
