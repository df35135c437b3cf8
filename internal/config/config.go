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
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	CORSAllowedOrigins []string
	AccessTokenTTL     time.Duration
	AutoMigrate        bool
	ShutdownTimeout    time.Duration

	CurrencyCode      string
	PricingTaxRateBPS int

	CompareCacheTTL       time.Duration
	CompareVendorPriority []string
	CatalogCacheTTL       time.Duration
	CatalogDefaultLimit   int
	CatalogMaxLimit       int

	InventoryExpiryWarnDays int
	InventoryLowStockRatio  float64

	IdempotencyTTL         time.Duration
	RateLimitComparePerMin int
	RateLimitLoginPerMin   int
	BodyLimitBytes         int64

	PriceRefreshInterval   time.Duration
	PriceFetchTimeout      time.Duration
	PriceFetchConcurrency  int
	CircuitMinRequests     int
	CircuitFailureRatio    float64
	CircuitOpenFor         time.Duration
	RetryBase              time.Duration
	RetryMaxAttempts       int
	RetryJitterPercent     float64
	LockTTL                time.Duration
	LockRetryBackoff       time.Duration
	WorkerConcurrency      int
	InventoryScanCron      string
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
		JWTSecret:          k.String("JWT_SECRET"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		AccessTokenTTL:     parseDuration(k.String("ACCESS_TOKEN_TTL"), "1h"),
		AutoMigrate:        parseBool(k.String("AUTO_MIGRATE")),
		ShutdownTimeout:    parseDuration(k.String("SHUTDOWN_TIMEOUT"), "15s"),

		CurrencyCode:      valueOrDefault(k.String("CURRENCY_CODE"), "INR"),
		PricingTaxRateBPS: parseInt(k.String("PRICING_TAX_RATE_BPS"), 0),

		CompareCacheTTL:       parseDuration(k.String("COMPARE_CACHE_TTL"), "10m"),
		CompareVendorPriority: splitAndTrim(k.String("COMPARE_VENDOR_PRIORITY")),
		CatalogCacheTTL:       parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		CatalogDefaultLimit:   parseInt(k.String("CATALOG_DEFAULT_LIMIT"), 20),
		CatalogMaxLimit:       parseInt(k.String("CATALOG_MAX_LIMIT"), 100),

		InventoryExpiryWarnDays: parseInt(k.String("INVENTORY_EXPIRY_WARN_DAYS"), 3),
		InventoryLowStockRatio:  parseFloat(k.String("INVENTORY_LOW_STOCK_RATIO"), 0.25),

		IdempotencyTTL:         parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		RateLimitComparePerMin: parseInt(k.String("RATE_LIMIT_COMPARE_PER_MIN"), 60),
		RateLimitLoginPerMin:   parseInt(k.String("RATE_LIMIT_LOGIN_PER_MIN"), 10),
		BodyLimitBytes:         int64(parseInt(k.String("BODY_LIMIT_BYTES"), 1<<20)),

		PriceRefreshInterval:  parseDuration(k.String("PRICE_REFRESH_INTERVAL"), "6h"),
		PriceFetchTimeout:     parseDuration(k.String("PRICE_FETCH_TIMEOUT"), "10s"),
		PriceFetchConcurrency: parseInt(k.String("PRICE_FETCH_CONCURRENCY"), 4),
		CircuitMinRequests:    parseInt(k.String("CIRCUIT_MIN_REQUESTS"), 5),
		CircuitFailureRatio:   parseFloat(k.String("CIRCUIT_FAILURE_RATIO"), 0.5),
		CircuitOpenFor:        parseDuration(k.String("CIRCUIT_OPEN_FOR"), "30s"),
		RetryBase:             parseDuration(k.String("RETRY_BASE"), "200ms"),
		RetryMaxAttempts:      parseInt(k.String("RETRY_MAX_ATTEMPTS"), 3),
		RetryJitterPercent:    parseFloat(k.String("RETRY_JITTER_PERCENT"), 0.2),
		LockTTL:               parseDuration(k.String("LOCK_TTL"), "5m"),
		LockRetryBackoff:      parseDuration(k.String("LOCK_RETRY_BACKOFF"), "100ms"),
		WorkerConcurrency:     parseInt(k.String("WORKER_CONCURRENCY"), 5),
		InventoryScanCron:     valueOrDefault(k.String("INVENTORY_SCAN_CRON"), "0 6 * * *"),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.InventoryLowStockRatio < 0 || cfg.InventoryLowStockRatio > 1 {
		return nil, fmt.Errorf("INVENTORY_LOW_STOCK_RATIO must be within [0,1], got %v", cfg.InventoryLowStockRatio)
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

func parseInt(value string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
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

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
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
