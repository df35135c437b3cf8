package app

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-grocer/internal/config"
	"github.com/noah-isme/backend-grocer/internal/obs"
)

// StartTracing installs the OTLP tracer provider unless OBS_ENABLE_TRACING
// is false. The returned stop func flushes pending spans; enabled reports
// whether spans are being exported.
func StartTracing(ctx context.Context, cfg *config.Config, service string, logger zerolog.Logger) (stop func(), enabled bool) {
	stop = func() {}
	exporter := strings.ToLower(EnvOrDefault("OBS_TRACING_EXPORTER", "otlp"))
	if !EnvBool("OBS_ENABLE_TRACING", true) || exporter == "none" {
		return stop, false
	}
	shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
		ServiceName:   service,
		Endpoint:      EnvOrDefault("OBS_OTLP_ENDPOINT", ""),
		Exporter:      exporter,
		SamplingRatio: EnvFloat("OBS_TRACING_SAMPLING_RATIO", 1.0),
		Environment:   cfg.AppEnv,
	})
	if err != nil {
		logger.Error().Err(err).Msg("initialise tracing")
		return stop, false
	}
	return func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("shutdown tracer")
		}
	}, true
}

// OpenPostgres connects a pgx pool with query tracing enabled.
func OpenPostgres(ctx context.Context, cfg *config.Config, appName string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = appName

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// OpenRedis connects a go-redis client instrumented with OpenTelemetry.
func OpenRedis(ctx context.Context, cfg *config.Config, metrics bool, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Logger builds the process logger from OBS_LOG_FORMAT and OBS_LOG_LEVEL.
func Logger(cfg *config.Config, component string) zerolog.Logger {
	logger := obs.NewLogger(EnvOrDefault("OBS_LOG_FORMAT", "json"), EnvOrDefault("OBS_LOG_LEVEL", "info"))
	return obs.Component(logger, component).With().Str("env", cfg.AppEnv).Logger()
}

// EnvOrDefault returns the trimmed environment value or fallback.
func EnvOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

// EnvBool parses common boolean spellings, returning fallback otherwise.
func EnvBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

// EnvFloat parses a float environment value.
func EnvFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}
