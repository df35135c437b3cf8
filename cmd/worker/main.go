package main

import (
	"context"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/backend-grocer/internal/app"
	"github.com/noah-isme/backend-grocer/internal/cache"
	"github.com/noah-isme/backend-grocer/internal/catalog"
	"github.com/noah-isme/backend-grocer/internal/config"
	"github.com/noah-isme/backend-grocer/internal/inventory"
	"github.com/noah-isme/backend-grocer/internal/jobs"
	"github.com/noah-isme/backend-grocer/internal/lock"
	"github.com/noah-isme/backend-grocer/internal/obs"
	"github.com/noah-isme/backend-grocer/internal/pricefeed"
	"github.com/noah-isme/backend-grocer/internal/resilience"
	"github.com/noah-isme/backend-grocer/internal/store"
	"github.com/noah-isme/backend-grocer/internal/vendor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := app.Logger(cfg, "worker")
	obs.MustRegisterDomainMetrics(app.EnvOrDefault("OBS_METRICS_NAMESPACE", "grocer"), nil)

	stopTracing, _ := app.StartTracing(context.Background(), cfg, "grocer-worker", logger)
	defer stopTracing()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := app.OpenPostgres(ctx, cfg, "grocer-worker")
	if err != nil {
		logger.Fatal().Err(err).Msg("database")
	}
	defer pool.Close()
	queries := store.New(pool)

	redisClient, err := app.OpenRedis(ctx, cfg, false, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	catalogService, err := catalog.NewService(catalog.ServiceConfig{
		Queries: queries,
		Cache:   cache.New(redisClient, cfg.CatalogCacheTTL),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog service")
	}

	fetcher := &pricefeed.Fetcher{
		Client: &http.Client{Transport: obs.HTTPTransport(nil)},
		Breakers: &resilience.Breakers{
			Policy: resilience.Policy{
				MinRequests:  cfg.CircuitMinRequests,
				FailureRatio: cfg.CircuitFailureRatio,
				OpenFor:      cfg.CircuitOpenFor,
			},
			Logger: logger,
		},
		Timeout:     cfg.PriceFetchTimeout,
		BaseBackoff: cfg.RetryBase,
		MaxAttempts: cfg.RetryMaxAttempts,
		Jitter:      cfg.RetryJitterPercent,
	}
	refresher := &pricefeed.Refresher{
		Store:       queries,
		Fetcher:     fetcher,
		Locker:      lock.Locker{R: redisClient, RetryBackoff: cfg.LockRetryBackoff},
		Catalog:     catalogService,
		Concurrency: cfg.PriceFetchConcurrency,
		LockTTL:     cfg.LockTTL,
		Selectors:   parseSelectors(app.EnvOrDefault("PRICE_SELECTORS", "")),
	}
	inventoryService := inventory.NewService(inventory.ServiceConfig{
		Queries:  queries,
		WarnDays: cfg.InventoryExpiryWarnDays,
		LowRatio: cfg.InventoryLowStockRatio,
	})

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis uri for asynq")
	}

	handlers := &jobs.Handlers{Prices: refresher, Inventory: inventoryService, Logger: logger}
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
		Queues:      map[string]int{jobs.QueuePrices: 3, jobs.QueueDefault: 1},
		Logger:      jobs.AsynqLogger{Logger: logger},
	})
	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Location: time.UTC,
		Logger:   jobs.AsynqLogger{Logger: logger},
	})

	n, err := jobs.Schedule(ctx, scheduler, vendor.NewService(queries, nil), cfg.PriceRefreshInterval, cfg.InventoryScanCron)
	if err != nil {
		logger.Fatal().Err(err).Msg("register schedules")
	}
	logger.Info().Int("entries", n).Msg("schedules registered")

	if err := scheduler.Start(); err != nil {
		logger.Fatal().Err(err).Msg("start scheduler")
	}
	if err := server.Start(handlers.Mux()); err != nil {
		logger.Fatal().Err(err).Msg("start worker")
	}
	logger.Info().Msg("worker started")

	<-ctx.Done()
	logger.Info().Msg("worker shutting down")
	scheduler.Shutdown()
	server.Shutdown()
	logger.Info().Msg("worker shutdown complete")
}

// parseSelectors reads "vendor=selector;vendor=selector". Selectors may contain commas.
func parseSelectors(raw string) map[string]string {
	out := map[string]string{}
	for _, part := range strings.Split(raw, ";") {
		slug, sel, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		slug = strings.ToLower(strings.TrimSpace(slug))
		sel = strings.TrimSpace(sel)
		if slug != "" && sel != "" {
			out[slug] = sel
		}
	}
	return out
}
