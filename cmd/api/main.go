package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-grocer/internal/app"
	"github.com/noah-isme/backend-grocer/internal/auth"
	"github.com/noah-isme/backend-grocer/internal/basket"
	"github.com/noah-isme/backend-grocer/internal/cache"
	"github.com/noah-isme/backend-grocer/internal/catalog"
	"github.com/noah-isme/backend-grocer/internal/common"
	"github.com/noah-isme/backend-grocer/internal/compare"
	"github.com/noah-isme/backend-grocer/internal/config"
	"github.com/noah-isme/backend-grocer/internal/health"
	"github.com/noah-isme/backend-grocer/internal/inventory"
	"github.com/noah-isme/backend-grocer/internal/obs"
	"github.com/noah-isme/backend-grocer/internal/order"
	"github.com/noah-isme/backend-grocer/internal/ratelimit"
	"github.com/noah-isme/backend-grocer/internal/security"
	"github.com/noah-isme/backend-grocer/internal/store"
	"github.com/noah-isme/backend-grocer/internal/vendor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := app.Logger(cfg, "api")

	metricsNamespace := app.EnvOrDefault("OBS_METRICS_NAMESPACE", "grocer")
	metricsEnabled := app.EnvBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	stopTracing, tracingEnabled := app.StartTracing(context.Background(), cfg, "grocer-api", logger)
	defer stopTracing()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if cfg.AutoMigrate {
		m, err := store.NewMigrator(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("initialise migrations")
		}
		if err := store.MigrateUp(m); err != nil {
			logger.Fatal().Err(err).Msg("apply migrations")
		}
		_, _ = m.Close()
		logger.Info().Msg("migrations applied")
	}

	pool, err := app.OpenPostgres(ctx, cfg, "grocer-api")
	if err != nil {
		logger.Fatal().Err(err).Msg("database")
	}
	defer pool.Close()
	queries := store.New(pool)

	redisClient, err := app.OpenRedis(ctx, cfg, metricsEnabled, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	authService, err := auth.NewService(auth.Config{
		Queries:        queries,
		Secret:         cfg.JWTSecret,
		AccessTokenTTL: cfg.AccessTokenTTL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth service")
	}

	vendorService := vendor.NewService(queries, cfg.CompareVendorPriority)

	catalogService, err := catalog.NewService(catalog.ServiceConfig{
		Queries:      queries,
		Cache:        cache.New(redisClient, cfg.CatalogCacheTTL),
		DefaultLimit: cfg.CatalogDefaultLimit,
		MaxLimit:     cfg.CatalogMaxLimit,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog service")
	}

	basketService := basket.NewService(queries)

	compareService, err := compare.NewService(compare.ServiceConfig{
		Baskets: basketService,
		Quotes:  queries,
		Vendors: vendorService,
		Cache:   cache.New(redisClient, cfg.CompareCacheTTL),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise compare service")
	}

	orderService, err := order.NewService(order.ServiceConfig{
		Compare: compareService,
		Vendors: vendorService,
		Queries: queries,
		Tx:      order.PoolTx(pool),
		TaxBPS:  cfg.PricingTaxRateBPS,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise order service")
	}

	inventoryService := inventory.NewService(inventory.ServiceConfig{
		Queries:  queries,
		Basket:   basketService,
		WarnDays: cfg.InventoryExpiryWarnDays,
		LowRatio: cfg.InventoryLowStockRatio,
	})

	compareLimiter, err := ratelimit.NewFixed(redisClient, "rl:compare:", time.Minute, cfg.RateLimitComparePerMin)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise compare rate limiter")
	}
	onLimitErr := func(err error) { logger.Warn().Err(err).Msg("rate limiter unavailable") }

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, obs.ParseBucketsCSV(app.EnvOrDefault("OBS_METRICS_BUCKETS_MS", "")), nil)
	}
	var pprofHandler http.Handler
	if app.EnvBool("OBS_ENABLE_PPROF", false) {
		pprofHandler = protectPprof(newPprofMux(),
			app.EnvOrDefault("SECURE_PPROF_BASIC_AUTH_USER", ""),
			app.EnvOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", ""))
	}

	handler := newRouter(routes{
		Logger:         logger,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Tracing:        tracingEnabled,
		HTTPMetrics:    httpMetrics,
		Metrics:        metricsEnabled,
		Pprof:          pprofHandler,
		Headers:        security.Headers{EnableHSTS: cfg.AppEnv == "production"},
		BodyLimit:      security.BodyLimit{Max: cfg.BodyLimitBytes},
		Idem:           common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}.Middleware,
		LoginLimit: ratelimit.Handler{
			Limiter: ratelimit.Sliding{Client: redisClient, Prefix: "rl:login:", Window: time.Minute, Max: cfg.RateLimitLoginPerMin},
			Key:     ratelimit.ByIP("login"),
			OnError: onLimitErr,
		}.Middleware,
		CompareLimit: ratelimit.Handler{
			Limiter: compareLimiter,
			Key:     ratelimit.ByUser("compare"),
			OnError: onLimitErr,
		}.Middleware,
		Health:    health.Handler{Probes: probes(pool, redisClient), Timeout: 500 * time.Millisecond},
		AuthMW:    auth.Middleware{Service: authService},
		Auth:      &auth.Handler{Service: authService},
		Vendors:   &vendor.Handler{Service: vendorService},
		Catalog:   catalog.NewHandler(catalog.HandlerConfig{Service: catalogService}),
		Basket:    &basket.Handler{Service: basketService},
		Compare:   &compare.Handler{Service: compareService, Currency: cfg.CurrencyCode},
		Orders:    &order.Handler{Service: orderService},
		Inventory: &inventory.Handler{Service: inventoryService},
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	case <-runCtx.Done():
		logger.Info().Msg("shutdown requested")
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown")
		}
		logger.Info().Msg("server stopped")
	}
}

func probes(pool *pgxpool.Pool, rdb *redis.Client) map[string]health.Probe {
	return map[string]health.Probe{
		"db":    func(ctx context.Context) error { return pool.Ping(ctx) },
		"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
