package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"hrperf/internal/domain/audit"
	"hrperf/internal/domain/auth"
	"hrperf/internal/domain/core"
	"hrperf/internal/domain/performance"
	"hrperf/internal/platform/cache"
	"hrperf/internal/platform/config"
	"hrperf/internal/platform/db"
	"hrperf/internal/platform/events"
	"hrperf/internal/platform/jobs"
	"hrperf/internal/platform/logger"
	"hrperf/internal/platform/metrics"
	audithandler "hrperf/internal/transport/http/handlers/audit"
	authhandler "hrperf/internal/transport/http/handlers/auth"
	corehandler "hrperf/internal/transport/http/handlers/core"
	performancehandler "hrperf/internal/transport/http/handlers/performance"
	reportshandler "hrperf/internal/transport/http/handlers/reports"
	"hrperf/internal/transport/http/middleware"
)

const devJWTSecret = "hrperf-dev-secret"

type routeRegistrar interface {
	RegisterRoutes(r chi.Router)
}

type App struct {
	Config    config.Config
	Logger    *zap.Logger
	DB        *db.Pool
	Redis     *redis.Client
	Publisher events.Publisher
	Metrics   *metrics.Collector
	Jobs      *jobs.Service
	Router    http.Handler

	warmDashboard jobs.TenantJob
}

// New connects every dependency, applies migrations and seed data, and
// builds the router. Redis and kafka are optional.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(log)

	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET not set, using development secret")
		cfg.JWTSecret = devJWTSecret
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, err
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, err
		}
	}

	app := &App{
		Config:    cfg,
		Logger:    log,
		DB:        pool,
		Publisher: events.New(cfg.KafkaBrokers, cfg.KafkaTopic),
		Metrics:   metrics.New(),
		Jobs:      jobs.New(pool),
	}

	performanceService := performance.NewService(performance.NewStore(pool), performance.Options{
		ApplicabilityMode:     cfg.ApplicabilityMode,
		DashboardRowLimit:     cfg.DashboardRowLimit,
		DashboardRatingLevels: cfg.DashboardRatingLevels,
		DashboardCacheTTL:     cfg.DashboardCacheTTL,
	}).WithPublisher(app.Publisher).WithObserver(app.Metrics)

	if cfg.RedisAddr != "" {
		client, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
		} else {
			app.Redis = client
			performanceService.WithCache(cache.NewRedis(client))
		}
	}
	app.warmDashboard = func(ctx context.Context, tenantID string) (any, error) {
		d, err := performanceService.RefreshDashboard(ctx, tenantID)
		return d.Summary, err
	}
	if len(cfg.KafkaBrokers) > 0 {
		log.Info("publishing events to kafka", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	authService := auth.NewService(auth.NewStore(pool), cfg.JWTSecret, cfg.TokenTTL)
	coreService := core.NewService(core.NewStore(pool)).OnChange(performanceService.InvalidateDashboard)
	auditService := audit.New(pool)

	app.Router = newRouter(cfg, log, app.Metrics, app.ready,
		authhandler.NewHandler(authService),
		corehandler.NewHandler(coreService, performanceService, authService, auditService),
		performancehandler.NewHandler(performanceService, authService, auditService),
		reportshandler.NewHandler(performanceService, authService),
		audithandler.NewHandler(auditService, authService),
	)
	return app, nil
}

func (a *App) ready(ctx context.Context) error {
	if err := a.DB.Ping(ctx); err != nil {
		return err
	}
	if a.Redis != nil {
		return a.Redis.Ping(ctx).Err()
	}
	return nil
}

func newRouter(cfg config.Config, log *zap.Logger, collector *metrics.Collector, ready func(context.Context) error, routes ...routeRegistrar) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer(log))
	router.Use(middleware.Logger(log))
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	if cfg.MetricsEnabled {
		router.Use(middleware.Metrics(collector))
	}
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := ready(ctx); err != nil {
			zap.L().Warn("readiness check failed", zap.Error(err))
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Method(http.MethodGet, "/metrics", collector.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
		r.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))
		for _, route := range routes {
			route.RegisterRoutes(r)
		}
	})

	return router
}

// Close releases pooled connections and flushes the event writer.
func (a *App) Close() {
	if err := a.Publisher.Close(); err != nil {
		a.Logger.Warn("event publisher close failed", zap.Error(err))
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("redis close failed", zap.Error(err))
		}
	}
	a.DB.Close()
	_ = a.Logger.Sync()
}

// Serve blocks until ctx is cancelled, then drains in-flight requests.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	a.Jobs.Start(ctx)
	if a.Config.DashboardWarmInterval > 0 {
		a.Logger.Info("dashboard warm-up scheduled", zap.Duration("interval", a.Config.DashboardWarmInterval))
		a.Jobs.Every(ctx, jobs.JobDashboardWarm, a.Config.DashboardWarmInterval, a.warmDashboard)
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("hrperf server listening", zap.String("addr", a.Config.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.Logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	a.Logger.Info("server exited gracefully")
	return nil
}

// Run loads configuration from the environment and serves until SIGINT or SIGTERM.
func Run() error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	return app.Serve(ctx)
}
