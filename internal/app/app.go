package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/sundayezeilo/shortlinks/internal/auth"
	"github.com/sundayezeilo/shortlinks/internal/cache"
	"github.com/sundayezeilo/shortlinks/internal/config"
	"github.com/sundayezeilo/shortlinks/internal/db/migrations"
	db "github.com/sundayezeilo/shortlinks/internal/db/sqlc"
	"github.com/sundayezeilo/shortlinks/internal/health"
	"github.com/sundayezeilo/shortlinks/internal/httpx"
	"github.com/sundayezeilo/shortlinks/internal/metrics"
	"github.com/sundayezeilo/shortlinks/internal/server"
	"github.com/sundayezeilo/shortlinks/internal/shortener"
)

// App holds the application dependencies and configuration.
type App struct {
	Config *config.Config
	Logger *slog.Logger
	DBPool *pgxpool.Pool
	Redis  *redis.Client
	Server *server.Server
}

// New loads configuration, connects to the backing stores and wires every
// component of the service.
func New(ctx context.Context) (*App, error) {
	if err := loadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger(cfg.App.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"env", cfg.App.Environment,
		"version", cfg.Observability.ServiceVersion,
	)

	a := &App{Config: cfg, Logger: logger}
	if err := a.wire(ctx); err != nil {
		a.Shutdown()
		return nil, err
	}

	logger.Info("application initialized",
		"addr", cfg.Server.Addr(),
		"base_url", cfg.Server.BaseURL,
		"cache", a.Redis != nil,
	)
	return a, nil
}

func (a *App) wire(ctx context.Context) error {
	cfg, logger := a.Config, a.Logger

	var (
		registry   *prometheus.Registry
		registerer prometheus.Registerer
	)
	if cfg.Observability.MetricsEnabled {
		registry, registerer = metrics.NewRegistry(cfg.Observability.ServiceName, cfg.Observability.ServiceVersion)
	}

	dbPool, err := connectDatabase(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	a.DBPool = dbPool

	if cfg.Database.MigrateOnStart {
		logger.Info("applying database migrations")
		if err := migrations.Up(cfg.Database.ConnectionString()); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	checker := health.NewChecker(health.DefaultCheckTimeout)
	checker.Add("postgres", dbPool)

	var (
		shortenerMetrics *shortener.Metrics
		cacheMetrics     *cache.Metrics
		httpMetrics      *httpx.HTTPMetrics
	)
	if registerer != nil {
		shortenerMetrics = shortener.NewMetrics(registerer)
		httpMetrics = httpx.NewHTTPMetrics(registerer)
		registerer.MustRegister(metrics.NewPoolStatsCollector(dbPool, cfg.Database.Name))
	}

	var (
		destinations shortener.DestinationCache
		rateLimit    httpx.Middleware
	)
	if cfg.Redis.Enabled() {
		rdb, err := cache.Connect(ctx, cfg.Redis, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.Redis = rdb
		checker.Add("redis", cache.Pinger(rdb))

		if registerer != nil {
			cacheMetrics = cache.NewMetrics(registerer)
		}
		destinations = cache.NewDestinations(rdb, cfg.Redis.CachePrefix, cfg.Redis.CacheTTL, cacheMetrics)

		if cfg.Redis.RateLimitEnabled {
			proxies, err := httpx.ParseTrustedProxies(cfg.Server.TrustedProxies)
			if err != nil {
				return fmt.Errorf("failed to parse trusted proxies: %w", err)
			}
			limiter := cache.NewRateLimiter(rdb, cache.RateLimiterConfig{
				Capacity:       cfg.Redis.RateLimitCapacity,
				RefillRate:     cfg.Redis.RateLimitRefillRate,
				RefillPeriod:   cfg.Redis.RateLimitRefillPeriod,
				TrustedProxies: proxies,
			}, cacheMetrics, logger)
			rateLimit = limiter.Middleware
		}
	}

	queries := db.New(dbPool)
	repo := shortener.NewRepository(queries, &shortener.RepositoryConfig{
		Metrics: shortenerMetrics,
	})
	svc := shortener.NewService(repo, &shortener.ServiceConfig{
		CodeLength:     cfg.Shortener.CodeLength,
		CodeMaxRetries: cfg.Shortener.CodeMaxRetries,
		Cache:          destinations,
		Metrics:        shortenerMetrics,
		Logger:         logger,
	})
	clicks := shortener.NewClickAccountant(repo, &shortener.ClickAccountantConfig{
		Timeout: cfg.Shortener.ClickTimeout,
		Metrics: shortenerMetrics,
		Logger:  logger,
	})
	handler := shortener.NewHandler(shortener.HandlerConfig{
		Service: svc,
		Visits:  clicks,
		Logger:  logger,
		BaseURL: cfg.Server.BaseURL,
	})

	a.Server = server.New(cfg, logger, server.Deps{
		Handler:       handler,
		Authenticator: auth.NewJWTAuthenticator([]byte(cfg.Auth.JWTSecret), cfg.Auth.JWTIssuer),
		Checker:       checker,
		Registry:      registry,
		HTTPMetrics:   httpMetrics,
		RateLimit:     rateLimit,
	})
	return nil
}

// Start starts the application server.
func (a *App) Start(ctx context.Context) error {
	if err := a.Server.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown releases the store connections.
func (a *App) Shutdown() {
	a.Logger.Info("shutting down application")

	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("failed to close redis client", "error", err)
		} else {
			a.Logger.Info("redis connection closed")
		}
	}

	if a.DBPool != nil {
		a.DBPool.Close()
		a.Logger.Info("database connection closed")
	}
}

// loadEnv loads a .env file in local environments. A missing file is not an error.
// An unset APP_ENV counts as development, matching the config default.
func loadEnv() error {
	env := config.AppConfig{Environment: os.Getenv("APP_ENV")}
	if env.Environment == "" {
		env.Environment = "development"
	}
	if !env.IsLocal() {
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// setupLogger creates a structured logger based on the log level.
func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

// connectDatabase opens the pool and waits for PostgreSQL to answer, bounded by
// the configured connect timeout.
func connectDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = cfg.Database.MaxConns
	poolConfig.MinConns = cfg.Database.MinConns

	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, cfg.Database.ConnectTimeout)
	defer cancel()
	if err := health.WaitFor(waitCtx, "postgres", pool, logger); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("database connection established")
	return pool, nil
}
