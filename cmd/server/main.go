// Command server runs the memedesk HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"memedesk/internal/analytics"
	"memedesk/internal/api"
	"memedesk/internal/auth"
	"memedesk/internal/cache"
	"memedesk/internal/config"
	"memedesk/internal/dexscreener"
	"memedesk/internal/logger"
	"memedesk/internal/storage"
	chstore "memedesk/internal/storage/clickhouse"
	"memedesk/internal/storage/memory"
	"memedesk/internal/storage/migrations"
	pgstore "memedesk/internal/storage/postgres"
	"memedesk/internal/stream"
	"memedesk/internal/tracker"
)

func main() {
	defaultPath := os.Getenv("MEMEDESK_CONFIG")
	if defaultPath == "" {
		defaultPath = "config/config.yaml"
	}
	cfgPath := flag.String("config", defaultPath, "Path to YAML config")
	envOnly := flag.Bool("env-only", false, "Read configuration from the environment only")
	flag.Parse()

	cfg, err := config.Load(*cfgPath, *envOnly)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
	log.Info("shutdown complete")
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := createStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	outcomes, closeOutcomes, err := createOutcomeStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeOutcomes()

	metaCache, closeCache, err := createCache(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	defer closeCache()

	dex := dexscreener.NewClient(
		dexscreener.WithBaseURL(cfg.Dexscreener.BaseURL),
		dexscreener.WithTimeout(cfg.Dexscreener.Timeout),
		dexscreener.WithMaxAttempts(cfg.Dexscreener.MaxAttempts),
		dexscreener.WithRetryDelay(cfg.Dexscreener.RetryDelay),
		dexscreener.WithCache(metaCache, cfg.Dexscreener.CacheTTL),
		dexscreener.WithLogger(log.Named("dexscreener")),
	)

	hub := stream.NewHub(&stream.Config{
		PingInterval: cfg.Stream.PingInterval,
		ReadTimeout:  2 * cfg.Stream.PingInterval,
		WriteTimeout: cfg.Stream.WriteTimeout,
		SendBuffer:   cfg.Stream.SendBuffer,
	}, log.Named("stream"))
	defer func() { _ = hub.Close() }()

	recorder := analytics.NewRecorder(outcomes,
		analytics.WithLogger(log.Named("analytics")),
		analytics.WithBufferSize(cfg.ClickHouse.BufferSize),
	)

	svc := tracker.New(store,
		tracker.WithLogger(log.Named("tracker")),
		tracker.WithNotifier(hub),
		tracker.WithNotifier(recorder),
	)

	if cfg.App.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Deps{
		Tracker:   svc,
		TokenMeta: dex,
		Outcomes:  outcomes,
		Stream:    hub,
		JWT: auth.JWT{
			Secret:   []byte(cfg.Auth.AdminSecret),
			TokenTTL: cfg.Auth.TokenTTL,
		},
		AdminPassword: cfg.Auth.AdminPassword,
		CORSOrigins:   cfg.Server.CORSOrigins,
		Logger:        log.Named("http"),
	})

	srv := &http.Server{
		Addr:         cfg.Server.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		err := recorder.Run(gctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, analytics.ErrClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		_ = hub.Close()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		recorder.Close()
		return nil
	})
	return g.Wait()
}

func createStore(ctx context.Context, cfg config.Config, log *zap.Logger) (storage.Store, func(), error) {
	if cfg.Storage.UseMemory {
		log.Warn("using in-memory storage, data is lost on restart")
		return memory.NewStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if cfg.Postgres.RunMigrations {
		applied, err := migrations.ApplyPostgres(ctx, pool.Pool)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		log.Info("postgres schema up to date", zap.Strings("applied", applied))
	}
	return pgstore.NewStore(pool), pool.Close, nil
}

// createOutcomeStore returns the ClickHouse outcome store, or a memory one
// when no DSN is configured.
func createOutcomeStore(ctx context.Context, cfg config.Config, log *zap.Logger) (storage.OutcomeStore, func(), error) {
	if cfg.ClickHouse.DSN == "" {
		log.Info("clickhouse not configured, outcome analytics kept in memory")
		return memory.NewOutcomeStore(), func() {}, nil
	}
	conn, err := chstore.Open(ctx, cfg.ClickHouse.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse: %w", err)
	}
	applied, err := migrations.ApplyClickHouse(ctx, conn)
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}
	log.Info("clickhouse schema up to date", zap.String("database", conn.Database()), zap.Strings("applied", applied))
	return chstore.NewOutcomeStore(conn), func() { _ = conn.Close() }, nil
}

func createCache(ctx context.Context, cfg config.CacheConfig) (cache.Store, func(), error) {
	if cfg.Driver != "redis" {
		return cache.NewMemoryStore(), func() {}, nil
	}
	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rs, err := cache.NewRedisStore(connectCtx, &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, cfg.Prefix)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	return rs, func() { _ = rs.Close() }, nil
}
