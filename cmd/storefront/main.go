package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"storefront-service/internal/api"
	"storefront-service/internal/catalog"
	"storefront-service/internal/checkout"
	"storefront-service/internal/config"
	"storefront-service/internal/events"
	"storefront-service/internal/kvstore"
	"storefront-service/internal/logging"
	"storefront-service/internal/session"
	"storefront-service/internal/storeapi"
	"storefront-service/internal/storeconfig"
)

const (
	healthInterval  = 15 * time.Second
	requestTimeout  = 60 * time.Second
	shutdownTimeout = 30 * time.Second
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, relying on system environment")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("error loading configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Config{
		Level:     logging.ParseLevel(cfg.LogLevel),
		Format:    logging.ParseFormat(cfg.LogFormat),
		AddSource: !cfg.IsProduction(),
	}).With("service", api.ServiceName)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "app_env", cfg.AppEnv, "log_level", cfg.LogLevel, "kv_backend", cfg.Storage.Backend)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// --- Storage ---
	kv, err := openKV(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open kv storage", "backend", cfg.Storage.Backend, "error", err)
		os.Exit(1)
	}

	// --- Store API and domain services ---
	client := storeapi.NewClient(storeapi.Config{
		BaseURL:         cfg.StoreAPI.BaseURL,
		Store:           cfg.StoreAPI.Store,
		Timeout:         cfg.StoreAPI.Timeout,
		MaxAttempts:     cfg.StoreAPI.RetryAttempts,
		InitialInterval: cfg.StoreAPI.RetryInitial,
		MaxInterval:     cfg.StoreAPI.RetryMax,
		BreakerFailures: cfg.StoreAPI.BreakerFailures,
		BreakerTimeout:  cfg.StoreAPI.BreakerTimeout,
	}, logger)
	products := catalog.NewCachingSource(client, cfg.Catalog.CacheTTL)

	sessions := session.NewManager(kv, products, client, session.Config{
		IdleTimeout:  cfg.Session.IdleTimeout,
		FeedCooldown: cfg.Catalog.FeedCooldown,
	}, logger.With("component", "session"))

	storeConfig := storeconfig.New(client, kv, logger.With("component", "storeconfig"))
	if err := storeConfig.Load(ctx); err != nil {
		logger.Warn("serving default store configuration", "error", err)
	}

	publisher := openPublisher(cfg, logger)
	checkoutService := checkout.New(storeConfig, publisher, checkout.Config{
		Locale:   cfg.Checkout.Locale,
		Currency: cfg.Checkout.Currency,
	}, logger.With("component", "checkout"))

	health := api.NewHealthReporter(kv, logger)
	go health.Run(ctx, healthInterval)
	go sessions.RunSweeper(ctx, cfg.Session.SweepInterval)

	if cfg.AdminToken == "" {
		logger.Warn("ADMIN_TOKEN not set, admin routes are disabled")
	}
	httpAPIHandler := api.NewHTTPHandler(api.Deps{
		Sessions:   sessions,
		Config:     storeConfig,
		Checkout:   checkoutService,
		Admin:      client,
		Catalog:    products,
		Health:     health,
		AdminToken: cfg.AdminToken,
		Logger:     logger,
	})

	// --- Setup & Start HTTP Server ---
	httpRouter := chi.NewRouter()
	setupBaseMiddleware(httpRouter, logger)
	httpAPIHandler.RegisterRoutes(httpRouter)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HttpServer.Port,
		Handler:      httpRouter,
		ReadTimeout:  cfg.HttpServer.TimeoutRead,
		WriteTimeout: cfg.HttpServer.TimeoutWrite,
		IdleTimeout:  cfg.HttpServer.TimeoutIdle,
	}

	go func() {
		logger.Info("HTTP server listening", "port", cfg.HttpServer.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server ListenAndServe error", "error", err)
			os.Exit(1)
		}
		logger.Info("HTTP server has stopped")
	}()

	// --- Setup & Start gRPC Server ---
	grpcServer := api.NewGRPCServer(health, logger)
	grpcListener, err := net.Listen("tcp", ":"+cfg.GrpcServer.Port)
	if err != nil {
		logger.Error("failed to listen for gRPC", "port", cfg.GrpcServer.Port, "error", err)
		os.Exit(1)
	}

	go func() {
		logger.Info("gRPC server listening", "port", cfg.GrpcServer.Port)
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.Error("gRPC server Serve error", "error", err)
			os.Exit(1)
		}
		logger.Info("gRPC server has stopped")
	}()

	// --- Graceful Shutdown ---
	shutdownComplete := make(chan struct{})
	go waitForShutdown(logger, stop, health, httpServer, grpcServer, []closer{publisher, kv}, shutdownComplete)

	<-shutdownComplete
	logger.Info("service shutdown sequence finished")
}

func openKV(ctx context.Context, cfg *config.Config, logger *slog.Logger) (kvstore.Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store := kvstore.NewRedisStore(rdb, cfg.Redis.KeyPrefix, cfg.Redis.TTL)
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		logger.Info("redis connection established", "addr", cfg.Redis.Addr)
		return store, nil

	case config.BackendPostgres:
		db, err := sql.Open("postgres", cfg.Postgres.DSN())
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database connection: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		store := kvstore.NewPostgresStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		logger.Info("database connection established", "host", cfg.Postgres.Host, "db", cfg.Postgres.DBName)
		return store, nil
	}

	logger.Warn("using in-memory kv storage, sessions will not survive a restart")
	return kvstore.NewMemory(), nil
}

func openPublisher(cfg *config.Config, logger *slog.Logger) events.Publisher {
	if cfg.Checkout.AMQPURL == "" {
		logger.Info("AMQP_URL not set, order events are not published")
		return events.NoopPublisher{}
	}
	p, err := events.Dial(cfg.Checkout.AMQPURL, cfg.Checkout.AMQPExchange, logger)
	if err != nil {
		logger.Warn("order events disabled, broker unreachable", "error", err)
		return events.NoopPublisher{}
	}
	return p
}

func setupBaseMiddleware(router *chi.Mux, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(api.RequestLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(requestTimeout))
	logger.Debug("base HTTP middleware registered")
}

type closer interface {
	Close() error
}

func waitForShutdown(
	logger *slog.Logger,
	stopBackground context.CancelFunc,
	health *api.HealthReporter,
	httpServer *http.Server,
	grpcServer *grpc.Server,
	closers []closer,
	shutdownComplete chan struct{},
) {
	defer close(shutdownComplete)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	receivedSignal := <-sigChan
	logger.Info("received signal, starting graceful shutdown", "signal", receivedSignal.String())

	stopBackground()
	health.Shutdown()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	stoppedGrpc := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stoppedGrpc)
	}()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server graceful shutdown failed", "error", err)
	} else {
		logger.Info("HTTP server gracefully shut down")
	}

	select {
	case <-stoppedGrpc:
		logger.Info("gRPC server gracefully shut down")
	case <-shutdownCtx.Done():
		logger.Warn("gRPC server graceful shutdown timed out, forcing stop", "error", shutdownCtx.Err())
		grpcServer.Stop()
	}

	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.Warn("error closing resource", "error", err)
		}
	}
	logger.Info("graceful shutdown sequence completed")
}
