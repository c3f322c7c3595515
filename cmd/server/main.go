package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/convictionlabs/credence/internal/api"
	"github.com/convictionlabs/credence/internal/api/handlers"
	"github.com/convictionlabs/credence/internal/config"
	"github.com/convictionlabs/credence/internal/domain"
	"github.com/convictionlabs/credence/internal/embedding"
	"github.com/convictionlabs/credence/internal/service"
	"github.com/convictionlabs/credence/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	if err := config.Load(); err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx := context.Background()

	embeddingClient, err := embedding.NewClient(config.EmbeddingProvider(), config.EmbeddingAPIKey())
	if err != nil {
		logger.Fatal("embedding client initialization failed",
			zap.String("provider", config.EmbeddingProvider()), zap.Error(err))
	}
	logger.Info("embedding client initialized", zap.String("provider", config.EmbeddingProvider()))

	// Database is optional: without it beliefs live in memory only.
	var pool *pgxpool.Pool
	var hook domain.PersistenceHook = store.NewNopHook()
	var archive handlers.BeliefArchive
	if dbURL := config.DatabaseURL(); dbURL != "" {
		pool, err = pgxpool.New(ctx, dbURL)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			logger.Fatal("failed to ping database", zap.Error(err))
		}

		snapshots := store.NewSnapshotStore(pool, embeddingClient.Dimensions())
		if err := snapshots.EnsureSchema(ctx); err != nil {
			logger.Fatal("failed to prepare snapshot schema", zap.Error(err))
		}
		hook = snapshots
		archive = snapshots
		logger.Info("connected to database")
	} else {
		logger.Warn("DATABASE_URL not set, belief snapshots will not be archived")
	}

	sim := embedding.NewSimilarity(embeddingClient)

	engine, err := service.NewEngine(
		domain.DefaultPipelineConfig(),
		sim,
		hook,
		logger,
		service.WithEmbedder(embeddingClient),
		service.WithStepInterval(config.StepInterval()),
	)
	if err != nil {
		logger.Fatal("failed to create engine", zap.Error(err))
	}

	app := api.NewApp(engine, pool, archive, logger)

	engine.Start()

	addr := config.ServerAddr()
	srv := &http.Server{
		Addr:    addr,
		Handler: app.Router,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down server")

	engine.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
