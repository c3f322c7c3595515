package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/convictionlabs/credence/internal/api/handlers"
	mw "github.com/convictionlabs/credence/internal/api/middleware"
	"github.com/convictionlabs/credence/internal/buildconfig"
	"github.com/convictionlabs/credence/internal/config"
	"github.com/convictionlabs/credence/internal/domain"
	"github.com/convictionlabs/credence/internal/embedding"
	"github.com/convictionlabs/credence/internal/service"
	"github.com/convictionlabs/credence/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App holds the router and the engine for lifecycle management.
type App struct {
	Router       *chi.Mux
	Engine       *service.Engine
	db           *pgxpool.Pool
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

// NewApp wires the engine and HTTP surface. db and archive may be nil;
// snapshots are then discarded instead of archived and the archive
// routes report unavailable.
func NewApp(engine *service.Engine, db *pgxpool.Pool, archive handlers.BeliefArchive, logger *zap.Logger) *App {
	feelingHandler := handlers.NewFeelingHandler(engine)
	beliefHandler := handlers.NewBeliefHandler(engine, archive)
	personalityHandler := handlers.NewPersonalityHandler(engine)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Engine:    engine,
		db:        db,
		startTime: time.Now(),
	}

	// Metrics collector for middleware
	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	// Health (no auth)
	r.Get("/health", app.healthHandler())

	// Metrics (no auth)
	r.Get("/metrics", app.metricsHandler())

	// Authenticated routes
	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(config.APIKey()))

		r.Route("/agents/{agentID}", func(r chi.Router) {
			r.Post("/feelings", feelingHandler.Submit)
			r.Post("/step", feelingHandler.Step)
			r.Get("/beliefs", beliefHandler.List)
			r.Get("/beliefs/archive", beliefHandler.Archive)
			r.Get("/beliefs/{beliefID}", beliefHandler.ArchivedBelief)
			r.Get("/personality", personalityHandler.Get)
			r.Get("/patterns", personalityHandler.ListPatterns)
			r.Post("/patterns", personalityHandler.RegisterPattern)
		})
	})

	return app
}

func (app *App) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if app.db != nil {
			if err := app.db.Ping(r.Context()); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"version":        buildconfig.Version(),
			"commit":         buildconfig.Commit(),
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure clients and hooks satisfy interfaces at compile time.
var (
	_ domain.EmbeddingClient = (*embedding.OpenAIClient)(nil)
	_ domain.EmbeddingClient = (*embedding.MockClient)(nil)
	_ domain.Similarity      = (*embedding.Similarity)(nil)
	_ domain.PersistenceHook = (*store.SnapshotStore)(nil)
	_ domain.PersistenceHook = (*store.NopHook)(nil)
	_ handlers.BeliefArchive = (*store.SnapshotStore)(nil)
)
