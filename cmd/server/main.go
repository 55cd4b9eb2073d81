// Package main is the entrypoint for the RankScope API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sanjaynair/rankscope/internal/api"
	"github.com/sanjaynair/rankscope/internal/api/handler"
	mw "github.com/sanjaynair/rankscope/internal/api/middleware"
	"github.com/sanjaynair/rankscope/internal/api/response"
	"github.com/sanjaynair/rankscope/internal/cache"
	"github.com/sanjaynair/rankscope/internal/config"
	"github.com/sanjaynair/rankscope/internal/insights"
	"github.com/sanjaynair/rankscope/internal/store"
	"github.com/sanjaynair/rankscope/internal/tracker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "insights_url", cfg.Insights.BaseURL, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create insights backend client
	backend := insights.NewHTTPClient(cfg.Insights.BaseURL, cfg.Insights.APIKey, cfg.Insights.Timeout)

	// 6. Create store
	pgStore := store.NewPostgresStore(pool)

	// 7. Create the job tracker and resume any tracking record left over
	// from a previous process.
	notifier := tracker.NewHistoryNotifier(pgStore)
	jobs := tracker.New(backend, redisCache, notifier, cfg.Tracker.PollInterval, cfg.Tracker.MaxPolls)
	jobs.Resume(ctx)
	defer jobs.Stop()

	// 8. Build router with dependencies
	auth := mw.NewAuth(pgStore)
	rateLimit := mw.NewRateLimit(redisCache, 60)

	deps := api.Dependencies{
		Auth:      auth,
		RateLimit: rateLimit,

		HealthHandler: healthHandler(pgStore, redisCache, backend),

		UploadHandler:     handler.NewUploadHandler(backend, jobs),
		CurrentJobHandler: handler.NewCurrentJobHandler(jobs),
		CheckJobHandler:   handler.NewCheckJobHandler(jobs),
		CancelJobHandler:  handler.NewCancelJobHandler(backend, jobs),
		JobHistoryHandler: handler.NewJobHistoryHandler(pgStore),

		KeywordsHandler: handler.NewKeywordsHandler(backend),
		ClustersHandler: handler.NewClustersHandler(backend),
		ClusterHandler:  handler.NewClusterHandler(backend),
		AdviceHandler:   handler.NewAdviceHandler(backend, redisCache),

		CreateKeyHandler: handler.NewCreateKeyHandler(pgStore),
		ListKeysHandler:  handler.NewListKeysHandler(pgStore),
		RevokeKeyHandler: handler.NewRevokeKeyHandler(pgStore),
	}

	router := api.NewRouter(deps)

	// 9. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Stop the polling loop before the server so no status fetch races
	// the connection teardown. The tracking record stays in Redis and is
	// resumed on the next start.
	jobs.Stop()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// healthHandler checks database, cache, and insights backend connectivity.
func healthHandler(s store.Store, c cache.Cache, backend insights.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
			"insights": "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}
		if err := backend.Ready(r.Context()); err != nil {
			checks["insights"] = "degraded"
		}

		degraded := checks["database"] != "ok" || checks["cache"] != "ok" || checks["insights"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
