// Package internal provides the main application initialization and runtime logic.
package internal

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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/funkpopo/notevault/internal/api"
	"github.com/funkpopo/notevault/internal/engine"
	"github.com/funkpopo/notevault/internal/history"
	"github.com/funkpopo/notevault/internal/memguard"
	"github.com/funkpopo/notevault/internal/notify"
	"github.com/funkpopo/notevault/internal/sse"
	"github.com/funkpopo/notevault/internal/vault"
	"github.com/funkpopo/notevault/internal/watcher"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger unless the caller supplied one.
	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("history_path", cfg.History.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Open the vault (creates the directory when missing).
	v, err := vault.New(cfg.Vault.Path)
	if err != nil {
		return fmt.Errorf("init vault: %w", err)
	}

	// Open the version history log.
	hist, err := history.Open(cfg.History.Path, cfg.History.Keep)
	if err != nil {
		return fmt.Errorf("init history: %w", err)
	}
	defer hist.Close()

	// Change notification hub.
	hub := notify.NewHub()
	defer hub.Close()

	// Engine service over vault, history, and hub.
	engineCfg := engine.Config{
		Autosave:      cfg.Autosave.SchedulerConfig(),
		Conflict:      cfg.Conflict.CheckConfig(),
		AsyncDiffOver: engine.DefaultConfig().AsyncDiffOver,
	}
	svc := engine.NewService(v, hist, hub, engineCfg, logger)
	defer svc.Close()

	// Startup summary.
	if stats, statErr := svc.Stats(ctx); statErr == nil {
		logger.Info("Vault loaded",
			slog.Int("notes", stats.Notes),
			slog.Int("empty_groups", stats.EmptyGroups),
			slog.String("writer_id", svc.WriterID()))
	} else {
		logger.Warn("initial vault scan failed", slog.String("error", statErr.Error()))
	}

	// Memory monitor with the snapshot store registered for trimming.
	monitor := memguard.New(cfg.Memory.MonitorConfig(), logger)
	monitor.Register("snapshots", svc.Snapshots())
	defer monitor.Stop()

	// Vault directory watcher.
	watch, err := watcher.New(cfg.Watcher.WatchConfig(cfg.Vault.Path), logger)
	if err != nil {
		return fmt.Errorf("init watcher: %w", err)
	}

	// Build API service and router.
	sseHandler := sse.NewHandler(hub)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, sseHandler)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	// runCtx ends on shutdown signal and stops the watcher and monitor.
	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	g, gCtx := errgroup.WithContext(runCtx)

	monitor.Start(gCtx)

	// Watch the vault and republish coalesced batches to SSE clients.
	g.Go(func() error {
		return watch.Run(gCtx)
	})
	g.Go(func() error {
		for batch := range watch.Events() {
			hub.Publish(notify.Event{
				Type: notify.TypeVaultChanged,
				Data: notify.VaultChange{Paths: batch.Paths},
			})
			logger.Debug("vault changed on disk", slog.Int("paths", len(batch.Paths)))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")
		stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		// Land pending autosaves before the process exits.
		svc.FlushAll()

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
