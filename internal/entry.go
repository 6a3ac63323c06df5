// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/anchorlink/internal/api"
	"github.com/starford/anchorlink/internal/index"
	"github.com/starford/anchorlink/internal/mcpserver"
	"github.com/starford/anchorlink/internal/metrics"
	"github.com/starford/anchorlink/internal/session"
)

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := newLogger(cfg, app.logOutput)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("settings_path", cfg.Display.SettingsPath),
		slog.Bool("metrics", cfg.Metrics.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	c, err := newCore(cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	sessions := session.New(session.Options{
		Settings: c.settings,
		Resolver: c.resolver,
		Store:    c.store,
		Index:    c.db,
		Broker:   c.broker,
		Recorder: c.recorder,
		Logger:   logger,
	})
	defer sessions.Close()

	// Build API handler and router.
	h := api.NewHandler(c.notes, sessions, c.settings, c.broker)
	apiRouter := api.NewRouter(h, cfg.Auth.AuthEnabled(), cfg.Auth.Token, c.broker)

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
		if err := c.db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"index unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if c.registry != nil {
		r.Handle("/metrics", metrics.HTTPHandler(c.registry))
	}

	// Mount API routes under /api; SSE lives at /api/events behind auth.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Vault watcher: keeps the index fresh, drops stale titles, notifies clients.
	g.Go(func() error {
		if err := index.Watch(gCtx, c.db, c.store, logger, c.onNoteEvent); err != nil {
			logger.Error("vault watcher failed", slog.String("error", err.Error()))
		}
		return nil
	})

	// Display settings watcher.
	if cfg.Display.Watch {
		g.Go(func() error {
			if err := c.settings.Watch(gCtx); err != nil {
				logger.Error("settings watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		// Stop the watchers too.
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdio until stdin closes or ctx is
// cancelled. Logs go to stderr unless WithLogOutput says otherwise.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	logger := newLogger(app.config, app.logOutput)
	slog.SetDefault(logger)

	c, err := newCore(app.config, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := index.Watch(watchCtx, c.db, c.store, logger, c.onNoteEvent); err != nil {
			logger.Error("vault watcher failed", slog.String("error", err.Error()))
		}
	}()

	logger.Info("MCP server starting on stdio", slog.String("vault_path", app.config.Vault.Path))
	return mcpserver.New(c.notes, c.store).ServeStdio(ctx)
}

// Fill adds display text to every bare anchor link in the file at path.
// With write set the file is rewritten in place; otherwise the result is
// written to out.
func Fill(ctx context.Context, path string, write bool, out io.Writer, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	logger := newLogger(app.config, app.logOutput)

	c, err := newCore(app.config, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("fill: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("fill: %w", err)
	}

	res := c.notes.Fill(ctx, string(data))
	logger.Info("fill: done", slog.String("path", path), slog.Int("links", res.Edits))

	if !write {
		_, err := io.WriteString(out, res.Text)
		return err
	}
	if res.Edits == 0 {
		return nil
	}
	if err := os.WriteFile(path, []byte(res.Text), info.Mode().Perm()); err != nil {
		return fmt.Errorf("fill: write %s: %w", path, err)
	}
	return nil
}
