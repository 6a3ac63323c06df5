package internal

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/starford/anchorlink/internal/index"
	"github.com/starford/anchorlink/internal/metrics"
	"github.com/starford/anchorlink/internal/noteservice"
	"github.com/starford/anchorlink/internal/settings"
	"github.com/starford/anchorlink/internal/sse"
	"github.com/starford/anchorlink/internal/storage"
	"github.com/starford/anchorlink/internal/title"
)

var errConfigRequired = errors.New("config is required")

// core holds the components shared by every run mode.
type core struct {
	logger   *slog.Logger
	store    *storage.FS
	db       *index.DB
	broker   *sse.Broker
	registry *prometheus.Registry
	recorder metrics.Recorder
	resolver *title.Resolver
	settings *settings.Manager
	notes    *noteservice.Service
}

func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
}

// newCore opens the vault and its index, runs the initial sync and builds
// the display-text services on top.
func newCore(cfg *Config, logger *slog.Logger) (*core, error) {
	c := &core{logger: logger}

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	c.store = store

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	c.db = db

	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	c.recorder = metrics.NoopRecorder{}
	if cfg.Metrics.Enabled {
		c.registry = prometheus.NewRegistry()
		c.recorder = metrics.NewPrometheusRecorder(c.registry)
	}

	c.broker = sse.NewBroker(2 * time.Second)

	c.resolver, err = title.New(db, cfg.Cache.TitleEntries, logger, c.recorder)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("init title cache: %w", err)
	}

	c.settings = settings.NewManager(
		settings.NewStore(cfg.Display.SettingsPath, logger),
		sse.NewNotifier(c.broker, ""),
		logger,
	)

	c.notes = noteservice.NewService(noteservice.Options{
		Settings: c.settings,
		Resolver: c.resolver,
		Store:    store,
		Index:    db,
		Recorder: c.recorder,
		Logger:   logger,
	})
	return c, nil
}

// onNoteEvent fans a vault change out to SSE clients and the title cache.
func (c *core) onNoteEvent(kind index.EventKind, path string) {
	c.resolver.OnIndexEvent(kind, path)
	c.broker.PublishNoteEvent(string(kind), path)
}

// Close flushes pending settings writes and releases the index.
func (c *core) Close() {
	if c.settings != nil {
		c.settings.Wait()
	}
	if c.broker != nil {
		c.broker.Close()
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			c.logger.Warn("index close failed", slog.String("error", err.Error()))
		}
	}
}
