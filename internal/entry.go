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
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/nbsave/internal/api"
	"github.com/starford/nbsave/internal/events"
	"github.com/starford/nbsave/internal/gitstore"
	"github.com/starford/nbsave/internal/host"
	"github.com/starford/nbsave/internal/journal"
	"github.com/starford/nbsave/internal/mcpserver"
	"github.com/starford/nbsave/internal/nbservice"
	"github.com/starford/nbsave/internal/notebook"
	"github.com/starford/nbsave/internal/savewidget"
	"github.com/starford/nbsave/internal/sse"
	"github.com/starford/nbsave/internal/storage"
	"github.com/starford/nbsave/internal/telemetry"
	"github.com/starford/nbsave/internal/watcher"
)

// components is everything Run serves, built by newComponents.
type components struct {
	logger *slog.Logger

	bus        *events.Bus
	broker     *sse.Broker
	nb         *notebook.Notebook
	widget     *savewidget.Widget
	telemetry  *telemetry.Client
	controller *host.Controller

	db  *journal.DB
	svc *nbservice.Service

	handler http.Handler
}

// newComponents opens the notebook and the revision store and builds the
// HTTP handler. ctx bounds renames started from the browser.
func newComponents(ctx context.Context, cfg *Config, logger *slog.Logger) (*components, error) {
	c := &components{logger: logger}

	svc, db, err := openService(cfg, logger)
	if err != nil {
		return nil, err
	}
	c.svc, c.db = svc, db

	if err := svc.Sync(ctx); err != nil {
		logger.Warn("initial journal sync failed", slog.String("error", err.Error()))
	}

	// Ensure notebook root exists.
	if err := os.MkdirAll(cfg.Notebook.Root, 0o755); err != nil {
		c.Close()
		return nil, fmt.Errorf("create notebook root: %w", err)
	}
	store, err := storage.NewFS(cfg.Notebook.Root)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}

	c.bus = events.NewBus()
	c.broker = sse.NewBroker()

	c.nb, err = notebook.Open(store, c.bus, cfg.Notebook.Path,
		notebook.WithBaseURL(cfg.Notebook.BaseURL),
		notebook.WithReadOnly(cfg.Notebook.ReadOnly),
		notebook.WithLogger(logger))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("open notebook: %w", err)
	}

	page := host.NewPage(c.broker)
	opts := []savewidget.Option{
		savewidget.WithChrome(page),
		savewidget.WithNavigation(page),
		savewidget.WithLogger(logger),
	}
	if cfg.Telemetry.Enabled() {
		tlOpts := []telemetry.Option{
			telemetry.WithTimeout(cfg.Telemetry.Timeout),
			telemetry.WithLogger(logger),
		}
		if cfg.Auth.AuthEnabled() {
			tlOpts = append(tlOpts, telemetry.WithToken(cfg.Auth.Token))
		}
		c.telemetry = telemetry.New(cfg.Telemetry.Endpoint, tlOpts...)
		opts = append(opts, savewidget.WithTelemetry(c.telemetry))
	}

	c.widget = savewidget.New(c.nb, page.Regions(), opts...)
	c.widget.Bind(c.bus)
	c.nb.Load()

	c.controller = host.NewController(ctx, c.nb, c.widget, page)

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

	r.Mount("/", api.NewRouter(api.RouterConfig{
		Store:         svc,
		Widget:        c.controller,
		Events:        c.broker,
		AuthEnabled:   cfg.Auth.AuthEnabled(),
		Token:         cfg.Auth.Token,
		AllowedOrigin: cfg.CORS.AllowedOrigin,
	}))
	c.handler = r

	return c, nil
}

// watchDir returns the directory holding the served notebook.
func watchDir(cfg *Config) string {
	return filepath.Join(cfg.Notebook.Root, filepath.Dir(filepath.FromSlash(cfg.Notebook.Path)))
}

// Close stops the widget and the event loops, waits for in-flight
// telemetry and closes the journal.
func (c *components) Close() {
	if c.widget != nil {
		c.widget.Close()
	}
	if c.bus != nil {
		c.bus.Close()
	}
	if c.broker != nil {
		c.broker.Close()
	}
	if c.telemetry != nil {
		c.telemetry.Wait()
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			c.logger.Warn("close journal", slog.String("error", err.Error()))
		}
	}
}

func openService(cfg *Config, logger *slog.Logger) (*nbservice.Service, *journal.DB, error) {
	store, err := gitstore.Open(cfg.GitStore.Path, gitstore.WithAuthor(cfg.GitStore.Author))
	if err != nil {
		return nil, nil, fmt.Errorf("init gitstore: %w", err)
	}
	db, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init journal: %w", err)
	}
	return nbservice.NewService(store, db, logger), db, nil
}

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := newLogger(app.logOutput, cfg.App.LogLevel)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("notebook_root", cfg.Notebook.Root),
		slog.String("notebook_path", cfg.Notebook.Path),
		slog.String("gitstore_path", cfg.GitStore.Path),
		slog.String("journal_path", cfg.Journal.Path),
		slog.Bool("telemetry", cfg.Telemetry.Enabled()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	g, gCtx := errgroup.WithContext(ctx)

	c, err := newComponents(gCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: c.handler,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	// Re-list checkpoints changed outside the server.
	g.Go(func() error {
		if err := watcher.Watch(gCtx, watchDir(cfg), notebook.CheckpointDir, c.nb, logger); err != nil {
			logger.Warn("checkpoint watcher stopped", slog.String("error", err.Error()))
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

		// Closing the broker ends open SSE streams so Shutdown can finish.
		c.broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the notebook history tools over stdio. Logs go to stderr
// since stdout carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(os.Stderr, cfg.App.LogLevel)
	slog.SetDefault(logger)

	svc, db, err := openService(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := svc.Sync(ctx); err != nil {
		logger.Warn("initial journal sync failed", slog.String("error", err.Error()))
	}

	logger.Info("MCP server starting", slog.String("gitstore_path", cfg.GitStore.Path))
	return mcpserver.New(svc).ServeStdio()
}
