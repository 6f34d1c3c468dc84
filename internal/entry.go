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

	"github.com/starford/inkwell/internal/api"
	"github.com/starford/inkwell/internal/content"
	"github.com/starford/inkwell/internal/mcpserver"
	"github.com/starford/inkwell/internal/postservice"
	"github.com/starford/inkwell/internal/search"
	"github.com/starford/inkwell/internal/sse"
	"github.com/starford/inkwell/internal/storage"
	"github.com/starford/inkwell/internal/watch"
)

// Version is reported by the MCP server and the CLI. Set at build time.
var Version = "dev"

// core is the content pipeline shared by the HTTP and MCP front ends:
// watcher -> content service -> observers (search mirror and any extras).
type core struct {
	tree    *storage.Tree
	match   *storage.Matcher
	db      *search.DB
	mirror  *search.Mirror
	watcher *watch.Watcher
	service *content.Service
	client  *content.Client
	posts   *postservice.Service
}

func newCore(cfg *Config, logger *slog.Logger, observers ...content.Observer) (*core, error) {
	match, err := cfg.Content.Matcher()
	if err != nil {
		return nil, fmt.Errorf("init matcher: %w", err)
	}

	tree, err := storage.NewTree(cfg.Content.Root, match)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := search.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init search: %w", err)
	}

	watcher, err := watch.New(tree.Root(), match,
		watch.WithDebounce(cfg.Content.Debounce.D()),
		watch.WithLogger(logger),
	)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init watcher: %w", err)
	}

	mirror := search.NewMirror(db, search.DefaultQueue, logger)

	opts := []content.Option{
		content.WithLogger(logger),
		content.WithQueueSize(cfg.Content.QueueSize),
		content.WithObserver(mirror),
	}
	for _, o := range observers {
		opts = append(opts, content.WithObserver(o))
	}
	service, client := content.New(tree, watcher.Changes(), opts...)

	return &core{
		tree:    tree,
		match:   match,
		db:      db,
		mirror:  mirror,
		watcher: watcher,
		service: service,
		client:  client,
		posts:   postservice.NewService(client, db, cfg.Content.RequestTimeout.D()),
	}, nil
}

// start launches the mirror, the watcher and the content service. The
// content service stops once ctx is cancelled and the client is closed.
func (c *core) start(ctx context.Context, g *errgroup.Group) {
	g.Go(func() error { return c.mirror.Run(ctx) })
	g.Go(func() error { return c.watcher.Run(ctx) })
	g.Go(func() error { return c.service.Run() })
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

func configure(opts []Option, logOutput io.Writer) (*application, error) {
	app := &application{logOutput: logOutput}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// Run starts the HTTP application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := configure(opts, os.Stdout)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := newLogger(app.logOutput, cfg.App.LogLevel)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("content_root", cfg.Content.Root),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	c, err := newCore(cfg, logger, broker)
	if err != nil {
		return err
	}
	defer c.db.Close()

	apiRouter := api.NewRouter(c.posts, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)
	siteRouter := api.NewSiteRouter(c.posts, api.NewAssetHandler(c.tree, c.match))

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		select {
		case <-c.service.Ready():
			writeStatus(w, http.StatusOK, "ok")
		default:
			writeStatus(w, http.StatusServiceUnavailable, "scanning")
		}
	})

	// Mount API routes under /api, pages and assets at the root.
	r.Mount("/api", apiRouter)
	r.Mount("/", siteRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Event streams never finish on their own; closing the broker ends them.
	httpServer.RegisterOnShutdown(broker.Close)

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start the content pipeline.
	c.start(gCtx, g)

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

		logger.Info("Shutting down server...", slog.Int("sse_clients", broker.ClientCount()))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		// No more callers: stop the watcher and close the request mailboxes
		// so the content service drains and exits.
		cancel()
		c.client.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// ServeMCP runs the content pipeline and serves MCP over stdio until stdin
// is closed or the process is signalled. Logs go to stderr since stdout
// carries the protocol.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, err := configure(opts, os.Stderr)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(app.logOutput, cfg.App.LogLevel)
	slog.SetDefault(logger)

	c, err := newCore(cfg, logger)
	if err != nil {
		return err
	}
	defer c.db.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)
	c.start(gCtx, g)

	logger.Info("MCP server starting", slog.String("content_root", c.tree.Root()))
	serveErr := mcpserver.New(c.posts, Version).ServeStdio()

	cancel()
	c.client.Close()
	if err := g.Wait(); err != nil {
		return err
	}
	if serveErr != nil {
		return fmt.Errorf("mcp server: %w", serveErr)
	}
	return nil
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = fmt.Fprintf(w, `{"status":%q}`, status)
}
