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

	"github.com/starford/furyload/internal/api"
	"github.com/starford/furyload/internal/content"
	"github.com/starford/furyload/internal/docservice"
	"github.com/starford/furyload/internal/github"
	"github.com/starford/furyload/internal/index"
	"github.com/starford/furyload/internal/lastmod"
	"github.com/starford/furyload/internal/listing"
	"github.com/starford/furyload/internal/mcpserver"
	"github.com/starford/furyload/internal/render"
	"github.com/starford/furyload/internal/resolve"
	"github.com/starford/furyload/internal/sse"
	"github.com/starford/furyload/internal/storage"
	"github.com/starford/furyload/internal/web"
	pkgconfig "github.com/starford/furyload/pkg/config"
)

// assetPrefix is where a local content directory is served.
const assetPrefix = "/raw"

var errConfigRequired = errors.New("config is required")

// site holds the wired document service and what Run needs beside it.
type site struct {
	svc   *docservice.Service
	db    *index.DB
	store storage.Provider // nil unless content is local
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("content_root", cfg.Content.RootURL),
		slog.String("content_dir", cfg.Content.LocalDir),
		slog.String("listing_path", cfg.Listing.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	s, err := buildSite(ctx, cfg, logger, broker.PublishDocumentEvent)
	if err != nil {
		return err
	}
	defer s.db.Close()

	// Initial listing and index sync.
	if _, err := s.svc.Refresh(ctx); err != nil {
		logger.Warn("initial refresh failed", slog.String("error", err.Error()))
	}

	apiRouter := api.NewRouter(s.svc, api.RouterOptions{
		AuthEnabled:    cfg.Auth.AuthEnabled(),
		Token:          cfg.Auth.Token,
		Events:         broker,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	pages, err := web.New(s.svc, web.Options{
		SiteTitle: cfg.Site.Title,
		EventsURL: "/api/events",
	})
	if err != nil {
		return fmt.Errorf("init pages: %w", err)
	}

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

	// Images of a local content directory.
	if s.store != nil {
		assets := api.NewAssetHandler(s.store.Root())
		r.Get(assetPrefix+"/*", assets.ServeFile)
	}

	pages.Mount(r)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Keep the index current while content is a local directory.
	if s.store != nil {
		docRoot := s.svc.Config().Root()
		g.Go(func() error {
			err := index.Watch(gCtx, s.db, s.store, docRoot, logger, s.svc.HandleChange)
			if err != nil {
				logger.Error("watcher stopped", slog.String("error", err.Error()))
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

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group context so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr so they do
// not corrupt the protocol stream.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	s, err := buildSite(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer s.db.Close()

	if _, err := s.svc.Refresh(ctx); err != nil {
		logger.Warn("initial refresh failed", slog.String("error", err.Error()))
	}

	return mcpserver.New(s.svc, app.version).ServeStdio()
}

// buildSite wires the document service for cfg. The listing file is loaded
// here once and injected; nothing reloads it at runtime.
func buildSite(ctx context.Context, cfg *Config, logger *slog.Logger, onChange docservice.ChangeFunc) (*site, error) {
	listingCfg := &listing.Config{}
	if err := pkgconfig.Load(cfg.Listing.Path, listingCfg); err != nil {
		return nil, fmt.Errorf("load listing: %w", err)
	}

	overflow := resolve.WithOverflowHook(func(src, doc string) {
		logger.Warn("image path climbs above the content root",
			slog.String("src", src),
			slog.String("document", doc))
	})

	var (
		lister  listing.Lister
		fetcher content.Fetcher
		lastMod lastmod.Provider
		assets  *resolve.Resolver
		store   storage.Provider
	)

	if cfg.Content.Local() {
		fs, err := storage.NewFS(cfg.Content.LocalDir)
		if err != nil {
			return nil, fmt.Errorf("init storage: %w", err)
		}
		store = fs
		lister = listing.NewLocalLister(fs)
		fetcher = content.NewLocalFetcher(fs)
		lastMod = lastmod.NewLocal(fs)
		assets = resolve.New(assetPrefix, overflow)
	} else {
		client, err := github.NewClient(ctx, github.Options{
			Owner:             cfg.GitHub.Owner,
			Repo:              cfg.GitHub.Repo,
			Branch:            cfg.GitHub.Branch,
			Token:             cfg.GitHub.Token,
			RequestsPerSecond: cfg.GitHub.RequestsPerSecond,
			BaseURL:           cfg.GitHub.BaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("init github: %w", err)
		}
		httpClient := &http.Client{Timeout: github.DefaultTimeout}
		assets = resolve.New(cfg.Content.RootURL, overflow)
		lister = listing.NewGitHubLister(client)
		fetcher = content.NewHTTPFetcher(assets, httpClient)
		lastMod = lastmod.Chain{
			lastmod.NewGitHubCommits(client, logger),
			lastmod.NewHTTPHead(assets, httpClient),
		}
		logger.Info("content from GitHub", slog.String("repository", client.Repository()))
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	svc := docservice.New(docservice.Deps{
		Listing:  listingCfg,
		Lister:   lister,
		Fetcher:  fetcher,
		LastMod:  lastMod,
		Renderer: render.New(assets, render.WithStyle(cfg.Site.HighlightStyle)),
		Assets:   assets,
		Index:    db,
		Logger:   logger,
		OnChange: onChange,
	})

	return &site{svc: svc, db: db, store: store}, nil
}
