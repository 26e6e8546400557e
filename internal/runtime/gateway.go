// Package runtime assembles the gateway from configuration and manages its
// lifecycle.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/tjfontaine/vertex-claude-gateway/internal/api/anthropic"
	"github.com/tjfontaine/vertex-claude-gateway/internal/config"
	"github.com/tjfontaine/vertex-claude-gateway/internal/frontdoor"
	"github.com/tjfontaine/vertex-claude-gateway/internal/server"
	"github.com/tjfontaine/vertex-claude-gateway/internal/storage"
	"github.com/tjfontaine/vertex-claude-gateway/internal/storage/memory"
	"github.com/tjfontaine/vertex-claude-gateway/internal/storage/sqlite"
	"github.com/tjfontaine/vertex-claude-gateway/internal/tokens"
	"github.com/tjfontaine/vertex-claude-gateway/internal/tokensource"
)

const (
	// modelListTimeout bounds the cheap read-only routes. Chat completions
	// manage their own deadlines because streams have none.
	modelListTimeout = 10 * time.Second

	shutdownTimeout = 15 * time.Second
)

// Gateway owns the assembled gateway: the upstream client, the interaction
// store, and the HTTP server around them.
type Gateway struct {
	cfg      *config.Config
	logger   *slog.Logger
	upstream frontdoor.Upstream
	store    storage.Store
	server   *http.Server
}

// New builds a gateway from configuration. ctx is used for credential
// discovery only; the gateway itself does not start until Run.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Gateway, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	g := &Gateway{
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	if g.upstream == nil {
		source, err := buildTokenSource(ctx, cfg)
		if err != nil {
			return nil, err
		}
		g.upstream = anthropic.NewClient(cfg.Vertex.Project, cfg.Vertex.Region, source)
	}

	if g.store == nil {
		store, err := buildStore(cfg, g.logger)
		if err != nil {
			return nil, err
		}
		g.store = store
	}

	g.server = g.buildServer()
	return g, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully. It returns
// once the listener has stopped and the store is closed.
func (g *Gateway) Run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		g.logger.Info("gateway listening",
			slog.String("addr", g.server.Addr),
			slog.String("project", g.cfg.Vertex.Project),
			slog.String("region", g.cfg.Vertex.Region),
			slog.Int("models", len(g.cfg.Models)))
		if err := g.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		g.logger.Info("shutting down gateway")
		if err := g.server.Shutdown(shutdownCtx); err != nil {
			g.logger.Error("failed to shut down server", slog.String("error", err.Error()))
		}
		if err := g.store.Close(); err != nil {
			g.logger.Error("failed to close interaction store", slog.String("error", err.Error()))
		}
		g.logger.Info("gateway shutdown complete")
		return nil
	})

	return eg.Wait()
}

// Handler exposes the assembled router, mainly for tests that drive the
// gateway without binding a port.
func (g *Gateway) Handler() http.Handler {
	return g.server.Handler
}

// buildServer assembles the middleware stack and routes. The API-key gate
// covers /v1 only; the health endpoint stays open for probes. Chat
// completions run without a route timeout because a live stream outlasts any
// fixed deadline.
func (g *Gateway) buildServer() *http.Server {
	handler := frontdoor.NewHandler(g.upstream, g.cfg, tokens.NewEstimator(), g.store, g.logger)

	srv := server.New(g.cfg.Server.Port, g.logger)
	srv.Router.Get("/", handler.Health)
	srv.Router.Route("/v1", func(r chi.Router) {
		if len(g.cfg.Server.APIKeys) > 0 {
			r.Use(server.APIKeyMiddleware(g.cfg.Server.APIKeys))
		}
		r.With(server.TimeoutMiddleware(modelListTimeout)).Get("/models", handler.ListModels)
		r.Post("/chat/completions", handler.ChatCompletions)
	})

	return srv.HTTPServer()
}

// buildTokenSource prefers a statically configured token and falls back to
// Application Default Credentials.
func buildTokenSource(ctx context.Context, cfg *config.Config) (tokensource.Source, error) {
	if cfg.Vertex.AccessToken != "" {
		return tokensource.Static(cfg.Vertex.AccessToken), nil
	}
	source, err := tokensource.GoogleDefault(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to locate Google credentials: %w", err)
	}
	return source, nil
}

// buildStore creates the interaction store named by storage.type. Validate
// has already rejected unknown types; "none" records nothing.
func buildStore(cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	switch cfg.Storage.Type {
	case "sqlite":
		store, err := sqlite.New(cfg.Storage.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open interaction store: %w", err)
		}
		logger.Info("interaction recording enabled",
			slog.String("backend", "sqlite"),
			slog.String("path", cfg.Storage.SQLite.Path))
		return store, nil
	case "memory":
		logger.Info("interaction recording enabled", slog.String("backend", "memory"))
		return memory.New(), nil
	default:
		return storage.Discard{}, nil
	}
}
