package runtime

import (
	"log/slog"

	"github.com/tjfontaine/vertex-claude-gateway/internal/frontdoor"
	"github.com/tjfontaine/vertex-claude-gateway/internal/storage"
)

// Option is a functional option for configuring a Gateway.
type Option func(*Gateway) error

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) error {
		g.logger = logger
		return nil
	}
}

// WithUpstream replaces the Vertex client, mainly for tests.
func WithUpstream(upstream frontdoor.Upstream) Option {
	return func(g *Gateway) error {
		g.upstream = upstream
		return nil
	}
}

// WithStore replaces the interaction store built from storage.type.
func WithStore(store storage.Store) Option {
	return func(g *Gateway) error {
		g.store = store
		return nil
	}
}
