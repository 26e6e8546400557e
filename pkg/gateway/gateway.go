// Package gateway is the public API for embedding the gateway in a larger
// process.
package gateway

import (
	"github.com/tjfontaine/vertex-claude-gateway/internal/runtime"
)

// Gateway runs the OpenAI-compatible surface over Vertex AI Claude models.
// See internal/runtime.Gateway for full documentation.
type Gateway = runtime.Gateway

// Option is a functional option for configuring a Gateway.
type Option = runtime.Option

// New builds a gateway from configuration. Example:
//
//	cfg, err := config.Load("config.yaml")
//	if err != nil { ... }
//	gw, err := gateway.New(ctx, cfg, gateway.WithLogger(logger))
var New = runtime.New

var (
	WithLogger   = runtime.WithLogger
	WithUpstream = runtime.WithUpstream
	WithStore    = runtime.WithStore
)
