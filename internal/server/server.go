package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Server assembles the chi router and its base middleware stack. Route
// registration happens in the runtime package; auth and timeouts are
// applied per route group there because the health endpoint stays open
// and streaming responses cannot live under a write deadline.
type Server struct {
	Router *chi.Mux
	Port   int
	logger *slog.Logger
}

func New(port int, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	// Apply middleware in order
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(middleware.Recoverer)

	// Wrap with OpenTelemetry HTTP instrumentation
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "vertex-claude-gateway")
	})

	return &Server{
		Router: r,
		Port:   port,
		logger: logger,
	}
}

// HTTPServer builds the http.Server for Start/Shutdown lifecycle control.
// WriteTimeout stays zero: SSE responses hold the connection open for as
// long as the upstream streams.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", s.Port),
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
