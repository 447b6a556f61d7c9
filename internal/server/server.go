package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/alexindevs/roomey-api/internal/observability"
)

type Server struct {
	name       string
	httpServer *http.Server
}

// New builds an HTTP server. WriteTimeout is left unset so hijacked
// websocket connections are not cut off.
func New(name, addr string, handler http.Handler) *Server {
	return &Server{
		name: name,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start blocks until the server stops. A clean shutdown returns nil.
func (s *Server) Start() error {
	observability.GetLogger(context.Background()).Info("starting server", zap.String("server", s.name), zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	observability.GetLogger(context.Background()).Info("shutting down server", zap.String("server", s.name))
	return s.httpServer.Shutdown(ctx)
}

// NewObservability serves /metrics and the health probes on a separate
// listener.
func NewObservability(serviceName, addr string, checks map[string]observability.Pinger) *Server {
	mux := chi.NewRouter()
	mux.Use(observability.MetricsMiddleware(serviceName))
	mux.Handle("/metrics", promhttp.Handler())
	mux.Get("/health/live", observability.HealthLiveHandler)
	mux.Get("/health/ready", observability.HealthReadyHandler(checks))
	return New("observability", addr, mux)
}
