package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/psaab/ldapsh/pkg/queryhistory"
	"github.com/psaab/ldapsh/pkg/session"
	"github.com/psaab/ldapsh/pkg/validate"
)

// Config configures the API server.
type Config struct {
	Addr    string
	Token   string // bearer token for /api/ paths (empty = no authentication)
	Session *session.Context
	History *queryhistory.Store
	Logger  *slog.Logger
}

// Server is the metrics and session HTTP server.
type Server struct {
	ctx        *session.Context
	hist       *queryhistory.Store
	validator  *validate.Validator
	logger     *slog.Logger
	startTime  time.Time
	registry   *prometheus.Registry
	handler    http.Handler
	httpServer *http.Server
}

// NewServer creates a new API server.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		ctx:       cfg.Session,
		hist:      cfg.History,
		validator: validate.New(cfg.Session),
		logger:    logger,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)

	// Prometheus metrics with isolated registry
	s.registry = prometheus.NewRegistry()
	s.registry.MustRegister(newCollector(cfg.Session, cfg.History))
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("GET /api/v1/status", s.statusHandler)
	mux.HandleFunc("GET /api/v1/session", s.sessionHandler)
	mux.HandleFunc("GET /api/v1/suggestions", s.suggestionsHandler)
	mux.HandleFunc("GET /api/v1/history/{category}", s.historyHandler)
	mux.HandleFunc("POST /api/v1/validate", s.validateHandler)

	var handler http.Handler = mux
	if cfg.Token != "" {
		handler = authMiddleware(cfg.Token, mux)
	}
	s.handler = handler

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Registry returns the server's metrics registry.
func (s *Server) Registry() *prometheus.Registry { return s.registry }

// Run starts the server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
