package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/psaab/conftree/pkg/configstore"
	"github.com/psaab/conftree/pkg/logging"
	"github.com/psaab/conftree/pkg/metrics"
)

// Config configures the API server.
type Config struct {
	Addr     string
	Auth     *AuthConfig // nil = no authentication
	Store    *configstore.Store
	Diag     *logging.DiagBuffer // nil disables the log endpoints
	Recorder *metrics.Recorder   // optional

	// Registry is served at /metrics. A nil Registry gets a fresh one.
	// The document collector is registered on it either way.
	Registry *prometheus.Registry

	Logger *slog.Logger
}

// Server is the HTTP API server.
type Server struct {
	httpServer *http.Server
	store      *configstore.Store
	diag       *logging.DiagBuffer
	recorder   *metrics.Recorder
	logger     *slog.Logger
	startTime  time.Time
}

// NewServer creates a new API server.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:     cfg.Store,
		diag:      cfg.Diag,
		recorder:  cfg.Recorder,
		logger:    logger.WithGroup("api"),
		startTime: time.Now(),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	registry.MustRegister(metrics.NewDocumentCollector(s.store.Document))
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("GET /api/v1/document", s.documentHandler)
	mux.HandleFunc("POST /api/v1/document/reload", s.reloadHandler)
	mux.HandleFunc("GET /api/v1/lines", s.linesHandler)
	mux.HandleFunc("GET /api/v1/lines/{n}", s.lineHandler)
	mux.HandleFunc("GET /api/v1/find", s.findHandler)
	mux.HandleFunc("GET /api/v1/parents", s.parentsHandler)
	mux.HandleFunc("GET /api/v1/address", s.addressHandler)
	mux.HandleFunc("GET /api/v1/where", s.whereHandler)
	mux.HandleFunc("GET /api/v1/history", s.historyHandler)
	mux.HandleFunc("GET /api/v1/compare", s.compareHandler)
	mux.HandleFunc("GET /api/v1/logs", s.logsHandler)
	mux.HandleFunc("GET /api/v1/logs/stream", s.logStreamHandler)

	var handler http.Handler = mux
	if cfg.Auth != nil {
		handler = authMiddleware(cfg.Auth, mux)
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	// Streaming handlers end with ctx instead of holding up Shutdown.
	s.httpServer.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
