package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/efebarandurmaz/socialgraph/internal/events"
	"github.com/efebarandurmaz/socialgraph/internal/network"
	"github.com/efebarandurmaz/socialgraph/internal/observability"
)

// Config configures the HTTP server.
type Config struct {
	Addr    string
	Version string
	// Backend names the storage backend in health output.
	Backend string
}

// Server serves one network.Service.
type Server struct {
	cfg     Config
	svc     *network.Service
	health  *Health
	metrics *observability.Collector
	events  *events.Hub
	logger  *zap.Logger
	http    *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = observability.LoggerOrNop(l) }
}

// WithMetrics exposes c on /metrics and records HTTP metrics into it.
func WithMetrics(c *observability.Collector) Option {
	return func(s *Server) { s.metrics = c }
}

// WithEvents streams hub on /api/v1/events.
func WithEvents(h *events.Hub) Option {
	return func(s *Server) { s.events = h }
}

// New builds a server around svc.
func New(svc *network.Service, cfg Config, opts ...Option) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	s := &Server{
		cfg:    cfg,
		svc:    svc,
		health: NewHealth(cfg.Version),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.health.RegisterCheck("storage", StorageHealthChecker(cfg.Backend, svc.Ping))
	s.health.RegisterCheck("network", NetworkHealthChecker(svc.Size))

	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return s
}

// Health returns the probe state so callers can flip readiness.
func (s *Server) Health() *Health { return s.health }

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(s.logger, s.metrics))

	s.health.Mount(r)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/persons", func(r chi.Router) {
			r.Get("/", s.listPersons)
			r.Post("/", s.createPerson)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getPerson)
				r.Delete("/", s.deletePerson)
				r.Get("/ego", s.egoNetwork)
				r.Get("/recommendations", s.recommendations)
				r.Get("/analysis", s.analyzePerson)
			})
		})
		r.Route("/connections", func(r chi.Router) {
			r.Get("/", s.listConnections)
			r.Post("/", s.createConnection)
			r.Delete("/", s.deleteConnection)
		})
		r.Route("/network", func(r chi.Router) {
			r.Get("/stats", s.stats)
			r.Get("/centrality", s.centrality)
			r.Get("/communities", s.communities)
			r.Get("/export", s.exportNetwork)
			r.Post("/save", s.save)
			r.Post("/reload", s.reload)
		})
		if s.events != nil {
			r.Get("/events", s.events.ServeHTTP)
		}
	})
	return r
}

// Start listens in the background. The returned channel yields at most one
// error and is closed when the listener stops.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.health.SetReady(true)
	return errCh
}

// Shutdown marks the server not ready and drains connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	if s.events != nil {
		s.events.Close()
	}
	return s.http.Shutdown(ctx)
}
