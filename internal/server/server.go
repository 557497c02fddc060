// Package server exposes conversion and resolution over HTTP.
//
// Routes:
//
//	GET  /healthz       liveness and build version
//	GET  /metrics       Prometheus metrics, when configured
//	GET  /v1/formats    registered project-file formats
//	POST /v1/convert    convert file content between formats
//	POST /v1/lock       resolve and render a lock file
//	POST /v1/graph      resolve and return the dependency graph as JSON
//
// Errors are JSON bodies {"error": {"code", "message", "request_id",
// "details"}} with the status of their code.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ko3luhbka/dephell/pkg/converters"
	"github.com/ko3luhbka/dephell/pkg/resolver"
)

const (
	// DefaultTimeout bounds one resolution request.
	DefaultTimeout = 2 * time.Minute
	// DefaultMaxBody bounds request bodies.
	DefaultMaxBody = 1 << 20
)

// Config wires the server's dependencies.
type Config struct {
	Registry *converters.Registry
	Source   resolver.Source
	Options  resolver.Options
	Logger   *log.Logger

	// Metrics is served on /metrics when set.
	Metrics http.Handler

	Timeout time.Duration // per resolution request (default: 2m)
	MaxBody int64         // bytes per request body (default: 1 MiB)
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxBody <= 0 {
		c.MaxBody = DefaultMaxBody
	}
	if c.Logger == nil {
		c.Logger = log.Default()
	}
	return c
}

// Server is the HTTP API.
type Server struct {
	cfg        Config
	router     chi.Router
	httpServer *http.Server
}

// New creates a server. Source may be nil, in which case only conversion
// works and resolution routes fail.
func New(cfg Config) *Server {
	s := &Server{cfg: cfg.withDefaults()}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Get("/healthz", s.handleHealth)
	if s.cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.cfg.Metrics)
	}
	r.Route("/v1", func(r chi.Router) {
		r.Get("/formats", s.handleFormats)
		r.Post("/convert", s.handleConvert)
		r.Post("/lock", s.handleLock)
		r.Post("/graph", s.handleGraph)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, errNotFound)
	})
	return r
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.cfg.Logger.Info("starting API server", "addr", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
