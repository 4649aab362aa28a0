// Package server exposes the API test engine over HTTP.
//
// POST /v1/tests takes a request spec as its body and always answers 200 with
// the test result, since failures are part of the result. Only a body over the
// configured size limit is refused, with 413.
package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/studiowebux/apitest/internal/config"
	"github.com/studiowebux/apitest/internal/parser"
	"github.com/studiowebux/apitest/internal/runner"
	"github.com/studiowebux/apitest/internal/types"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// Server serves API test runs
type Server struct {
	cfg      *config.Config
	runner   *runner.Runner
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *Metrics
}

// New creates a server backed by r
func New(cfg *config.Config, r *runner.Runner, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := prometheus.NewRegistry()
	return &Server{
		cfg:      cfg,
		runner:   r,
		logger:   logger,
		registry: registry,
		metrics:  NewMetrics(registry),
	}
}

// Handler returns the HTTP routes
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(RequestLog(s.logger))
	r.Use(middleware.Recoverer)

	r.Post("/v1/tests", s.handleRunTest)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return r
}

// Run listens on the configured address and serves until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", s.cfg.ListenAddr)
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is cancelled, then shuts down gracefully
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("api test server listening", zap.String("addr", listener.Addr().String()))
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "serve")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("api test server shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (s *Server) handleRunTest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respond(w, http.StatusRequestEntityTooLarge, s.runner.Fail(&parser.ParseError{
				Err: errors.Errorf("request body exceeds %d bytes", tooLarge.Limit),
			}))
			return
		}
		s.respond(w, http.StatusBadRequest, s.runner.Fail(&parser.ParseError{
			Err: errors.Wrap(err, "failed to read request body"),
		}))
		return
	}

	result := s.runner.Run(r.Context(), body)
	s.logger.Debug("api test served",
		zap.String("request_id", RequestIDFrom(r.Context())),
		zap.String("outcome", Outcome(result)))
	s.respond(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, `{"status":"ok"}`)
}

func (s *Server) respond(w http.ResponseWriter, status int, result *types.APITestResult) {
	s.metrics.Observe(result)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, runner.Marshal(result))
}
