// Package server exposes the ReAct agent and the essay workflow over HTTP.
//
//	POST  /v1/react                  {task, turn_limit}
//	POST  /v1/essays                 {task, max_revisions, revision_number, run_id}
//	GET   /v1/essays/{runID}         latest checkpoint
//	GET   /v1/essays/{runID}/history every checkpoint, oldest first
//	PATCH /v1/essays/{runID}         {plan, draft, critique}
//	POST  /v1/essays/{runID}/resume  continue an interrupted run
//	GET   /metrics
//	GET   /healthz
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/felixgeelhaar/bolt/v3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rickchristie/agentloops/agents/react"
	"github.com/rickchristie/agentloops/config"
	"github.com/rickchristie/agentloops/essay"
	"github.com/rickchristie/agentloops/graph"
)

// Options configures a Server.
type Options struct {
	Agent  *react.Agent
	Essays *graph.Compiled[essay.State, essay.Update]

	// React and Essay supply defaults for fields a request leaves out.
	React config.ReactConfig
	Essay config.EssayConfig

	// Metrics serves GET /metrics. Nil leaves the route out.
	Metrics http.Handler

	Logger *bolt.Logger
}

// Server is the HTTP API.
type Server struct {
	agent   *react.Agent
	essays  *graph.Compiled[essay.State, essay.Update]
	react   config.ReactConfig
	essay   config.EssayConfig
	metrics http.Handler
	logger  *bolt.Logger
}

// New creates a Server.
func New(opts Options) *Server {
	return &Server{
		agent:   opts.Agent,
		essays:  opts.Essays,
		react:   opts.React,
		essay:   opts.Essay,
		metrics: opts.Metrics,
		logger:  opts.Logger,
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/react", s.handleReact)
		r.Route("/essays", func(r chi.Router) {
			r.Post("/", s.handleCreateEssay)
			r.Get("/{runID}", s.handleGetEssay)
			r.Get("/{runID}/history", s.handleEssayHistory)
			r.Patch("/{runID}", s.handleUpdateEssay)
			r.Post("/{runID}/resume", s.handleResumeEssay)
		})
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("http request")
	})
}

// ListenAndServe serves until ctx is done, then shuts down gracefully within
// cfg.ShutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, cfg config.ServerConfig) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", cfg.Addr).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
