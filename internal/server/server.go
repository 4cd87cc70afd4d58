// Package server exposes card generation over HTTP.
//
// Routes:
//
//	GET  /healthz       liveness probe, answers "ok"
//	GET  /v1/card.png   card from query parameters
//	POST /v1/cards      card from a JSON body
//	GET  /v1/stats      gatekeeper and stage counters as JSON
//
// Errors are JSON objects {"code": ..., "message": ...}. Invalid input is a
// 400; everything else is a 500, or a 504 when the request ran out of time.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/wnft/pkg/card"
	"github.com/matzehuels/wnft/pkg/observability"
)

// Generator renders a card to PNG bytes. *pipeline.Runner satisfies it.
type Generator interface {
	Generate(ctx context.Context, req card.Request, opts card.RenderOptions) ([]byte, error)
}

// Options configures a Server.
type Options struct {
	Generator Generator
	// Stats backs /v1/stats. A nil Stats serves empty counters.
	Stats  *observability.Stats
	Logger *log.Logger
	// RequestTimeout bounds one card; zero means no limit beyond the
	// client's own.
	RequestTimeout time.Duration
}

// Server is the HTTP API. It holds no per-request state.
type Server struct {
	gen     Generator
	stats   *observability.Stats
	logger  *log.Logger
	timeout time.Duration
}

// New returns a Server.
func New(opts Options) *Server {
	s := &Server{
		gen:     opts.Generator,
		stats:   opts.Stats,
		logger:  opts.Logger,
		timeout: opts.RequestTimeout,
	}
	if s.stats == nil {
		s.stats = observability.NewStats()
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	return s
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		requestID,
		middleware.RealIP,
		s.accessLog,
		middleware.Recoverer,
	)

	r.Get("/healthz", s.health)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/card.png", s.cardFromQuery)
		r.Post("/cards", s.cardFromJSON)
		r.Get("/stats", s.statsSnapshot)
	})
	return r
}

// ListenOptions configures ListenAndServe.
type ListenOptions struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, opts ListenOptions) error {
	srv := &http.Server{
		Addr:         opts.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", opts.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
