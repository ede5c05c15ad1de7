// Package server exposes the composition pipeline over HTTP: compose,
// confirm, and recompose endpoints plus composition lookups. It is a
// thin layer - request decoding, persistence, and status mapping - with
// no pipeline logic of its own.
package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/composureci/composure/internal/pipeline"
	"github.com/composureci/composure/internal/store"
	"github.com/composureci/composure/pkg/models"
)

// Composer is the pipeline surface the server depends on.
// *pipeline.Orchestrator satisfies it.
type Composer interface {
	Compose(ctx context.Context, requirements string, constraints map[string]any) (*pipeline.RunState, error)
	Recompose(ctx context.Context, trigger models.RecompositionTrigger, priorRequirements string, priorConstraints map[string]any) (*pipeline.RunState, error)
}

// Server handles the orchestrator HTTP API.
type Server struct {
	composer Composer
	db       *store.DB
	mux      *http.ServeMux
	now      func() time.Time
}

// New creates a Server with all routes registered.
func New(composer Composer, db *store.DB) *Server {
	s := &Server{
		composer: composer,
		db:       db,
		mux:      http.NewServeMux(),
		now:      time.Now,
	}

	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	s.mux.HandleFunc("POST /api/v1/compose", s.handleCompose)
	s.mux.HandleFunc("GET /api/v1/compositions/{id}", s.handleGetComposition)
	s.mux.HandleFunc("GET /api/v1/compositions/{id}/status", s.handleGetStatus)
	s.mux.HandleFunc("POST /api/v1/compositions/{id}/confirm", s.handleConfirm)
	s.mux.HandleFunc("POST /api/v1/recompose", s.handleRecompose)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[server] listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
