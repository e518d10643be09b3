// Package api implements the HTTP API server for gavel.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/gavelhq/gavel/internal/logging"
	"github.com/gavelhq/gavel/internal/model"
	"github.com/gavelhq/gavel/internal/tasks"
)

// Reviewer is the engine surface the server exposes over HTTP.
type Reviewer interface {
	RunReview(ctx context.Context, cs model.ChangeSet) (*model.ReviewResult, error)
	Submit(ctx context.Context, cs model.ChangeSet) (string, error)
	Poll(ctx context.Context, taskID string) (*tasks.Task, bool)
	Health(ctx context.Context) bool
}

// Server is the gavel HTTP API server.
type Server struct {
	engine Reviewer
	addr   string
	mux    *http.ServeMux
	server *http.Server
	log    zerolog.Logger
}

// New creates a new API server.
func New(addr string, engine Reviewer) *Server {
	s := &Server{
		engine: engine,
		addr:   addr,
		log:    logging.Component("api"),
	}
	s.mux = http.NewServeMux()
	s.registerRoutes()
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.mux,
		// Synchronous reviews hold the connection for the whole run.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /api/reviews", s.handleReview)
	s.mux.HandleFunc("POST /api/reviews/async", s.handleSubmit)
	s.mux.HandleFunc("GET /api/tasks/{id}", s.handleTask)
	s.mux.HandleFunc("GET /api/modes", s.handleModes)
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.log.Info().Str("addr", s.addr).Msg("api server listening")
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		s.log.Warn().Err(err).Msg("json encode error")
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// readJSON decodes a JSON request body into v.
func readJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return fmt.Errorf("empty request body")
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}
