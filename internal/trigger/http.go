// Package trigger exposes the HTTP endpoints that fire a pipeline
// invocation. The process does no polling on its own: every run of either
// flow is caused by an inbound request here (or the built-in schedule).
package trigger

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nightowlworks/grindbot/internal/config"
	"github.com/nightowlworks/grindbot/internal/pipeline"
)

// Invoker runs the two pipeline flows. Satisfied by *pipeline.Agent.
type Invoker interface {
	Reactive(ctx context.Context, force bool) (pipeline.Summary, error)
	Proactive(ctx context.Context) (pipeline.Summary, error)
}

type Server struct {
	cfg     *config.Config
	invoker Invoker
	srv     *http.Server
}

func NewServer(cfg *config.Config, invoker Invoker) *Server {
	s := &Server{cfg: cfg, invoker: invoker}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/health"))

	// Both GET and POST are accepted so the hooks work from a browser or a
	// bare curl as well as from schedulers.
	r.Get("/hooks/reply", s.handleReply)
	r.Post("/hooks/reply", s.handleReply)
	r.Get("/hooks/nag", s.handleNag)
	r.Post("/hooks/nag", s.handleNag)

	s.srv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Trigger.Host, cfg.Trigger.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}
	return s
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.srv.Handler
}

func (s *Server) Start() error {
	log.Printf("[trigger] listening on %s", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("trigger server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// authorize checks the static key before any side effect. A mismatch is
// rejected without touching the pipeline.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request) bool {
	if s.cfg.Trigger.APIKey == "" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "trigger key not configured"})
		return false
	}
	if r.URL.Query().Get("key") != s.cfg.Trigger.APIKey {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return false
	}
	return true
}

func (s *Server) handleReply(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}
	force := isTruthy(r.URL.Query().Get("force")) || isTruthy(r.URL.Query().Get("test"))

	sum, err := s.invoker.Reactive(r.Context(), force)
	writeSummary(w, sum, err)
}

func (s *Server) handleNag(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}

	sum, err := s.invoker.Proactive(r.Context())
	writeSummary(w, sum, err)
}

func writeSummary(w http.ResponseWriter, sum pipeline.Summary, err error) {
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, struct {
			Error string `json:"error"`
			pipeline.Summary
		}{Error: err.Error(), Summary: sum})
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[trigger] write response: %v", err)
	}
}

func isTruthy(v string) bool {
	switch v {
	case "1", "true", "yes":
		return true
	}
	return false
}
