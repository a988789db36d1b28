// Package server exposes the trigger service's HTTP surface: snapshot
// ingestion, the rule administration API, the observer websockets, the
// Prometheus endpoint and the control-panel static files.
package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/primaryrutabaga/cs2-link/pkg/engine"
	"github.com/primaryrutabaga/cs2-link/pkg/hub"
	"github.com/primaryrutabaga/cs2-link/pkg/rules"
)

// Server wires the pipeline components behind HTTP handlers.
type Server struct {
	processor *engine.Processor
	tracker   *engine.Tracker
	store     *rules.Store
	hub       *hub.Hub
	staticDir string
	upgrader  websocket.Upgrader
}

func New(processor *engine.Processor, tracker *engine.Tracker, store *rules.Store, h *hub.Hub, staticDir string) *Server {
	return &Server{
		processor: processor,
		tracker:   tracker,
		store:     store,
		hub:       h,
		staticDir: staticDir,
		upgrader: websocket.Upgrader{
			// The panel is served from arbitrary LAN origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Router builds the service routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/cs2-event", s.handleSnapshot)
		r.Get("/game-state", s.handleGameState)
		r.Get("/health", s.handleHealth)

		r.Get("/events", s.handleListRules)
		r.Post("/events", s.handleCreateRule)
		r.Get("/events/{id}", s.handleGetRule)
		r.Post("/events/{id}", s.handleUpdateRule)
		r.Delete("/events/{id}", s.handleDeleteRule)
	})

	r.Get("/ws/game-state", s.handleStateSocket)
	r.Get("/ws/game-events", s.handleEventSocket)

	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(s.handleStatic)
	return r
}

func (s *Server) handleStateSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.hub.ServeState(ws)
}

func (s *Server) handleEventSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.hub.ServeEvents(ws)
}

// handleStatic serves the control-panel frontend with an index.html
// fallback for client-side routes. API and websocket paths never fall
// through to the panel.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") || strings.HasPrefix(r.URL.Path, "/ws/") {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
		return
	}
	if s.staticDir == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Frontend not found"})
		return
	}

	path := filepath.Join(s.staticDir, filepath.Clean("/"+r.URL.Path))
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		http.ServeFile(w, r, path)
		return
	}

	index := filepath.Join(s.staticDir, "index.html")
	if _, err := os.Stat(index); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Frontend not found"})
		return
	}
	http.ServeFile(w, r, index)
}
