package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/primaryrutabaga/cs2-link/pkg/engine"
	"github.com/primaryrutabaga/cs2-link/pkg/rules"
	"github.com/primaryrutabaga/cs2-link/pkg/schemas"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: encode response: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Snapshot ingestion
// ---------------------------------------------------------------------------

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	var payload schemas.StatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"status":  "error",
			"message": "Invalid data format",
		})
		return
	}

	status, err := s.processor.Submit(&payload)
	if err != nil {
		if errors.Is(err, engine.ErrMalformed) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"status":  "error",
				"message": "Invalid data format",
			})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}

	if status == engine.StatusIgnored {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ignored",
			"message": "Not local player",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Event processed",
	})
}

func (s *Server) handleGameState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Current())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// ---------------------------------------------------------------------------
// Rule administration
// ---------------------------------------------------------------------------

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	events := make(map[string]schemas.Rule)
	for _, sr := range s.store.List() {
		events[sr.ID] = sr.Rule
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rule, err := s.store.Get(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Event not found"})
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) decodeRule(w http.ResponseWriter, r *http.Request) (schemas.Rule, bool) {
	var rule schemas.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid rule body"})
		return schemas.Rule{}, false
	}
	if err := rule.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return schemas.Rule{}, false
	}
	return rule, true
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rule, ok := s.decodeRule(w, r)
	if !ok {
		return
	}

	if err := s.store.Put(id, rule); err != nil {
		log.Printf("server: update rule %s: %v", id, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to persist rule"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "event": rule})
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	rule, ok := s.decodeRule(w, r)
	if !ok {
		return
	}

	id, err := s.store.Create(rule)
	if err != nil {
		log.Printf("server: create rule: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to persist rule"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "event_id": id, "event": rule})
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(id); err != nil {
		if errors.Is(err, rules.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Event not found"})
			return
		}
		log.Printf("server: delete rule %s: %v", id, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to persist rule"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
