// Package server exposes the agent over HTTP. It is a thin presentation
// surface over the pipeline; all control flow lives in pkg/pipeline.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/asim-Gelal/Remit-agent/pkg/monitor"
	"github.com/asim-Gelal/Remit-agent/pkg/pipeline"
	"github.com/asim-Gelal/Remit-agent/pkg/schema"
)

// Config holds the server dependencies.
type Config struct {
	Logger   *slog.Logger
	Pipeline *pipeline.Pipeline
	Recorder *monitor.Recorder
	Registry *schema.Registry
	Schema   *schema.Provider
}

// Server handles the agent's HTTP API.
type Server struct {
	log      *slog.Logger
	pipeline *pipeline.Pipeline
	recorder *monitor.Recorder
	registry *schema.Registry
	schema   *schema.Provider
}

// New creates a Server.
func New(cfg Config) (*Server, error) {
	if cfg.Pipeline == nil {
		return nil, fmt.Errorf("pipeline is required")
	}
	if cfg.Recorder == nil {
		return nil, fmt.Errorf("recorder is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if cfg.Schema == nil {
		return nil, fmt.Errorf("schema provider is required")
	}
	return &Server{
		log:      cfg.Logger,
		pipeline: cfg.Pipeline,
		recorder: cfg.Recorder,
		registry: cfg.Registry,
		schema:   cfg.Schema,
	}, nil
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/api/ask", s.handleAsk)
	r.Get("/api/invocations", s.handleInvocations)
	r.Get("/api/schema", s.handleSchema)
	r.Post("/api/tables", s.handleAddTable)
	r.Delete("/api/tables/{name}", s.handleRemoveTable)
	r.Get("/healthz", s.handleHealth)

	return r
}

type askRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	// Each independent request starts with a fresh invocation log.
	s.recorder.Clear()

	id := uuid.New()
	s.log.Info("ask: running pipeline", "id", id, "question", req.Question)

	result := s.pipeline.Run(r.Context(), req.Question)

	s.log.Info("ask: pipeline finished", "id", id)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleInvocations(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"invocations": s.recorder.List(),
	})
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"tables":      s.registry.List(),
		"description": s.schema.DescribeSchema(r.Context()),
	})
}

type tableRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleAddTable(w http.ResponseWriter, r *http.Request) {
	var req tableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "table name is required")
		return
	}
	added := s.registry.Add(req.Name)
	s.log.Info("whitelist: add table", "table", req.Name, "added", added)
	writeJSON(w, http.StatusOK, map[string]any{"added": added})
}

func (s *Server) handleRemoveTable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	removed := s.registry.Remove(name)
	s.log.Info("whitelist: remove table", "table", name, "removed", removed)
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
