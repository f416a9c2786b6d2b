// Package api exposes the orchestrator over HTTP with a JSON surface: run
// submission and inspection, agent registration, artifact download, and a
// health endpoint.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vk/flowgrid/internal/orchestrator"
	"github.com/vk/flowgrid/internal/runstore"
	"github.com/vk/flowgrid/internal/workflow"
)

// maxBodyBytes bounds how much of a request body a handler will read.
const maxBodyBytes = 4 << 20

// Server routes HTTP requests to an orchestrator.
type Server struct {
	orch   *orchestrator.Orchestrator
	logger *slog.Logger
}

// NewServer creates an API server around an orchestrator.
func NewServer(orch *orchestrator.Orchestrator, logger *slog.Logger) *Server {
	return &Server{orch: orch, logger: logger}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /runs", s.handleSubmitRun)
	mux.HandleFunc("GET /runs", s.handleListRuns)
	mux.HandleFunc("GET /runs/{id}", s.handleGetRun)
	mux.HandleFunc("GET /runs/{id}/artifacts/{name}", s.handleGetArtifact)
	mux.HandleFunc("POST /agents", s.handleRegisterAgent)
	mux.HandleFunc("GET /agents", s.handleListAgents)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSubmitRun accepts a run spec, and on success answers 202 with the new
// run id; execution continues in the background. A spec that fails validation
// answers 400 carrying the failed check's kind.
func (s *Server) handleSubmitRun(w http.ResponseWriter, r *http.Request) {
	var req runSpecRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err, "")
		return
	}
	spec, err := req.toSpec()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err, "")
		return
	}

	runID, err := s.orch.SubmitRun(spec)
	if err != nil {
		var verr *workflow.ValidationError
		if errors.As(err, &verr) {
			s.writeError(w, http.StatusBadRequest, err, string(verr.Kind))
			return
		}
		s.writeError(w, http.StatusInternalServerError, err, "")
		return
	}
	s.writeJSON(w, http.StatusAccepted, submitRunResponse{RunID: runID})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.orch.ListRuns())
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	state, err := s.orch.GetRun(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, runstore.ErrRunNotFound) {
			s.writeError(w, http.StatusNotFound, err, "")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err, "")
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	art, err := s.orch.Artifact(r.PathValue("id"), r.PathValue("name"))
	if err != nil {
		if errors.Is(err, runstore.ErrRunNotFound) || errors.Is(err, runstore.ErrArtifactNotFound) {
			s.writeError(w, http.StatusNotFound, err, "")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err, "")
		return
	}
	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Name))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(art.Data); err != nil {
		s.logger.Warn("Failed to write artifact response.", "error", err)
	}
}

func (s *Server) handleRegisterAgent(w http.ResponseWriter, r *http.Request) {
	var req registerAgentRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err, "")
		return
	}
	if err := s.orch.RegisterAgent(req.Name, req.Kind, req.Config); err != nil {
		s.writeError(w, http.StatusBadRequest, err, "")
		return
	}
	s.writeJSON(w, http.StatusCreated, orchestrator.AgentInfo{Name: req.Name, Kind: req.Kind})
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.orch.ListAgents())
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decoding request body: %w", err)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to encode response.", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error, kind string) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed.", "status", status, "error", err)
	} else {
		s.logger.Debug("Request rejected.", "status", status, "error", err)
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}
