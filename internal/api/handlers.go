package api

import (
	"errors"
	"net/http"

	"github.com/gavelhq/gavel/internal/engine"
	"github.com/gavelhq/gavel/internal/model"
)

// --- Health ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok", "cache": "ok"}
	if !s.engine.Health(r.Context()) {
		// Reviews still run with cold caches, so the server stays up.
		status["cache"] = "degraded"
	}
	s.writeJSON(w, http.StatusOK, status)
}

// --- Reviews ---

type reviewRequest struct {
	Project      string `json:"project"`
	SourceBranch string `json:"source_branch"`
	TargetBranch string `json:"target_branch"`
	SourceCommit string `json:"source_commit,omitempty"`
	Mode         string `json:"mode,omitempty"`
	TaskKey      string `json:"task_key,omitempty"`
}

func (r reviewRequest) changeSet() model.ChangeSet {
	mode := r.Mode
	if mode == "" {
		mode = "full"
	}
	return model.ChangeSet{
		Project:      r.Project,
		SourceBranch: r.SourceBranch,
		TargetBranch: r.TargetBranch,
		SourceCommit: r.SourceCommit,
		Mode:         mode,
		TaskKey:      r.TaskKey,
	}
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := readJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	result, err := s.engine.RunReview(r.Context(), req.changeSet())
	if err != nil {
		var verr *engine.ValidationError
		if errors.As(err, &verr) {
			s.writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		s.log.Error().Err(err).Str("project", req.Project).Msg("review failed")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

type submitResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := readJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	taskID, err := s.engine.Submit(r.Context(), req.changeSet())
	if err != nil {
		var verr *engine.ValidationError
		if errors.As(err, &verr) {
			s.writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		s.log.Error().Err(err).Str("project", req.Project).Msg("submit failed")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusAccepted, submitResponse{TaskID: taskID, Status: "pending"})
}

// --- Tasks ---

func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	task, ok := s.engine.Poll(r.Context(), id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "task not found: "+id)
		return
	}
	s.writeJSON(w, http.StatusOK, task)
}

// --- Modes ---

func (s *Server) handleModes(w http.ResponseWriter, r *http.Request) {
	var out []model.Mode
	for _, key := range model.ModeKeys() {
		m, _ := model.LookupMode(key)
		out = append(out, m)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"modes": out})
}
