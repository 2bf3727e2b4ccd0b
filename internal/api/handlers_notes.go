package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/dgallion1/noteloop/internal/notes"
	"github.com/go-chi/chi/v5"
)

// handleNotes returns the current document and its section index.
func (s *Server) handleNotes(w http.ResponseWriter, r *http.Request) {
	sess := s.registry.Get(s.project(r))
	snap, err := sess.Snapshot()
	if err != nil {
		jsonError(w, "read notes: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"project":  snap.Project,
		"content":  snap.Content,
		"sections": snap.Sections,
	})
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sess := s.registry.Get(s.project(r))
	writeJSON(w, http.StatusOK, map[string]any{
		"transcript": sess.Transcript(),
	})
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	sess := s.registry.Get(s.project(r))
	writeJSON(w, http.StatusOK, map[string]any{
		"pending": sess.Pending(),
	})
}

type resolveRequest struct {
	Project string `json:"project"`
	Action  string `json:"action"`
}

// handleResolve settles one pending update.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	pendingID := chi.URLParam(r, "pendingID")

	var req resolveRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
		return
	}
	project := req.Project
	if project == "" {
		project = s.cfg.DefaultProject
	}

	sess := s.registry.Get(project)
	out, err := sess.Resolve(r.Context(), pendingID, req.Action)
	if err != nil {
		s.log.Error("resolve failed", "pending_id", pendingID, "action", req.Action, "error", err)
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if out.Status == "not_found" {
		writeJSON(w, http.StatusNotFound, out)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type clearRequest struct {
	Project string `json:"project"`
}

// handleClear resets a project to its seed document.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	var req clearRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil && err != io.EOF {
		jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
		return
	}
	project := req.Project
	if project == "" {
		project = s.cfg.DefaultProject
	}

	sess := s.registry.Get(project)
	content, err := sess.Reset(r.Context())
	if err != nil {
		jsonError(w, "reset failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"content": content,
	})
}

// handleExport serves the raw markdown document as a download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	project := s.project(r)
	sess := s.registry.Get(project)
	content, err := sess.Content()
	if err != nil {
		jsonError(w, "read notes: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+notes.Slugify(project)+`.md"`)
	w.Write([]byte(content))
}
