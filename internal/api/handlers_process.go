package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/noteloop/internal/session"
	"github.com/go-chi/chi/v5"
)

type processRequest struct {
	Project string `json:"project"`
	Text    string `json:"text"`
}

// handleProcess runs one text chunk through the pipeline synchronously.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
		return
	}
	project := req.Project
	if project == "" {
		project = s.cfg.DefaultProject
	}

	sess := s.registry.Get(project)
	out, err := sess.ProcessChunk(r.Context(), req.Text)
	if err != nil {
		if errors.Is(err, session.ErrEmptyChunk) {
			jsonError(w, "text is required", http.StatusBadRequest)
			return
		}
		s.log.Error("process chunk failed", "project", project, "error", err)
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handleAudio transcribes an upload synchronously, then queues the text for
// processing. The caller polls the queue status endpoint for the outcome.
func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	if s.transcriber == nil {
		jsonError(w, "transcription is not configured", http.StatusServiceUnavailable)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	project := s.project(r)

	file, header, err := r.FormFile("audio")
	if err != nil {
		jsonError(w, "audio file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.TranscribeTimeout)
	defer cancel()

	transcription, err := s.transcriber.Transcribe(ctx, sanitizeFilename(header.Filename), io.LimitReader(file, s.cfg.MaxUploadBytes))
	if err != nil {
		s.log.Error("transcription failed", "project", project, "error", err)
		jsonError(w, "transcription failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	if transcription == "" {
		jsonError(w, "no speech detected", http.StatusBadRequest)
		return
	}

	req, err := s.processor.Submit(project, transcription)
	if err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":        "queued",
		"request_id":    req.ID,
		"transcription": transcription,
		"queue_depth":   s.processor.QueueDepth(),
		"poll_url":      fmt.Sprintf("/api/queue/status/%s", req.ID),
	})
}

func (s *Server) handleQueueStatus(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestID")
	req := s.processor.GetRequest(requestID)
	if req == nil {
		jsonError(w, "request not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, req.Snapshot())
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
