package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dgallion1/noteloop/internal/config"
	"github.com/dgallion1/noteloop/internal/session"
	"github.com/dgallion1/noteloop/internal/transcribe"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for noteloop.
type Server struct {
	router      chi.Router
	registry    *session.Registry
	processor   *session.Processor
	transcriber transcribe.Transcriber
	log         *slog.Logger
	cfg         config.Config
}

// NewServer creates and configures the HTTP server. transcriber may be nil
// when no transcription backend is configured.
func NewServer(registry *session.Registry, processor *session.Processor, transcriber transcribe.Transcriber, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		registry:    registry,
		processor:   processor,
		transcriber: transcriber,
		log:         log,
		cfg:         cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/process", s.handleProcess)
		r.Post("/api/audio", s.handleAudio)
		r.Get("/api/queue/status/{requestID}", s.handleQueueStatus)

		r.Get("/api/notes", s.handleNotes)
		r.Get("/api/transcript", s.handleTranscript)
		r.Get("/api/pending", s.handlePending)
		r.Post("/api/pending/{pendingID}", s.handleResolve)

		r.Get("/api/stream", s.handleStream)
		r.Post("/api/clear", s.handleClear)
		r.Get("/api/export", s.handleExport)
		r.Post("/api/import", s.handleImport)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// project resolves the target project from the query string or form,
// falling back to the configured default.
func (s *Server) project(r *http.Request) string {
	if p := r.URL.Query().Get("project"); p != "" {
		return p
	}
	if p := r.FormValue("project"); p != "" {
		return p
	}
	return s.cfg.DefaultProject
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
