package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dgallion1/noteloop/internal/broadcast"
)

const heartbeatInterval = 15 * time.Second

// handleStream serves the project's live event feed over SSE. The first
// event is a full state snapshot; after that the client only sees deltas.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		jsonError(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	project := s.project(r)
	sess := s.registry.Get(project)

	// Subscribing and snapshotting happen atomically, so events committed
	// while the handler sets up are never lost between the two.
	snap, sub, err := sess.Attach()
	if err != nil {
		jsonError(w, "snapshot failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer sess.Hub().Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	if err := writeSSE(w, snap); err != nil {
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case data, ok := <-sub.Events():
			if !ok {
				// Dropped for falling behind; the client reconnects and
				// gets a fresh snapshot.
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if err := writeSSE(w, broadcast.HeartbeatEvent{Type: broadcast.TypeHeartbeat}); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
