// Package session owns the live state of one project: its notes document,
// transcript log, pending updates and event hub. All mutations of a project
// run under the session lock, so chunks are applied one at a time in arrival
// order.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dgallion1/noteloop/internal/broadcast"
	"github.com/dgallion1/noteloop/internal/classify"
	"github.com/dgallion1/noteloop/internal/notes"
	"github.com/dgallion1/noteloop/internal/pending"
	"github.com/dgallion1/noteloop/internal/rewrite"
)

const (
	transcriptCap = 20
	historyCap    = 5
	contextWindow = 3
)

// Resolution actions accepted by Resolve.
const (
	ActionApprove   = "approve"
	ActionCreateNew = "create_new"
	ActionReject    = "reject"
)

var ErrEmptyChunk = errors.New("empty chunk")

// Outcome is the caller-visible result of processing or resolving a chunk.
type Outcome struct {
	Status    string `json:"status"`               // "success", "pending", "rejected" or "not_found"
	Action    string `json:"action,omitempty"`     // "update" or "create" on success
	PendingID string `json:"pending_id,omitempty"` // set when Status is "pending"
}

// Session is the live state of one project.
type Session struct {
	project    string
	store      *notes.Store
	classifier *classify.Classifier
	rewriter   *rewrite.Rewriter
	pending    *pending.Store
	hub        *broadcast.Hub
	log        *slog.Logger

	mu         sync.Mutex
	transcript []broadcast.TranscriptEntry
	history    []string
}

func newSession(project string, store *notes.Store, classifier *classify.Classifier, rewriter *rewrite.Rewriter, log *slog.Logger) *Session {
	return &Session{
		project:    project,
		store:      store,
		classifier: classifier,
		rewriter:   rewriter,
		pending:    pending.NewStore(),
		hub:        broadcast.NewHub(log),
		log:        log.With("project", project),
	}
}

// Hub exposes the project's event stream for subscribers.
func (s *Session) Hub() *broadcast.Hub {
	return s.hub
}

// ProcessChunk classifies one transcript chunk and either applies it to the
// document or parks it as a pending update. Failures leave the document
// untouched; the chunk still lands in the transcript log.
func (s *Session) ProcessChunk(ctx context.Context, chunk string) (Outcome, error) {
	chunk = strings.TrimSpace(chunk)
	if chunk == "" {
		return Outcome{}, ErrEmptyChunk
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.appendTranscriptLocked(chunk)

	content, err := s.store.Read(s.project)
	if err != nil {
		return Outcome{}, fmt.Errorf("read document: %w", err)
	}

	decision, err := s.classifier.Classify(ctx, s.project, content, chunk)
	if err != nil {
		return Outcome{}, fmt.Errorf("classify chunk: %w", err)
	}

	if decision.Kind == classify.KindUncertain {
		u := pending.NewUpdate(chunk, decision.Heading, decision.Similarity, decision.Reason)
		s.pending.Add(u)
		s.hub.Publish(broadcast.PendingCreatedEvent{
			Type:    broadcast.TypePendingCreated,
			Pending: u,
		})
		s.log.Info("chunk deferred", "pending_id", u.ID, "reason", decision.Reason)
		return Outcome{Status: "pending", PendingID: u.ID}, nil
	}

	return s.applyLocked(ctx, content, decision, chunk)
}

// Resolve settles a pending update. Approve applies it against its matched
// section, create_new forces a fresh section, reject discards it. Resolving
// an unknown or already-settled id reports not_found rather than failing.
func (s *Session) Resolve(ctx context.Context, id, action string) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.pending.Get(id)
	if !ok {
		return Outcome{Status: "not_found"}, nil
	}

	switch action {
	case ActionReject:
		s.pending.Remove(id)
		s.hub.Publish(broadcast.PendingResolvedEvent{
			Type:      broadcast.TypePendingResolved,
			PendingID: id,
			Action:    "rejected",
		})
		return Outcome{Status: "rejected"}, nil

	case ActionApprove, ActionCreateNew:
		content, err := s.store.Read(s.project)
		if err != nil {
			return Outcome{}, fmt.Errorf("read document: %w", err)
		}

		decision := classify.Decision{Kind: classify.KindCreate}
		if action == ActionApprove && u.MatchedSection != nil {
			decision = classify.Decision{Kind: classify.KindUpdate, Heading: *u.MatchedSection}
		}

		out, err := s.applyLocked(ctx, content, decision, u.Transcript)
		if err != nil {
			// The entry stays pending so the caller can retry or reject.
			return Outcome{}, err
		}

		s.pending.Remove(id)
		resolved := "applied"
		if out.Action == "create" {
			resolved = "created"
		}
		s.hub.Publish(broadcast.PendingResolvedEvent{
			Type:      broadcast.TypePendingResolved,
			PendingID: id,
			Action:    resolved,
		})
		return out, nil

	default:
		return Outcome{}, fmt.Errorf("unknown resolve action %q", action)
	}
}

func (s *Session) applyLocked(ctx context.Context, content string, decision classify.Decision, chunk string) (Outcome, error) {
	out, err := s.rewriter.Apply(ctx, s.project, content, decision, chunk, s.contextLocked())
	if err != nil {
		return Outcome{}, err
	}
	if err := s.store.Write(s.project, out.Content); err != nil {
		return Outcome{}, fmt.Errorf("write document: %w", err)
	}
	s.appendHistoryLocked(chunk)
	s.hub.Publish(broadcast.NewFileUpdated(out.Content, out.ChangedHeading, out.Action))
	s.log.Info("chunk applied", "action", out.Action, "section", out.ChangedHeading)
	return Outcome{Status: "success", Action: out.Action}, nil
}

// Reset restores the project to an empty document, drops all pending updates
// and clears the transcript and context history.
func (s *Session) Reset(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	content, err := s.store.Reset(s.project)
	if err != nil {
		return "", fmt.Errorf("reset document: %w", err)
	}
	s.pending.Clear()
	s.transcript = nil
	s.history = nil
	s.hub.Publish(broadcast.NewFileUpdated(content, "", "clear"))
	s.log.Info("project reset")
	return content, nil
}

// Content returns the current document body. Reads take the session lock so
// a concurrent rewrite can never expose a partially written file.
func (s *Session) Content() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Read(s.project)
}

// Import replaces the document with externally supplied markdown and
// announces it to subscribers. The section index is re-embedded right away
// so the first chunk after an import does not pay the sync cost.
func (s *Session) Import(ctx context.Context, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(content) == "" {
		return errors.New("empty document")
	}
	if err := s.store.Write(s.project, content); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	if err := s.classifier.Sync(ctx, s.project, content); err != nil {
		// Classification re-syncs on every chunk, so a failed warm-up only
		// costs latency later.
		s.log.Warn("section index sync failed", "error", err)
	}
	s.hub.Publish(broadcast.NewFileUpdated(content, "", "import"))
	return nil
}

// Transcript returns a copy of the received-chunk log, oldest first.
func (s *Session) Transcript() []broadcast.TranscriptEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]broadcast.TranscriptEntry, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Pending lists unresolved updates in creation order.
func (s *Session) Pending() []pending.Update {
	return s.pending.List()
}

// Snapshot builds the full-state event sent to a new subscriber.
func (s *Session) Snapshot() (broadcast.InitEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Attach subscribes to the event feed and snapshots state in one step under
// the session lock. All publishers hold the same lock, so no committed event
// can fall between the snapshot and the start of the subscriber's stream.
func (s *Session) Attach() (broadcast.InitEvent, *broadcast.Subscriber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := s.hub.Subscribe()
	snap, err := s.snapshotLocked()
	if err != nil {
		s.hub.Unsubscribe(sub)
		return broadcast.InitEvent{}, nil, err
	}
	return snap, sub, nil
}

func (s *Session) snapshotLocked() (broadcast.InitEvent, error) {
	content, err := s.store.Read(s.project)
	if err != nil {
		return broadcast.InitEvent{}, fmt.Errorf("read document: %w", err)
	}

	sections := notes.Index(content)
	views := make([]broadcast.SectionView, 0, len(sections))
	for _, sec := range sections {
		views = append(views, broadcast.SectionView{
			Heading: sec.Heading,
			Level:   sec.Level,
			Content: sec.Text(content),
		})
	}

	transcript := make([]broadcast.TranscriptEntry, len(s.transcript))
	copy(transcript, s.transcript)

	return broadcast.InitEvent{
		Type:       broadcast.TypeInit,
		Content:    content,
		Sections:   views,
		Transcript: transcript,
		Pending:    s.pending.List(),
		Project:    s.project,
	}, nil
}

func (s *Session) appendTranscriptLocked(chunk string) {
	s.transcript = append(s.transcript, broadcast.TranscriptEntry{
		Text:      chunk,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	if len(s.transcript) > transcriptCap {
		s.transcript = s.transcript[len(s.transcript)-transcriptCap:]
	}
}

func (s *Session) appendHistoryLocked(chunk string) {
	s.history = append(s.history, chunk)
	if len(s.history) > historyCap {
		s.history = s.history[len(s.history)-historyCap:]
	}
}

// contextLocked renders the most recent applied chunks as synthesis context.
func (s *Session) contextLocked() string {
	n := len(s.history)
	if n == 0 {
		return ""
	}
	start := n - contextWindow
	if start < 0 {
		start = 0
	}
	return strings.Join(s.history[start:], "\n")
}
