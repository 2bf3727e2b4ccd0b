// Package pending holds uncertain classification decisions awaiting human
// resolution. Entries live until resolved; resolving an id twice reports
// not-found rather than an error.
package pending

import (
	"sync"
	"time"

	"github.com/dgallion1/noteloop/internal/ident"
)

// Update is a stored, human-resolvable deferred decision.
type Update struct {
	ID              string   `json:"id"`
	Transcript      string   `json:"transcript"`
	MatchedSection  *string  `json:"matched_section"`
	Similarity      *float64 `json:"similarity"`
	SuggestedAction string   `json:"suggested_action"` // "update" or "create"
	Reason          string   `json:"reason"`
	Timestamp       string   `json:"timestamp"`
}

// NewUpdate builds an Update with a fresh id and timestamp. matchedSection
// empty means no candidate section scored above the floor.
func NewUpdate(transcript, matchedSection string, similarity float64, reason string) Update {
	u := Update{
		ID:         ident.New(),
		Transcript: transcript,
		Reason:     reason,
		Timestamp:  time.Now().Format(time.RFC3339),
	}
	if matchedSection != "" {
		u.MatchedSection = &matchedSection
		u.Similarity = &similarity
		u.SuggestedAction = "update"
	} else {
		u.SuggestedAction = "create"
	}
	return u
}

// Store is a thread-safe registry of pending updates, in creation order.
type Store struct {
	mu      sync.Mutex
	updates map[string]Update
	order   []string
}

func NewStore() *Store {
	return &Store{updates: make(map[string]Update)}
}

func (s *Store) Add(u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.updates[u.ID]; !exists {
		s.order = append(s.order, u.ID)
	}
	s.updates[u.ID] = u
}

func (s *Store) Get(id string) (Update, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.updates[id]
	return u, ok
}

// Remove deletes and returns the entry. The second call for an id reports
// false.
func (s *Store) Remove(id string) (Update, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.updates[id]
	if !ok {
		return Update{}, false
	}
	delete(s.updates, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return u, true
}

// List returns all pending updates in creation order. Never nil, so it
// serializes as [] rather than null.
func (s *Store) List() []Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Update, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.updates[id])
	}
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.updates)
}

// Clear drops all entries.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = make(map[string]Update)
	s.order = nil
}
