package session

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/dgallion1/noteloop/internal/classify"
	"github.com/dgallion1/noteloop/internal/notes"
	"github.com/dgallion1/noteloop/internal/rewrite"
)

// Registry hands out one Session per project, created on first reference.
// Sessions are keyed by slug so "My Project" and "my project" share state.
type Registry struct {
	store      *notes.Store
	classifier *classify.Classifier
	rewriter   *rewrite.Rewriter
	log        *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(store *notes.Store, classifier *classify.Classifier, rewriter *rewrite.Rewriter, log *slog.Logger) *Registry {
	return &Registry{
		store:      store,
		classifier: classifier,
		rewriter:   rewriter,
		log:        log,
		sessions:   make(map[string]*Session),
	}
}

// Get returns the project's session, creating it on first use.
func (r *Registry) Get(project string) *Session {
	key := notes.Slugify(project)
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[key]; ok {
		return s
	}
	s := newSession(project, r.store, r.classifier, r.rewriter, r.log)
	r.sessions[key] = s
	return s
}

// Projects lists the slugs of all sessions created so far, sorted.
func (r *Registry) Projects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.sessions))
	for key := range r.sessions {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
