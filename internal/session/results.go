package session

import (
	"sync"
	"time"
)

// RequestStatus is the state of one queued audio request.
type RequestStatus string

const (
	StatusQueued     RequestStatus = "queued"
	StatusProcessing RequestStatus = "processing"
	StatusCompleted  RequestStatus = "completed"
	StatusFailed     RequestStatus = "failed"
)

// Request tracks one audio chunk from enqueue to outcome.
type Request struct {
	mu sync.Mutex

	ID            string
	Project       string
	Transcription string
	Status        RequestStatus
	Outcome       Outcome
	Err           string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RequestSnapshot is a read-only, JSON-safe copy of request state.
type RequestSnapshot struct {
	ID            string        `json:"request_id"`
	Project       string        `json:"project"`
	Transcription string        `json:"transcription"`
	Status        RequestStatus `json:"status"`
	Outcome       Outcome       `json:"result,omitempty"`
	Err           string        `json:"error,omitempty"`
}

// SetStatus updates request state atomically.
func (r *Request) SetStatus(status RequestStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = status
	r.UpdatedAt = time.Now()
}

// Complete records the processing outcome.
func (r *Request) Complete(out Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = StatusCompleted
	r.Outcome = out
	r.UpdatedAt = time.Now()
}

// Fail records a processing error.
func (r *Request) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = StatusFailed
	r.Err = err.Error()
	r.UpdatedAt = time.Now()
}

// Snapshot returns a JSON-safe copy of the request state.
func (r *Request) Snapshot() RequestSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RequestSnapshot{
		ID:            r.ID,
		Project:       r.Project,
		Transcription: r.Transcription,
		Status:        r.Status,
		Outcome:       r.Outcome,
		Err:           r.Err,
	}
}

// ResultStore is a thread-safe in-memory request registry with TTL eviction
// and a hard size cap.
type ResultStore struct {
	mu    sync.Mutex
	reqs  map[string]*Request
	order []string
	ttl   time.Duration
	cap   int
}

func NewResultStore(ttl time.Duration, capacity int) *ResultStore {
	return &ResultStore{
		reqs: make(map[string]*Request),
		ttl:  ttl,
		cap:  capacity,
	}
}

func (s *ResultStore) Put(r *Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.reqs[r.ID]; !exists {
		s.order = append(s.order, r.ID)
	}
	s.reqs[r.ID] = r
	for len(s.order) > s.cap {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.reqs, oldest)
	}
}

func (s *ResultStore) Get(id string) *Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reqs[id]
}

// Cleanup removes requests that have not changed within the TTL.
func (s *ResultStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	kept := s.order[:0]
	for _, id := range s.order {
		r := s.reqs[id]
		r.mu.Lock()
		expired := now.Sub(r.UpdatedAt) > s.ttl
		r.mu.Unlock()
		if expired {
			delete(s.reqs, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
}

func (s *ResultStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reqs)
}
