// Package broadcast fans document-changed events out to every subscriber of
// a project. Events are marshaled once, in commit order, and delivered to
// each subscriber over its own ordered channel; a subscriber that cannot keep
// up is disconnected rather than ever seeing events out of order.
package broadcast

import (
	"encoding/json"
	"log/slog"
	"sync"
)

const subscriberBuffer = 256

// Hub is one logical event channel for a project.
type Hub struct {
	mu   sync.Mutex
	subs map[*Subscriber]bool
	log  *slog.Logger
}

// Subscriber receives the hub's committed events in order. The channel is
// closed when the subscriber is dropped or unsubscribed.
type Subscriber struct {
	ch     chan []byte
	closed bool
}

// Events is the subscriber's ordered stream of marshaled events.
func (s *Subscriber) Events() <-chan []byte {
	return s.ch
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		subs: make(map[*Subscriber]bool),
		log:  log,
	}
}

// Subscribe registers a new subscriber. The caller is responsible for the
// init snapshot; the hub only carries live events.
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{ch: make(chan []byte, subscriberBuffer)}
	h.mu.Lock()
	h.subs[sub] = true
	h.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscriber. Safe to call more than once and after
// the hub has already dropped the subscriber.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(sub)
}

func (h *Hub) dropLocked(sub *Subscriber) {
	if !h.subs[sub] {
		return
	}
	delete(h.subs, sub)
	if !sub.closed {
		sub.closed = true
		close(sub.ch)
	}
}

// Publish marshals an event once and delivers it to every subscriber. A
// marshal failure drops only this event; a full subscriber buffer drops that
// subscriber.
func (h *Hub) Publish(event any) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error("event marshal failed, dropping", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	var slow []*Subscriber
	for sub := range h.subs {
		select {
		case sub.ch <- data:
		default:
			slow = append(slow, sub)
		}
	}
	for _, sub := range slow {
		h.log.Warn("dropping slow subscriber")
		h.dropLocked(sub)
	}
}

// Count returns the number of live subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
