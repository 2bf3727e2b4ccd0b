// Package replay paces incoming document updates for a viewer. Updates can
// arrive faster than a reader can follow, so they are queued and replayed one
// at a time: the content swap is immediate when an update's turn comes, the
// changed section is highlighted briefly, and the next update waits for a
// short gap. At most one section is ever highlighted.
package replay

import (
	"sync"
	"time"

	"github.com/dgallion1/noteloop/internal/notes"
)

const (
	highlightDuration = 500 * time.Millisecond
	animationGap      = 100 * time.Millisecond
)

// Display receives the queue's visible transitions.
type Display interface {
	SetContent(content string)
	HighlightSection(heading string)
	ClearHighlight(heading string)
}

type state int

const (
	stateIdle state = iota
	stateAnimating
)

type update struct {
	content string
	section string // "" means infer from the content diff
}

// Queue serializes update animations for one display.
type Queue struct {
	mu       sync.Mutex
	clock    Clock
	display  Display
	pending  []update
	state    state
	timer    Timer
	gen      int    // invalidates timer callbacks across Reset
	baseline string // content as of the last replayed update
}

// NewQueue starts idle with the given baseline content already on the
// display.
func NewQueue(display Display, baseline string, clock Clock) *Queue {
	if clock == nil {
		clock = SystemClock()
	}
	return &Queue{
		clock:    clock,
		display:  display,
		baseline: baseline,
	}
}

// Enqueue records an update for replay. If the queue is idle the update is
// shown immediately; otherwise it waits its turn behind the current
// animation.
func (q *Queue) Enqueue(content, section string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, update{content: content, section: section})
	if q.state == stateIdle {
		q.startNextLocked()
	}
}

// Reset abandons any queued updates and running animation and swaps the
// display to the given content at once.
func (q *Queue) Reset(content string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	q.pending = nil
	q.state = stateIdle
	q.gen++
	q.baseline = content
	q.display.SetContent(content)
}

// Idle reports whether no animation is running and nothing is queued.
func (q *Queue) Idle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state == stateIdle && len(q.pending) == 0
}

// Depth returns the number of updates still waiting for replay.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// startNextLocked replays queued updates until one needs a highlight or the
// queue drains. Updates with no identifiable section swap content without an
// animation and never block the ones behind them.
func (q *Queue) startNextLocked() {
	for len(q.pending) > 0 {
		next := q.pending[0]
		q.pending = q.pending[1:]

		heading := next.section
		if heading == "" {
			heading = notes.ChangedHeading(q.baseline, next.content)
		}
		q.baseline = next.content
		q.display.SetContent(next.content)

		if heading == "" {
			continue
		}

		q.state = stateAnimating
		q.display.HighlightSection(heading)
		gen := q.gen
		q.timer = q.clock.AfterFunc(highlightDuration, func() {
			q.endHighlight(heading, gen)
		})
		return
	}
	q.state = stateIdle
	q.timer = nil
}

func (q *Queue) endHighlight(heading string, gen int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if gen != q.gen {
		return
	}
	q.display.ClearHighlight(heading)
	q.timer = q.clock.AfterFunc(animationGap, func() {
		q.afterGap(gen)
	})
}

func (q *Queue) afterGap(gen int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if gen != q.gen {
		return
	}
	q.state = stateIdle
	q.startNextLocked()
}
