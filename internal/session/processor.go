package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/noteloop/internal/ident"
)

// Processor runs queued transcript chunks through their sessions, one at a
// time in submission order. Audio uploads return immediately with a request
// id; callers poll the result store for the outcome.
type Processor struct {
	registry *Registry
	results  *ResultStore
	queue    chan *Request
	log      *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	stopped bool
}

func NewProcessor(registry *Registry, results *ResultStore, queueSize int, log *slog.Logger) *Processor {
	return &Processor{
		registry: registry,
		results:  results,
		queue:    make(chan *Request, queueSize),
		log:      log,
	}
}

// Start launches the worker and the result store cleanup loop.
func (p *Processor) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-workerCtx.Done():
				return
			case req, ok := <-p.queue:
				if !ok {
					return
				}
				p.process(workerCtx, req)
			}
		}
	}()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				p.results.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the worker. Submissions are refused before the
// queue closes, so an in-flight upload can never send on a closed channel.
func (p *Processor) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	if p.cancel != nil {
		p.cancel()
	}
	close(p.queue)
	p.mu.Unlock()
	p.wg.Wait()
}

// Submit queues a transcribed chunk for processing and returns its request.
func (p *Processor) Submit(project, transcription string) (*Request, error) {
	now := time.Now()
	req := &Request{
		ID:            ident.New(),
		Project:       project,
		Transcription: transcription,
		Status:        StatusQueued,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		req.Fail(fmt.Errorf("processor stopped"))
		return nil, fmt.Errorf("server is shutting down")
	}
	p.results.Put(req)
	select {
	case p.queue <- req:
		return req, nil
	default:
		req.Fail(fmt.Errorf("queue full"))
		return nil, fmt.Errorf("request queue is full (%d)", cap(p.queue))
	}
}

// GetRequest returns a request by id, or nil.
func (p *Processor) GetRequest(id string) *Request {
	return p.results.Get(id)
}

// QueueDepth returns the number of requests waiting for the worker.
func (p *Processor) QueueDepth() int {
	return len(p.queue)
}

func (p *Processor) process(ctx context.Context, req *Request) {
	req.SetStatus(StatusProcessing)
	sess := p.registry.Get(req.Project)
	out, err := sess.ProcessChunk(ctx, req.Transcription)
	if err != nil {
		p.log.Error("queued chunk failed", "request_id", req.ID, "error", err)
		req.Fail(err)
		return
	}
	req.Complete(out)
}
