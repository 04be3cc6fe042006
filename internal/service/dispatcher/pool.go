package dispatcher

import (
	"context"
	"sync"
	"time"

	prommetrics "github.com/turnomed/badge-engine/internal/metrics"
	"github.com/turnomed/badge-engine/internal/models"
	"github.com/turnomed/badge-engine/pkg/logger"
)

// Pool defaults.
const (
	defaultWorkers        = 4
	defaultQueueSize      = 256
	defaultHandlerTimeout = 30 * time.Second
)

// handlerFunc processes one event synchronously.
type handlerFunc func(ctx context.Context, ev models.Event) error

// pool is a fixed set of worker goroutines draining a bounded queue.
// Submission never blocks: a full queue drops the event. Each task runs
// under a timeout; a task that overruns is abandoned and logged, never
// retried. Handlers are idempotent, so the next event repairs any drift.
type pool struct {
	queue   chan models.Event
	handler handlerFunc
	timeout time.Duration
	workers int
	wg      sync.WaitGroup
	log     *logger.Logger
}

func newPool(opts Options, handler handlerFunc, log *logger.Logger) *pool {
	workers := opts.Workers
	if workers < 1 {
		workers = defaultWorkers
	}
	queueSize := opts.QueueSize
	if queueSize < 1 {
		queueSize = defaultQueueSize
	}
	timeout := time.Duration(opts.HandlerTimeout) * time.Second
	if timeout <= 0 {
		timeout = defaultHandlerTimeout
	}

	return &pool{
		queue:   make(chan models.Event, queueSize),
		handler: handler,
		timeout: timeout,
		workers: workers,
		log:     log,
	}
}

func (p *pool) start(ctx context.Context) {
	p.log.Info().
		Int("workers", p.workers).
		Int("queue_size", cap(p.queue)).
		Dur("handler_timeout", p.timeout).
		Msg("Starting dispatch worker pool")

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i+1)
	}
}

func (p *pool) run(ctx context.Context, workerID int) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			p.log.Info().Int("worker_id", workerID).Msg("Dispatch worker stopped")
			return
		case ev := <-p.queue:
			prommetrics.SetDispatchQueueDepth(len(p.queue))
			p.process(ctx, workerID, ev)
		}
	}
}

// process runs the handler with a deadline. The handler executes in its
// own goroutine so a stuck task can be abandoned without stalling the
// worker.
func (p *pool) process(ctx context.Context, workerID int, ev models.Event) {
	taskCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.log.Error().
					Int("worker_id", workerID).
					Str("kind", string(ev.Kind)).
					Uint("user_id", ev.UserID).
					Interface("panic", r).
					Msg("Event handler panicked")
				done <- nil
			}
		}()
		done <- p.handler(taskCtx, ev)
	}()

	select {
	case err := <-done:
		if err != nil {
			p.log.Error().
				Err(err).
				Int("worker_id", workerID).
				Str("kind", string(ev.Kind)).
				Uint("user_id", ev.UserID).
				Msg("Event handler failed")
		}
	case <-taskCtx.Done():
		prommetrics.RecordEventTimedOut(string(ev.Kind))
		p.log.Warn().
			Int("worker_id", workerID).
			Str("kind", string(ev.Kind)).
			Uint("user_id", ev.UserID).
			Dur("timeout", p.timeout).
			Msg("Event handler timed out, abandoning task")
	}
}

// submit enqueues an event without blocking. Returns false when the queue
// is full.
func (p *pool) submit(ev models.Event) bool {
	select {
	case p.queue <- ev:
		prommetrics.SetDispatchQueueDepth(len(p.queue))
		return true
	default:
		return false
	}
}

func (p *pool) stop() {
	p.wg.Wait()
}

func (p *pool) depth() int {
	return len(p.queue)
}
