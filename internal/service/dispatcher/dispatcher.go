// Package dispatcher routes domain events to statistics mutations and to
// the badge subset each event can affect, off the critical request path.
package dispatcher

import (
	"context"
	"fmt"

	prommetrics "github.com/turnomed/badge-engine/internal/metrics"
	"github.com/turnomed/badge-engine/internal/models"
	"github.com/turnomed/badge-engine/internal/repository"
	"github.com/turnomed/badge-engine/internal/service/engine"
	"github.com/turnomed/badge-engine/pkg/logger"
)

// StatsRepository interface for the statistics mutations handlers perform.
type StatsRepository interface {
	EnsureExists(userID uint, role models.Role) error
	Increment(userID uint, field models.StatField, delta int64) error
	RefreshDerived(userID uint) error
}

// Evaluator interface for the evaluation calls handlers make.
type Evaluator interface {
	EvaluateSubset(ctx context.Context, userID uint, types []models.BadgeType) error
	EvaluateAll(ctx context.Context, userID uint) error
}

// increment is one counter mutation derived from an event.
type increment struct {
	field models.StatField
	delta int64
}

// route maps an event kind to its statistics mutations and the badge types
// worth re-evaluating afterwards. Badge types of both roles may appear;
// evaluation filters to the acting user's role.
type route struct {
	increments func(ev *models.Event) []increment
	badges     []models.BadgeType
}

// Dispatcher owns the static event routing table and the bounded worker
// pool the handlers run on.
type Dispatcher struct {
	statsRepo StatsRepository
	evaluator Evaluator
	routes    map[models.EventKind]route
	pool      *pool
	log       *logger.Logger
}

// Options tunes the worker pool. Zero values fall back to defaults.
type Options struct {
	Workers        int
	QueueSize      int
	HandlerTimeout int // seconds
}

// NewDispatcher creates a new dispatcher.
func NewDispatcher(
	statsRepo *repository.StatsRepository,
	evaluator *engine.Service,
	opts Options,
	log *logger.Logger,
) *Dispatcher {
	return newDispatcher(statsRepo, evaluator, opts, log)
}

// NewDispatcherWithInterfaces creates a dispatcher with interface
// dependencies (useful for testing).
func NewDispatcherWithInterfaces(
	statsRepo StatsRepository,
	evaluator Evaluator,
	opts Options,
	log *logger.Logger,
) *Dispatcher {
	return newDispatcher(statsRepo, evaluator, opts, log)
}

func newDispatcher(statsRepo StatsRepository, evaluator Evaluator, opts Options, log *logger.Logger) *Dispatcher {
	d := &Dispatcher{
		statsRepo: statsRepo,
		evaluator: evaluator,
		routes:    buildRoutes(),
		log:       log,
	}
	d.pool = newPool(opts, d.Handle, log)
	return d
}

// Start launches the worker pool. Workers exit when ctx is cancelled;
// events still queued at that point are dropped, which is acceptable for
// best-effort evaluation since the periodic resync repairs any drift.
// Stop must only be called after cancelling ctx.
func (d *Dispatcher) Start(ctx context.Context) {
	d.pool.start(ctx)
}

// Stop waits for in-flight handlers to finish.
func (d *Dispatcher) Stop() {
	d.pool.stop()
}

// Dispatch submits an event to the worker pool and returns immediately.
// The caller never blocks and never observes the evaluation result. With a
// full queue the event is dropped and logged; the next event or the
// periodic resync repairs any resulting drift.
func (d *Dispatcher) Dispatch(ev models.Event) {
	if _, ok := d.routes[ev.Kind]; !ok {
		d.log.Warn().Str("kind", string(ev.Kind)).Msg("Dropping event of unknown kind")
		return
	}

	if d.pool.submit(ev) {
		prommetrics.RecordEventDispatched(string(ev.Kind))
		return
	}

	prommetrics.RecordEventDropped(string(ev.Kind))
	d.log.Warn().
		Str("kind", string(ev.Kind)).
		Uint("user_id", ev.UserID).
		Msg("Dispatch queue full, dropping event")
}

// Handle processes one event synchronously: ensure the statistics row,
// apply the routed increments, refresh derived columns, then evaluate the
// routed badge subset. Increment failures are surfaced to the caller;
// per-badge evaluation failures are isolated inside the engine.
func (d *Dispatcher) Handle(ctx context.Context, ev models.Event) error {
	r, ok := d.routes[ev.Kind]
	if !ok {
		return fmt.Errorf("unknown event kind %q", ev.Kind)
	}

	if err := d.statsRepo.EnsureExists(ev.UserID, ev.Role); err != nil {
		return fmt.Errorf("failed to ensure statistics row: %w", err)
	}

	for _, inc := range r.increments(&ev) {
		if err := d.statsRepo.Increment(ev.UserID, inc.field, inc.delta); err != nil {
			return fmt.Errorf("failed to apply %s: %w", inc.field, err)
		}
	}

	if err := d.statsRepo.RefreshDerived(ev.UserID); err != nil {
		return err
	}

	return d.evaluator.EvaluateSubset(ctx, ev.UserID, r.badges)
}

// EvaluateAll is the administrative repair operation: a full statistics
// recompute followed by evaluation of the whole catalog for the user's
// role. Safe to call repeatedly.
func (d *Dispatcher) EvaluateAll(ctx context.Context, userID uint) error {
	return d.evaluator.EvaluateAll(ctx, userID)
}

// QueueDepth returns the number of queued events (for metrics).
func (d *Dispatcher) QueueDepth() int {
	return d.pool.depth()
}
