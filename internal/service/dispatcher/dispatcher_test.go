package dispatcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turnomed/badge-engine/internal/catalog"
	"github.com/turnomed/badge-engine/internal/models"
	"github.com/turnomed/badge-engine/pkg/logger"
)

// mockStatsRepo records the increments handlers apply.
type mockStatsRepo struct {
	mu           sync.Mutex
	increments   map[models.StatField]int64
	ensured      int
	refreshed    int
	incrementErr error
}

func newMockStatsRepo() *mockStatsRepo {
	return &mockStatsRepo{increments: make(map[models.StatField]int64)}
}

func (m *mockStatsRepo) EnsureExists(userID uint, role models.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensured++
	return nil
}

func (m *mockStatsRepo) Increment(userID uint, field models.StatField, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.incrementErr != nil {
		return m.incrementErr
	}
	m.increments[field] += delta
	return nil
}

func (m *mockStatsRepo) RefreshDerived(userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshed++
	return nil
}

func (m *mockStatsRepo) get(field models.StatField) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.increments[field]
}

// mockEvaluator records which badge subsets were requested.
type mockEvaluator struct {
	mu      sync.Mutex
	subsets [][]models.BadgeType
	full    []uint
	block   chan struct{}
}

func (m *mockEvaluator) EvaluateSubset(ctx context.Context, userID uint, types []models.BadgeType) error {
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subsets = append(m.subsets, types)
	return nil
}

func (m *mockEvaluator) EvaluateAll(ctx context.Context, userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.full = append(m.full, userID)
	return nil
}

func (m *mockEvaluator) subsetCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subsets)
}

func newTestDispatcher(stats *mockStatsRepo, eval *mockEvaluator, opts Options) *Dispatcher {
	return NewDispatcherWithInterfaces(stats, eval, opts, logger.New("error", "json", "stdout"))
}

func TestHandleTurnCompleted(t *testing.T) {
	stats := newMockStatsRepo()
	eval := &mockEvaluator{}
	d := newTestDispatcher(stats, eval, Options{})

	ev := models.Event{
		UserID: 1,
		Role:   models.RoleDoctor,
		Kind:   models.EventTurnCompleted,
	}
	require.NoError(t, d.Handle(context.Background(), ev))

	assert.Equal(t, int64(1), stats.get(models.FieldTurnsCompleted))
	assert.Equal(t, int64(0), stats.get(models.FieldUniquePatients))
	assert.Equal(t, 1, stats.ensured)
	assert.Equal(t, 1, stats.refreshed)

	require.Len(t, eval.subsets, 1)
	assert.Contains(t, eval.subsets[0], catalog.BadgeFirstConsultation)
	assert.Contains(t, eval.subsets[0], catalog.BadgeConsistentProfessional)
	assert.NotContains(t, eval.subsets[0], catalog.BadgePreparedPatient)
}

func TestHandleFirstVisitCountsUniquePatient(t *testing.T) {
	stats := newMockStatsRepo()
	eval := &mockEvaluator{}
	d := newTestDispatcher(stats, eval, Options{})

	ev := models.Event{
		UserID:  1,
		Role:    models.RoleDoctor,
		Kind:    models.EventTurnCompleted,
		Payload: models.EventPayload{FirstVisit: true},
	}
	require.NoError(t, d.Handle(context.Background(), ev))

	assert.Equal(t, int64(1), stats.get(models.FieldUniquePatients))
}

func TestHandleRatingReceived(t *testing.T) {
	stats := newMockStatsRepo()
	eval := &mockEvaluator{}
	d := newTestDispatcher(stats, eval, Options{})

	ev := models.Event{
		UserID: 1,
		Role:   models.RoleDoctor,
		Kind:   models.EventRatingReceived,
		Payload: models.EventPayload{
			RatingScore:         5,
			MentionsPunctuality: true,
		},
	}
	require.NoError(t, d.Handle(context.Background(), ev))

	assert.Equal(t, int64(1), stats.get(models.FieldRatingsReceived))
	assert.Equal(t, int64(5), stats.get(models.FieldRatingPoints))
	assert.Equal(t, int64(1), stats.get(models.FieldPunctualityMentions))
	assert.Equal(t, int64(0), stats.get(models.FieldCommunicationMentions))
}

func TestHandleSurfacesIncrementFailure(t *testing.T) {
	stats := newMockStatsRepo()
	stats.incrementErr = errors.New("connection reset")
	eval := &mockEvaluator{}
	d := newTestDispatcher(stats, eval, Options{})

	ev := models.Event{UserID: 1, Role: models.RolePatient, Kind: models.EventFileUploaded}
	err := d.Handle(context.Background(), ev)
	require.Error(t, err)

	// No evaluation on a lost counter.
	assert.Zero(t, eval.subsetCount())
}

func TestHandleUnknownKind(t *testing.T) {
	d := newTestDispatcher(newMockStatsRepo(), &mockEvaluator{}, Options{})

	err := d.Handle(context.Background(), models.Event{Kind: models.EventKind("user_deleted")})
	assert.Error(t, err)
}

func TestEveryKindHasRoute(t *testing.T) {
	routes := buildRoutes()
	kinds := []models.EventKind{
		models.EventTurnCompleted,
		models.EventTurnCancelled,
		models.EventTurnNoShow,
		models.EventRatingGiven,
		models.EventRatingReceived,
		models.EventHistoryDocument,
		models.EventModifyHandled,
		models.EventFileUploaded,
		models.EventAdvanceBooking,
		models.EventAvailabilitySet,
	}
	for _, kind := range kinds {
		r, ok := routes[kind]
		require.True(t, ok, "no route for %s", kind)
		assert.NotEmpty(t, r.badges, "route for %s evaluates nothing", kind)
		assert.NotEmpty(t, r.increments(&models.Event{Kind: kind}), "route for %s mutates nothing", kind)
	}
}

func TestDispatchProcessesEvent(t *testing.T) {
	stats := newMockStatsRepo()
	eval := &mockEvaluator{}
	d := newTestDispatcher(stats, eval, Options{Workers: 2, QueueSize: 8})

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	d.Dispatch(models.Event{UserID: 1, Role: models.RolePatient, Kind: models.EventFileUploaded})

	require.Eventually(t, func() bool {
		return eval.subsetCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	d.Stop()
	assert.Equal(t, int64(1), stats.get(models.FieldFilesUploaded))
}

func TestDispatchDropsOnFullQueue(t *testing.T) {
	stats := newMockStatsRepo()
	eval := &mockEvaluator{block: make(chan struct{})}
	d := newTestDispatcher(stats, eval, Options{Workers: 1, QueueSize: 1})

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	// First event occupies the worker, second fills the queue, the rest
	// must be dropped without blocking the caller.
	for i := 0; i < 10; i++ {
		d.Dispatch(models.Event{UserID: uint(i + 1), Role: models.RolePatient, Kind: models.EventFileUploaded})
	}
	assert.LessOrEqual(t, d.QueueDepth(), 1)

	close(eval.block)
	cancel()
	d.Stop()
}

func TestOverrunningHandlerIsAbandoned(t *testing.T) {
	stats := newMockStatsRepo()
	eval := &mockEvaluator{block: make(chan struct{})}
	d := newTestDispatcher(stats, eval, Options{Workers: 1, QueueSize: 4, HandlerTimeout: 1})

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	// The first handler blocks past the timeout; the worker must abandon
	// it and move on to the second event.
	d.Dispatch(models.Event{UserID: 1, Role: models.RolePatient, Kind: models.EventFileUploaded})
	d.Dispatch(models.Event{UserID: 2, Role: models.RolePatient, Kind: models.EventAdvanceBooking})

	require.Eventually(t, func() bool {
		return stats.get(models.FieldAdvanceBookings) == 1
	}, 5*time.Second, 20*time.Millisecond)

	// The abandoned handler never completed its evaluation.
	assert.Zero(t, eval.subsetCount())

	close(eval.block)
	cancel()
	d.Stop()
}

func TestDispatchIgnoresUnknownKind(t *testing.T) {
	d := newTestDispatcher(newMockStatsRepo(), &mockEvaluator{}, Options{Workers: 1, QueueSize: 1})

	// Never started: a submit would sit in the queue, an unknown kind
	// must not even reach it.
	d.Dispatch(models.Event{Kind: models.EventKind("user_deleted")})
	assert.Zero(t, d.QueueDepth())
}

func TestEvaluateAllPassthrough(t *testing.T) {
	eval := &mockEvaluator{}
	d := newTestDispatcher(newMockStatsRepo(), eval, Options{})

	require.NoError(t, d.EvaluateAll(context.Background(), 42))
	assert.Equal(t, []uint{42}, eval.full)
}
