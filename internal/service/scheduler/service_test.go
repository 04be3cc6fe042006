package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turnomed/badge-engine/internal/config"
	"github.com/turnomed/badge-engine/internal/models"
	"github.com/turnomed/badge-engine/pkg/logger"
)

type mockUserLister struct {
	ids []uint
	err error
}

func (m *mockUserLister) ListIDs(role models.Role) ([]uint, error) {
	return m.ids, m.err
}

type mockResyncer struct {
	resynced []uint
	failFor  map[uint]error
}

func (m *mockResyncer) EvaluateAll(ctx context.Context, userID uint) error {
	if err := m.failFor[userID]; err != nil {
		return err
	}
	m.resynced = append(m.resynced, userID)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Scheduler: config.SchedulerConfig{
			Enabled:    true,
			ResyncCron: "0 4 * * *",
			Timezone:   "UTC",
		},
	}
}

func TestRunResyncWalksAllUsers(t *testing.T) {
	lister := &mockUserLister{ids: []uint{1, 2, 3}}
	resyncer := &mockResyncer{}
	s := NewServiceWithInterfaces(testConfig(), lister, resyncer, logger.New("error", "json", "stdout"))

	s.RunResync(context.Background())

	assert.Equal(t, []uint{1, 2, 3}, resyncer.resynced)
}

func TestRunResyncIsolatesFailures(t *testing.T) {
	lister := &mockUserLister{ids: []uint{1, 2, 3}}
	resyncer := &mockResyncer{failFor: map[uint]error{2: errors.New("stats gone")}}
	s := NewServiceWithInterfaces(testConfig(), lister, resyncer, logger.New("error", "json", "stdout"))

	s.RunResync(context.Background())

	// User 2 failed; 1 and 3 still resynced.
	assert.Equal(t, []uint{1, 3}, resyncer.resynced)
}

func TestRunResyncListFailure(t *testing.T) {
	lister := &mockUserLister{err: errors.New("db down")}
	resyncer := &mockResyncer{}
	s := NewServiceWithInterfaces(testConfig(), lister, resyncer, logger.New("error", "json", "stdout"))

	s.RunResync(context.Background())

	assert.Empty(t, resyncer.resynced)
}

func TestStartDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Scheduler.Enabled = false
	s := NewServiceWithInterfaces(cfg, &mockUserLister{}, &mockResyncer{}, logger.New("error", "json", "stdout"))

	require.NoError(t, s.Start())
	s.Stop()
}

func TestStartInvalidSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.Scheduler.ResyncCron = "not a schedule"
	s := NewServiceWithInterfaces(cfg, &mockUserLister{}, &mockResyncer{}, logger.New("error", "json", "stdout"))

	assert.Error(t, s.Start())
}
