// Package scheduler provides the periodic full-resync job that corrects
// statistics drift and re-evaluates the whole catalog for every user.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/turnomed/badge-engine/internal/config"
	prommetrics "github.com/turnomed/badge-engine/internal/metrics"
	"github.com/turnomed/badge-engine/internal/models"
	"github.com/turnomed/badge-engine/internal/repository"
	"github.com/turnomed/badge-engine/pkg/logger"
)

// UserLister lists the users the resync job walks.
type UserLister interface {
	ListIDs(role models.Role) ([]uint, error)
}

// Resyncer performs the per-user repair operation.
type Resyncer interface {
	EvaluateAll(ctx context.Context, userID uint) error
}

// Service schedules the periodic resync.
type Service struct {
	config   *config.Config
	userRepo UserLister
	resyncer Resyncer
	log      *logger.Logger
	cron     *cron.Cron
}

// NewService creates a new scheduler service.
func NewService(cfg *config.Config, userRepo *repository.UserRepository, resyncer Resyncer, log *logger.Logger) *Service {
	return &Service{
		config:   cfg,
		userRepo: userRepo,
		resyncer: resyncer,
		log:      log,
	}
}

// NewServiceWithInterfaces creates a scheduler with interface dependencies
// (useful for testing).
func NewServiceWithInterfaces(cfg *config.Config, userRepo UserLister, resyncer Resyncer, log *logger.Logger) *Service {
	return &Service{
		config:   cfg,
		userRepo: userRepo,
		resyncer: resyncer,
		log:      log,
	}
}

// Start initializes and starts the cron scheduler.
func (s *Service) Start() error {
	if !s.config.Scheduler.Enabled {
		s.log.Info().Msg("Scheduler is disabled in configuration")
		return nil
	}

	location, err := s.config.Scheduler.GetLocation()
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.config.Scheduler.Timezone, err)
	}

	s.cron = cron.New(cron.WithLocation(location))

	_, err = s.cron.AddFunc(s.config.Scheduler.ResyncCron, func() {
		s.RunResync(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to register resync job: %w", err)
	}

	s.cron.Start()
	s.log.Info().
		Str("schedule", s.config.Scheduler.ResyncCron).
		Str("timezone", s.config.Scheduler.Timezone).
		Msg("Resync job registered")

	return nil
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Service) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
}

// RunResync walks every user and runs the idempotent repair operation.
// Per-user failures are logged and skipped so one broken user cannot stall
// the rest of the platform.
func (s *Service) RunResync(ctx context.Context) {
	s.log.Info().Msg("Starting full badge resync")
	start := time.Now()

	ids, err := s.userRepo.ListIDs("")
	if err != nil {
		prommetrics.RecordResyncRun("error")
		s.log.Error().Err(err).Msg("Failed to list users for resync")
		return
	}

	failures := 0
	for _, id := range ids {
		if err := s.resyncer.EvaluateAll(ctx, id); err != nil {
			failures++
			s.log.Error().
				Err(err).
				Uint("user_id", id).
				Msg("Failed to resync user")
			continue
		}
	}

	duration := time.Since(start)
	prommetrics.ObserveResyncDuration(duration.Seconds())
	if failures > 0 {
		prommetrics.RecordResyncRun("partial")
	} else {
		prommetrics.RecordResyncRun("success")
	}

	s.log.Info().
		Int("users", len(ids)).
		Int("failures", failures).
		Dur("duration", duration).
		Msg("Full badge resync complete")
}
