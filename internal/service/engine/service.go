package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/turnomed/badge-engine/internal/cache"
	"github.com/turnomed/badge-engine/internal/catalog"
	prommetrics "github.com/turnomed/badge-engine/internal/metrics"
	"github.com/turnomed/badge-engine/internal/models"
	"github.com/turnomed/badge-engine/internal/repository"
	"github.com/turnomed/badge-engine/pkg/logger"
)

// StatsRepository interface for statistics operations.
type StatsRepository interface {
	EnsureExists(userID uint, role models.Role) error
	GetByUser(userID uint) (*models.UserStatistics, error)
	Recompute(userID uint) error
	PeerAverageRatings(specialty string, minTurns int64) ([]float64, error)
}

// BadgeRepository interface for badge ledger operations.
type BadgeRepository interface {
	Activate(userID uint, badgeType models.BadgeType) error
	Deactivate(userID uint, badgeType models.BadgeType) error
	Query(userID uint) ([]models.BadgeRecord, error)
	HolderCount(badgeType models.BadgeType) (int64, error)
}

// ProgressRepository interface for progress operations.
type ProgressRepository interface {
	Upsert(userID uint, badgeType models.BadgeType, percentage float64) error
	ByUser(userID uint) (map[models.BadgeType]float64, error)
}

// UserRepository interface for user lookups.
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
}

// ResponseCache interface for the query response cache. A nil cache
// disables caching.
type ResponseCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	InvalidateUser(ctx context.Context, userID uint) error
}

// Service evaluates the badge catalog against user statistics and serves
// the outbound badge queries.
type Service struct {
	catalog      *catalog.Catalog
	statsRepo    StatsRepository
	badgeRepo    BadgeRepository
	progressRepo ProgressRepository
	userRepo     UserRepository
	cache        ResponseCache
	log          *logger.Logger
}

// NewService creates a new engine service.
func NewService(
	cat *catalog.Catalog,
	statsRepo *repository.StatsRepository,
	badgeRepo *repository.BadgeRepository,
	progressRepo *repository.ProgressRepository,
	userRepo *repository.UserRepository,
	responseCache *cache.Cache,
	log *logger.Logger,
) *Service {
	var rc ResponseCache
	if responseCache != nil {
		rc = responseCache
	}
	return &Service{
		catalog:      cat,
		statsRepo:    statsRepo,
		badgeRepo:    badgeRepo,
		progressRepo: progressRepo,
		userRepo:     userRepo,
		cache:        rc,
		log:          log,
	}
}

// NewServiceWithInterfaces creates a new engine service with interface
// dependencies (useful for testing).
func NewServiceWithInterfaces(
	cat *catalog.Catalog,
	statsRepo StatsRepository,
	badgeRepo BadgeRepository,
	progressRepo ProgressRepository,
	userRepo UserRepository,
	responseCache ResponseCache,
	log *logger.Logger,
) *Service {
	return &Service{
		catalog:      cat,
		statsRepo:    statsRepo,
		badgeRepo:    badgeRepo,
		progressRepo: progressRepo,
		userRepo:     userRepo,
		cache:        responseCache,
		log:          log,
	}
}

// EvaluateSubset evaluates the given badge types for a user against a fresh
// statistics snapshot. Used by the event dispatcher, which knows which
// badge types an event can affect. Per-badge failures are logged and
// skipped; they never abort the run.
func (s *Service) EvaluateSubset(ctx context.Context, userID uint, types []models.BadgeType) error {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return err
	}

	defs := s.catalog.Subset(user.Role, types)
	if len(defs) == 0 {
		return nil
	}

	return s.evaluate(ctx, user, defs, "event")
}

// EvaluateAll recomputes the user's statistics from source history and then
// evaluates every badge of the user's role. Idempotent: with no intervening
// events a second run produces the identical active set and progress.
func (s *Service) EvaluateAll(ctx context.Context, userID uint) error {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return err
	}

	defs := s.catalog.ForRole(user.Role)
	if len(defs) == 0 {
		return fmt.Errorf("no badges defined for role %q: %w", user.Role, models.ErrInvalidRole)
	}

	if err := s.statsRepo.Recompute(userID); err != nil {
		return fmt.Errorf("failed to recompute statistics: %w", err)
	}

	return s.evaluate(ctx, user, defs, "full")
}

// evaluate runs the decision loop over defs, which must already be in
// catalog evaluation order so prerequisites are decided before their
// dependents.
func (s *Service) evaluate(ctx context.Context, user *models.User, defs []*catalog.BadgeDefinition, trigger string) error {
	start := time.Now()

	stats, err := s.statsRepo.GetByUser(user.ID)
	if err != nil {
		return err
	}

	snap, err := s.buildSnapshot(user, stats, defs)
	if err != nil {
		return err
	}

	for _, def := range defs {
		if err := s.evaluateOne(snap, user, def); err != nil {
			prommetrics.RecordEvaluationError(string(def.Type))
			s.log.Error().
				Err(err).
				Uint("user_id", user.ID).
				Str("badge_type", string(def.Type)).
				Msg("Failed to evaluate badge")
			continue
		}
	}

	if s.cache != nil {
		if err := s.cache.InvalidateUser(ctx, user.ID); err != nil {
			s.log.Warn().Err(err).Uint("user_id", user.ID).Msg("Failed to invalidate cache")
		}
	}

	prommetrics.ObserveEvaluationDuration(trigger, time.Since(start).Seconds())
	return nil
}

// evaluateOne decides, persists and records progress for a single badge,
// keeping the in-memory snapshot in sync so later definitions in the same
// run observe the fresh activation state.
func (s *Service) evaluateOne(snap *Snapshot, user *models.User, def *catalog.BadgeDefinition) error {
	decision := Evaluate(snap, def)

	wasActive := snap.Active(def.Type)
	switch decision {
	case Activate:
		if err := s.badgeRepo.Activate(user.ID, def.Type); err != nil {
			return fmt.Errorf("failed to activate: %w", err)
		}
		if !wasActive {
			snap.ActiveBadges[def.Type] = true
			snap.ActiveCount++
			prommetrics.RecordBadgeActivated(string(def.Type), string(user.Role))
			s.recordHolderCount(def.Type)
			s.log.Info().
				Uint("user_id", user.ID).
				Str("badge_type", string(def.Type)).
				Msg("Badge activated")
		}
	case Deactivate:
		if err := s.badgeRepo.Deactivate(user.ID, def.Type); err != nil {
			return fmt.Errorf("failed to deactivate: %w", err)
		}
		if wasActive {
			delete(snap.ActiveBadges, def.Type)
			snap.ActiveCount--
			prommetrics.RecordBadgeDeactivated(string(def.Type), string(user.Role))
			s.recordHolderCount(def.Type)
			s.log.Info().
				Uint("user_id", user.ID).
				Str("badge_type", string(def.Type)).
				Msg("Badge deactivated")
		}
	}

	progress := Progress(snap, def)
	if err := s.progressRepo.Upsert(user.ID, def.Type, progress); err != nil {
		return fmt.Errorf("failed to store progress: %w", err)
	}
	return nil
}

// buildSnapshot assembles everything the pure evaluation reads: current
// statistics, the active badge set, and peer populations for any
// percentile-gated definitions in the batch.
func (s *Service) buildSnapshot(user *models.User, stats *models.UserStatistics, defs []*catalog.BadgeDefinition) (*Snapshot, error) {
	records, err := s.badgeRepo.Query(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load badge records: %w", err)
	}

	active := make(map[models.BadgeType]bool)
	for i := range records {
		if records[i].IsActive {
			active[records[i].BadgeType] = true
		}
	}

	snap := &Snapshot{
		Stats:        stats,
		ActiveBadges: active,
		ActiveCount:  len(active),
		PeerScores:   make(map[models.BadgeType][]float64),
	}

	for _, def := range defs {
		if def.Percentile == nil {
			continue
		}
		scores, err := s.statsRepo.PeerAverageRatings(user.Specialty, def.Percentile.MinTurns)
		if err != nil {
			return nil, fmt.Errorf("failed to load peer population for %s: %w", def.Type, err)
		}
		snap.PeerScores[def.Type] = scores
	}

	return snap, nil
}

func (s *Service) recordHolderCount(badgeType models.BadgeType) {
	count, err := s.badgeRepo.HolderCount(badgeType)
	if err != nil {
		return
	}
	prommetrics.SetActiveBadgeHolders(string(badgeType), int(count))
}

// BadgeInfo is one badge in a GetBadges response.
type BadgeInfo struct {
	Type        models.BadgeType `json:"type"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Icon        string           `json:"icon"`
	Color       string           `json:"color"`
	Rarity      catalog.Rarity   `json:"rarity"`
	EarnedAt    time.Time        `json:"earned_at"`
	IsActive    bool             `json:"is_active"`
}

// CategoryBadges groups earned badges under one category.
type CategoryBadges struct {
	Category catalog.Category `json:"category"`
	Badges   []BadgeInfo      `json:"badges"`
}

// BadgeSummary is the GetBadges response.
type BadgeSummary struct {
	UserID      uint             `json:"user_id"`
	ActiveCount int              `json:"active_count"`
	Categories  []CategoryBadges `json:"categories"`
}

// BadgeProgress is one entry of a GetProgress response.
type BadgeProgress struct {
	Type        models.BadgeType `json:"type"`
	Name        string           `json:"name"`
	Category    catalog.Category `json:"category"`
	Description string           `json:"description"`
	Criteria    string           `json:"criteria"`
	Earned      bool             `json:"earned"`
	Percentage  float64          `json:"percentage"`
}

// GetBadges returns the user's badge history grouped by category, with the
// count of currently active badges. Responses are served from cache when
// fresh.
func (s *Service) GetBadges(ctx context.Context, userID uint) (*BadgeSummary, error) {
	// User check before the cache read, so a stale cache entry can never
	// answer for a user that no longer exists.
	if _, err := s.userRepo.GetByID(userID); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cache.BadgesKey(userID)); err == nil && cached != "" {
			var summary BadgeSummary
			if err := json.Unmarshal([]byte(cached), &summary); err == nil {
				return &summary, nil
			}
		}
	}

	records, err := s.badgeRepo.Query(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load badge records: %w", err)
	}

	summary := &BadgeSummary{UserID: userID}
	grouped := make(map[catalog.Category][]BadgeInfo)
	for i := range records {
		rec := &records[i]
		def := s.catalog.ByType(rec.BadgeType)
		if def == nil {
			// Record for a badge removed from the catalog; skip silently.
			continue
		}
		if rec.IsActive {
			summary.ActiveCount++
		}
		grouped[def.Category] = append(grouped[def.Category], BadgeInfo{
			Type:        def.Type,
			Name:        def.Name,
			Description: def.Description,
			Icon:        def.Icon,
			Color:       def.Color,
			Rarity:      def.Rarity,
			EarnedAt:    rec.EarnedAt,
			IsActive:    rec.IsActive,
		})
	}

	// Stable category order: catalog declaration order.
	seen := make(map[catalog.Category]bool)
	for _, def := range s.catalog.All() {
		if seen[def.Category] {
			continue
		}
		seen[def.Category] = true
		if badges, ok := grouped[def.Category]; ok {
			summary.Categories = append(summary.Categories, CategoryBadges{
				Category: def.Category,
				Badges:   badges,
			})
		}
	}

	s.cacheSet(ctx, cache.BadgesKey(userID), summary)
	return summary, nil
}

// GetProgress returns the 0-100 progress toward every badge of the user's
// role, including badges the user has never earned (default 0).
func (s *Service) GetProgress(ctx context.Context, userID uint) ([]BadgeProgress, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cache.ProgressKey(userID)); err == nil && cached != "" {
			var progress []BadgeProgress
			if err := json.Unmarshal([]byte(cached), &progress); err == nil {
				return progress, nil
			}
		}
	}

	defs := s.catalog.ForRole(user.Role)
	if len(defs) == 0 {
		return nil, fmt.Errorf("no badges defined for role %q: %w", user.Role, models.ErrInvalidRole)
	}

	stored, err := s.progressRepo.ByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress records: %w", err)
	}

	records, err := s.badgeRepo.Query(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load badge records: %w", err)
	}
	earned := make(map[models.BadgeType]bool, len(records))
	for i := range records {
		earned[records[i].BadgeType] = true
	}

	progress := make([]BadgeProgress, 0, len(defs))
	for _, def := range defs {
		progress = append(progress, BadgeProgress{
			Type:        def.Type,
			Name:        def.Name,
			Category:    def.Category,
			Description: def.Description,
			Criteria:    def.Criteria,
			Earned:      earned[def.Type],
			Percentage:  stored[def.Type],
		})
	}

	s.cacheSet(ctx, cache.ProgressKey(userID), progress)
	return progress, nil
}

// cacheSet stores a response. Cache write failures are logged, not
// surfaced.
func (s *Service) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(data)); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Failed to cache response")
	}
}
