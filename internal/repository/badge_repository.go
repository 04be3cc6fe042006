package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/turnomed/badge-engine/internal/models"
)

// BadgeRepository is the badge ledger: one record per (user, badge type)
// tracking when the badge was first earned and whether it currently
// qualifies.
type BadgeRepository struct {
	db *DB
}

// NewBadgeRepository creates a new badge repository.
func NewBadgeRepository(db *DB) *BadgeRepository {
	return &BadgeRepository{db: db}
}

// Activate marks a badge as currently qualifying. On the first activation a
// record is created with EarnedAt set to now; later activations only flip
// IsActive back on. EarnedAt is never moved once set.
func (r *BadgeRepository) Activate(userID uint, badgeType models.BadgeType) error {
	now := time.Now()

	var record models.BadgeRecord
	err := r.db.Where("user_id = ? AND badge_type = ?", userID, badgeType).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		record = models.BadgeRecord{
			UserID:          userID,
			BadgeType:       badgeType,
			EarnedAt:        now,
			IsActive:        true,
			LastEvaluatedAt: now,
		}
		return r.db.Create(&record).Error
	}
	if err != nil {
		return fmt.Errorf("failed to load badge record: %w", err)
	}

	cols := map[string]interface{}{"last_evaluated_at": now}
	if !record.IsActive {
		cols["is_active"] = true
	}
	return r.db.Model(&record).UpdateColumns(cols).Error
}

// Deactivate marks a badge as no longer qualifying. A missing record is a
// no-op: a user who never qualified has nothing to deactivate and no record
// is created for them.
func (r *BadgeRepository) Deactivate(userID uint, badgeType models.BadgeType) error {
	now := time.Now()

	var record models.BadgeRecord
	err := r.db.Where("user_id = ? AND badge_type = ?", userID, badgeType).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load badge record: %w", err)
	}

	cols := map[string]interface{}{"last_evaluated_at": now}
	if record.IsActive {
		cols["is_active"] = false
	}
	return r.db.Model(&record).UpdateColumns(cols).Error
}

// Query returns the full badge history for a user, inactive records
// included, most recently earned first.
func (r *BadgeRepository) Query(userID uint) ([]models.BadgeRecord, error) {
	var records []models.BadgeRecord
	err := r.db.
		Where("user_id = ?", userID).
		Order("earned_at DESC").
		Find(&records).Error
	return records, err
}

// CountActive returns the number of currently active badges for a user.
func (r *BadgeRepository) CountActive(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.BadgeRecord{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Count(&count).Error
	return count, err
}

// HolderCount returns how many users currently hold a badge active.
func (r *BadgeRepository) HolderCount(badgeType models.BadgeType) (int64, error) {
	var count int64
	err := r.db.Model(&models.BadgeRecord{}).
		Where("badge_type = ? AND is_active = ?", badgeType, true).
		Count(&count).Error
	return count, err
}
