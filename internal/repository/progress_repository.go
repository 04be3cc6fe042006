package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/turnomed/badge-engine/internal/models"
)

// ProgressRepository stores the 0-100 progress percentage per (user, badge
// type). Progress is a pure function of the latest statistics snapshot, so
// Upsert always overwrites.
type ProgressRepository struct {
	db *DB
}

// NewProgressRepository creates a new progress repository.
func NewProgressRepository(db *DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// Upsert writes the current progress for a badge, clamping to [0,100].
func (r *ProgressRepository) Upsert(userID uint, badgeType models.BadgeType, percentage float64) error {
	if percentage < 0 {
		percentage = 0
	}
	if percentage > 100 {
		percentage = 100
	}

	var record models.ProgressRecord
	err := r.db.Where("user_id = ? AND badge_type = ?", userID, badgeType).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		record = models.ProgressRecord{
			UserID:     userID,
			BadgeType:  badgeType,
			Percentage: percentage,
		}
		if createErr := r.db.Create(&record).Error; createErr != nil {
			// A concurrent evaluator may have won the creation race; the
			// unique index rejects the second insert. Re-check and fall
			// through to the overwrite before treating it as a failure.
			var n int64
			if checkErr := r.db.Model(&models.ProgressRecord{}).
				Where("user_id = ? AND badge_type = ?", userID, badgeType).
				Count(&n).Error; checkErr == nil && n > 0 {
				return r.db.Model(&models.ProgressRecord{}).
					Where("user_id = ? AND badge_type = ?", userID, badgeType).
					UpdateColumn("percentage", percentage).Error
			}
			return fmt.Errorf("failed to create progress record: %w", createErr)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load progress record: %w", err)
	}

	return r.db.Model(&record).UpdateColumn("percentage", percentage).Error
}

// ByUser returns all progress records for a user keyed by badge type.
func (r *ProgressRepository) ByUser(userID uint) (map[models.BadgeType]float64, error) {
	var records []models.ProgressRecord
	if err := r.db.Where("user_id = ?", userID).Find(&records).Error; err != nil {
		return nil, err
	}
	progress := make(map[models.BadgeType]float64, len(records))
	for i := range records {
		progress[records[i].BadgeType] = records[i].Percentage
	}
	return progress, nil
}
