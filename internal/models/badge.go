package models

import (
	"time"
)

// BadgeType is the unique key of a badge definition in the catalog.
type BadgeType string

// BadgeRecord tracks one badge for one user: when it was first earned,
// whether it currently qualifies, and when it was last evaluated.
//
// EarnedAt is set on the first activation and never moved afterwards;
// IsActive may flip in either direction on every evaluation. An inactive
// record still means "previously earned"; history is preserved, never
// deleted.
type BadgeRecord struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"not null;index:idx_badge_user_type,unique" json:"user_id"`
	User            User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	BadgeType       BadgeType `gorm:"size:100;not null;index:idx_badge_user_type,unique" json:"badge_type"`
	EarnedAt        time.Time `gorm:"not null" json:"earned_at"`
	IsActive        bool      `gorm:"not null;default:false;index" json:"is_active"`
	LastEvaluatedAt time.Time `gorm:"not null" json:"last_evaluated_at"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName specifies the table name for BadgeRecord model.
func (BadgeRecord) TableName() string {
	return "badge_records"
}

// ProgressRecord stores the current 0-100 progress toward one badge for one
// user, independent of whether the badge is active. Overwritten on every
// evaluation; a pure function of the latest statistics snapshot.
type ProgressRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index:idx_progress_user_type,unique" json:"user_id"`
	BadgeType  BadgeType `gorm:"size:100;not null;index:idx_progress_user_type,unique" json:"badge_type"`
	Percentage float64   `gorm:"not null;default:0" json:"percentage"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for ProgressRecord model.
func (ProgressRecord) TableName() string {
	return "badge_progress"
}
