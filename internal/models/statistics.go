package models

import (
	"time"
)

// StatField names a counter column of UserStatistics that event handlers may
// increment. Using typed constants instead of free strings keeps the set of
// mutable columns closed and catches typos at compile time.
type StatField string

// Incrementable counter fields.
const (
	FieldTurnsCompleted        StatField = "total_turns_completed"
	FieldTurnsCancelled        StatField = "total_turns_cancelled"
	FieldTurnsNoShow           StatField = "total_turns_no_show"
	FieldRatingsGiven          StatField = "ratings_given"
	FieldRatingsReceived       StatField = "ratings_received"
	FieldRatingPoints          StatField = "rating_points"
	FieldDocumentationEntries  StatField = "documentation_entries"
	FieldModifyRequestsHandled StatField = "modify_requests_handled"
	FieldFilesUploaded         StatField = "files_uploaded"
	FieldAdvanceBookings       StatField = "advance_bookings"
	FieldAvailabilityConfigs   StatField = "availability_configs"
	FieldUniquePatients        StatField = "unique_patients"
	FieldPunctualityMentions   StatField = "punctuality_mentions"
	FieldCommunicationMentions StatField = "communication_mentions"
)

// UserStatistics holds the aggregated counters and derived rates for one
// user. Exactly one row exists per (user, role); it is created lazily on the
// first event and never deleted.
//
// Counter columns are mutated only through atomic increments or a full
// Recompute pass. Derived columns (rates, averages) are recomputed from the
// counters in a single UPDATE so readers never observe a rate that mixes
// two generations of counters.
type UserStatistics struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"uniqueIndex;not null" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role   Role `gorm:"size:20;not null;index" json:"role"`

	// Cumulative totals.
	TotalTurnsCompleted   int64 `gorm:"default:0" json:"total_turns_completed"`
	TotalTurnsCancelled   int64 `gorm:"default:0" json:"total_turns_cancelled"`
	TotalTurnsNoShow      int64 `gorm:"default:0" json:"total_turns_no_show"`
	RatingsGiven          int64 `gorm:"default:0" json:"ratings_given"`
	RatingsReceived       int64 `gorm:"default:0" json:"ratings_received"`
	RatingPoints          int64 `gorm:"default:0" json:"rating_points"` // sum of received scores
	DocumentationEntries  int64 `gorm:"default:0" json:"documentation_entries"`
	ModifyRequestsHandled int64 `gorm:"default:0" json:"modify_requests_handled"`
	FilesUploaded         int64 `gorm:"default:0" json:"files_uploaded"`
	AdvanceBookings       int64 `gorm:"default:0" json:"advance_bookings"`
	AvailabilityConfigs   int64 `gorm:"default:0" json:"availability_configs"`
	UniquePatients        int64 `gorm:"default:0" json:"unique_patients"` // doctors only

	// Bounded rolling counters over the last 50 received ratings. The
	// incremental path approximates them; Recompute rebuilds them exactly
	// from the ratings table.
	PunctualityMentions   int64 `gorm:"default:0" json:"punctuality_mentions"`
	CommunicationMentions int64 `gorm:"default:0" json:"communication_mentions"`

	// Derived columns, maintained by RefreshDerived/Recompute.
	AverageRating     float64 `gorm:"default:0" json:"average_rating"`
	CancellationRate  float64 `gorm:"default:0" json:"cancellation_rate"`
	NoShowRate        float64 `gorm:"default:0" json:"no_show_rate"`
	DocumentationRate float64 `gorm:"default:0" json:"documentation_rate"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for UserStatistics model.
func (UserStatistics) TableName() string {
	return "user_statistics"
}

// RatingWindow is the number of most recent received ratings the mention
// counters are bounded to.
const RatingWindow = 50
