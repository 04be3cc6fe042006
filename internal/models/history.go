package models

import (
	"time"
)

// Turn statuses as written by the booking subsystem.
const (
	TurnStatusCompleted = "completed"
	TurnStatusCancelled = "cancelled"
	TurnStatusNoShow    = "no_show"
	TurnStatusPending   = "pending"
)

// AdvanceBookingLead is the minimum lead time between booking and the
// scheduled slot for a turn to count as an advance booking.
const AdvanceBookingLead = 48 * time.Hour

// Turn is the engine's read model of one appointment. Rows are owned by the
// booking subsystem; the engine only reads them during Recompute to rebuild
// turn-derived counters.
type Turn struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	DoctorID    uint      `gorm:"not null;index" json:"doctor_id"`
	PatientID   uint      `gorm:"not null;index" json:"patient_id"`
	Status      string    `gorm:"size:30;not null;index" json:"status"`
	ScheduledAt time.Time `gorm:"not null" json:"scheduled_at"`
	BookedAt    time.Time `gorm:"not null" json:"booked_at"`
	Documented  bool      `gorm:"not null;default:false" json:"documented"` // medical history written by the doctor
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for Turn model.
func (Turn) TableName() string {
	return "turns"
}

// IsAdvanceBooking reports whether the turn was booked with enough lead time.
func (t *Turn) IsAdvanceBooking() bool {
	return t.ScheduledAt.Sub(t.BookedAt) >= AdvanceBookingLead
}

// Rating is the engine's read model of one rating. Rows are owned by the
// rating subsystem; the engine reads them during Recompute to rebuild rating
// aggregates and the bounded mention windows.
type Rating struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	FromUserID            uint      `gorm:"not null;index" json:"from_user_id"`
	ToUserID              uint      `gorm:"not null;index" json:"to_user_id"`
	Score                 int       `gorm:"not null" json:"score"` // 1..5
	Comment               string    `gorm:"type:text" json:"comment"`
	MentionsPunctuality   bool      `gorm:"not null;default:false" json:"mentions_punctuality"`
	MentionsCommunication bool      `gorm:"not null;default:false" json:"mentions_communication"`
	CreatedAt             time.Time `json:"created_at"`
}

// TableName specifies the table name for Rating model.
func (Rating) TableName() string {
	return "ratings"
}
