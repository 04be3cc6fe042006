package models

// EventKind identifies a domain event category emitted by the booking,
// rating, documentation, file and availability subsystems after their own
// transactions commit.
type EventKind string

// Event kinds the dispatcher routes.
const (
	EventTurnCompleted   EventKind = "turn_completed"
	EventTurnCancelled   EventKind = "turn_cancelled"
	EventTurnNoShow      EventKind = "turn_no_show"
	EventRatingGiven     EventKind = "rating_given"
	EventRatingReceived  EventKind = "rating_received"
	EventHistoryDocument EventKind = "medical_history_documented"
	EventModifyHandled   EventKind = "modify_request_handled"
	EventFileUploaded    EventKind = "file_uploaded"
	EventAdvanceBooking  EventKind = "advance_booking"
	EventAvailabilitySet EventKind = "availability_configured"
)

// EventPayload carries the per-kind detail the statistics mutations need.
// Only the fields relevant to the event kind are populated.
type EventPayload struct {
	RatingScore           int  `json:"rating_score,omitempty"`
	MentionsPunctuality   bool `json:"mentions_punctuality,omitempty"`
	MentionsCommunication bool `json:"mentions_communication,omitempty"`
	FirstVisit            bool `json:"first_visit,omitempty"` // first completed turn with this patient
}

// Event is the typed notification the dispatcher consumes.
type Event struct {
	UserID  uint         `json:"user_id"`
	Role    Role         `json:"role"`
	Kind    EventKind    `json:"kind"`
	Payload EventPayload `json:"payload"`
}
