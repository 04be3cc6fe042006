package catalog

import (
	"github.com/turnomed/badge-engine/internal/models"
)

// Badge types.
const (
	// Doctor badges.
	BadgeFirstConsultation      models.BadgeType = "first_consultation"
	BadgeConsistentProfessional models.BadgeType = "consistent_professional"
	BadgeCompleteDocumenter     models.BadgeType = "complete_documenter"
	BadgeDetailedHistorian      models.BadgeType = "detailed_historian"
	BadgePunctualityStar        models.BadgeType = "punctuality_star"
	BadgeClearCommunicator      models.BadgeType = "clear_communicator"
	BadgePatientFavorite        models.BadgeType = "patient_favorite"
	BadgeTopSpecialist          models.BadgeType = "top_specialist"
	BadgeAlwaysReachable        models.BadgeType = "always_reachable"
	BadgeDistinguishedDoctor    models.BadgeType = "distinguished_doctor"

	// Patient badges.
	BadgeWelcomeAboard      models.BadgeType = "welcome_aboard"
	BadgePreparedPatient    models.BadgeType = "prepared_patient"
	BadgePunctualPatient    models.BadgeType = "punctual_patient"
	BadgeCommittedAttendee  models.BadgeType = "committed_attendee"
	BadgeHealthPlanner      models.BadgeType = "health_planner"
	BadgeThoughtfulReviewer models.BadgeType = "thoughtful_reviewer"
	BadgeModelPatient       models.BadgeType = "model_patient"
)

// Typed field accessors used by condition predicates.
func turnsCompleted(s *models.UserStatistics) float64   { return float64(s.TotalTurnsCompleted) }
func cancellationRate(s *models.UserStatistics) float64 { return s.CancellationRate }
func noShowRate(s *models.UserStatistics) float64       { return s.NoShowRate }
func ratingsGiven(s *models.UserStatistics) float64     { return float64(s.RatingsGiven) }
func ratingsReceived(s *models.UserStatistics) float64  { return float64(s.RatingsReceived) }
func averageRating(s *models.UserStatistics) float64    { return s.AverageRating }

func documentationEntries(s *models.UserStatistics) float64 {
	return float64(s.DocumentationEntries)
}

func documentationRate(s *models.UserStatistics) float64 { return s.DocumentationRate }

func modifyRequestsHandled(s *models.UserStatistics) float64 {
	return float64(s.ModifyRequestsHandled)
}

func filesUploaded(s *models.UserStatistics) float64       { return float64(s.FilesUploaded) }
func advanceBookings(s *models.UserStatistics) float64     { return float64(s.AdvanceBookings) }
func availabilityConfigs(s *models.UserStatistics) float64 { return float64(s.AvailabilityConfigs) }

func punctualityMentions(s *models.UserStatistics) float64 {
	return float64(s.PunctualityMentions)
}

func communicationMentions(s *models.UserStatistics) float64 {
	return float64(s.CommunicationMentions)
}

// definitions returns the full badge table. Order within a role is display
// order; the catalog reorders for evaluation so prerequisites come first.
func definitions() []BadgeDefinition {
	return []BadgeDefinition{
		// ---- Doctor badges ----
		{
			Type:        BadgeFirstConsultation,
			Role:        models.RoleDoctor,
			Category:    CategoryWelcome,
			Name:        "First Consultation",
			Description: "Completed the first appointment on the platform.",
			Icon:        "stethoscope",
			Color:       "#4CAF50",
			Rarity:      RarityCommon,
			Criteria:    "Complete 1 appointment",
			Conditions: []Condition{
				{Field: models.FieldTurnsCompleted, Value: turnsCompleted, Op: OpGTE, Threshold: 1},
			},
		},
		{
			Type:        BadgeConsistentProfessional,
			Role:        models.RoleDoctor,
			Category:    CategoryConsistency,
			Name:        "Consistent Professional",
			Description: "Keeps a steady practice with very few cancellations.",
			Icon:        "calendar-check",
			Color:       "#2196F3",
			Rarity:      RarityRare,
			Criteria:    "Complete 80 appointments with a cancellation rate under 15%",
			Conditions: []Condition{
				{Field: models.FieldTurnsCompleted, Value: turnsCompleted, Op: OpGTE, Threshold: 80},
				{Field: models.FieldTurnsCancelled, Value: cancellationRate, Op: OpLT, Threshold: 0.15},
			},
		},
		{
			Type:        BadgeCompleteDocumenter,
			Role:        models.RoleDoctor,
			Category:    CategoryQualityOfCare,
			Name:        "Complete Documenter",
			Description: "Writes the medical history for nearly every appointment.",
			Icon:        "notebook",
			Color:       "#9C27B0",
			Rarity:      RarityUncommon,
			Criteria:    "Document 50 appointments keeping a 90% documentation rate",
			Conditions: []Condition{
				{Field: models.FieldDocumentationEntries, Value: documentationEntries, Op: OpGTE, Threshold: 50},
				{Field: models.FieldDocumentationEntries, Value: documentationRate, Op: OpGTE, Threshold: 0.9},
			},
		},
		{
			Type:        BadgeDetailedHistorian,
			Role:        models.RoleDoctor,
			Category:    CategoryQualityOfCare,
			Name:        "Detailed Historian",
			Description: "Maintains an extensive, complete documentation record.",
			Icon:        "archive",
			Color:       "#673AB7",
			Rarity:      RarityEpic,
			Criteria:    "Hold Complete Documenter and document 150 appointments",
			Requires:    BadgeCompleteDocumenter,
			Conditions: []Condition{
				{Field: models.FieldDocumentationEntries, Value: documentationEntries, Op: OpGTE, Threshold: 150},
			},
		},
		{
			Type:        BadgePunctualityStar,
			Role:        models.RoleDoctor,
			Category:    CategoryProfessionalism,
			Name:        "Punctuality Star",
			Description: "Patients repeatedly highlight punctuality in their reviews.",
			Icon:        "clock",
			Color:       "#FF9800",
			Rarity:      RarityRare,
			Criteria:    "Receive 10 punctuality mentions within the last 50 ratings",
			Conditions: []Condition{
				{Field: models.FieldPunctualityMentions, Value: punctualityMentions, Op: OpGTE, Threshold: 10},
				{Field: models.FieldRatingsReceived, Value: ratingsReceived, Op: OpGTE, Threshold: 20},
			},
		},
		{
			Type:        BadgeClearCommunicator,
			Role:        models.RoleDoctor,
			Category:    CategoryProfessionalism,
			Name:        "Clear Communicator",
			Description: "Patients repeatedly highlight clear explanations.",
			Icon:        "message-circle",
			Color:       "#03A9F4",
			Rarity:      RarityRare,
			Criteria:    "Receive 10 communication mentions within the last 50 ratings",
			Conditions: []Condition{
				{Field: models.FieldCommunicationMentions, Value: communicationMentions, Op: OpGTE, Threshold: 10},
				{Field: models.FieldRatingsReceived, Value: ratingsReceived, Op: OpGTE, Threshold: 20},
			},
		},
		{
			Type:        BadgePatientFavorite,
			Role:        models.RoleDoctor,
			Category:    CategoryQualityOfCare,
			Name:        "Patient Favorite",
			Description: "Consistently excellent ratings from patients.",
			Icon:        "heart",
			Color:       "#E91E63",
			Rarity:      RarityEpic,
			Criteria:    "Keep a 4.5 average over at least 30 ratings",
			Conditions: []Condition{
				{Field: models.FieldRatingPoints, Value: averageRating, Op: OpGTE, Threshold: 4.5},
				{Field: models.FieldRatingsReceived, Value: ratingsReceived, Op: OpGTE, Threshold: 30},
			},
		},
		{
			Type:        BadgeTopSpecialist,
			Role:        models.RoleDoctor,
			Category:    CategoryClinicalExcellence,
			Name:        "Top Specialist",
			Description: "Among the best-rated doctors of the specialty.",
			Icon:        "award",
			Color:       "#FFC107",
			Rarity:      RarityLegendary,
			Criteria:    "Rank in the top 10% by rating among same-specialty doctors with 100 completed appointments",
			Percentile:  &PercentileRule{Percentile: 0.10, MinTurns: 100},
		},
		{
			Type:        BadgeAlwaysReachable,
			Role:        models.RoleDoctor,
			Category:    CategoryActiveCommitment,
			Name:        "Always Reachable",
			Description: "Keeps availability configured and responds to change requests.",
			Icon:        "calendar-clock",
			Color:       "#009688",
			Rarity:      RarityUncommon,
			Criteria:    "Configure availability and handle 10 modification requests",
			Conditions: []Condition{
				{Field: models.FieldAvailabilityConfigs, Value: availabilityConfigs, Op: OpGTE, Threshold: 1},
				{Field: models.FieldModifyRequestsHandled, Value: modifyRequestsHandled, Op: OpGTE, Threshold: 10},
			},
		},
		{
			Type:            BadgeDistinguishedDoctor,
			Role:            models.RoleDoctor,
			Category:        CategoryClinicalExcellence,
			Name:            "Distinguished Doctor",
			Description:     "Holds a broad set of active badges at once.",
			Icon:            "medal",
			Color:           "#FFD700",
			Rarity:          RarityLegendary,
			Criteria:        "Hold 5 other active badges",
			MinActiveBadges: 5,
		},

		// ---- Patient badges ----
		{
			Type:        BadgeWelcomeAboard,
			Role:        models.RolePatient,
			Category:    CategoryWelcome,
			Name:        "Welcome Aboard",
			Description: "Attended the first appointment on the platform.",
			Icon:        "hand-wave",
			Color:       "#4CAF50",
			Rarity:      RarityCommon,
			Criteria:    "Attend 1 appointment",
			Conditions: []Condition{
				{Field: models.FieldTurnsCompleted, Value: turnsCompleted, Op: OpGTE, Threshold: 1},
			},
		},
		{
			Type:        BadgePreparedPatient,
			Role:        models.RolePatient,
			Category:    CategoryPreventiveCare,
			Name:        "Prepared Patient",
			Description: "Keeps studies and documents uploaded ahead of visits.",
			Icon:        "folder-up",
			Color:       "#795548",
			Rarity:      RarityUncommon,
			Criteria:    "Upload 8 files",
			Conditions: []Condition{
				{Field: models.FieldFilesUploaded, Value: filesUploaded, Op: OpGTE, Threshold: 8},
			},
		},
		{
			Type:        BadgePunctualPatient,
			Role:        models.RolePatient,
			Category:    CategoryProfessionalism,
			Name:        "Punctual Patient",
			Description: "Shows up reliably for booked appointments.",
			Icon:        "clock",
			Color:       "#FF9800",
			Rarity:      RarityUncommon,
			Criteria:    "Attend 10 appointments with a no-show rate under 5%",
			Conditions: []Condition{
				{Field: models.FieldTurnsCompleted, Value: turnsCompleted, Op: OpGTE, Threshold: 10},
				{Field: models.FieldTurnsNoShow, Value: noShowRate, Op: OpLT, Threshold: 0.05},
			},
		},
		{
			Type:        BadgeCommittedAttendee,
			Role:        models.RolePatient,
			Category:    CategoryConsistency,
			Name:        "Committed Attendee",
			Description: "Rarely cancels and keeps coming back.",
			Icon:        "repeat",
			Color:       "#2196F3",
			Rarity:      RarityRare,
			Criteria:    "Attend 25 appointments with a cancellation rate under 10%",
			Conditions: []Condition{
				{Field: models.FieldTurnsCompleted, Value: turnsCompleted, Op: OpGTE, Threshold: 25},
				{Field: models.FieldTurnsCancelled, Value: cancellationRate, Op: OpLT, Threshold: 0.10},
			},
		},
		{
			Type:        BadgeHealthPlanner,
			Role:        models.RolePatient,
			Category:    CategoryPreventiveCare,
			Name:        "Health Planner",
			Description: "Books appointments well in advance.",
			Icon:        "calendar-plus",
			Color:       "#009688",
			Rarity:      RarityUncommon,
			Criteria:    "Book 5 appointments at least 48 hours ahead",
			Conditions: []Condition{
				{Field: models.FieldAdvanceBookings, Value: advanceBookings, Op: OpGTE, Threshold: 5},
			},
		},
		{
			Type:        BadgeThoughtfulReviewer,
			Role:        models.RolePatient,
			Category:    CategoryActiveCommitment,
			Name:        "Thoughtful Reviewer",
			Description: "Rates doctors after appointments, helping other patients.",
			Icon:        "star",
			Color:       "#FFC107",
			Rarity:      RarityUncommon,
			Criteria:    "Rate 15 appointments",
			Conditions: []Condition{
				{Field: models.FieldRatingsGiven, Value: ratingsGiven, Op: OpGTE, Threshold: 15},
			},
		},
		{
			Type:            BadgeModelPatient,
			Role:            models.RolePatient,
			Category:        CategoryActiveCommitment,
			Name:            "Model Patient",
			Description:     "Holds a broad set of active badges at once.",
			Icon:            "medal",
			Color:           "#FFD700",
			Rarity:          RarityEpic,
			Criteria:        "Hold 4 other active badges",
			MinActiveBadges: 4,
		},
	}
}
