package dispatcher

import (
	"github.com/turnomed/badge-engine/internal/catalog"
	"github.com/turnomed/badge-engine/internal/models"
)

// buildRoutes returns the static event routing table. Each route lists the
// counter mutations an event implies and the badge types whose conditions
// read the touched fields, so an event never triggers a full catalog pass.
// The active-badge-count badges ride along on every route because any
// activation flip can change their input.
func buildRoutes() map[models.EventKind]route {
	fixed := func(incs ...increment) func(*models.Event) []increment {
		return func(*models.Event) []increment { return incs }
	}

	return map[models.EventKind]route{
		models.EventTurnCompleted: {
			increments: func(ev *models.Event) []increment {
				incs := []increment{{models.FieldTurnsCompleted, 1}}
				if ev.Role == models.RoleDoctor && ev.Payload.FirstVisit {
					incs = append(incs, increment{models.FieldUniquePatients, 1})
				}
				return incs
			},
			badges: []models.BadgeType{
				catalog.BadgeFirstConsultation,
				catalog.BadgeConsistentProfessional,
				catalog.BadgeCompleteDocumenter,
				catalog.BadgeDetailedHistorian,
				catalog.BadgeTopSpecialist,
				catalog.BadgeDistinguishedDoctor,
				catalog.BadgeWelcomeAboard,
				catalog.BadgePunctualPatient,
				catalog.BadgeCommittedAttendee,
				catalog.BadgeModelPatient,
			},
		},
		models.EventTurnCancelled: {
			increments: fixed(increment{models.FieldTurnsCancelled, 1}),
			badges: []models.BadgeType{
				catalog.BadgeConsistentProfessional,
				catalog.BadgeDistinguishedDoctor,
				catalog.BadgeCommittedAttendee,
				catalog.BadgeModelPatient,
			},
		},
		models.EventTurnNoShow: {
			increments: fixed(increment{models.FieldTurnsNoShow, 1}),
			badges: []models.BadgeType{
				catalog.BadgePunctualPatient,
				catalog.BadgeModelPatient,
			},
		},
		models.EventRatingGiven: {
			increments: fixed(increment{models.FieldRatingsGiven, 1}),
			badges: []models.BadgeType{
				catalog.BadgeThoughtfulReviewer,
				catalog.BadgeModelPatient,
			},
		},
		models.EventRatingReceived: {
			increments: func(ev *models.Event) []increment {
				incs := []increment{
					{models.FieldRatingsReceived, 1},
					{models.FieldRatingPoints, int64(ev.Payload.RatingScore)},
				}
				// Approximation of the bounded window; Recompute restores
				// the exact last-50 counts.
				if ev.Payload.MentionsPunctuality {
					incs = append(incs, increment{models.FieldPunctualityMentions, 1})
				}
				if ev.Payload.MentionsCommunication {
					incs = append(incs, increment{models.FieldCommunicationMentions, 1})
				}
				return incs
			},
			badges: []models.BadgeType{
				catalog.BadgePunctualityStar,
				catalog.BadgeClearCommunicator,
				catalog.BadgePatientFavorite,
				catalog.BadgeTopSpecialist,
				catalog.BadgeDistinguishedDoctor,
			},
		},
		models.EventHistoryDocument: {
			increments: fixed(increment{models.FieldDocumentationEntries, 1}),
			badges: []models.BadgeType{
				catalog.BadgeCompleteDocumenter,
				catalog.BadgeDetailedHistorian,
				catalog.BadgeDistinguishedDoctor,
			},
		},
		models.EventModifyHandled: {
			increments: fixed(increment{models.FieldModifyRequestsHandled, 1}),
			badges: []models.BadgeType{
				catalog.BadgeAlwaysReachable,
				catalog.BadgeDistinguishedDoctor,
			},
		},
		models.EventFileUploaded: {
			increments: fixed(increment{models.FieldFilesUploaded, 1}),
			badges: []models.BadgeType{
				catalog.BadgePreparedPatient,
				catalog.BadgeModelPatient,
			},
		},
		models.EventAdvanceBooking: {
			increments: fixed(increment{models.FieldAdvanceBookings, 1}),
			badges: []models.BadgeType{
				catalog.BadgeHealthPlanner,
				catalog.BadgeModelPatient,
			},
		},
		models.EventAvailabilitySet: {
			increments: fixed(increment{models.FieldAvailabilityConfigs, 1}),
			badges: []models.BadgeType{
				catalog.BadgeAlwaysReachable,
				catalog.BadgeDistinguishedDoctor,
			},
		},
	}
}
