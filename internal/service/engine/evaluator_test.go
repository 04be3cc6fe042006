package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turnomed/badge-engine/internal/catalog"
	"github.com/turnomed/badge-engine/internal/models"
)

func snapshot(stats *models.UserStatistics) *Snapshot {
	return &Snapshot{
		Stats:        stats,
		ActiveBadges: make(map[models.BadgeType]bool),
		PeerScores:   make(map[models.BadgeType][]float64),
	}
}

func mustDef(t *testing.T, badgeType models.BadgeType) *catalog.BadgeDefinition {
	t.Helper()
	c, err := catalog.New()
	require.NoError(t, err)
	def := c.ByType(badgeType)
	require.NotNil(t, def)
	return def
}

func TestEvaluate_ConsistentProfessional(t *testing.T) {
	def := mustDef(t, catalog.BadgeConsistentProfessional)

	tests := []struct {
		name      string
		completed int64
		cancelled int64
		want      Decision
	}{
		{"80 completed, 10 cancelled (11.1%)", 80, 10, Activate},
		{"80 completed, 13 cancelled (13.98%)", 80, 13, Activate},
		{"80 completed, 15 cancelled (15.8%)", 80, 15, Deactivate},
		{"below turn threshold", 79, 0, Deactivate},
		{"exactly at turn threshold, no cancellations", 80, 0, Activate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total := tt.completed + tt.cancelled
			stats := &models.UserStatistics{
				Role:                models.RoleDoctor,
				TotalTurnsCompleted: tt.completed,
				TotalTurnsCancelled: tt.cancelled,
			}
			if total > 0 {
				stats.CancellationRate = float64(tt.cancelled) / float64(total)
			}

			got := Evaluate(snapshot(stats), def)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_NoHysteresis(t *testing.T) {
	// A previously active badge deactivates as soon as statistics drop
	// below threshold; prior state never shields it.
	def := mustDef(t, catalog.BadgePreparedPatient)

	snap := snapshot(&models.UserStatistics{Role: models.RolePatient, FilesUploaded: 8})
	assert.Equal(t, Activate, Evaluate(snap, def))

	snap = snapshot(&models.UserStatistics{Role: models.RolePatient, FilesUploaded: 7})
	snap.ActiveBadges[def.Type] = true
	snap.ActiveCount = 1
	assert.Equal(t, Deactivate, Evaluate(snap, def))
}

func TestEvaluate_Deterministic(t *testing.T) {
	def := mustDef(t, catalog.BadgeConsistentProfessional)
	stats := &models.UserStatistics{
		Role:                models.RoleDoctor,
		TotalTurnsCompleted: 100,
		CancellationRate:    0.05,
	}

	first := Evaluate(snapshot(stats), def)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Evaluate(snapshot(stats), def))
	}
}

func TestEvaluate_PrerequisiteGating(t *testing.T) {
	def := mustDef(t, catalog.BadgeDetailedHistorian)
	stats := &models.UserStatistics{
		Role:                 models.RoleDoctor,
		TotalTurnsCompleted:  200,
		DocumentationEntries: 200,
		DocumentationRate:    1,
	}

	// Conditions met but prerequisite inactive.
	snap := snapshot(stats)
	assert.Equal(t, Deactivate, Evaluate(snap, def))

	// Prerequisite active.
	snap.ActiveBadges[catalog.BadgeCompleteDocumenter] = true
	snap.ActiveCount = 1
	assert.Equal(t, Activate, Evaluate(snap, def))
}

func TestEvaluate_Percentile(t *testing.T) {
	def := mustDef(t, catalog.BadgeTopSpecialist)

	stats := &models.UserStatistics{
		Role:                models.RoleDoctor,
		TotalTurnsCompleted: 150,
		AverageRating:       5.0,
	}

	// Tied with the boundary score: included.
	snap := snapshot(stats)
	snap.PeerScores[def.Type] = []float64{5.0, 5.0, 4.9, 4.0}
	assert.Equal(t, Activate, Evaluate(snap, def))

	// Below the cutoff: excluded.
	stats.AverageRating = 4.9
	assert.Equal(t, Deactivate, Evaluate(snap, def))

	// Below the population turn floor: excluded even with a top score.
	stats.AverageRating = 5.0
	stats.TotalTurnsCompleted = 99
	assert.Equal(t, Deactivate, Evaluate(snap, def))
}

func TestEvaluate_MinActiveBadges(t *testing.T) {
	def := mustDef(t, catalog.BadgeDistinguishedDoctor)
	stats := &models.UserStatistics{Role: models.RoleDoctor}

	snap := snapshot(stats)
	snap.ActiveBadges = map[models.BadgeType]bool{
		catalog.BadgeFirstConsultation:      true,
		catalog.BadgeConsistentProfessional: true,
		catalog.BadgeCompleteDocumenter:     true,
		catalog.BadgePunctualityStar:        true,
	}
	snap.ActiveCount = 4
	assert.Equal(t, Deactivate, Evaluate(snap, def))

	snap.ActiveBadges[catalog.BadgePatientFavorite] = true
	snap.ActiveCount = 5
	assert.Equal(t, Activate, Evaluate(snap, def))
}

func TestEvaluate_MinActiveBadgesExcludesSelf(t *testing.T) {
	// The badge's own active flag must not count toward its requirement,
	// otherwise it could never deactivate once earned.
	def := mustDef(t, catalog.BadgeModelPatient)
	snap := snapshot(&models.UserStatistics{Role: models.RolePatient})
	snap.ActiveBadges = map[models.BadgeType]bool{
		catalog.BadgeModelPatient:    true,
		catalog.BadgeWelcomeAboard:   true,
		catalog.BadgePreparedPatient: true,
		catalog.BadgeHealthPlanner:   true,
	}
	snap.ActiveCount = 4

	// Three other active badges, requirement is four.
	assert.Equal(t, Deactivate, Evaluate(snap, def))
}
