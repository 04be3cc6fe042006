// Package engine implements badge rule evaluation, progress calculation and
// the outbound badge queries.
package engine

import (
	"github.com/turnomed/badge-engine/internal/catalog"
	"github.com/turnomed/badge-engine/internal/models"
)

// Decision is the outcome of evaluating one badge definition.
type Decision int

// Evaluation decisions.
const (
	Deactivate Decision = iota
	Activate
)

// String returns the decision name for logging.
func (d Decision) String() string {
	if d == Activate {
		return "activate"
	}
	return "deactivate"
}

// Snapshot is everything an evaluation reads: the user's statistics, the
// active badge set, and the percentile peer populations gathered for the
// definitions under evaluation. Evaluate and Progress are pure over a
// snapshot, so identical snapshots always produce identical results.
type Snapshot struct {
	Stats        *models.UserStatistics
	ActiveBadges map[models.BadgeType]bool
	ActiveCount  int

	// PeerScores holds, per percentile-gated badge type, the scores of the
	// candidate population the user competes against (the user's own score
	// included when they qualify for the population).
	PeerScores map[models.BadgeType][]float64
}

// Active reports whether a badge is active in the snapshot.
func (s *Snapshot) Active(t models.BadgeType) bool {
	return s.ActiveBadges[t]
}

// Evaluate decides whether a badge should be active given the snapshot.
// All of the definition's conditions must hold.
func Evaluate(snap *Snapshot, def *catalog.BadgeDefinition) Decision {
	if def.Requires != "" && !snap.Active(def.Requires) {
		return Deactivate
	}

	for _, cond := range def.Conditions {
		if !cond.Holds(snap.Stats) {
			return Deactivate
		}
	}

	if def.Percentile != nil && !percentileHolds(snap, def) {
		return Deactivate
	}

	if def.MinActiveBadges > 0 && otherActiveCount(snap, def.Type) < def.MinActiveBadges {
		return Deactivate
	}

	return Activate
}

// percentileHolds checks the "top P% among peers" condition: the user must
// clear the population floor and their score must reach the score cutoff.
func percentileHolds(snap *Snapshot, def *catalog.BadgeDefinition) bool {
	rule := def.Percentile
	if snap.Stats.TotalTurnsCompleted < rule.MinTurns {
		return false
	}

	cutoff, ok := CutoffScore(snap.PeerScores[def.Type], rule.Percentile)
	if !ok {
		return false
	}
	return snap.Stats.AverageRating >= cutoff
}

// otherActiveCount counts active badges excluding the one under evaluation,
// so a badge cannot satisfy its own active-badge-count requirement.
func otherActiveCount(snap *Snapshot, self models.BadgeType) int {
	count := snap.ActiveCount
	if snap.Active(self) {
		count--
	}
	return count
}
