package engine

import (
	"github.com/turnomed/badge-engine/internal/catalog"
	"github.com/turnomed/badge-engine/internal/models"
)

// Progress computes the 0-100 percentage toward a badge. An active badge
// always reports exactly 100. Otherwise each sub-condition contributes an
// independently clamped percentage and the result is their average, so one
// maxed condition never masks a zero on another. Progress is a pure
// function of the snapshot: it is overwritten on every evaluation and never
// sticky.
func Progress(snap *Snapshot, def *catalog.BadgeDefinition) float64 {
	if snap.Active(def.Type) {
		return 100
	}

	var total float64
	var parts int

	for _, cond := range def.Conditions {
		total += conditionProgress(snap.Stats, cond)
		parts++
	}

	if def.Percentile != nil {
		total += percentileProgress(snap, def)
		parts++
	}

	if def.MinActiveBadges > 0 {
		total += clamp(float64(otherActiveCount(snap, def.Type)) / float64(def.MinActiveBadges) * 100)
		parts++
	}

	if def.Requires != "" {
		if snap.Active(def.Requires) {
			total += 100
		}
		parts++
	}

	if parts == 0 {
		return 0
	}
	return clamp(total / float64(parts))
}

// conditionProgress maps one threshold condition to a percentage. Lower
// bounds grow linearly toward the threshold; upper bounds report 100 when
// satisfied and shrink with the overshoot otherwise.
func conditionProgress(stats *models.UserStatistics, cond catalog.Condition) float64 {
	v := cond.Value(stats)

	if cond.Op.LowerBound() {
		if cond.Threshold <= 0 {
			return 100
		}
		return clamp(v / cond.Threshold * 100)
	}

	// Upper bound (e.g. cancellation rate < 0.15).
	if cond.Holds(stats) {
		return 100
	}
	if v <= 0 {
		return 100
	}
	return clamp(cond.Threshold / v * 100)
}

// percentileProgress approaches 100 as the user's score approaches the
// current population cutoff. Without a population (or below the turn
// floor) it reflects how far the user is from entering the population.
func percentileProgress(snap *Snapshot, def *catalog.BadgeDefinition) float64 {
	rule := def.Percentile

	if snap.Stats.TotalTurnsCompleted < rule.MinTurns {
		if rule.MinTurns <= 0 {
			return 0
		}
		// Halve so entering the population never reads as complete.
		return clamp(float64(snap.Stats.TotalTurnsCompleted) / float64(rule.MinTurns) * 50)
	}

	cutoff, ok := CutoffScore(snap.PeerScores[def.Type], rule.Percentile)
	if !ok || cutoff <= 0 {
		return 0
	}
	return clamp(snap.Stats.AverageRating / cutoff * 100)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
