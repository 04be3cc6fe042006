package engine

import (
	"math"
	"sort"
)

// CutoffScore returns the score a candidate must reach to be in the top
// `percentile` fraction of the population. Scores are ranked descending and
// the cutoff is the score at rank ceil(n x percentile), so every candidate
// tied with the boundary score is included; membership is score-based, not
// rank-based. Returns ok=false for an empty population.
func CutoffScore(scores []float64, percentile float64) (cutoff float64, ok bool) {
	if len(scores) == 0 {
		return 0, false
	}

	ranked := make([]float64, len(scores))
	copy(ranked, scores)
	sort.Sort(sort.Reverse(sort.Float64Slice(ranked)))

	rank := int(math.Ceil(float64(len(ranked)) * percentile))
	if rank < 1 {
		rank = 1
	}
	if rank > len(ranked) {
		rank = len(ranked)
	}

	return ranked[rank-1], true
}
