package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCutoffScore(t *testing.T) {
	tests := []struct {
		name       string
		scores     []float64
		percentile float64
		want       float64
		ok         bool
	}{
		{"empty population", nil, 0.10, 0, false},
		{"single member", []float64{4.2}, 0.10, 4.2, true},
		{"top 10 of 4 rounds up to rank 1", []float64{5.0, 4.9, 4.0, 3.5}, 0.10, 5.0, true},
		{"tied boundary keeps both holders", []float64{5.0, 5.0, 4.9, 4.0}, 0.10, 5.0, true},
		{"top 10 of 20", []float64{5, 5, 4.9, 4.8, 4.7, 4.6, 4.5, 4.4, 4.3, 4.2, 4.1, 4, 3.9, 3.8, 3.7, 3.6, 3.5, 3.4, 3.3, 3.2}, 0.10, 5, true},
		{"top half of 10", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.50, 6, true},
		{"full population", []float64{3, 1, 2}, 1.0, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CutoffScore(tt.scores, tt.percentile)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestCutoffScoreDoesNotMutateInput(t *testing.T) {
	scores := []float64{1, 3, 2}
	CutoffScore(scores, 0.5)
	assert.Equal(t, []float64{1, 3, 2}, scores)
}
