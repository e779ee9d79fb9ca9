package idiommatcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// fixedOverlap returns the same overlap for every pair
type fixedOverlap float64

func (f fixedOverlap) Overlap(string, string) float64 { return float64(f) }

func TestScorerWeightedScore(t *testing.T) {
	scorer := NewScorer(DefaultScoringConfig(), nil)

	// No shared words: 0.6*0.9 + 0.4*0.8
	assert.InDelta(t, 0.86, scorer.Score(0.9, 0.8, "A", "X"), 1e-12)
}

func TestScorerLexicalPenalty(t *testing.T) {
	scorer := NewScorer(DefaultScoringConfig(), nil)

	// base 0.75, overlap 0.5 -> factor 0.75
	score, overlap := scorer.ScoreWithOverlap(0.75, 0.75, "kick the bucket", "kick the can")
	assert.InDelta(t, 0.5, overlap, 1e-12)
	assert.InDelta(t, 0.5625, score, 1e-12)
}

func TestScorerPenaltyFactor(t *testing.T) {
	scorer := NewScorer(DefaultScoringConfig(), nil)

	tests := []struct {
		name     string
		base     float64
		overlap  float64
		expected float64
	}{
		{"overlap at trigger", 0.9, 0.3, 1.0},
		{"score at trigger", 0.6, 0.9, 1.0},
		{"just above both triggers", 0.61, 0.31, 0.845},
		{"full overlap", 0.9, 1.0, 0.5},
		{"low score", 0.5, 1.0, 1.0},
		{"no overlap", 0.99, 0.0, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, scorer.PenaltyFactor(tt.base, tt.overlap), 1e-12)
		})
	}
}

func TestScorerPenaltyDisabled(t *testing.T) {
	cfg := DefaultScoringConfig()
	cfg.LexicalPenalty = false
	scorer := NewScorer(cfg, nil)

	score, overlap := scorer.ScoreWithOverlap(0.75, 0.75, "kick the bucket", "kick the can")
	assert.InDelta(t, 0.75, score, 1e-12)
	assert.InDelta(t, 0.5, overlap, 1e-12, "overlap is reported even without the penalty")
}

func TestScorerMonotonic(t *testing.T) {
	steps := []float64{-1, -0.5, 0, 0.2, 0.4, 0.55, 0.6, 0.65, 0.7, 0.8, 0.9, 1}

	for _, overlap := range []float64{0, 0.2, 0.31, 0.5, 1} {
		scorer := NewScorer(DefaultScoringConfig(), fixedOverlap(overlap))
		for _, contextSim := range steps {
			prevScore := scorer.Score(steps[0], contextSim, "a", "b")
			prevBase := scorer.Base(steps[0], contextSim)
			for _, idiomSim := range steps[1:] {
				score := scorer.Score(idiomSim, contextSim, "a", "b")
				base := scorer.Base(idiomSim, contextSim)
				// Crossing ScoreTrigger switches the penalty on; compare within one regime
				if (prevBase > 0.6) == (base > 0.6) {
					assert.GreaterOrEqual(t, score, prevScore,
						"overlap %.2f context %.2f idiom %.2f", overlap, contextSim, idiomSim)
				}
				prevScore, prevBase = score, base
			}
		}
	}
}

func TestScorerUnnormalizedWeights(t *testing.T) {
	cfg := DefaultScoringConfig()
	cfg.IdiomWeight = 1.0
	cfg.ContextWeight = 1.0
	cfg.LexicalPenalty = false
	scorer := NewScorer(cfg, nil)

	assert.False(t, cfg.WeightsNormalized())
	assert.InDelta(t, 1.8, scorer.Score(0.9, 0.9, "a", "b"), 1e-12, "scores are not clamped")
}

func TestScorerCustomOverlap(t *testing.T) {
	scorer := NewScorer(DefaultScoringConfig(), fixedOverlap(1.0))

	score, overlap := scorer.ScoreWithOverlap(1, 1, "x", "y")
	assert.Equal(t, 1.0, overlap)
	assert.InDelta(t, 0.5, score, 1e-12)
	assert.Equal(t, DefaultIdiomWeight, scorer.Config().IdiomWeight)
}

func TestScorerCombineMatchesScore(t *testing.T) {
	scorer := NewScorer(DefaultScoringConfig(), nil)

	for _, pair := range [][2]string{{"break the ice", "break the ice"}, {"kick the bucket", "casser sa pipe"}} {
		score, overlap := scorer.ScoreWithOverlap(0.9, 0.8, pair[0], pair[1])
		assert.Equal(t, scorer.Overlap(pair[0], pair[1]), overlap)
		assert.Equal(t, score, scorer.Combine(0.9, 0.8, overlap))
	}
}
