package idiommatcher

import (
	"fmt"
	"math"
)

// similarityCalculator implements the SimilarityCalculator interface
type similarityCalculator struct{}

// NewSimilarityCalculator creates a new SimilarityCalculator instance
func NewSimilarityCalculator() SimilarityCalculator {
	return &similarityCalculator{}
}

// CosineSimilarity computes cosine similarity between two vectors.
// Returns a value between -1 and 1, where 1 means identical direction.
// Empty, nil, mismatched, zero-norm or non-finite inputs return 0.0, the
// degenerate-vector fallback shared with BuildSimilarityMatrix.
func (*similarityCalculator) CosineSimilarity(v1, v2 []float32) float64 {
	if len(v1) == 0 || len(v1) != len(v2) {
		return 0.0
	}

	return cosineWithNorm(v1, v2, l2Norm(v1))
}

// BatchSimilarity computes similarities between one query vector and multiple candidate vectors.
// Returns empty slice for invalid query, and 0.0 for invalid candidates.
func (*similarityCalculator) BatchSimilarity(query []float32, candidates [][]float32) []float64 {
	if len(query) == 0 || len(candidates) == 0 {
		return []float64{}
	}

	results := make([]float64, len(candidates))

	// Query norm is shared by every comparison
	queryNorm := l2Norm(query)
	if degenerateNorm(queryNorm) {
		return results
	}

	for idx, candidate := range candidates {
		if len(candidate) != len(query) {
			continue
		}
		results[idx] = cosineWithNorm(query, candidate, queryNorm)
	}

	return results
}

// NearestTargets ranks every target idiom against the idiom vector of source entry i
// and returns the k best (all when k <= 0) as top_k records ranked from 1. Ties keep
// target order. Targets whose vector cannot be compared score 0.0.
func NearestTargets(calc SimilarityCalculator, source *Collection, i int, target *Collection, k int) (MatchSet, error) {
	if calc == nil {
		calc = NewSimilarityCalculator()
	}
	if i < 0 || i >= source.Len() {
		return MatchSet{}, fmt.Errorf("%w: source index %d out of range [0, %d)", ErrInputShape, i, source.Len())
	}

	query := source.Entries[i]
	scores := calc.BatchSimilarity(query.IdiomVector, target.IdiomVectors())

	pairing := &Pairing{Source: source, Target: target}
	matches := make([]Match, 0, len(scores))
	for j, score := range scores {
		matches = append(matches, pairing.newMatch(i, j, PairSignals{Score: score, IdiomSimilarity: score}))
	}
	sortByScore(matches)

	set := MatchSet{Layout: LayoutTopK, Matches: matches}.Truncate(k)
	for rank := range set.Matches {
		set.Matches[rank].Rank = rank + 1
	}
	return set, nil
}

// cosineWithNorm computes cos(θ) = (a · b) / (||a|| * ||b||) given ||a||.
// len(a) == len(b) is the caller's responsibility.
func cosineWithNorm(a, b []float32, normA float64) float64 {
	if degenerateNorm(normA) {
		return 0.0
	}

	var dot, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normB += float64(b[i]) * float64(b[i])
	}
	normB = math.Sqrt(normB)
	if degenerateNorm(normB) {
		return 0.0
	}

	return clampUnit(dot / (normA * normB))
}

// l2Norm returns the Euclidean length of v
func l2Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// clampUnit clamps s into [-1, 1] to absorb floating point drift
func clampUnit(s float64) float64 {
	if s > 1.0 {
		return 1.0
	}
	if s < -1.0 {
		return -1.0
	}
	return s
}
