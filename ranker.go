package idiommatcher

import (
	"cmp"
	"fmt"
	"math"
	"slices"
)

// PairSignals are the scores computed for one (source, target) idiom pair
type PairSignals struct {
	Score             float64 // weighted composite (dual) or raw cosine (basic)
	IdiomSimilarity   float64
	ContextSimilarity float64
	LexicalOverlap    float64
}

// Pairing holds the similarity matrices of one source/target comparison and ranks
// idiom pairs from them. Source rows and target columns follow entry order.
type Pairing struct {
	Source *Collection
	Target *Collection

	// IdiomSims compares idiom-only vectors (the single embedding in basic mode)
	IdiomSims *SimilarityMatrix
	// ContextSims compares idiom+context vectors; nil in basic mode
	ContextSims *SimilarityMatrix

	scorer   *Scorer
	overlaps []float64 // row-major lexical overlap of every pair, dual only
}

// NewDualPairing builds both similarity matrices for weighted scoring.
// Non-empty collections without idiom+context vectors return ErrMissingContextVectors.
func NewDualPairing(source, target *Collection, scorer *Scorer) (*Pairing, error) {
	if scorer == nil {
		return nil, fmt.Errorf("%w: nil scorer", ErrInvalidConfiguration)
	}
	for _, c := range []*Collection{source, target} {
		if c.Len() > 0 && !c.HasContextVectors() {
			return nil, fmt.Errorf("%w: %s", ErrMissingContextVectors, c.Language)
		}
	}

	idiomSims, err := BuildSimilarityMatrix(source.IdiomVectors(), target.IdiomVectors())
	if err != nil {
		return nil, fmt.Errorf("idiom-only similarity: %w", err)
	}
	contextSims, err := BuildSimilarityMatrix(source.ContextVectors(), target.ContextVectors())
	if err != nil {
		return nil, fmt.Errorf("idiom+context similarity: %w", err)
	}

	return &Pairing{
		Source:      source,
		Target:      target,
		IdiomSims:   idiomSims,
		ContextSims: contextSims,
		scorer:      scorer,
		overlaps:    pairOverlaps(source, target, scorer),
	}, nil
}

// pairOverlaps tokenizes each pair once; every ranking mode reuses the result
func pairOverlaps(source, target *Collection, scorer *Scorer) []float64 {
	cols := target.Len()
	out := make([]float64, source.Len()*cols)
	for i, s := range source.Entries {
		for j, t := range target.Entries {
			out[i*cols+j] = scorer.Overlap(s.Idiom.SurfaceForm, t.Idiom.SurfaceForm)
		}
	}
	return out
}

// NewBasicPairing builds the single similarity matrix used for raw cosine ranking
func NewBasicPairing(source, target *Collection) (*Pairing, error) {
	sims, err := BuildSimilarityMatrix(source.IdiomVectors(), target.IdiomVectors())
	if err != nil {
		return nil, err
	}

	return &Pairing{Source: source, Target: target, IdiomSims: sims}, nil
}

// Dual reports whether the pairing uses the weighted scorer
func (p *Pairing) Dual() bool {
	return p.scorer != nil && p.ContextSims != nil
}

// Signals computes the scores of source i against target j
func (p *Pairing) Signals(i, j int) PairSignals {
	idiomSim := p.IdiomSims.At(i, j)
	if !p.Dual() {
		return PairSignals{Score: idiomSim, IdiomSimilarity: idiomSim}
	}

	contextSim := p.ContextSims.At(i, j)
	overlap := p.overlaps[i*p.Target.Len()+j]

	return PairSignals{
		Score:             p.scorer.Combine(idiomSim, contextSim, overlap),
		IdiomSimilarity:   idiomSim,
		ContextSimilarity: contextSim,
		LexicalOverlap:    overlap,
	}
}

// RankAboveThreshold enumerates every (source, target) pair, keeps those scoring at
// least threshold, and sorts them by descending score. Equal scores keep enumeration
// order (source index, then target index), so identical inputs give identical output.
// An empty collection on either side yields an empty set.
func (p *Pairing) RankAboveThreshold(threshold float64) MatchSet {
	layout := LayoutBasic
	if p.Dual() {
		layout = LayoutDual
	}

	matches := make([]Match, 0)
	for i := range p.Source.Entries {
		for j := range p.Target.Entries {
			signals := p.Signals(i, j)
			if signals.Score >= threshold {
				matches = append(matches, p.newMatch(i, j, signals))
			}
		}
	}

	sortByScore(matches)

	return MatchSet{Layout: layout, Matches: matches}
}

// RankAllPairs is RankAboveThreshold without a threshold
func (p *Pairing) RankAllPairs() MatchSet {
	return p.RankAboveThreshold(math.Inf(-1))
}

// BestPerTarget returns exactly one match per target idiom: the source idiom with the
// highest score, the first one winning exact ties. No threshold applies. The result
// is sorted by descending score.
// Returns ErrEmptyCollection when either collection is empty.
func (p *Pairing) BestPerTarget() (MatchSet, error) {
	if p.Source.Len() == 0 {
		return MatchSet{}, fmt.Errorf("%w: no source idioms available for %s",
			ErrEmptyCollection, p.Source.Language)
	}
	if p.Target.Len() == 0 {
		return MatchSet{}, fmt.Errorf("%w: no target idioms available for %s",
			ErrEmptyCollection, p.Target.Language)
	}

	layout := LayoutBasicBestPerTarget
	if p.Dual() {
		layout = LayoutDualBestPerTarget
	}

	matches := make([]Match, 0, p.Target.Len())
	for j := range p.Target.Entries {
		bestIdx := 0
		best := p.Signals(0, j)
		for i := 1; i < p.Source.Len(); i++ {
			if signals := p.Signals(i, j); signals.Score > best.Score {
				bestIdx, best = i, signals
			}
		}
		matches = append(matches, p.newMatch(bestIdx, j, best))
	}

	sortByScore(matches)

	return MatchSet{Layout: layout, Matches: matches}, nil
}

// TopKPerSource returns, for every source idiom in order, its k best targets ranked
// 1..k (ties by target index). Matches below threshold are dropped after ranking,
// so ranks may have gaps at the tail; pass math.Inf(-1) to keep all k.
func (p *Pairing) TopKPerSource(k int, threshold float64) MatchSet {
	if k <= 0 || p.Target.Len() == 0 {
		return MatchSet{Layout: LayoutTopK, Matches: []Match{}}
	}
	k = min(k, p.Target.Len())

	matches := make([]Match, 0, p.Source.Len()*k)
	row := make([]Match, 0, p.Target.Len())
	for i := range p.Source.Entries {
		row = row[:0]
		for j := range p.Target.Entries {
			row = append(row, p.newMatch(i, j, p.Signals(i, j)))
		}
		sortByScore(row)

		for rank, m := range row[:k] {
			if m.Score < threshold {
				continue
			}
			m.Rank = rank + 1
			matches = append(matches, m)
		}
	}

	return MatchSet{Layout: LayoutTopK, Matches: matches}
}

// AllScores returns the score of every pair in row-major order
func (p *Pairing) AllScores() []float64 {
	if !p.Dual() {
		return p.IdiomSims.Values()
	}

	out := make([]float64, 0, p.Source.Len()*p.Target.Len())
	for i := range p.Source.Entries {
		for j := range p.Target.Entries {
			out = append(out, p.Signals(i, j).Score)
		}
	}
	return out
}

// newMatch builds the record for source i and target j
func (p *Pairing) newMatch(i, j int, signals PairSignals) Match {
	source := p.Source.Entries[i].Idiom
	target := p.Target.Entries[j].Idiom

	return Match{
		SourceLanguage:    p.Source.Language,
		SourceIdiom:       source.SurfaceForm,
		SourceContext:     source.RepresentativeContext(),
		TargetLanguage:    p.Target.Language,
		TargetIdiom:       target.SurfaceForm,
		TargetContext:     target.RepresentativeContext(),
		Translation:       target.RepresentativeTranslation(),
		Score:             signals.Score,
		IdiomSimilarity:   signals.IdiomSimilarity,
		ContextSimilarity: signals.ContextSimilarity,
		LexicalOverlap:    signals.LexicalOverlap,
		SourceIndex:       i,
		TargetIndex:       j,
	}
}

// sortByScore sorts matches by descending score, keeping input order on ties
func sortByScore(matches []Match) {
	slices.SortStableFunc(matches, func(a, b Match) int {
		return cmp.Compare(b.Score, a.Score)
	})
}
