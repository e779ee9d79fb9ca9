package idiommatcher

// Scorer blends idiom-only and idiom+context similarity into one weighted score and
// damps scores that are driven by shared literal words.
type Scorer struct {
	cfg     ScoringConfig
	overlap OverlapAnalyzer
}

// NewScorer creates a Scorer. A nil analyzer uses the default word-token overlap.
func NewScorer(cfg ScoringConfig, analyzer OverlapAnalyzer) *Scorer {
	if analyzer == nil {
		analyzer = defaultOverlap
	}
	return &Scorer{cfg: cfg, overlap: analyzer}
}

// Config returns the scoring configuration in use
func (s *Scorer) Config() ScoringConfig {
	return s.cfg
}

// Base returns IdiomWeight*idiomSim + ContextWeight*contextSim
func (s *Scorer) Base(idiomSim, contextSim float64) float64 {
	return s.cfg.IdiomWeight*idiomSim + s.cfg.ContextWeight*contextSim
}

// PenaltyFactor returns the multiplier applied to base for the given overlap.
// It is 1 - overlap*MaxPenalty when overlap > OverlapTrigger and base > ScoreTrigger,
// 1.0 otherwise. Both bounds are exclusive.
func (s *Scorer) PenaltyFactor(base, overlap float64) float64 {
	if !s.cfg.LexicalPenalty {
		return 1.0
	}
	if overlap > s.cfg.OverlapTrigger && base > s.cfg.ScoreTrigger {
		return 1 - overlap*s.cfg.MaxPenalty
	}
	return 1.0
}

// Score returns the weighted composite for one idiom pair. The result is not clamped;
// with weights that do not sum to 1 it may leave [0, 1].
func (s *Scorer) Score(idiomSim, contextSim float64, sourceText, targetText string) float64 {
	score, _ := s.ScoreWithOverlap(idiomSim, contextSim, sourceText, targetText)
	return score
}

// ScoreWithOverlap is Score that also returns the lexical overlap of the two texts.
// Overlap is computed even when the penalty is disabled so callers can report it.
func (s *Scorer) ScoreWithOverlap(idiomSim, contextSim float64, sourceText, targetText string) (float64, float64) {
	overlap := s.Overlap(sourceText, targetText)
	return s.Combine(idiomSim, contextSim, overlap), overlap
}

// Overlap returns the lexical overlap of two idiom texts as seen by this scorer
func (s *Scorer) Overlap(sourceText, targetText string) float64 {
	return s.overlap.Overlap(sourceText, targetText)
}

// Combine is Score for an overlap that was already computed
func (s *Scorer) Combine(idiomSim, contextSim, overlap float64) float64 {
	base := s.Base(idiomSim, contextSim)
	return base * s.PenaltyFactor(base, overlap)
}
