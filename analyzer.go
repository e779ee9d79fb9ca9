package idiommatcher

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// QualityMetrics summarises the matches that passed the threshold in dual mode
type QualityMetrics struct {
	Count      int     `json:"count"`
	Weighted   Summary `json:"weighted_similarity"`
	IdiomOnly  Summary `json:"idiom_only_similarity"`
	Context    Summary `json:"context_similarity"`
	Overlap    Summary `json:"lexical_overlap"`
	HighOverlp int     `json:"high_overlap_count"` // matches with overlap above HighOverlapWarning
}

// Report holds the statistics of one source/target analysis
type Report struct {
	SourceLanguage    string        `json:"source_language"`
	TargetLanguage    string        `json:"target_language"`
	TargetName        string        `json:"target_name"`
	Mode              string        `json:"mode"`
	SourceCount       int           `json:"source_count"`
	TargetCount       int           `json:"target_count"`
	Scoring           ScoringConfig `json:"scoring"`
	WeightsNormalized bool          `json:"weights_normalized"`
	DegenerateVectors int           `json:"degenerate_vectors"`

	// AllPairs covers the score of every pair
	AllPairs             Summary  `json:"all_pairs"`
	AllPairsDistribution []Bucket `json:"all_pairs_distribution"`

	// AboveThreshold is filled in dual mode only
	AboveThreshold *QualityMetrics `json:"above_threshold,omitempty"`

	// BestMatch covers best-per-target scores (rank-1 per source in top_k mode)
	BestMatch             Summary  `json:"best_match"`
	BestMatchDistribution []Bucket `json:"best_match_distribution"`

	Duration time.Duration `json:"duration"`
}

// Analysis is the full output of one source/target analysis.
//   - Matches: Mode A (above threshold in dual mode, all pairs in basic mode) or the
//     top-k list in top_k mode; sorted, not truncated
//   - BestPerTarget: Mode B, one record per target idiom (rank-1 per source in top_k mode)
type Analysis struct {
	Report        Report
	Matches       MatchSet
	BestPerTarget MatchSet
}

// AnalyzerStats provides usage statistics across analyses
type AnalyzerStats struct {
	TotalAnalyses  int64         `json:"total_analyses"`
	FailedAnalyses int64         `json:"failed_analyses"`
	AverageLatency time.Duration `json:"average_latency"`
	LastUpdated    time.Time     `json:"last_updated"`
}

// Analyzer runs scoring, ranking and statistics for collection pairs.
// It is safe for concurrent use; each call owns its matrices and results.
type Analyzer struct {
	cfg            ScoringConfig
	scorer         *Scorer
	logger         Logger
	pairThresholds []float64
	bestThresholds []float64

	stats AnalyzerStats
	mtx   sync.Mutex
}

// NewAnalyzer creates an Analyzer with the default word-token overlap and no logging
func NewAnalyzer(cfg ScoringConfig) (*Analyzer, error) {
	return NewAnalyzerWithLogger(cfg, nil, DiscardLogger{})
}

// NewAnalyzerWithLogger creates an Analyzer with a custom overlap analyzer and logger
func NewAnalyzerWithLogger(cfg ScoringConfig, overlap OverlapAnalyzer, logger Logger) (*Analyzer, error) {
	if err := ValidateScoring(cfg); err != nil {
		return nil, err
	}

	logger = orDiscard(logger)
	if !cfg.WeightsNormalized() {
		logger.Warnf("Scoring weights do not sum to 1, idiom_weight: %.4f, context_weight: %.4f, "+
			"scores may fall outside [0, 1]", cfg.IdiomWeight, cfg.ContextWeight)
	}

	return &Analyzer{
		cfg:            cfg,
		scorer:         NewScorer(cfg, overlap),
		logger:         logger,
		pairThresholds: DefaultPairThresholds,
		bestThresholds: DefaultBestMatchThresholds,
		stats:          AnalyzerStats{LastUpdated: time.Now()},
	}, nil
}

// NewAnalyzerFromConfig creates an Analyzer from a full configuration.
// This is the recommended way to initialize an Analyzer.
func NewAnalyzerFromConfig(config *Config, logger Logger) (*Analyzer, error) {
	if config == nil {
		return nil, ErrInvalidConfiguration
	}

	tokenizer, err := NewTokenizer(config.Tokenizer)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown lexical_tokenizer %q", err, config.Tokenizer)
	}

	analyzer, err := NewAnalyzerWithLogger(config.Scoring, NewLexicalOverlap(tokenizer), logger)
	if err != nil {
		return nil, err
	}
	analyzer.pairThresholds = config.PairThresholds
	analyzer.bestThresholds = config.BestMatchThresholds

	analyzer.logger.Infof("Analyzer initialized, mode: %s, idiom_weight: %.2f, context_weight: %.2f, "+
		"min_threshold: %.2f, lexical_penalty: %v, tokenizer: %s",
		config.Scoring.Mode, config.Scoring.IdiomWeight, config.Scoring.ContextWeight,
		config.Scoring.MinThreshold, config.Scoring.LexicalPenalty, config.Tokenizer)

	return analyzer, nil
}

// Scorer returns the weighted scorer used by the analyzer
func (a *Analyzer) Scorer() *Scorer {
	return a.scorer
}

// Analyze runs the analysis selected by the scoring mode
func (a *Analyzer) Analyze(source, target *Collection) (*Analysis, error) {
	switch a.cfg.Mode {
	case ModeBasic:
		return a.AnalyzeBasic(source, target)
	case ModeTopK:
		return a.MatchTopK(source, target)
	default:
		return a.AnalyzeDual(source, target)
	}
}

// AnalyzeDual scores every pair with the weighted model, keeps pairs at or above
// MinThreshold (Mode A), and finds the best source idiom per target (Mode B).
// An empty collection on either side returns ErrEmptyCollection.
func (a *Analyzer) AnalyzeDual(source, target *Collection) (*Analysis, error) {
	startTime := time.Now()
	report := a.newReport(ModeDual, source, target)

	a.logger.Debugf("AnalyzeDual called, source: %s, target: %s, source_count: %d, target_count: %d",
		report.SourceLanguage, report.TargetLanguage, report.SourceCount, report.TargetCount)

	pairing, err := NewDualPairing(source, target, a.scorer)
	if err != nil {
		return nil, a.fail(startTime, report, err)
	}
	a.noteDegenerate(pairing, &report)

	matrixDuration := time.Since(startTime)

	matches := pairing.RankAboveThreshold(a.cfg.MinThreshold)
	best, err := pairing.BestPerTarget()
	if err != nil {
		return nil, a.fail(startTime, report, err)
	}

	all := pairing.AllScores()
	report.AllPairs = Summarize(all)
	report.AllPairsDistribution = Distribution(all, a.pairThresholds)
	report.AboveThreshold = a.qualityMetrics(matches)
	report.BestMatch = Summarize(best.Scores())
	report.BestMatchDistribution = Distribution(best.Scores(), a.bestThresholds)
	report.Duration = time.Since(startTime)

	a.updateStats(report.Duration, false)

	a.logger.Infof("AnalyzeDual completed, source: %s, target: %s, total_duration_ms: %d, "+
		"matrix_duration_ms: %d, pairs: %d, above_threshold: %d, min_threshold: %.2f, "+
		"best_match_mean: %.4f, best_match_median: %.4f",
		report.SourceLanguage, report.TargetLanguage, report.Duration.Milliseconds(),
		matrixDuration.Milliseconds(), report.SourceCount*report.TargetCount, matches.Len(),
		a.cfg.MinThreshold, report.BestMatch.Mean, report.BestMatch.Median)

	if report.AboveThreshold.HighOverlp > 0 {
		a.logger.Warnf("Matches with high lexical overlap may be spurious, target: %s, count: %d, overlap_above: %.2f",
			report.TargetLanguage, report.AboveThreshold.HighOverlp, a.cfg.HighOverlapWarning)
	}

	return &Analysis{Report: report, Matches: matches, BestPerTarget: best}, nil
}

// AnalyzeBasic ranks every pair by raw cosine similarity of the idiom vectors without
// a threshold, and finds the best source idiom per target.
// An empty collection on either side returns ErrEmptyCollection.
func (a *Analyzer) AnalyzeBasic(source, target *Collection) (*Analysis, error) {
	startTime := time.Now()
	report := a.newReport(ModeBasic, source, target)

	pairing, err := NewBasicPairing(source, target)
	if err != nil {
		return nil, a.fail(startTime, report, err)
	}
	a.noteDegenerate(pairing, &report)

	matches := pairing.RankAllPairs()
	best, err := pairing.BestPerTarget()
	if err != nil {
		return nil, a.fail(startTime, report, err)
	}

	all := pairing.IdiomSims.Values()
	report.AllPairs = Summarize(all)
	report.AllPairsDistribution = Distribution(all, a.pairThresholds)
	report.BestMatch = Summarize(best.Scores())
	report.BestMatchDistribution = Distribution(best.Scores(), a.pairThresholds)
	report.Duration = time.Since(startTime)

	a.updateStats(report.Duration, false)

	a.logger.Infof("AnalyzeBasic completed, source: %s, target: %s, total_duration_ms: %d, "+
		"pairs: %d, mean: %.4f, median: %.4f, std: %.4f",
		report.SourceLanguage, report.TargetLanguage, report.Duration.Milliseconds(),
		len(all), report.AllPairs.Mean, report.AllPairs.Median, report.AllPairs.StdDev)

	return &Analysis{Report: report, Matches: matches, BestPerTarget: best}, nil
}

// MatchTopK keeps the TopKPerSource best targets of every source idiom by raw cosine
// similarity, dropping those below a positive MinThreshold. BestPerTarget carries the rank-1
// match of every source idiom, in source order.
func (a *Analyzer) MatchTopK(source, target *Collection) (*Analysis, error) {
	startTime := time.Now()
	report := a.newReport(ModeTopK, source, target)

	pairing, err := NewBasicPairing(source, target)
	if err != nil {
		return nil, a.fail(startTime, report, err)
	}
	a.noteDegenerate(pairing, &report)

	threshold := math.Inf(-1)
	if a.cfg.MinThreshold > 0 {
		threshold = a.cfg.MinThreshold
	}
	matches := pairing.TopKPerSource(a.cfg.TopKPerSource, threshold)
	top := matches.Filter(func(m Match) bool { return m.Rank == 1 })

	all := pairing.IdiomSims.Values()
	report.AllPairs = Summarize(all)
	report.AllPairsDistribution = Distribution(all, a.pairThresholds)
	report.BestMatch = Summarize(top.Scores())
	report.BestMatchDistribution = Distribution(top.Scores(), a.bestThresholds)
	report.Duration = time.Since(startTime)

	a.updateStats(report.Duration, false)

	a.logger.Infof("MatchTopK completed, source: %s, target: %s, total_duration_ms: %d, k: %d, "+
		"matches: %d, top_matches: %d",
		report.SourceLanguage, report.TargetLanguage, report.Duration.Milliseconds(),
		a.cfg.TopKPerSource, matches.Len(), top.Len())

	return &Analysis{Report: report, Matches: matches, BestPerTarget: top}, nil
}

// newReport fills the fields known before scoring
func (a *Analyzer) newReport(mode string, source, target *Collection) Report {
	report := Report{
		Mode:              mode,
		SourceCount:       source.Len(),
		TargetCount:       target.Len(),
		Scoring:           a.cfg,
		WeightsNormalized: a.cfg.WeightsNormalized(),
	}
	if source != nil {
		report.SourceLanguage = source.Language
	}
	if target != nil {
		report.TargetLanguage = target.Language
		report.TargetName = target.Name
	}
	return report
}

// noteDegenerate records and logs zero-norm vectors found while building matrices
func (a *Analyzer) noteDegenerate(p *Pairing, report *Report) {
	report.DegenerateVectors = p.IdiomSims.DegenerateCount()
	if p.ContextSims != nil {
		report.DegenerateVectors += p.ContextSims.DegenerateCount()
	}
	if report.DegenerateVectors > 0 {
		a.logger.Warnf("Zero-norm vectors found, similarity falls back to 0.0, source: %s, target: %s, count: %d",
			report.SourceLanguage, report.TargetLanguage, report.DegenerateVectors)
	}
}

// qualityMetrics summarises the above-threshold matches
func (a *Analyzer) qualityMetrics(matches MatchSet) *QualityMetrics {
	n := matches.Len()
	idiomSims := make([]float64, n)
	contextSims := make([]float64, n)
	overlaps := make([]float64, n)
	high := 0

	for i, m := range matches.Matches {
		idiomSims[i] = m.IdiomSimilarity
		contextSims[i] = m.ContextSimilarity
		overlaps[i] = m.LexicalOverlap
		if m.LexicalOverlap > a.cfg.HighOverlapWarning {
			high++
		}
	}

	return &QualityMetrics{
		Count:      n,
		Weighted:   Summarize(matches.Scores()),
		IdiomOnly:  Summarize(idiomSims),
		Context:    Summarize(contextSims),
		Overlap:    Summarize(overlaps),
		HighOverlp: high,
	}
}

// fail logs a failed analysis, records it, and returns err
func (a *Analyzer) fail(startTime time.Time, report Report, err error) error {
	a.updateStats(time.Since(startTime), true)

	if errors.Is(err, ErrEmptyCollection) {
		a.logger.Warnf("Analysis skipped, source: %s, target: %s, error: %v",
			report.SourceLanguage, report.TargetLanguage, err)
	} else {
		a.logger.Errorf("Analysis failed, source: %s, target: %s, error: %v",
			report.SourceLanguage, report.TargetLanguage, err)
	}

	return fmt.Errorf("analyze %s-%s: %w", report.SourceLanguage, report.TargetLanguage, err)
}

// Stats returns usage statistics
func (a *Analyzer) Stats() AnalyzerStats {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	return a.stats
}

// updateStats updates the internal statistics
func (a *Analyzer) updateStats(latency time.Duration, failed bool) {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	a.stats.TotalAnalyses++
	if failed {
		a.stats.FailedAnalyses++
	}
	a.stats.LastUpdated = time.Now()

	// new_avg = old_avg + (new_value - old_avg) / count
	if a.stats.TotalAnalyses == 1 {
		a.stats.AverageLatency = latency
	} else {
		delta := latency - a.stats.AverageLatency
		a.stats.AverageLatency += delta / time.Duration(a.stats.TotalAnalyses)
	}
}
