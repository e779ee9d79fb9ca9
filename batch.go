package idiommatcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// PairResult is the outcome of analysing the source collection against one target.
// Err is set when the pair failed; sibling pairs are unaffected.
type PairResult struct {
	Target   CollectionSpec
	Analysis *Analysis
	Exports  []ExportResult
	RunID    string
	Err      error
}

// LanguageSummary is one row of the batch overview
type LanguageSummary struct {
	Language      string  `json:"language"`
	Name          string  `json:"name"`
	TargetCount   int     `json:"target_count"`
	Matches       int     `json:"matches"`
	BestMatchMean float64 `json:"best_match_mean"`
	Error         string  `json:"error,omitempty"`
}

// BatchResult collects every pair of a batch in target order
type BatchResult struct {
	SourceLanguage string
	Mode           string
	Pairs          []PairResult
	Duration       time.Duration
}

// Failed returns the pairs that did not complete
func (br *BatchResult) Failed() []PairResult {
	var failed []PairResult
	for _, p := range br.Pairs {
		if p.Err != nil {
			failed = append(failed, p)
		}
	}
	return failed
}

// Summary returns the per-language overview: the number of matches produced
// (above threshold in dual mode) and the mean best-match score
func (br *BatchResult) Summary() []LanguageSummary {
	out := make([]LanguageSummary, 0, len(br.Pairs))
	for _, p := range br.Pairs {
		row := LanguageSummary{Language: p.Target.Language, Name: p.Target.DisplayName()}
		if p.Err != nil {
			row.Error = p.Err.Error()
		}
		if p.Analysis != nil {
			row.TargetCount = p.Analysis.Report.TargetCount
			row.Matches = p.Analysis.Matches.Len()
			row.BestMatchMean = p.Analysis.Report.BestMatch.Mean
		}
		out = append(out, row)
	}
	return out
}

// BatchRunner analyses one source collection against many targets
type BatchRunner struct {
	cfg      *Config
	loader   CollectionLoader
	analyzer *Analyzer
	exporter *Exporter
	store    ResultStore // optional
	logger   Logger
}

// NewBatchRunner creates a BatchRunner. store may be nil to skip the database.
func NewBatchRunner(cfg *Config, loader CollectionLoader, store ResultStore, logger Logger) (*BatchRunner, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	logger = orDiscard(logger)
	if loader == nil {
		loader = NewCollectionLoader(logger)
	}

	analyzer, err := NewAnalyzerFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &BatchRunner{
		cfg:      cfg,
		loader:   loader,
		analyzer: analyzer,
		exporter: NewExporter(cfg.Export.OutputDir, logger),
		store:    store,
		logger:   logger,
	}, nil
}

// RunBatch loads the configured source and analyses it against every target
func RunBatch(ctx context.Context, cfg *Config, loader CollectionLoader, store ResultStore, logger Logger) (*BatchResult, error) {
	runner, err := NewBatchRunner(cfg, loader, store, logger)
	if err != nil {
		return nil, err
	}
	return runner.Run(ctx)
}

// Analyzer returns the analyzer shared by all pairs
func (br *BatchRunner) Analyzer() *Analyzer {
	return br.analyzer
}

// Run loads the source collection once and analyses it against every target, up to
// Parallelism pairs at a time. Pair failures are recorded in their PairResult.
// The returned error is reserved for source loading and context cancellation.
func (br *BatchRunner) Run(ctx context.Context) (*BatchResult, error) {
	startTime := time.Now()

	source, err := br.loader.LoadCollection(br.cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("load source %s: %w", br.cfg.Source.Language, err)
	}

	result := &BatchResult{
		SourceLanguage: source.Language,
		Mode:           br.cfg.Scoring.Mode,
		Pairs:          make([]PairResult, len(br.cfg.Targets)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(br.cfg.Parallelism)

	for i, spec := range br.cfg.Targets {
		g.Go(func() error {
			result.Pairs[i] = br.runPair(gctx, source, spec)
			return nil
		})
	}
	_ = g.Wait()

	result.Duration = time.Since(startTime)

	failed := len(result.Failed())
	br.logger.Infof("RunBatch completed, source: %s, mode: %s, pairs: %d, failed: %d, duration_ms: %d",
		result.SourceLanguage, result.Mode, len(result.Pairs), failed, result.Duration.Milliseconds())

	if _, err := br.exporter.ExportValue(result.Summary(), "batch_summary"); err != nil {
		br.logger.Errorf("Failed to export batch summary, error: %v", err)
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// runPair loads, analyses, exports and stores one target. A pair failing on an empty
// collection still writes its empty match list.
func (br *BatchRunner) runPair(ctx context.Context, source *Collection, spec CollectionSpec) PairResult {
	pair := PairResult{Target: spec}
	if err := ctx.Err(); err != nil {
		pair.Err = err
		return pair
	}

	target, err := br.loader.LoadCollection(spec)
	if err != nil {
		pair.Err = fmt.Errorf("load target %s: %w", spec.Language, err)
		br.logger.Errorf("Pair failed, target: %s, error: %v", spec.Language, pair.Err)
		return pair
	}

	names := ExportNames(br.cfg.Scoring.Mode, source.Language, target.Language)

	analysis, err := br.analyzer.Analyze(source, target)
	if err != nil {
		pair.Err = err
		if errors.Is(err, ErrEmptyCollection) {
			// The match list of an empty side is empty, not missing.
			empty := MatchSet{Layout: ModeLayout(br.cfg.Scoring.Mode), Matches: []Match{}}
			if exported, exportErr := br.exporter.Export(empty, names.Matches, 0); exportErr == nil {
				pair.Exports = append(pair.Exports, exported)
			} else {
				br.logger.Errorf("Failed to export empty match list, name: %s, error: %v", names.Matches, exportErr)
			}
		}
		return pair
	}
	pair.Analysis = analysis

	for _, out := range []struct {
		name  string
		set   MatchSet
		limit int
	}{
		{names.Matches, analysis.Matches, br.matchesLimit()},
		{names.BestPerTarget, analysis.BestPerTarget, 0},
	} {
		exported, err := br.exporter.Export(out.set, out.name, out.limit)
		if err != nil {
			pair.Err = fmt.Errorf("export %s: %w", out.name, err)
			return pair
		}
		pair.Exports = append(pair.Exports, exported)
	}

	if _, err := br.exporter.ExportValue(analysis.Report, names.Report); err != nil {
		pair.Err = fmt.Errorf("export %s: %w", names.Report, err)
		return pair
	}

	if br.store != nil {
		sets := map[string]MatchSet{
			names.Matches:       analysis.Matches,
			names.BestPerTarget: analysis.BestPerTarget,
		}
		runID, err := br.store.SaveRun(ctx, RunRecord{
			SourceLanguage: source.Language,
			TargetLanguage: target.Language,
			Mode:           analysis.Report.Mode,
			Report:         analysis.Report,
		}, sets)
		if err != nil {
			pair.Err = fmt.Errorf("save run: %w", err)
			return pair
		}
		pair.RunID = runID
	}

	return pair
}

// matchesLimit is the export limit of the main match list; top_k lists are kept whole
func (br *BatchRunner) matchesLimit() int {
	if br.cfg.Scoring.Mode == ModeTopK {
		return 0
	}
	return br.cfg.Export.Limit
}

// OutputNames are the file base names written for one pair
type OutputNames struct {
	Matches       string
	BestPerTarget string // rank-1 per source in top_k mode
	Report        string
}

// ExportNames returns the output file base names for a pair in the given mode
func ExportNames(mode, sourceLang, targetLang string) OutputNames {
	switch mode {
	case ModeBasic:
		return OutputNames{
			Matches:       fmt.Sprintf("%s_%s_similarities", sourceLang, targetLang),
			BestPerTarget: fmt.Sprintf("%s_best_%s_matches", targetLang, sourceLang),
			Report:        fmt.Sprintf("%s_%s_report", sourceLang, targetLang),
		}
	case ModeTopK:
		return OutputNames{
			Matches:       fmt.Sprintf("%s_%s_topk_matches", sourceLang, targetLang),
			BestPerTarget: fmt.Sprintf("%s_%s_topk_best_matches", sourceLang, targetLang),
			Report:        fmt.Sprintf("%s_%s_topk_report", sourceLang, targetLang),
		}
	default:
		return OutputNames{
			Matches:       fmt.Sprintf("improved_%s_matches", targetLang),
			BestPerTarget: fmt.Sprintf("improved_%s_best_matches", targetLang),
			Report:        fmt.Sprintf("improved_%s_report", targetLang),
		}
	}
}

// ModeLayout returns the layout of the main match list produced in mode
func ModeLayout(mode string) Layout {
	switch mode {
	case ModeBasic:
		return LayoutBasic
	case ModeTopK:
		return LayoutTopK
	default:
		return LayoutDual
	}
}
