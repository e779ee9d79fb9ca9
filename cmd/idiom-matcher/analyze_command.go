package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	im "github.com/kydenul/idiom-matcher"
)

type analyzeFlags struct {
	mode             string
	minThreshold     float64
	idiomWeight      float64
	contextWeight    float64
	noLexicalPenalty bool
	topK             int
	exportLimit      int
	outputDir        string
	sqlitePath       string
	parallelism      int
	tokenizer        string
	jsonOutput       bool
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var flags analyzeFlags

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Match the source idioms against every configured target language",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}
			applyAnalyzeOverrides(cmd, cfg, flags)
			if err := im.Validate(cfg); err != nil {
				return err
			}

			logger := ctx.ensureLogger()

			var store im.ResultStore
			if cfg.Export.SQLitePath != "" {
				sqliteStore, err := im.OpenResultStore(cfg.Export.SQLitePath, logger)
				if err != nil {
					return err
				}
				defer sqliteStore.Close()
				store = sqliteStore
			}

			loader := im.NewCollectionLoader(logger)
			result, err := im.RunBatch(cmd.Context(), cfg, loader, store, logger)
			if err != nil {
				return err
			}

			if flags.jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(result.Summary()); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), renderBatchSummary(result))
			}

			if failed := result.Failed(); len(failed) > 0 {
				return fmt.Errorf("%d of %d language pairs failed", len(failed), len(result.Pairs))
			}
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&flags.mode, "mode", im.ModeDual, "Scoring mode: dual, basic or top_k")
	fs.Float64Var(&flags.minThreshold, "min-threshold", im.DefaultMinThreshold, "Minimum score kept in the match list")
	fs.Float64Var(&flags.idiomWeight, "idiom-weight", im.DefaultIdiomWeight, "Weight of idiom-only similarity")
	fs.Float64Var(&flags.contextWeight, "context-weight", im.DefaultContextWeight, "Weight of idiom+context similarity")
	fs.BoolVar(&flags.noLexicalPenalty, "no-lexical-penalty", false, "Disable the lexical overlap penalty")
	fs.IntVar(&flags.topK, "top-k", im.DefaultTopKPerSource, "Targets kept per source idiom in top_k mode")
	fs.IntVar(&flags.exportLimit, "export-limit", im.DefaultExportLimit, "Maximum records in exported match lists (0 = all)")
	fs.StringVar(&flags.outputDir, "output-dir", im.DefaultOutputDir, "Directory for exported results")
	fs.StringVar(&flags.sqlitePath, "sqlite", "", "Also store results in this SQLite database")
	fs.IntVar(&flags.parallelism, "parallelism", im.DefaultParallelism, "Language pairs analysed concurrently")
	fs.StringVar(&flags.tokenizer, "tokenizer", im.TokenizerWord, "Lexical overlap tokenizer: word or segmented")
	fs.BoolVar(&flags.jsonOutput, "json", false, "Print the summary as JSON")

	return cmd
}

// applyAnalyzeOverrides copies explicitly set flags over the loaded configuration
func applyAnalyzeOverrides(cmd *cobra.Command, cfg *im.Config, flags analyzeFlags) {
	changed := cmd.Flags().Changed

	if changed("mode") {
		cfg.Scoring.Mode = flags.mode
	}
	if changed("min-threshold") {
		cfg.Scoring.MinThreshold = flags.minThreshold
	}
	if changed("idiom-weight") {
		cfg.Scoring.IdiomWeight = flags.idiomWeight
	}
	if changed("context-weight") {
		cfg.Scoring.ContextWeight = flags.contextWeight
	}
	if changed("no-lexical-penalty") {
		cfg.Scoring.LexicalPenalty = !flags.noLexicalPenalty
	}
	if changed("top-k") {
		cfg.Scoring.TopKPerSource = flags.topK
	}
	if changed("export-limit") {
		cfg.Export.Limit = flags.exportLimit
	}
	if changed("output-dir") {
		cfg.Export.OutputDir = flags.outputDir
	}
	if changed("sqlite") {
		cfg.Export.SQLitePath = flags.sqlitePath
	}
	if changed("parallelism") {
		cfg.Parallelism = flags.parallelism
	}
	if changed("tokenizer") {
		cfg.Tokenizer = flags.tokenizer
	}
}

func renderBatchSummary(result *im.BatchResult) string {
	headers := []string{"Language", "Name", "Idioms", "Matches", "Best mean", "Status"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft}

	rows := make([][]string, 0, len(result.Pairs))
	for _, row := range result.Summary() {
		status := "ok"
		if row.Error != "" {
			status = row.Error
		}
		rows = append(rows, []string{
			row.Language,
			row.Name,
			strconv.Itoa(row.TargetCount),
			strconv.Itoa(row.Matches),
			formatScore(row.BestMatchMean),
			status,
		})
	}

	return fmt.Sprintf("Source: %s, mode: %s, duration: %s\n%s",
		result.SourceLanguage, result.Mode, result.Duration.Round(time.Millisecond), renderTable(headers, rows, aligns))
}
