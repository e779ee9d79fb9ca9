package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	im "github.com/kydenul/idiom-matcher"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var dbPath string
	var runID string
	var setName string
	var limit int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stored runs, or the matches of one run",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := strings.TrimSpace(dbPath)
			if path == "" {
				cfg, err := ctx.loadConfig()
				if err != nil {
					return err
				}
				path = cfg.Export.SQLitePath
			}
			if path == "" {
				return errors.New("no results database: pass --db or set export.sqlite_path")
			}

			store, err := im.OpenResultStore(path, nil)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if runID == "" {
				runs, err := store.Runs(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderRuns(runs))
				return nil
			}

			if setName == "" {
				return errors.New("--set is required with --run")
			}
			set, err := store.Matches(cmd.Context(), runID, setName)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, renderMatches(set.Truncate(limit)))
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Results database path (defaults to export.sqlite_path)")
	cmd.Flags().StringVar(&runID, "run", "", "Run ID whose matches to show")
	cmd.Flags().StringVar(&setName, "set", "", "Match set name, e.g. improved_fr_matches")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum matches to show (0 = all)")

	return cmd
}

func renderRuns(runs []im.RunRecord) string {
	if len(runs) == 0 {
		return "No runs stored"
	}

	headers := []string{"Run", "Created", "Source", "Target", "Mode", "Pairs mean", "Best mean", "Best median"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.ID,
			run.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			run.SourceLanguage,
			run.TargetLanguage,
			run.Mode,
			formatScore(run.Report.AllPairs.Mean),
			formatScore(run.Report.BestMatch.Mean),
			formatScore(run.Report.BestMatch.Median),
		})
	}

	return renderTable(headers, rows, aligns)
}

func renderMatches(set im.MatchSet) string {
	if set.Len() == 0 {
		return "No matches"
	}

	headers := []string{"#", "Source idiom", "Target idiom", "Translation", "Score", "Idiom", "Context", "Overlap"}
	aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight}

	rows := make([][]string, 0, set.Len())
	for i, m := range set.Matches {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			m.SourceIdiom,
			m.TargetIdiom,
			m.Translation,
			formatScore(m.Score),
			formatScore(m.IdiomSimilarity),
			formatScore(m.ContextSimilarity),
			formatScore(m.LexicalOverlap),
		})
	}

	return renderTable(headers, rows, aligns)
}
