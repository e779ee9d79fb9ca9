package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	im "github.com/kydenul/idiom-matcher"
)

func newSimilarCommand(ctx *commandContext) *cobra.Command {
	var targetLang string
	var k int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "similar <source-idiom>",
		Short: "List the target idioms closest to one source idiom by cosine similarity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}

			spec, err := selectTarget(cfg.Targets, targetLang)
			if err != nil {
				return err
			}

			loader := im.NewCollectionLoader(ctx.ensureLogger())
			source, err := loader.LoadCollection(cfg.Source)
			if err != nil {
				return fmt.Errorf("load source %s: %w", cfg.Source.Language, err)
			}
			target, err := loader.LoadCollection(spec)
			if err != nil {
				return fmt.Errorf("load target %s: %w", spec.Language, err)
			}

			idx := source.Index(args[0])
			if idx < 0 {
				return fmt.Errorf("idiom %q not found in %s collection", args[0], source.Language)
			}

			set, err := im.NearestTargets(im.NewSimilarityCalculator(), source, idx, target, k)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetEscapeHTML(false)
				enc.SetIndent("", "  ")
				return enc.Encode(set.Matches)
			}
			fmt.Fprintln(out, renderNearest(set))
			return nil
		},
	}

	cmd.Flags().StringVar(&targetLang, "target", "", "Target language tag (defaults to the only configured target)")
	cmd.Flags().IntVar(&k, "top-k", im.DefaultTopKPerSource, "Number of target idioms to show (0 = all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the matches as JSON")

	return cmd
}

// selectTarget picks the target spec by language, or the single target when lang is empty
func selectTarget(targets []im.CollectionSpec, lang string) (im.CollectionSpec, error) {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		if len(targets) == 1 {
			return targets[0], nil
		}
		return im.CollectionSpec{}, fmt.Errorf("%w: %d targets configured, pass --target",
			im.ErrInvalidConfiguration, len(targets))
	}

	for _, t := range targets {
		if strings.EqualFold(t.Language, lang) {
			return t, nil
		}
	}
	return im.CollectionSpec{}, fmt.Errorf("%w: no target with language %q", im.ErrInvalidConfiguration, lang)
}

func renderNearest(set im.MatchSet) string {
	if set.Len() == 0 {
		return "No target idioms"
	}

	headers := []string{"Rank", "Target idiom", "Translation", "Similarity"}
	aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignRight}

	rows := make([][]string, 0, set.Len())
	for _, m := range set.Matches {
		rows = append(rows, []string{
			strconv.Itoa(m.Rank),
			m.TargetIdiom,
			m.Translation,
			formatScore(m.Score),
		})
	}

	return renderTable(headers, rows, aligns)
}
