package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var logConfigFlag string
	var logLevelFlag string

	ctx := newCommandContext(&configFlag, &logConfigFlag, &logLevelFlag)

	rootCmd := &cobra.Command{
		Use:           "idiom-matcher",
		Short:         "Rank cross-lingual idiom equivalents from precomputed embeddings",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logConfigFlag, "log-config", "", "Logger configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info", "Log level when no logger configuration is given")

	rootCmd.AddCommand(newAnalyzeCommand(ctx))
	rootCmd.AddCommand(newOverlapCommand())
	rootCmd.AddCommand(newSimilarCommand(ctx))
	rootCmd.AddCommand(newStatsCommand(ctx))

	return rootCmd
}
