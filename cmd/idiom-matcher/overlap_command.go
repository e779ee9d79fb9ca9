package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	im "github.com/kydenul/idiom-matcher"
)

func newOverlapCommand() *cobra.Command {
	var tokenizerName string

	cmd := &cobra.Command{
		Use:   "overlap <idiom-a> <idiom-b>",
		Short: "Print the lexical overlap (Jaccard) of two idioms",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokenizer, err := im.NewTokenizer(tokenizerName)
			if err != nil {
				return err
			}
			overlap := im.NewLexicalOverlap(tokenizer).Overlap(args[0], args[1])

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tokens a: [%s]\n", strings.Join(tokenizer.Tokens(args[0]), " "))
			fmt.Fprintf(out, "tokens b: [%s]\n", strings.Join(tokenizer.Tokens(args[1]), " "))
			fmt.Fprintf(out, "overlap: %s\n", formatScore(overlap))
			return nil
		},
	}

	cmd.Flags().StringVar(&tokenizerName, "tokenizer", im.TokenizerWord, "Tokenizer: word or segmented")

	return cmd
}
