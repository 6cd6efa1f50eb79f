// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/grammar-extractor/internal/extract"
	"github.com/pdiddy/grammar-extractor/internal/grammar"
	"github.com/pdiddy/grammar-extractor/internal/rpcodec"
)

var extractCmd = &cobra.Command{
	Use:   "extract <grammar> --from N --to M",
	Short: "Cut the grammar of a text excerpt out of a grammar",
	Long: `Extract builds a grammar deriving text[from:to] directly from the input
grammar, reusing every rule that lies wholly inside the range. It writes the
excerpt grammar to extracted_grammar.txt and its text to excerpt_output.txt
in the work directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().Int("from", 0, "start offset (inclusive)")
	extractCmd.Flags().Int("to", -1, "end offset (exclusive, -1 = end of text)")
	extractCmd.Flags().String("grammar-out", "", "excerpt grammar path (default extracted_grammar.txt)")
	extractCmd.Flags().String("text-out", "", "excerpt text path (default excerpt_output.txt)")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	g, err := rpcodec.Load(args[0])
	if err != nil {
		return err
	}
	size, err := extract.UncompressedSize(g)
	if err != nil {
		return err
	}

	from, _ := cmd.Flags().GetInt("from")
	to, _ := cmd.Flags().GetInt("to")
	if to < 0 {
		to = size
	}

	excerpt, err := extract.Excerpt(g, from, to)
	if err != nil {
		return err
	}

	grammarOut, _ := cmd.Flags().GetString("grammar-out")
	grammarOut = outputPath(grammarOut, "extracted_grammar.txt")
	if err := grammar.WriteFile(grammarOut, excerpt); err != nil {
		return err
	}
	textOut, _ := cmd.Flags().GetString("text-out")
	textOut = outputPath(textOut, "excerpt_output.txt")
	n, err := writeText(textOut, excerpt)
	if err != nil {
		return err
	}

	fmt.Printf("Uncompressed size: %d\n", size)
	fmt.Printf("Excerpt [%d, %d): %d rules, sequence %d\n", from, to, excerpt.RuleCount(), len(excerpt.Sequence))
	fmt.Printf("  grammar: %s\n", grammarOut)
	fmt.Printf("  text:    %s (%d bytes)\n", textOut, n)
	return nil
}
