// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/grammar-extractor/internal/grammar"
	"github.com/pdiddy/grammar-extractor/internal/progress"
	"github.com/pdiddy/grammar-extractor/internal/recompress"
	"github.com/pdiddy/grammar-extractor/internal/rpcodec"
)

var recompressCmd = &cobra.Command{
	Use:   "recompress <grammar>",
	Short: "Run RePair rounds directly on a grammar",
	Long: `Recompress replaces the most frequent pair of letters in the derived text
with a new symbol, round after round, working on the grammar without
decompressing it. It stops when no pair occurs twice or after --rounds
rounds, then checks that the grammar still derives the same text.

With --out the result is written as a readable grammar, or as a .rp
container when the name ends in .rp.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecompress,
}

func init() {
	recompressCmd.Flags().Int("rounds", 0, "maximum number of rounds (0 = until no pair repeats)")
	recompressCmd.Flags().String("out", "", "write the recompressed grammar to this file")

	rootCmd.AddCommand(recompressCmd)
}

func runRecompress(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	ctx := cmd.Context()

	g, err := rpcodec.Load(args[0])
	if err != nil {
		return err
	}
	before, err := grammar.Decompress(g)
	if err != nil {
		return err
	}

	rounds := cfg.Recompress.MaxRounds
	if cmd.Flags().Changed("rounds") {
		rounds, _ = cmd.Flags().GetInt("rounds")
	}
	total := int64(-1)
	if rounds > 0 {
		total = int64(rounds)
	}
	bar := progress.New(total, "recompressing", cfg.Progress)
	r := &recompress.Recompressor{
		MaxRounds: rounds,
		OnRound:   func(recompress.Round) { _ = bar.Add(1) },
	}
	res, err := r.Run(ctx, g)
	_ = bar.Finish()
	if err != nil {
		return err
	}

	after, err := grammar.Decompress(res.Grammar)
	if err != nil {
		return err
	}

	fmt.Printf("Rounds:          %d\n", len(res.Rounds))
	fmt.Printf("Rules:           %d -> %d\n", g.RuleCount(), res.Grammar.RuleCount())
	fmt.Printf("RHS size:        %d -> %d\n", g.Size(), res.Grammar.Size())
	fmt.Printf("Sequence length: %d -> %d\n", len(g.Sequence), len(res.Grammar.Sequence))
	if !bytes.Equal(before, after) {
		return fmt.Errorf("recompressed grammar derives a different text")
	}
	fmt.Println("Text preserved:  yes")

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		return nil
	}
	if err := saveGrammar(out, res.Grammar); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", out)
	return nil
}

// saveGrammar writes g as .rp when path has that extension, otherwise in
// the readable format.
func saveGrammar(path string, g *grammar.Grammar) error {
	if !rpcodec.IsBinaryFile(path) {
		return grammar.WriteFile(path, g)
	}
	if !g.IsBinary() {
		var err error
		if g, err = g.Binarize(); err != nil {
			return err
		}
	}
	_, err := rpcodec.EncodeFile(path, g)
	return err
}
