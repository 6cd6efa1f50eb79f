// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/grammar-extractor/internal/grammar"
	"github.com/pdiddy/grammar-extractor/internal/rpcodec"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <file.rp> [out]",
	Short: "Translate a .rp container into the readable grammar format",
	Long: `Decode reads a binary .rp grammar and writes it as R<id>:... lines
followed by a SEQ: line. The default output is input_translated.txt in the
work directory.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}

func runDecode(cmd *cobra.Command, args []string) error {
	g, h, err := rpcodec.DecodeFile(args[0])
	if err != nil {
		return err
	}
	out := outputPath(optionalArg(args, 1), "input_translated.txt")
	if err := grammar.WriteFile(out, g); err != nil {
		return err
	}
	fmt.Printf("Decoded %s -> %s (text length %d, %d rules, sequence %d)\n",
		args[0], out, h.TextLen, g.RuleCount(), len(g.Sequence))
	return nil
}
