// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/grammar-extractor/internal/baseline"
	"github.com/pdiddy/grammar-extractor/internal/grammar"
	"github.com/pdiddy/grammar-extractor/internal/metadata"
	"github.com/pdiddy/grammar-extractor/internal/rpcodec"
	"github.com/pdiddy/grammar-extractor/pkg/types"
)

var statsCmd = &cobra.Command{
	Use:   "stats <grammar>",
	Short: "Print grammar sizes and compression ratios",
	Long: `Stats reports the text length, rule count, sequence length, right-hand
side size (plain and run-length encoded), derivation height, and the ratio
of grammar size to text length. --baseline also decompresses the text and
measures it under xz and brotli for comparison.`,
	Args: cobra.ExactArgs(1),
	RunE: runStats,
}

func init() {
	statsCmd.Flags().Bool("baseline", false, "compare with xz and brotli")
	statsCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(statsCmd)
}

type statsReport struct {
	Path     string               `json:"path"`
	Stats    types.GrammarStats   `json:"stats"`
	Baseline *types.BaselineSizes `json:"baseline,omitempty"`
}

func runStats(cmd *cobra.Command, args []string) error {
	g, err := rpcodec.Load(args[0])
	if err != nil {
		return err
	}
	st, err := metadata.Summarize(g)
	if err != nil {
		return err
	}
	report := statsReport{Path: args[0], Stats: st}

	if withBaseline, _ := cmd.Flags().GetBool("baseline"); withBaseline {
		text, err := grammar.Decompress(g)
		if err != nil {
			return err
		}
		sizes, err := baseline.Measure(text)
		if err != nil {
			return err
		}
		report.Baseline = &sizes
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Printf("Grammar:         %s\n", report.Path)
	fmt.Printf("Text length:     %d\n", st.TextLen)
	fmt.Printf("Rules:           %d\n", st.RuleCount)
	fmt.Printf("Sequence length: %d\n", st.SeqLen)
	fmt.Printf("RHS size:        %d (run-length %d)\n", st.RHSSize, st.RLESize)
	fmt.Printf("Height:          %d\n", st.Height)
	fmt.Printf("Ratio:           %.4f\n", st.Ratio)
	if b := report.Baseline; b != nil {
		fmt.Printf("\n%-8s  %12s  %8s\n", "Method", "Bytes", "Ratio")
		fmt.Printf("%-8s  %12d  %8s\n", "raw", b.Raw, "1.0000")
		fmt.Printf("%-8s  %12d  %8.4f\n", "xz", b.XZ, ratio(b.XZ, b.Raw))
		fmt.Printf("%-8s  %12d  %8.4f\n", "brotli", b.Brotli, ratio(b.Brotli, b.Raw))
	}
	return nil
}

func ratio(n, of int64) float64 {
	if of == 0 {
		return 0
	}
	return float64(n) / float64(of)
}
