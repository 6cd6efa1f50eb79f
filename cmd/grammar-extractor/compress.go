// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/grammar-extractor/internal/external"
	"github.com/pdiddy/grammar-extractor/internal/progress"
	"github.com/pdiddy/grammar-extractor/internal/recompress"
	"github.com/pdiddy/grammar-extractor/internal/rpcodec"
)

var compressCmd = &cobra.Command{
	Use:   "compress <file> [out.rp]",
	Short: "Compress a text file into a .rp grammar with RePair",
	Long: `Compress builds a RePair grammar for the file and writes it as a .rp
container, by default next to the input as <file>.rp.

With --external the native encoder binary is run instead of the built-in
compressor. It always writes <file>.rp.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runCompress,
}

func init() {
	compressCmd.Flags().Bool("external", false, "run the native RePair encoder instead of the built-in compressor")
	compressCmd.Flags().Int("rounds", 0, "stop after this many pair replacements (0 = until no pair repeats)")

	rootCmd.AddCommand(compressCmd)
}

func runCompress(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	ctx := cmd.Context()
	input := args[0]

	if useExternal, _ := cmd.Flags().GetBool("external"); useExternal {
		bin := cfg.Roundtrip.ExternalEncoder
		if bin == "" {
			bin = external.DefaultEncoder
		}
		enc := external.NewTool(bin)
		if !enc.Available() {
			return fmt.Errorf("encoder %q not found on PATH", enc.Name())
		}
		out, err := external.Encode(ctx, enc, input)
		if err != nil {
			return err
		}
		fmt.Printf("Compressed %s -> %s (%s)\n", input, out, enc.Name())
		return nil
	}

	text, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("reading %s: %w", input, err)
	}

	rounds := cfg.Recompress.MaxRounds
	if cmd.Flags().Changed("rounds") {
		rounds, _ = cmd.Flags().GetInt("rounds")
	}
	bar := progress.New(-1, "compressing", cfg.Progress)
	r := &recompress.Recompressor{
		MaxRounds: rounds,
		OnRound:   func(recompress.Round) { _ = bar.Add(1) },
	}
	res, err := r.Compress(ctx, text)
	_ = bar.Finish()
	if err != nil {
		return err
	}

	out := input + rpcodec.Ext
	if len(args) > 1 {
		out = args[1]
	}
	h, err := rpcodec.EncodeFile(out, res.Grammar)
	if err != nil {
		return err
	}
	size := int64(0)
	if fi, err := os.Stat(out); err == nil {
		size = fi.Size()
	}

	fmt.Printf("Compressed %s -> %s\n", input, out)
	fmt.Printf("  text length:     %d\n", h.TextLen)
	fmt.Printf("  rules:           %d\n", h.Rules())
	fmt.Printf("  sequence length: %d\n", h.SeqLen)
	fmt.Printf("  .rp size:        %d bytes\n", size)
	return nil
}
