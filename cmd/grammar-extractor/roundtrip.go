// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/grammar-extractor/internal/progress"
	"github.com/pdiddy/grammar-extractor/internal/roundtrip"
)

var roundtripCmd = &cobra.Command{
	Use:   "roundtrip [files...]",
	Short: "Check that files survive compression, encoding, and decompression",
	Long: `Roundtrip compresses each file, writes and reads back the .rp container,
writes and parses the readable grammar, decompresses it, and compares the
result with the input byte for byte.

--random N first generates N random characters into test_input_random.txt
and checks that file too. With roundtrip.external_encoder set, the native
encoder and decoder binaries replace the built-in stages.`,
	RunE: runRoundtrip,
}

func init() {
	roundtripCmd.Flags().Int("random", 0, "generate a random file of this length and check it")
	roundtripCmd.Flags().Uint64("seed", 0, "seed for --random (0 = time based)")
	roundtripCmd.Flags().Int("concurrency", 0, "files checked at once (default from config, else 4)")

	rootCmd.AddCommand(roundtripCmd)
}

func runRoundtrip(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	ctx := cmd.Context()
	paths := append([]string(nil), args...)

	if n, _ := cmd.Flags().GetInt("random"); n > 0 {
		seed, _ := cmd.Flags().GetUint64("seed")
		path := outputPath("", randomInputName)
		if err := generateText(path, n, seed, cfg.Progress); err != nil {
			return err
		}
		paths = append(paths, path)
	}
	if len(paths) == 0 {
		return fmt.Errorf("provide one or more files or --random N")
	}
	if c, _ := cmd.Flags().GetInt("concurrency"); c > 0 {
		cfg.Roundtrip.Concurrency = c
	}

	bar := progress.New(int64(len(paths)), "roundtrip", cfg.Progress)
	runner := &roundtrip.Runner{
		Config: cfg.Roundtrip,
		OnDone: func(roundtrip.Result) { _ = bar.Add(1) },
	}
	result := runner.RunBatch(ctx, paths, os.Stdout)
	if result.HasFailures() {
		return fmt.Errorf("%d of %d file(s) did not roundtrip", result.Failed+result.Errored, result.Total())
	}
	return nil
}
