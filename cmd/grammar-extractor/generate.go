// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/grammar-extractor/internal/progress"
	"github.com/pdiddy/grammar-extractor/internal/roundtrip"
)

const randomInputName = "test_input_random.txt"

var generateCmd = &cobra.Command{
	Use:   "generate <length> [out]",
	Short: "Write a random [a-zA-Z0-9] text",
	Long: `Generate writes length random alphanumeric characters, by default to
test_input_random.txt in the work directory.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().Uint64("seed", 0, "random seed (0 = time based)")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	length, err := strconv.Atoi(args[0])
	if err != nil || length < 0 {
		return fmt.Errorf("invalid length %q", args[0])
	}
	seed, _ := cmd.Flags().GetUint64("seed")
	out := outputPath(optionalArg(args, 1), randomInputName)

	if err := generateText(out, length, seed, loadConfig().Progress); err != nil {
		return err
	}
	fmt.Printf("Generated %d bytes -> %s\n", length, out)
	return nil
}

func generateText(path string, length int, seed uint64, showProgress bool) error {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed>>1|1))

	bar := progress.NewBytes(int64(length), "generating", showProgress)
	err := roundtrip.GenerateFile(path, length, rng, func(n int) { _ = bar.Add(n) })
	_ = bar.Finish()
	return err
}
