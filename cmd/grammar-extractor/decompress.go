// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/grammar-extractor/internal/rpcodec"
)

var decompressCmd = &cobra.Command{
	Use:   "decompress <grammar> [out]",
	Short: "Expand a grammar back into its text",
	Long: `Decompress accepts a .rp container or a readable grammar and writes the
text it derives. The default output is output.txt in the work directory.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDecompress,
}

func init() {
	rootCmd.AddCommand(decompressCmd)
}

func runDecompress(cmd *cobra.Command, args []string) error {
	g, err := rpcodec.Load(args[0])
	if err != nil {
		return err
	}
	out := outputPath(optionalArg(args, 1), "output.txt")
	n, err := writeText(out, g)
	if err != nil {
		return err
	}
	fmt.Printf("Decompressed %s -> %s (%d bytes)\n", args[0], out, n)
	return nil
}
