// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/grammar-extractor/internal/metadata"
	"github.com/pdiddy/grammar-extractor/internal/rpcodec"
)

var metadataCmd = &cobra.Command{
	Use:   "metadata <grammar>",
	Short: "Print per-rule occurrence counts, lengths, and edge blocks",
	Long: `Metadata computes, for every rule, how often it occurs in the derivation
(vocc), its expansion length, its leftmost and rightmost blocks of equal
letters, and whether it expands to a single block.`,
	Args: cobra.ExactArgs(1),
	RunE: runMetadata,
}

func init() {
	metadataCmd.Flags().String("format", "table", "output format: table, yaml, or json")

	rootCmd.AddCommand(metadataCmd)
}

func runMetadata(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	g, err := rpcodec.Load(args[0])
	if err != nil {
		return err
	}
	meta, err := metadata.Compute(g, nil)
	if err != nil {
		return err
	}

	switch format {
	case "table", "":
		return metadata.Report(os.Stdout, meta)
	case "yaml":
		return metadata.WriteYAML(os.Stdout, metadata.Records(meta))
	case "json":
		return metadata.WriteJSON(os.Stdout, metadata.Records(meta))
	default:
		return fmt.Errorf("unsupported format %q: use table, yaml, or json", format)
	}
}
