// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/grammar-extractor/internal/grammar"
	"github.com/pdiddy/grammar-extractor/internal/rpcodec"
)

var encodeCmd = &cobra.Command{
	Use:   "encode <grammar.txt> [out.rp]",
	Short: "Write a readable grammar as a .rp container",
	Long: `Encode parses a readable grammar, splits rules longer than two symbols
into binary rules, and writes the .rp container. Rules are renumbered in
the order the container defines them. The default output replaces the
input extension with .rp.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runEncode,
}

func init() {
	rootCmd.AddCommand(encodeCmd)
}

func runEncode(cmd *cobra.Command, args []string) error {
	g, err := grammar.ParseFile(args[0])
	if err != nil {
		return err
	}
	if !g.IsBinary() {
		if g, err = g.Binarize(); err != nil {
			return err
		}
	}

	out := optionalArg(args, 1)
	if out == "" {
		out = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + rpcodec.Ext
	}
	h, err := rpcodec.EncodeFile(out, g)
	if err != nil {
		return err
	}
	fmt.Printf("Encoded %s -> %s (text length %d, %d rules, sequence %d)\n",
		args[0], out, h.TextLen, h.Rules(), h.SeqLen)
	return nil
}
