// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metadata

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/grammar-extractor/internal/grammar"
	"github.com/pdiddy/grammar-extractor/pkg/types"
)

// Report writes one line per rule in ascending ID order.
func Report(w io.Writer, meta map[grammar.Symbol]RuleMetadata) error {
	if len(meta) == 0 {
		_, err := fmt.Fprintln(w, "No metadata available.")
		return err
	}
	for _, id := range sortedIDs(meta) {
		m := meta[id]
		if _, err := fmt.Fprintf(w, "R%d: vocc=%d, length=%d, lambda=%s, rho=%s, singleBlock=%t\n",
			id, m.Vocc, m.Length, m.Leftmost, m.Rightmost, m.SingleBlock); err != nil {
			return err
		}
	}
	return nil
}

// Records converts metadata into export records sorted by rule ID.
func Records(meta map[grammar.Symbol]RuleMetadata) []types.RuleRecord {
	ids := sortedIDs(meta)
	out := make([]types.RuleRecord, len(ids))
	for i, id := range ids {
		m := meta[id]
		out[i] = types.RuleRecord{
			RuleID:      int(id),
			Vocc:        m.Vocc,
			Length:      m.Length,
			Lambda:      grammar.FormatSymbol(m.Leftmost.Symbol),
			LambdaRun:   m.Leftmost.Run,
			Rho:         grammar.FormatSymbol(m.Rightmost.Symbol),
			RhoRun:      m.Rightmost.Run,
			SingleBlock: m.SingleBlock,
		}
	}
	return out
}

// WriteYAML writes records as a YAML list.
func WriteYAML(w io.Writer, records []types.RuleRecord) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}

// WriteJSON writes records as an indented JSON array.
func WriteJSON(w io.Writer, records []types.RuleRecord) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return nil
}

// Summarize measures g.
func Summarize(g *grammar.Grammar) (types.GrammarStats, error) {
	textLen, err := g.TextLen()
	if err != nil {
		return types.GrammarStats{}, err
	}
	height, err := g.Height()
	if err != nil {
		return types.GrammarStats{}, err
	}
	st := types.GrammarStats{
		TextLen:   int64(textLen),
		RuleCount: g.RuleCount(),
		SeqLen:    len(g.Sequence),
		RHSSize:   g.Size(),
		RLESize:   g.CompressedSize(),
		Height:    height,
	}
	if textLen > 0 {
		st.Ratio = float64(st.RHSSize+st.SeqLen) / float64(textLen)
	}
	return st, nil
}

func sortedIDs(meta map[grammar.Symbol]RuleMetadata) []grammar.Symbol {
	ids := make([]grammar.Symbol, 0, len(meta))
	for id := range meta {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
