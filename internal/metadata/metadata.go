// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metadata computes per-rule facts used by recompression: how often a
// rule occurs in the derivation tree, how long its expansion is, and the
// maximal runs at either end of the expansion. Nothing is ever expanded; each
// rule is summarized from the summaries of its children.
package metadata

import (
	"fmt"

	"github.com/pdiddy/grammar-extractor/internal/grammar"
)

// Block is a maximal run of one letter.
type Block struct {
	Symbol grammar.Symbol
	Run    int64
}

// None is the absent block.
var None = Block{Symbol: grammar.NoSymbol}

func (b Block) String() string {
	if b.Symbol == grammar.NoSymbol {
		return "None"
	}
	return fmt.Sprintf("%s^%d", grammar.FormatSymbol(b.Symbol), b.Run)
}

// RuleMetadata holds the facts about one variable X.
type RuleMetadata struct {
	// Vocc is the number of occurrences of X in the derivation tree.
	Vocc int64

	// Length is |val(X)| with artificial terminals counted as one letter.
	Length int64

	// Leftmost and Rightmost are the maximal first and last runs of val(X).
	Leftmost  Block
	Rightmost Block

	// SingleBlock is set when val(X) is a single run.
	SingleBlock bool
}

// Artificial is a set of variables treated as letters.
type Artificial map[grammar.Symbol]bool

// IsLetter reports whether s is a terminal or an artificial terminal.
func (a Artificial) IsLetter(s grammar.Symbol) bool {
	return grammar.IsTerminal(s) || a[s]
}

// summary is the block-level shape of an expansion.
type summary struct {
	length      int64
	first, last Block
	single      bool
}

func letter(s grammar.Symbol) summary {
	b := Block{Symbol: s, Run: 1}
	return summary{length: 1, first: b, last: b, single: true}
}

func (a summary) concat(b summary) summary {
	if a.length == 0 {
		return b
	}
	if b.length == 0 {
		return a
	}
	out := summary{length: a.length + b.length, first: a.first, last: b.last}
	if a.last.Symbol != b.first.Symbol {
		return out
	}
	switch {
	case a.single && b.single:
		merged := Block{Symbol: a.first.Symbol, Run: a.first.Run + b.first.Run}
		out.first, out.last, out.single = merged, merged, true
	case a.single:
		out.first = Block{Symbol: b.first.Symbol, Run: a.first.Run + b.first.Run}
	case b.single:
		out.last = Block{Symbol: a.last.Symbol, Run: a.last.Run + b.last.Run}
	}
	return out
}

// Vocc returns the derivation-tree occurrence count of every rule. The
// sequence seeds the counts; each rule passes its count to its children with
// multiplicity. Unreachable rules get 0.
func Vocc(g *grammar.Grammar) (map[grammar.Symbol]int64, error) {
	order, err := g.TopoOrder()
	if err != nil {
		return nil, err
	}
	vocc := make(map[grammar.Symbol]int64, len(order))
	for _, id := range order {
		vocc[id] = 0
	}
	for _, s := range g.Sequence {
		if !grammar.IsTerminal(s) {
			vocc[s]++
		}
	}
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		n := vocc[id]
		if n == 0 {
			continue
		}
		for _, c := range g.Rules[id] {
			if !grammar.IsTerminal(c) {
				vocc[c] += n
			}
		}
	}
	return vocc, nil
}

// Compute returns metadata for every rule of g. Rules in artificial are
// letters: length 1 and a single block of themselves.
func Compute(g *grammar.Grammar, artificial Artificial) (map[grammar.Symbol]RuleMetadata, error) {
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("computing metadata: %w", err)
	}
	order, err := g.TopoOrder()
	if err != nil {
		return nil, err
	}
	vocc, err := Vocc(g)
	if err != nil {
		return nil, err
	}

	sums := make(map[grammar.Symbol]summary, len(order))
	symSummary := func(s grammar.Symbol) summary {
		if artificial.IsLetter(s) {
			return letter(s)
		}
		return sums[s]
	}

	meta := make(map[grammar.Symbol]RuleMetadata, len(order))
	for _, id := range order {
		var sum summary
		if artificial[id] {
			sum = letter(id)
		} else {
			for _, s := range g.Rules[id] {
				sum = sum.concat(symSummary(s))
			}
		}
		sums[id] = sum
		meta[id] = RuleMetadata{
			Vocc:        vocc[id],
			Length:      sum.length,
			Leftmost:    sum.first,
			Rightmost:   sum.last,
			SingleBlock: sum.single,
		}
	}
	return meta, nil
}
