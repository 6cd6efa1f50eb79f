// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract cuts the grammar of a text excerpt out of a grammar without
// decompressing the text.
package extract

import (
	"errors"
	"fmt"

	"github.com/pdiddy/grammar-extractor/internal/grammar"
)

// ErrRange is returned for an excerpt range outside the text.
var ErrRange = errors.New("invalid excerpt range")

// UncompressedSize returns the length of the text g derives.
func UncompressedSize(g *grammar.Grammar) (int, error) {
	return g.TextLen()
}

// span is a piece of work: cover [lo, hi) of the expansion of sym.
type span struct {
	sym    grammar.Symbol
	lo, hi int
}

// Excerpt returns a grammar deriving text[start:end]. Symbols lying wholly
// inside the range are reused as they are; symbols cut by a range boundary
// are split into the fewest whole sub-symbols. Only rules reachable from the
// new sequence are copied.
func Excerpt(g *grammar.Grammar, start, end int) (*grammar.Grammar, error) {
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("extracting: %w", err)
	}
	lengths, err := g.Lengths()
	if err != nil {
		return nil, fmt.Errorf("extracting: %w", err)
	}
	total := 0
	for _, s := range g.Sequence {
		total += grammar.SymbolLen(lengths, s)
	}

	switch {
	case start < 0:
		return nil, fmt.Errorf("%w: start %d is negative", ErrRange, start)
	case start > end:
		return nil, fmt.Errorf("%w: start %d is after end %d", ErrRange, start, end)
	case end > total:
		return nil, fmt.Errorf("%w: end %d is beyond text length %d", ErrRange, end, total)
	}

	out := grammar.New()
	out.Sequence = []grammar.Symbol{}
	if start == end {
		return out, nil
	}

	// The sequence is split like a rule body; spans go on the stack in
	// reverse so they come off left to right.
	var stack []span
	pushChildren := func(children []grammar.Symbol, lo, hi int) {
		first := len(stack)
		off := 0
		for _, c := range children {
			n := grammar.SymbolLen(lengths, c)
			if off >= hi {
				break
			}
			if off+n > lo {
				stack = append(stack, span{sym: c, lo: max(lo, off) - off, hi: min(hi, off+n) - off})
			}
			off += n
		}
		for i, j := first, len(stack)-1; i < j; i, j = i+1, j-1 {
			stack[i], stack[j] = stack[j], stack[i]
		}
	}

	pushChildren(g.Sequence, start, end)
	for len(stack) > 0 {
		sp := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if sp.lo == 0 && sp.hi == grammar.SymbolLen(lengths, sp.sym) {
			out.Sequence = append(out.Sequence, sp.sym)
			continue
		}
		pushChildren(g.Rules[sp.sym], sp.lo, sp.hi)
	}

	copyClosure(g, out)
	return out, nil
}

// copyClosure copies into dst every rule of src reachable from dst's sequence.
func copyClosure(src, dst *grammar.Grammar) {
	var stack []grammar.Symbol
	visit := func(s grammar.Symbol) {
		if grammar.IsTerminal(s) {
			return
		}
		if _, ok := dst.Rules[s]; ok {
			return
		}
		dst.Rules[s] = append([]grammar.Symbol(nil), src.Rules[s]...)
		stack = append(stack, s)
	}
	for _, s := range dst.Sequence {
		visit(s)
	}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, c := range src.Rules[s] {
			visit(c)
		}
	}
}
