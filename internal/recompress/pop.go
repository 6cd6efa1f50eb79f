// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package recompress

import (
	"github.com/pdiddy/grammar-extractor/internal/grammar"
	"github.com/pdiddy/grammar-extractor/internal/metadata"
)

// side selects which end of a rule letters are popped from.
type side int

const (
	left side = iota
	right
)

// PopInlet moves the letter b out of the left end of every rule whose
// expansion starts with it, so that an occurrence of a pair ab crossing into
// a rule becomes explicit in the parent. With whole set, the entire leading
// run of b is moved, which is how runs aa are uncrossed. Rules left empty are
// removed. The derived text does not change.
func PopInlet(g *grammar.Grammar, artificial metadata.Artificial, b grammar.Symbol, whole bool) error {
	return pop(g, artificial, b, whole, left)
}

// PopOutlet is the mirror of PopInlet for the right end: it moves the letter
// a (or its trailing run) out of every rule whose expansion ends with it.
func PopOutlet(g *grammar.Grammar, artificial metadata.Artificial, a grammar.Symbol, whole bool) error {
	return pop(g, artificial, a, whole, right)
}

func pop(g *grammar.Grammar, artificial metadata.Artificial, letter grammar.Symbol, whole bool, end side) error {
	order, err := g.TopoOrder()
	if err != nil {
		return err
	}

	// popped[X] holds the letters moved out of X; removed marks rules that
	// became empty.
	popped := make(map[grammar.Symbol][]grammar.Symbol)
	removed := make(map[grammar.Symbol]bool)

	substitute := func(rhs []grammar.Symbol) []grammar.Symbol {
		changed := false
		for _, s := range rhs {
			if len(popped[s]) > 0 || removed[s] {
				changed = true
				break
			}
		}
		if !changed {
			return rhs
		}
		out := make([]grammar.Symbol, 0, len(rhs)+2)
		for _, s := range rhs {
			p := popped[s]
			if end == left {
				out = append(out, p...)
			}
			if !removed[s] {
				out = append(out, s)
			}
			if end == right {
				out = append(out, p...)
			}
		}
		return out
	}

	for _, id := range order {
		if artificial[id] {
			continue
		}
		rhs := substitute(g.Rules[id])

		n := 0
		if end == left {
			for n < len(rhs) && rhs[n] == letter && (whole || n == 0) {
				n++
			}
			if n > 0 {
				popped[id] = append([]grammar.Symbol(nil), rhs[:n]...)
				rhs = rhs[n:]
			}
		} else {
			for n < len(rhs) && rhs[len(rhs)-1-n] == letter && (whole || n == 0) {
				n++
			}
			if n > 0 {
				popped[id] = append([]grammar.Symbol(nil), rhs[len(rhs)-n:]...)
				rhs = rhs[:len(rhs)-n]
			}
		}

		if len(rhs) == 0 {
			removed[id] = true
			delete(g.Rules, id)
			continue
		}
		g.Rules[id] = rhs
	}

	g.Sequence = substitute(g.Sequence)
	return nil
}
