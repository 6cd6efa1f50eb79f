// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package recompress

import (
	"github.com/pdiddy/grammar-extractor/internal/grammar"
	"github.com/pdiddy/grammar-extractor/internal/metadata"
)

// ReplacePair rewrites every explicit occurrence of ab in the rules and the
// sequence to c, matching greedily left to right so a run a^k becomes
// c^(k/2) followed by a if k is odd. Rules in artificial are left alone. It
// returns the number of replacements made.
func ReplacePair(g *grammar.Grammar, artificial metadata.Artificial, p Pair, c grammar.Symbol) int {
	total := 0
	for id, rhs := range g.Rules {
		if artificial[id] {
			continue
		}
		out, n := replaceIn(rhs, p, c)
		if n > 0 {
			g.Rules[id] = out
			total += n
		}
	}
	out, n := replaceIn(g.Sequence, p, c)
	if n > 0 {
		g.Sequence = out
		total += n
	}
	return total
}

func replaceIn(rhs []grammar.Symbol, p Pair, c grammar.Symbol) ([]grammar.Symbol, int) {
	var (
		out []grammar.Symbol
		n   int
	)
	for i := 0; i < len(rhs); i++ {
		if i+1 < len(rhs) && rhs[i] == p.A && rhs[i+1] == p.B {
			if out == nil {
				out = make([]grammar.Symbol, i, len(rhs)-1)
				copy(out, rhs[:i])
			}
			out = append(out, c)
			n++
			i++
			continue
		}
		if out != nil {
			out = append(out, rhs[i])
		}
	}
	if n == 0 {
		return rhs, 0
	}
	return out, n
}
