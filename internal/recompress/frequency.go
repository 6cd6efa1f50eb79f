// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package recompress

import (
	"fmt"
	"sort"

	"github.com/pdiddy/grammar-extractor/internal/grammar"
	"github.com/pdiddy/grammar-extractor/internal/metadata"
)

// Pair is an ordered pair of letters.
type Pair struct {
	A, B grammar.Symbol
}

func (p Pair) String() string {
	return fmt.Sprintf("(%s,%s)", grammar.FormatSymbol(p.A), grammar.FormatSymbol(p.B))
}

// less orders pairs by A, then B.
func (p Pair) less(q Pair) bool {
	if p.A != q.A {
		return p.A < q.A
	}
	return p.B < q.B
}

// scanBlock is one visible run while scanning a right-hand side. A barrier
// stands for the hidden interior of a child variable.
type scanBlock struct {
	sym     grammar.Symbol
	run     int64
	barrier bool
}

// Frequencies counts every pair of letters in the text g derives. Pairs of
// distinct letters count every occurrence; a pair aa counts floor(k/2) for
// each maximal run a^k. The text is never expanded: each rule contributes the
// pairs and runs that cross its children, weighted by its occurrence count,
// and the sequence contributes with weight 1.
func Frequencies(g *grammar.Grammar, meta map[grammar.Symbol]metadata.RuleMetadata, artificial metadata.Artificial) map[Pair]int64 {
	freq := make(map[Pair]int64)
	var scratch []scanBlock

	for id, rhs := range g.Rules {
		if artificial[id] {
			continue
		}
		w := meta[id].Vocc
		if w == 0 {
			continue
		}
		scratch = visibleBlocks(scratch[:0], rhs, meta, artificial)
		countBlocks(freq, scratch, w, false)
	}

	scratch = visibleBlocks(scratch[:0], g.Sequence, meta, artificial)
	countBlocks(freq, scratch, 1, true)
	return freq
}

// visibleBlocks lays out the runs of rhs that are visible from its own rule:
// letters, single-block children, and the outer runs of other children with a
// barrier between them. Adjacent runs of the same letter are merged.
func visibleBlocks(out []scanBlock, rhs []grammar.Symbol, meta map[grammar.Symbol]metadata.RuleMetadata, artificial metadata.Artificial) []scanBlock {
	push := func(b scanBlock) {
		if n := len(out); n > 0 && !b.barrier && !out[n-1].barrier && out[n-1].sym == b.sym {
			out[n-1].run += b.run
			return
		}
		out = append(out, b)
	}

	for _, s := range rhs {
		if artificial.IsLetter(s) {
			push(scanBlock{sym: s, run: 1})
			continue
		}
		m := meta[s]
		if m.SingleBlock {
			push(scanBlock{sym: m.Leftmost.Symbol, run: m.Leftmost.Run})
			continue
		}
		push(scanBlock{sym: m.Leftmost.Symbol, run: m.Leftmost.Run})
		push(scanBlock{barrier: true})
		push(scanBlock{sym: m.Rightmost.Symbol, run: m.Rightmost.Run})
	}
	return out
}

// countBlocks adds the pairs between adjacent runs and the aa pairs inside
// runs. Outside the sequence the first and last runs may continue into the
// parent, so their aa pairs are left to it.
func countBlocks(freq map[Pair]int64, blocks []scanBlock, w int64, root bool) {
	for i, b := range blocks {
		if b.barrier {
			continue
		}
		if i+1 < len(blocks) && !blocks[i+1].barrier {
			freq[Pair{b.sym, blocks[i+1].sym}] += w
		}
		if b.run < 2 {
			continue
		}
		if !root && (i == 0 || i == len(blocks)-1) {
			continue
		}
		freq[Pair{b.sym, b.sym}] += w * (b.run / 2)
	}
}

// Best returns the most frequent pair. Ties go to the smallest A, then the
// smallest B. ok is false when freq is empty.
func Best(freq map[Pair]int64) (best Pair, count int64, ok bool) {
	for p, n := range freq {
		if !ok || n > count || (n == count && p.less(best)) {
			best, count, ok = p, n, true
		}
	}
	return best, count, ok
}

// SortedPairs returns the pairs of freq by descending count, then by pair.
func SortedPairs(freq map[Pair]int64) []Pair {
	pairs := make([]Pair, 0, len(freq))
	for p := range freq {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if freq[pairs[i]] != freq[pairs[j]] {
			return freq[pairs[i]] > freq[pairs[j]]
		}
		return pairs[i].less(pairs[j])
	})
	return pairs
}
