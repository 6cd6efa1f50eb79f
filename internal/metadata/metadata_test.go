// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metadata

import (
	"bytes"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/grammar-extractor/internal/grammar"
)

// runs derives "aaabaaab" + "aa":
//
//	R257 -> a a
//	R258 -> R257 a b     (aaab)
//	R259 -> R258 R258    (aaabaaab)
//	SEQ  -> R259 R257
func runs() *grammar.Grammar {
	g := grammar.New()
	g.Rules[257] = []grammar.Symbol{'a', 'a'}
	g.Rules[258] = []grammar.Symbol{257, 'a', 'b'}
	g.Rules[259] = []grammar.Symbol{258, 258}
	g.Sequence = []grammar.Symbol{259, 257}
	return g
}

func TestCompute(t *testing.T) {
	meta, err := Compute(runs(), nil)
	require.NoError(t, err)

	a := grammar.Symbol('a')
	b := grammar.Symbol('b')
	want := map[grammar.Symbol]RuleMetadata{
		257: {Vocc: 3, Length: 2, Leftmost: Block{a, 2}, Rightmost: Block{a, 2}, SingleBlock: true},
		258: {Vocc: 2, Length: 4, Leftmost: Block{a, 3}, Rightmost: Block{b, 1}},
		259: {Vocc: 1, Length: 8, Leftmost: Block{a, 3}, Rightmost: Block{b, 1}},
	}
	assert.Equal(t, want, meta)
}

func TestComputeArtificial(t *testing.T) {
	g := runs()
	meta, err := Compute(g, Artificial{257: true})
	require.NoError(t, err)

	x := grammar.Symbol(257)
	assert.Equal(t, RuleMetadata{Vocc: 3, Length: 1, Leftmost: Block{x, 1}, Rightmost: Block{x, 1}, SingleBlock: true}, meta[257])
	assert.Equal(t, int64(3), meta[258].Length)
	assert.Equal(t, Block{x, 1}, meta[258].Leftmost)
	assert.Equal(t, Block{x, 1}, meta[259].Leftmost)
	assert.Equal(t, int64(6), meta[259].Length)
}

func TestVoccUnreachable(t *testing.T) {
	g := runs()
	g.Rules[400] = []grammar.Symbol{257, 257}
	vocc, err := Vocc(g)
	require.NoError(t, err)
	assert.Equal(t, int64(0), vocc[400])
	assert.Equal(t, int64(3), vocc[257])
}

func TestComputeMatchesExpansion(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for iter := 0; iter < 50; iter++ {
		g := randomGrammar(rng, 8)
		meta, err := Compute(g, nil)
		require.NoError(t, err)

		counts := bruteVocc(g)
		for id, m := range meta {
			text := expand(t, g, id)
			assert.Equal(t, int64(len(text)), m.Length, "R%d length", id)
			first, last, single := bruteBlocks(text)
			assert.Equal(t, first, m.Leftmost, "R%d lambda", id)
			assert.Equal(t, last, m.Rightmost, "R%d rho", id)
			assert.Equal(t, single, m.SingleBlock, "R%d single", id)
			assert.Equal(t, counts[id], m.Vocc, "R%d vocc", id)
		}
	}
}

func TestReport(t *testing.T) {
	meta, err := Compute(runs(), nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Report(&buf, meta))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "R257: vocc=3, length=2, lambda='a'^2, rho='a'^2, singleBlock=true", lines[0])
	assert.Equal(t, "R258: vocc=2, length=4, lambda='a'^3, rho='b'^1, singleBlock=false", lines[1])

	buf.Reset()
	require.NoError(t, Report(&buf, nil))
	assert.Equal(t, "No metadata available.\n", buf.String())
}

func TestRecordsAndExport(t *testing.T) {
	meta, err := Compute(runs(), nil)
	require.NoError(t, err)
	recs := Records(meta)
	require.Len(t, recs, 3)
	assert.Equal(t, 257, recs[0].RuleID)
	assert.Equal(t, "'a'", recs[0].Lambda)
	assert.Equal(t, int64(2), recs[0].LambdaRun)

	var y, j bytes.Buffer
	require.NoError(t, WriteYAML(&y, recs))
	require.NoError(t, WriteJSON(&j, recs))
	assert.Contains(t, y.String(), "rule_id: 258")
	assert.Contains(t, j.String(), `"single_block": true`)
}

func TestSummarize(t *testing.T) {
	st, err := Summarize(runs())
	require.NoError(t, err)
	assert.Equal(t, int64(10), st.TextLen)
	assert.Equal(t, 3, st.RuleCount)
	assert.Equal(t, 2, st.SeqLen)
	assert.Equal(t, 7, st.RHSSize)
	assert.Equal(t, 3, st.Height)
	assert.InDelta(t, 0.9, st.Ratio, 1e-9)

	empty, err := Summarize(grammar.New())
	require.NoError(t, err)
	assert.Zero(t, empty.Ratio)
}

// --- brute-force helpers ---

func randomGrammar(rng *rand.Rand, rules int) *grammar.Grammar {
	g := grammar.New()
	alphabet := []grammar.Symbol{'a', 'b', 'c'}
	for i := 0; i < rules; i++ {
		id := grammar.FirstRuleID + grammar.Symbol(i)
		n := 1 + rng.IntN(4)
		rhs := make([]grammar.Symbol, n)
		for k := range rhs {
			if i > 0 && rng.IntN(2) == 0 {
				rhs[k] = grammar.FirstRuleID + grammar.Symbol(rng.IntN(i))
			} else {
				rhs[k] = alphabet[rng.IntN(len(alphabet))]
			}
		}
		g.Rules[id] = rhs
	}
	for k := 0; k < 4; k++ {
		g.Sequence = append(g.Sequence, grammar.FirstRuleID+grammar.Symbol(rng.IntN(rules)))
	}
	return g
}

func expand(t *testing.T, g *grammar.Grammar, id grammar.Symbol) []byte {
	t.Helper()
	sub := &grammar.Grammar{Rules: g.Rules, Sequence: []grammar.Symbol{id}}
	out, err := grammar.Decompress(sub)
	require.NoError(t, err)
	return out
}

func bruteBlocks(text []byte) (first, last Block, single bool) {
	i := 1
	for i < len(text) && text[i] == text[0] {
		i++
	}
	first = Block{Symbol: grammar.Symbol(text[0]), Run: int64(i)}
	j := len(text) - 2
	for j >= 0 && text[j] == text[len(text)-1] {
		j--
	}
	last = Block{Symbol: grammar.Symbol(text[len(text)-1]), Run: int64(len(text) - 1 - j)}
	return first, last, i == len(text)
}

func bruteVocc(g *grammar.Grammar) map[grammar.Symbol]int64 {
	counts := make(map[grammar.Symbol]int64)
	var walk func(s grammar.Symbol)
	walk = func(s grammar.Symbol) {
		if grammar.IsTerminal(s) {
			return
		}
		counts[s]++
		for _, c := range g.Rules[s] {
			walk(c)
		}
	}
	for _, s := range g.Sequence {
		walk(s)
	}
	return counts
}
