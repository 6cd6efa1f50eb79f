// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/grammar-extractor/internal/grammar"
)

// sample derives "abcabcabcd".
func sample() *grammar.Grammar {
	g := grammar.New()
	g.Rules[257] = []grammar.Symbol{'a', 'b'}
	g.Rules[258] = []grammar.Symbol{257, 'c'}
	g.Rules[259] = []grammar.Symbol{258, 258}
	g.Rules[300] = []grammar.Symbol{'q', 'q'} // unreachable
	g.Sequence = []grammar.Symbol{259, 258, 'd'}
	return g
}

func TestExcerpt(t *testing.T) {
	tests := []struct {
		name       string
		start, end int
		wantSeq    []grammar.Symbol
		wantRules  []grammar.Symbol
	}{
		{name: "whole text", start: 0, end: 10, wantSeq: []grammar.Symbol{259, 258, 'd'}, wantRules: []grammar.Symbol{257, 258, 259}},
		{name: "exact symbol", start: 6, end: 9, wantSeq: []grammar.Symbol{258}, wantRules: []grammar.Symbol{257, 258}},
		{name: "inside one symbol", start: 1, end: 5, wantSeq: []grammar.Symbol{'b', 'c', 257}, wantRules: []grammar.Symbol{257}},
		{name: "across symbols", start: 4, end: 10, wantSeq: []grammar.Symbol{'b', 'c', 258, 'd'}, wantRules: []grammar.Symbol{257, 258}},
		{name: "last byte", start: 9, end: 10, wantSeq: []grammar.Symbol{'d'}},
		{name: "empty", start: 3, end: 3, wantSeq: []grammar.Symbol{}},
		{name: "empty at end", start: 10, end: 10, wantSeq: []grammar.Symbol{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ex, err := Excerpt(sample(), tc.start, tc.end)
			require.NoError(t, err)
			assert.Equal(t, tc.wantSeq, ex.Sequence)
			if tc.wantRules == nil {
				assert.Empty(t, ex.Rules)
			} else {
				assert.Equal(t, tc.wantRules, ex.RuleIDs())
			}

			got, err := grammar.Decompress(ex)
			require.NoError(t, err)
			assert.Equal(t, "abcabcabcd"[tc.start:tc.end], string(got))
		})
	}
}

func TestExcerptRangeErrors(t *testing.T) {
	tests := []struct {
		name       string
		start, end int
	}{
		{name: "negative start", start: -1, end: 2},
		{name: "start after end", start: 5, end: 4},
		{name: "end beyond text", start: 0, end: 11},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Excerpt(sample(), tc.start, tc.end)
			assert.ErrorIs(t, err, ErrRange)
		})
	}
}

func TestExcerptInvalidGrammar(t *testing.T) {
	g := sample()
	g.Sequence = append(g.Sequence, 999)
	_, err := Excerpt(g, 0, 1)
	assert.ErrorIs(t, err, grammar.ErrMissingRule)
}

func TestExcerptMatchesSlice(t *testing.T) {
	rng := rand.New(rand.NewPCG(21, 22))
	for iter := 0; iter < 30; iter++ {
		g := grammar.New()
		for i := 0; i < 12; i++ {
			id := grammar.FirstRuleID + grammar.Symbol(i)
			rhs := make([]grammar.Symbol, 1+rng.IntN(3))
			for k := range rhs {
				if i > 0 && rng.IntN(2) == 0 {
					rhs[k] = grammar.FirstRuleID + grammar.Symbol(rng.IntN(i))
				} else {
					rhs[k] = grammar.Symbol('a' + rng.IntN(4))
				}
			}
			g.Rules[id] = rhs
		}
		for k := 0; k < 5; k++ {
			g.Sequence = append(g.Sequence, grammar.FirstRuleID+grammar.Symbol(rng.IntN(12)))
		}

		text, err := grammar.Decompress(g)
		require.NoError(t, err)
		n, err := UncompressedSize(g)
		require.NoError(t, err)
		require.Equal(t, len(text), n)

		for k := 0; k < 10; k++ {
			s := rng.IntN(n + 1)
			e := s + rng.IntN(n-s+1)
			ex, err := Excerpt(g, s, e)
			require.NoError(t, err)
			got, err := grammar.Decompress(ex)
			require.NoError(t, err)
			assert.Equal(t, string(text[s:e]), string(got), "excerpt [%d,%d)", s, e)
		}
	}
}
