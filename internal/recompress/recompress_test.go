// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package recompress

import (
	"bytes"
	"context"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/grammar-extractor/internal/grammar"
	"github.com/pdiddy/grammar-extractor/internal/metadata"
)

// --- helpers ---

func randomGrammar(rng *rand.Rand, rules int, alphabet string) *grammar.Grammar {
	g := grammar.New()
	for i := 0; i < rules; i++ {
		id := grammar.FirstRuleID + grammar.Symbol(i)
		rhs := make([]grammar.Symbol, 1+rng.IntN(4))
		for k := range rhs {
			if i > 0 && rng.IntN(3) == 0 {
				rhs[k] = grammar.FirstRuleID + grammar.Symbol(rng.IntN(i))
			} else {
				rhs[k] = grammar.Symbol(alphabet[rng.IntN(len(alphabet))])
			}
		}
		g.Rules[id] = rhs
	}
	for k := 0; k < 3+rng.IntN(4); k++ {
		if rng.IntN(4) == 0 {
			g.Sequence = append(g.Sequence, grammar.Symbol(alphabet[rng.IntN(len(alphabet))]))
			continue
		}
		g.Sequence = append(g.Sequence, grammar.FirstRuleID+grammar.Symbol(rng.IntN(rules)))
	}
	return g
}

// letters expands g down to letters, stopping at artificial symbols.
func letters(g *grammar.Grammar, artificial metadata.Artificial) []grammar.Symbol {
	var out []grammar.Symbol
	var walk func(s grammar.Symbol)
	walk = func(s grammar.Symbol) {
		if artificial.IsLetter(s) {
			out = append(out, s)
			return
		}
		for _, c := range g.Rules[s] {
			walk(c)
		}
	}
	for _, s := range g.Sequence {
		walk(s)
	}
	return out
}

func bruteFrequencies(text []grammar.Symbol) map[Pair]int64 {
	freq := make(map[Pair]int64)
	for i := 0; i+1 < len(text); i++ {
		if text[i] != text[i+1] {
			freq[Pair{text[i], text[i+1]}]++
		}
	}
	for i := 0; i < len(text); {
		j := i
		for j < len(text) && text[j] == text[i] {
			j++
		}
		if k := int64(j - i); k >= 2 {
			freq[Pair{text[i], text[i]}] += k / 2
		}
		i = j
	}
	return freq
}

func decompress(t *testing.T, g *grammar.Grammar) []byte {
	t.Helper()
	out, err := grammar.Decompress(g)
	require.NoError(t, err)
	return out
}

// --- tests ---

func TestFrequenciesMatchExpansion(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for iter := 0; iter < 100; iter++ {
		g := randomGrammar(rng, 10, "ab")
		meta, err := metadata.Compute(g, nil)
		require.NoError(t, err)

		got := Frequencies(g, meta, nil)
		want := bruteFrequencies(letters(g, nil))
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("iteration %d: frequencies mismatch (-want +got):\n%s", iter, diff)
		}
	}
}

func TestFrequenciesRuns(t *testing.T) {
	// R257 -> a a a, SEQ -> R257 R257 b: the text aaaaaab holds one run a^6.
	g := grammar.New()
	g.Rules[257] = []grammar.Symbol{'a', 'a', 'a'}
	g.Sequence = []grammar.Symbol{257, 257, 'b'}
	meta, err := metadata.Compute(g, nil)
	require.NoError(t, err)

	freq := Frequencies(g, meta, nil)
	assert.Equal(t, map[Pair]int64{{'a', 'a'}: 3, {'a', 'b'}: 1}, freq)
}

func TestBest(t *testing.T) {
	freq := map[Pair]int64{{'b', 'a'}: 3, {'a', 'c'}: 3, {'a', 'b'}: 3, {'z', 'z'}: 1}
	p, n, ok := Best(freq)
	require.True(t, ok)
	assert.Equal(t, Pair{'a', 'b'}, p)
	assert.Equal(t, int64(3), n)

	_, _, ok = Best(nil)
	assert.False(t, ok)

	assert.Equal(t, []Pair{{'a', 'b'}, {'a', 'c'}, {'b', 'a'}, {'z', 'z'}}, SortedPairs(freq))
}

func TestReplacePair(t *testing.T) {
	tests := []struct {
		name string
		in   []grammar.Symbol
		pair Pair
		want []grammar.Symbol
		n    int
	}{
		{name: "distinct letters", in: []grammar.Symbol{'a', 'b', 'c', 'a', 'b'}, pair: Pair{'a', 'b'}, want: []grammar.Symbol{300, 'c', 300}, n: 2},
		{name: "even run", in: []grammar.Symbol{'a', 'a', 'a', 'a'}, pair: Pair{'a', 'a'}, want: []grammar.Symbol{300, 300}, n: 2},
		{name: "odd run", in: []grammar.Symbol{'x', 'a', 'a', 'a'}, pair: Pair{'a', 'a'}, want: []grammar.Symbol{'x', 300, 'a'}, n: 1},
		{name: "no match", in: []grammar.Symbol{'b', 'a'}, pair: Pair{'a', 'b'}, want: []grammar.Symbol{'b', 'a'}, n: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := grammar.New()
			g.Sequence = append([]grammar.Symbol(nil), tc.in...)
			assert.Equal(t, tc.n, ReplacePair(g, nil, tc.pair, 300))
			assert.Equal(t, tc.want, g.Sequence)
		})
	}
}

func TestReplacePairSkipsArtificial(t *testing.T) {
	g := grammar.New()
	g.Rules[300] = []grammar.Symbol{'a', 'b'}
	g.Sequence = []grammar.Symbol{'a', 'b', 300}
	ReplacePair(g, metadata.Artificial{300: true}, Pair{'a', 'b'}, 301)
	assert.Equal(t, []grammar.Symbol{'a', 'b'}, g.Rules[300])
	assert.Equal(t, []grammar.Symbol{301, 300}, g.Sequence)
}

func TestPopMakesPairsExplicit(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	for iter := 0; iter < 100; iter++ {
		g := randomGrammar(rng, 8, "abc")
		want := decompress(t, g)
		p := Pair{'a', 'b'}
		if iter%2 == 1 {
			p = Pair{'a', 'a'}
		}
		whole := p.A == p.B

		meta, err := metadata.Compute(g, nil)
		require.NoError(t, err)
		before := Frequencies(g, meta, nil)[p]

		require.NoError(t, PopInlet(g, nil, p.B, whole))
		require.NoError(t, PopOutlet(g, nil, p.A, whole))
		require.NoError(t, g.Validate())
		assert.Equal(t, want, decompress(t, g), "iteration %d: text changed", iter)

		c := g.MaxID() + 1
		n := ReplacePair(g, nil, p, c)
		g.Rules[c] = []grammar.Symbol{p.A, p.B}
		assert.Equal(t, want, decompress(t, g), "iteration %d: replacement changed text", iter)

		// Every occurrence is now explicit: the replaced count, weighted
		// by occurrences, equals the frequency before.
		meta, err = metadata.Compute(g, metadata.Artificial{c: true})
		require.NoError(t, err)
		assert.Zero(t, Frequencies(g, meta, metadata.Artificial{c: true})[p], "iteration %d: pair left behind", iter)
		if before > 0 {
			assert.Positive(t, n)
		}
	}
}

func TestPopRemovesEmptiedRules(t *testing.T) {
	g := grammar.New()
	g.Rules[257] = []grammar.Symbol{'b'}
	g.Rules[258] = []grammar.Symbol{'a', 257, 'c'}
	g.Sequence = []grammar.Symbol{258, 257}

	require.NoError(t, PopInlet(g, nil, 'b', false))
	assert.NotContains(t, g.Rules, grammar.Symbol(257))
	assert.Equal(t, []grammar.Symbol{'a', 'b', 'c'}, g.Rules[258])
	assert.Equal(t, []grammar.Symbol{258, 'b'}, g.Sequence)
}

func TestRunPreservesText(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	for iter := 0; iter < 40; iter++ {
		g := randomGrammar(rng, 10, "abc")
		orig := g.Clone()
		want := decompress(t, g)

		var seen []Round
		r := &Recompressor{OnRound: func(rd Round) { seen = append(seen, rd) }}
		res, err := r.Run(context.Background(), g)
		require.NoError(t, err)

		assert.Equal(t, want, decompress(t, res.Grammar), "iteration %d", iter)
		assert.Equal(t, orig, g, "input must not change")
		assert.Equal(t, res.Rounds, seen)

		// Fully recompressed: no pair of letters repeats.
		for p, n := range bruteFrequencies(letters(res.Grammar, res.Artificial)) {
			assert.Less(t, n, int64(2), "iteration %d: %s occurs %d times", iter, p, n)
		}
	}
}

func TestRunRoundBudget(t *testing.T) {
	g := grammar.New()
	g.Sequence = []grammar.Symbol{'a', 'b', 'a', 'b', 'c', 'd', 'c', 'd', 'c', 'd'}

	res, err := RecompressN(context.Background(), g, 1)
	require.NoError(t, err)
	require.Len(t, res.Rounds, 1)
	assert.Equal(t, Pair{'c', 'd'}, res.Rounds[0].Pair)
	assert.Equal(t, int64(3), res.Rounds[0].Frequency)
	assert.Equal(t, grammar.Symbol(257), res.Rounds[0].Symbol)

	res, err = RecompressN(context.Background(), g, 0)
	require.NoError(t, err)
	assert.Empty(t, res.Rounds)
	assert.Equal(t, g, res.Grammar)
}

func TestRunNoRepeatedPair(t *testing.T) {
	g := grammar.New()
	g.Sequence = []grammar.Symbol{'a', 'b', 'c'}
	res, err := (&Recompressor{}).Run(context.Background(), g)
	require.NoError(t, err)
	assert.Empty(t, res.Rounds)
	assert.Equal(t, g, res.Grammar)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := grammar.New()
	g.Sequence = []grammar.Symbol{'a', 'a', 'a', 'a'}
	_, err := (&Recompressor{}).Run(ctx, g)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompress(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "empty", text: ""},
		{name: "single byte", text: "x"},
		{name: "uniform run", text: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"},
		{name: "periodic", text: "abcabcabcabcabcabc"},
		{name: "mixed", text: "abracadabra abracadabra abracadabra"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g, err := Compress(context.Background(), []byte(tc.text))
			require.NoError(t, err)
			assert.True(t, g.IsBinary())
			assert.Equal(t, tc.text, string(decompress(t, g)))
		})
	}
}

func TestCompressMatchesGrammarRecompression(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 10))
	for iter := 0; iter < 30; iter++ {
		text := make([]byte, 50+rng.IntN(300))
		for i := range text {
			text[i] = "aab c"[rng.IntN(5)]
		}

		indexed, err := (&Recompressor{}).Compress(context.Background(), text)
		require.NoError(t, err)

		g := grammar.New()
		for _, b := range text {
			g.Sequence = append(g.Sequence, grammar.Symbol(b))
		}
		rounds, err := (&Recompressor{}).Run(context.Background(), g)
		require.NoError(t, err)

		if diff := cmp.Diff(rounds.Grammar, indexed.Grammar); diff != "" {
			t.Fatalf("iteration %d: grammars differ (-rounds +indexed):\n%s", iter, diff)
		}
		assert.Equal(t, len(rounds.Rounds), len(indexed.Rounds))
	}
}

func TestCompressLargeText(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 12))
	text := make([]byte, 200_000)
	const pool = "abcdefghijklmnopqrstuvwxyz0123456789"
	for i := range text {
		text[i] = pool[rng.IntN(len(pool))]
	}
	g, err := Compress(context.Background(), text)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(text, decompress(t, g)))
}

func TestRepairStateNextPair(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		want      Pair
		positions []int32
		ok        bool
	}{
		{name: "most frequent", text: "ababxab", want: Pair{'a', 'b'}, positions: []int32{0, 2, 5}, ok: true},
		{name: "overlapping run", text: "aaaa", want: Pair{'a', 'a'}, positions: []int32{0, 2}, ok: true},
		{name: "no repeats", text: "abc"},
		{name: "empty", text: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := newRepairState([]byte(tc.text))
			p, positions, ok := st.nextPair()
			require.Equal(t, tc.ok, ok)
			if !tc.ok {
				return
			}
			assert.Equal(t, tc.want, p)
			assert.Equal(t, tc.positions, positions)

			st.replace(p, positions, int32(grammar.FirstRuleID))
			assert.Len(t, st.sequence(), len(tc.text)-len(positions))
		})
	}
}
