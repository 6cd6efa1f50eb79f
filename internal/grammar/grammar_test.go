// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package grammar

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sample derives "abcabcabcd":
//
//	R257 -> a b
//	R258 -> R257 c      (abc)
//	R259 -> R258 R258   (abcabc)
//	SEQ  -> R259 R258 d
func sample() *Grammar {
	g := New()
	g.Rules[257] = []Symbol{'a', 'b'}
	g.Rules[258] = []Symbol{257, 'c'}
	g.Rules[259] = []Symbol{258, 258}
	g.Sequence = []Symbol{259, 258, 'd'}
	return g
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		build   func() *Grammar
		wantErr error
	}{
		{name: "valid", build: sample},
		{
			name: "missing rule in rhs",
			build: func() *Grammar {
				g := sample()
				g.Rules[258] = []Symbol{300, 'c'}
				return g
			},
			wantErr: ErrMissingRule,
		},
		{
			name: "missing rule in sequence",
			build: func() *Grammar {
				g := sample()
				g.Sequence = append(g.Sequence, 999)
				return g
			},
			wantErr: ErrMissingRule,
		},
		{
			name: "cycle",
			build: func() *Grammar {
				g := sample()
				g.Rules[257] = []Symbol{'a', 259}
				return g
			},
			wantErr: ErrCycle,
		},
		{
			name: "self reference",
			build: func() *Grammar {
				g := New()
				g.Rules[300] = []Symbol{300}
				g.Sequence = []Symbol{300}
				return g
			},
			wantErr: ErrCycle,
		},
		{
			name: "empty rule",
			build: func() *Grammar {
				g := sample()
				g.Rules[260] = nil
				return g
			},
			wantErr: ErrEmptyRule,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.build().Validate()
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tc.wantErr), "got %v, want %v", err, tc.wantErr)
		})
	}
}

func TestTopoOrder(t *testing.T) {
	g := sample()
	order, err := g.TopoOrder()
	require.NoError(t, err)
	require.Len(t, order, 3)

	pos := make(map[Symbol]int)
	for i, id := range order {
		pos[id] = i
	}
	for id, rhs := range g.Rules {
		for _, s := range rhs {
			if !IsTerminal(s) {
				assert.Less(t, pos[s], pos[id], "R%d must precede R%d", s, id)
			}
		}
	}
}

func TestLengthsAndTextLen(t *testing.T) {
	g := sample()
	lengths, err := g.Lengths()
	require.NoError(t, err)
	assert.Equal(t, map[Symbol]int{257: 2, 258: 3, 259: 6}, lengths)

	n, err := g.TextLen()
	require.NoError(t, err)
	assert.Equal(t, 10, n)
}

func TestHeight(t *testing.T) {
	h, err := sample().Height()
	require.NoError(t, err)
	assert.Equal(t, 3, h)

	flat := New()
	flat.Sequence = []Symbol{'x', 'y'}
	h, err = flat.Height()
	require.NoError(t, err)
	assert.Equal(t, 0, h)
}

func TestSizeCountsAndMaxID(t *testing.T) {
	g := sample()
	assert.Equal(t, 6, g.Size())
	assert.Equal(t, 3, g.RuleCount())
	assert.Equal(t, Symbol(259), g.MaxID())
	assert.Equal(t, []Symbol{257, 258, 259}, g.RuleIDs())
	assert.Equal(t, Symbol(AlphabetSize), New().MaxID())
}

func TestPrune(t *testing.T) {
	g := sample()
	g.Rules[400] = []Symbol{'z', 'z'}
	g.Rules[401] = []Symbol{400, 'q'}

	assert.Equal(t, 2, g.Prune())
	assert.NotContains(t, g.Rules, Symbol(400))
	assert.NotContains(t, g.Rules, Symbol(401))
	assert.Len(t, g.Rules, 3)
}

func TestClone(t *testing.T) {
	g := sample()
	c := g.Clone()
	c.Rules[257][0] = 'z'
	c.Sequence[0] = 'z'

	assert.Equal(t, Symbol('a'), g.Rules[257][0])
	assert.Equal(t, Symbol(259), g.Sequence[0])
}

func TestFirstLast(t *testing.T) {
	g := sample()

	first, err := g.First(259)
	require.NoError(t, err)
	assert.Equal(t, Symbol('a'), first)

	last, err := g.Last(259)
	require.NoError(t, err)
	assert.Equal(t, Symbol('c'), last)

	term, err := g.First('q')
	require.NoError(t, err)
	assert.Equal(t, Symbol('q'), term)

	_, err = g.Last(999)
	assert.ErrorIs(t, err, ErrMissingRule)
}
