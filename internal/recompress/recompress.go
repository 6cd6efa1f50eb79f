// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package recompress runs RePair directly on a grammar. Each round picks the
// most frequent pair of letters in the derived text, makes every occurrence of
// it explicit by popping letters out of rules, replaces it with a fresh
// symbol, and from then on treats that symbol as a letter.
package recompress

import (
	"context"
	"fmt"

	"github.com/pdiddy/grammar-extractor/internal/grammar"
	"github.com/pdiddy/grammar-extractor/internal/log"
	"github.com/pdiddy/grammar-extractor/internal/metadata"
)

// Round describes one pair replacement.
type Round struct {
	Index     int
	Pair      Pair
	Symbol    grammar.Symbol
	Frequency int64

	// Size is the total right-hand side size after the round.
	Size int
}

// Result is the output of a recompression run.
type Result struct {
	Grammar *grammar.Grammar
	Rounds  []Round

	// Artificial holds the symbols created by the run.
	Artificial metadata.Artificial
}

// Recompressor runs RePair rounds on a grammar.
type Recompressor struct {
	// MaxRounds bounds the number of rounds. Zero means no bound.
	MaxRounds int

	// OnRound, when set, is called after every round.
	OnRound func(Round)
}

// Run recompresses a copy of g until no pair occurs twice, the round budget
// is spent, or ctx is cancelled. g is not modified.
func (r *Recompressor) Run(ctx context.Context, g *grammar.Grammar) (*Result, error) {
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("recompressing: %w", err)
	}
	logger := log.Component(ctx, "recompress")

	work := g.Clone()
	res := &Result{Artificial: make(metadata.Artificial)}
	next := work.MaxID() + 1

	for r.MaxRounds <= 0 || len(res.Rounds) < r.MaxRounds {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("recompressing: %w", err)
		}

		round, ok, err := step(work, res.Artificial, next)
		if err != nil {
			return nil, fmt.Errorf("round %d: %w", len(res.Rounds)+1, err)
		}
		if !ok {
			break
		}
		next++
		round.Index = len(res.Rounds) + 1
		res.Rounds = append(res.Rounds, round)

		logger.Debug().
			Int("round", round.Index).
			Stringer("pair", round.Pair).
			Int64("frequency", round.Frequency).
			Int("symbol", int(round.Symbol)).
			Int("size", round.Size).
			Msg("pair replaced")
		if r.OnRound != nil {
			r.OnRound(round)
		}
	}

	work.Prune()
	res.Grammar = work
	logger.Info().
		Int("rounds", len(res.Rounds)).
		Int("rules", work.RuleCount()).
		Int("size", work.Size()).
		Msg("recompression finished")
	return res, nil
}

// step runs one round on g in place. ok is false when no pair occurs twice.
func step(g *grammar.Grammar, artificial metadata.Artificial, c grammar.Symbol) (Round, bool, error) {
	meta, err := metadata.Compute(g, artificial)
	if err != nil {
		return Round{}, false, err
	}
	p, count, ok := Best(Frequencies(g, meta, artificial))
	if !ok || count < 2 {
		return Round{}, false, nil
	}

	whole := p.A == p.B
	if err := PopInlet(g, artificial, p.B, whole); err != nil {
		return Round{}, false, err
	}
	if err := PopOutlet(g, artificial, p.A, whole); err != nil {
		return Round{}, false, err
	}
	ReplacePair(g, artificial, p, c)

	g.Rules[c] = []grammar.Symbol{p.A, p.B}
	artificial[c] = true
	return Round{Pair: p, Symbol: c, Frequency: count, Size: g.Size()}, true, nil
}

// RecompressN runs at most n rounds. n <= 0 returns an unchanged copy.
func RecompressN(ctx context.Context, g *grammar.Grammar, n int) (*Result, error) {
	if n <= 0 {
		if err := g.Validate(); err != nil {
			return nil, fmt.Errorf("recompressing: %w", err)
		}
		return &Result{Grammar: g.Clone(), Artificial: make(metadata.Artificial)}, nil
	}
	r := &Recompressor{MaxRounds: n}
	return r.Run(ctx, g)
}
