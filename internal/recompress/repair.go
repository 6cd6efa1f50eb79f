// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package recompress

import (
	"container/heap"
	"context"
	"fmt"
	"sort"

	"github.com/pdiddy/grammar-extractor/internal/grammar"
	"github.com/pdiddy/grammar-extractor/internal/log"
	"github.com/pdiddy/grammar-extractor/internal/metadata"
)

// Compress builds a RePair grammar for text. It makes the same choices as
// running the Recompressor on a grammar whose sequence is the text, but keeps
// an index of pair positions so each round only touches the occurrences it
// replaces. The result is binary and can be written as .rp.
func (r *Recompressor) Compress(ctx context.Context, text []byte) (*Result, error) {
	logger := log.Component(ctx, "repair")
	st := newRepairState(text)
	res := &Result{Artificial: make(metadata.Artificial)}
	c := grammar.FirstRuleID
	rules := make(map[grammar.Symbol][]grammar.Symbol)

	for r.MaxRounds <= 0 || len(res.Rounds) < r.MaxRounds {
		if len(res.Rounds)%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("compressing: %w", err)
			}
		}

		p, positions, ok := st.nextPair()
		if !ok {
			break
		}
		st.replace(p, positions, int32(c))
		rules[c] = []grammar.Symbol{p.A, p.B}
		res.Artificial[c] = true

		round := Round{
			Index:     len(res.Rounds) + 1,
			Pair:      p,
			Symbol:    c,
			Frequency: int64(len(positions)),
			Size:      2 * len(rules),
		}
		res.Rounds = append(res.Rounds, round)
		if r.OnRound != nil {
			r.OnRound(round)
		}
		c++
	}

	g := &grammar.Grammar{Rules: rules, Sequence: st.sequence()}
	res.Grammar = g
	logger.Info().
		Int("text_len", len(text)).
		Int("rules", len(rules)).
		Int("seq_len", len(g.Sequence)).
		Msg("compression finished")
	return res, nil
}

// Compress builds a RePair grammar for text with no round bound.
func Compress(ctx context.Context, text []byte) (*grammar.Grammar, error) {
	res, err := (&Recompressor{}).Compress(ctx, text)
	if err != nil {
		return nil, err
	}
	return res.Grammar, nil
}

// pairRec tracks the occurrences of one pair. count is the number of
// adjacent positions holding the pair, overlaps in runs included; positions
// may hold stale entries that are filtered when the pair is chosen.
type pairRec struct {
	count     int
	version   int
	positions []int32
}

type heapEntry struct {
	pair     Pair
	priority int
	version  int
}

// pairHeap orders by priority, then by pair.
type pairHeap []heapEntry

func (h pairHeap) Len() int { return len(h) }
func (h pairHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].pair.less(h[j].pair)
}
func (h pairHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *pairHeap) Push(x any)   { *h = append(*h, x.(heapEntry)) }
func (h *pairHeap) Pop() any {
	old := *h
	e := old[len(old)-1]
	*h = old[:len(old)-1]
	return e
}

// repairState is the text as a doubly linked list of live positions plus the
// pair index.
type repairState struct {
	seq        []int32
	prev, next []int32
	live       []bool
	head       int32
	recs       map[Pair]*pairRec
	queue      pairHeap

	// clock stamps record versions so queue entries of a deleted record
	// never match a later one for the same pair.
	clock int
}

func newRepairState(text []byte) *repairState {
	n := len(text)
	st := &repairState{
		seq:  make([]int32, n),
		prev: make([]int32, n),
		next: make([]int32, n),
		live: make([]bool, n),
		recs: make(map[Pair]*pairRec),
	}
	for i, b := range text {
		st.seq[i] = int32(b)
		st.prev[i] = int32(i - 1)
		st.next[i] = int32(i + 1)
		st.live[i] = true
	}
	if n > 0 {
		st.next[n-1] = -1
	} else {
		st.head = -1
	}
	for i := 0; i+1 < n; i++ {
		st.add(Pair{grammar.Symbol(text[i]), grammar.Symbol(text[i+1])}, int32(i))
	}
	return st
}

func (st *repairState) add(p Pair, pos int32) {
	rec := st.recs[p]
	if rec == nil {
		rec = &pairRec{}
		st.recs[p] = rec
	}
	rec.count++
	st.clock++
	rec.version = st.clock
	rec.positions = append(rec.positions, pos)
	if rec.count >= 2 {
		heap.Push(&st.queue, heapEntry{pair: p, priority: rec.count, version: rec.version})
	}
}

func (st *repairState) remove(p Pair) {
	rec := st.recs[p]
	if rec == nil {
		return
	}
	rec.count--
	st.clock++
	rec.version = st.clock
	if rec.count <= 0 {
		delete(st.recs, p)
		return
	}
	if rec.count >= 2 {
		heap.Push(&st.queue, heapEntry{pair: p, priority: rec.count, version: rec.version})
	}
}

func (st *repairState) pairAt(pos int32) (Pair, bool) {
	if pos < 0 || !st.live[pos] || st.next[pos] < 0 {
		return Pair{}, false
	}
	return Pair{grammar.Symbol(st.seq[pos]), grammar.Symbol(st.seq[st.next[pos]])}, true
}

// nextPair pops the most frequent pair with at least two non-overlapping
// occurrences and returns those occurrences in text order.
func (st *repairState) nextPair() (Pair, []int32, bool) {
	for st.queue.Len() > 0 {
		e := heap.Pop(&st.queue).(heapEntry)
		rec := st.recs[e.pair]
		if rec == nil || rec.version != e.version {
			continue
		}

		positions := st.collect(e.pair, rec)
		if len(positions) == e.priority {
			return e.pair, positions, true
		}
		// Overlapping runs made the count optimistic; requeue at the exact
		// value unless the pair no longer repeats.
		if len(positions) >= 2 {
			heap.Push(&st.queue, heapEntry{pair: e.pair, priority: len(positions), version: rec.version})
		}
	}
	return Pair{}, nil, false
}

// collect returns the valid, non-overlapping occurrences of p, scanning left
// to right. Stale positions are dropped from rec.
func (st *repairState) collect(p Pair, rec *pairRec) []int32 {
	sort.Slice(rec.positions, func(i, j int) bool { return rec.positions[i] < rec.positions[j] })

	valid := rec.positions[:0]
	last := int32(-1)
	for _, pos := range rec.positions {
		if pos == last {
			continue
		}
		last = pos
		if q, ok := st.pairAt(pos); ok && q == p {
			valid = append(valid, pos)
		}
	}
	rec.positions = valid

	out := make([]int32, 0, len(valid))
	for _, pos := range valid {
		if p.A == p.B && len(out) > 0 && st.next[out[len(out)-1]] == pos {
			continue
		}
		out = append(out, pos)
	}
	return out
}

// replace rewrites each occurrence of p at positions to c, keeping the pair
// index current for the neighbours.
func (st *repairState) replace(p Pair, positions []int32, c int32) {
	for _, i := range positions {
		j := st.next[i]
		before, after := st.prev[i], st.next[j]

		if before >= 0 {
			st.remove(Pair{grammar.Symbol(st.seq[before]), p.A})
		}
		if after >= 0 {
			st.remove(Pair{p.B, grammar.Symbol(st.seq[after])})
		}

		st.seq[i] = c
		st.live[j] = false
		st.next[i] = after
		if after >= 0 {
			st.prev[after] = i
		}

		if before >= 0 {
			st.add(Pair{grammar.Symbol(st.seq[before]), grammar.Symbol(c)}, before)
		}
		if after >= 0 {
			st.add(Pair{grammar.Symbol(c), grammar.Symbol(st.seq[after])}, i)
		}
	}
	delete(st.recs, p)
}

func (st *repairState) sequence() []grammar.Symbol {
	out := make([]grammar.Symbol, 0)
	for i := st.head; i >= 0; i = st.next[i] {
		out = append(out, grammar.Symbol(st.seq[i]))
	}
	return out
}
