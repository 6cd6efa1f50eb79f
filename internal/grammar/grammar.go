// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package grammar models grammar-compressed text: a context-free grammar
// that derives exactly one string (a straight-line program). Symbols below
// AlphabetSize are byte terminals; everything else is a variable with a rule.
package grammar

import (
	"errors"
	"fmt"
	"sort"
)

// Symbol is a terminal (0..255) or a variable (>= 256).
type Symbol int

const (
	// AlphabetSize is the number of byte terminals.
	AlphabetSize = 256

	// FirstRuleID is the first variable ID the binary container assigns.
	// Code 256 is reserved.
	FirstRuleID Symbol = AlphabetSize + 1

	// NoSymbol marks an absent symbol in views such as CompressedRule.
	NoSymbol Symbol = -1
)

var (
	// ErrMissingRule is returned when a variable is referenced without a rule.
	ErrMissingRule = errors.New("missing rule")

	// ErrCycle is returned when the rule graph is not acyclic.
	ErrCycle = errors.New("cyclic rule")

	// ErrEmptyRule is returned for a rule with an empty right-hand side.
	ErrEmptyRule = errors.New("empty rule")
)

// IsTerminal reports whether s is a byte terminal.
func IsTerminal(s Symbol) bool {
	return s < AlphabetSize
}

// Grammar is a set of rules plus the start sequence whose expansion is the
// text.
type Grammar struct {
	Rules    map[Symbol][]Symbol
	Sequence []Symbol
}

// New returns an empty grammar.
func New() *Grammar {
	return &Grammar{Rules: make(map[Symbol][]Symbol)}
}

// Clone returns a deep copy of g.
func (g *Grammar) Clone() *Grammar {
	c := &Grammar{
		Rules:    make(map[Symbol][]Symbol, len(g.Rules)),
		Sequence: append([]Symbol(nil), g.Sequence...),
	}
	for id, rhs := range g.Rules {
		c.Rules[id] = append([]Symbol(nil), rhs...)
	}
	return c
}

// RuleIDs returns the rule IDs in ascending order.
func (g *Grammar) RuleIDs() []Symbol {
	ids := make([]Symbol, 0, len(g.Rules))
	for id := range g.Rules {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// MaxID returns the largest rule ID, or AlphabetSize when there are no rules,
// so MaxID()+1 is always a free variable ID.
func (g *Grammar) MaxID() Symbol {
	highest := Symbol(AlphabetSize)
	for id := range g.Rules {
		if id > highest {
			highest = id
		}
	}
	return highest
}

// RuleCount returns the number of rules.
func (g *Grammar) RuleCount() int {
	return len(g.Rules)
}

// Size returns the total number of right-hand side symbols.
func (g *Grammar) Size() int {
	n := 0
	for _, rhs := range g.Rules {
		n += len(rhs)
	}
	return n
}

// Validate checks that every rule is non-empty, every referenced variable
// has a rule, and the rule graph is acyclic.
func (g *Grammar) Validate() error {
	for _, id := range g.RuleIDs() {
		if IsTerminal(id) {
			return fmt.Errorf("rule id %d is a terminal", id)
		}
		rhs := g.Rules[id]
		if len(rhs) == 0 {
			return fmt.Errorf("%w: R%d", ErrEmptyRule, id)
		}
		for _, s := range rhs {
			if s < 0 {
				return fmt.Errorf("R%d: negative symbol %d", id, s)
			}
		}
	}
	for i, s := range g.Sequence {
		if s < 0 {
			return fmt.Errorf("sequence position %d: negative symbol %d", i, s)
		}
		if IsTerminal(s) {
			continue
		}
		if _, ok := g.Rules[s]; !ok {
			return fmt.Errorf("%w: R%d referenced by the sequence", ErrMissingRule, s)
		}
	}
	_, err := g.TopoOrder()
	return err
}

// TopoOrder returns all rule IDs ordered so that every rule comes after the
// rules it references.
func (g *Grammar) TopoOrder() ([]Symbol, error) {
	const (
		unvisited = iota
		inProgress
		done
	)
	type frame struct {
		sym  Symbol
		next int
	}

	state := make(map[Symbol]uint8, len(g.Rules))
	order := make([]Symbol, 0, len(g.Rules))
	var stack []frame

	for _, root := range g.RuleIDs() {
		if state[root] != unvisited {
			continue
		}
		state[root] = inProgress
		stack = append(stack[:0], frame{sym: root})

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			rhs := g.Rules[top.sym]
			if top.next < len(rhs) {
				child := rhs[top.next]
				top.next++
				if IsTerminal(child) {
					continue
				}
				if _, ok := g.Rules[child]; !ok {
					return nil, fmt.Errorf("%w: R%d referenced by R%d", ErrMissingRule, child, top.sym)
				}
				switch state[child] {
				case inProgress:
					return nil, fmt.Errorf("%w: R%d reaches itself", ErrCycle, child)
				case done:
					continue
				}
				state[child] = inProgress
				stack = append(stack, frame{sym: child})
				continue
			}
			state[top.sym] = done
			order = append(order, top.sym)
			stack = stack[:len(stack)-1]
		}
	}
	return order, nil
}

// Lengths returns the expansion length of every variable.
func (g *Grammar) Lengths() (map[Symbol]int, error) {
	order, err := g.TopoOrder()
	if err != nil {
		return nil, err
	}
	lengths := make(map[Symbol]int, len(order))
	for _, id := range order {
		n := 0
		for _, s := range g.Rules[id] {
			n += SymbolLen(lengths, s)
		}
		lengths[id] = n
	}
	return lengths, nil
}

// SymbolLen returns the expansion length of s given precomputed variable
// lengths. Terminals have length 1.
func SymbolLen(lengths map[Symbol]int, s Symbol) int {
	if IsTerminal(s) {
		return 1
	}
	return lengths[s]
}

// TextLen returns the length of the text the grammar derives.
func (g *Grammar) TextLen() (int, error) {
	lengths, err := g.Lengths()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, s := range g.Sequence {
		if !IsTerminal(s) {
			if _, ok := g.Rules[s]; !ok {
				return 0, fmt.Errorf("%w: R%d referenced by the sequence", ErrMissingRule, s)
			}
		}
		n += SymbolLen(lengths, s)
	}
	return n, nil
}

// Height returns the height of the derivation tree, where a terminal-only
// sequence has height 0.
func (g *Grammar) Height() (int, error) {
	order, err := g.TopoOrder()
	if err != nil {
		return 0, err
	}
	heights := make(map[Symbol]int, len(order))
	for _, id := range order {
		h := 0
		for _, s := range g.Rules[id] {
			if !IsTerminal(s) && heights[s] > h {
				h = heights[s]
			}
		}
		heights[id] = h + 1
	}
	height := 0
	for _, s := range g.Sequence {
		if !IsTerminal(s) && heights[s] > height {
			height = heights[s]
		}
	}
	return height, nil
}

// Reachable returns the set of variables reachable from the sequence.
func (g *Grammar) Reachable() map[Symbol]bool {
	seen := make(map[Symbol]bool)
	var stack []Symbol
	for _, s := range g.Sequence {
		if !IsTerminal(s) && !seen[s] {
			seen[s] = true
			stack = append(stack, s)
		}
	}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, c := range g.Rules[s] {
			if !IsTerminal(c) && !seen[c] {
				seen[c] = true
				stack = append(stack, c)
			}
		}
	}
	return seen
}

// Prune removes rules that are unreachable from the sequence and returns
// how many were removed.
func (g *Grammar) Prune() int {
	live := g.Reachable()
	removed := 0
	for id := range g.Rules {
		if !live[id] {
			delete(g.Rules, id)
			removed++
		}
	}
	return removed
}

// First returns the first terminal of the expansion of s.
func (g *Grammar) First(s Symbol) (Symbol, error) {
	return g.edge(s, func(rhs []Symbol) Symbol { return rhs[0] })
}

// Last returns the last terminal of the expansion of s.
func (g *Grammar) Last(s Symbol) (Symbol, error) {
	return g.edge(s, func(rhs []Symbol) Symbol { return rhs[len(rhs)-1] })
}

func (g *Grammar) edge(s Symbol, pick func([]Symbol) Symbol) (Symbol, error) {
	for steps := 0; !IsTerminal(s); steps++ {
		rhs, ok := g.Rules[s]
		if !ok {
			return NoSymbol, fmt.Errorf("%w: R%d", ErrMissingRule, s)
		}
		if len(rhs) == 0 {
			return NoSymbol, fmt.Errorf("%w: R%d", ErrEmptyRule, s)
		}
		if steps > len(g.Rules) {
			return NoSymbol, fmt.Errorf("%w: R%d", ErrCycle, s)
		}
		s = pick(rhs)
	}
	return s, nil
}
