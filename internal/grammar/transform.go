// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package grammar

import (
	"fmt"
	"strings"
)

// Renumber returns a copy of g whose variables are numbered densely from
// first, in the post-order in which a left-to-right traversal of the
// sequence first completes them. This is the numbering the binary container
// produces on decode. Unreachable rules are dropped.
func (g *Grammar) Renumber(first Symbol) (*Grammar, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	type frame struct {
		sym  Symbol
		next int
	}
	mapping := make(map[Symbol]Symbol, len(g.Rules))
	visiting := make(map[Symbol]bool)
	next := first
	var stack []frame

	for _, root := range g.Sequence {
		if IsTerminal(root) {
			continue
		}
		if _, ok := mapping[root]; ok {
			continue
		}
		stack = append(stack[:0], frame{sym: root})
		visiting[root] = true
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			rhs := g.Rules[top.sym]
			if top.next < len(rhs) {
				child := rhs[top.next]
				top.next++
				if IsTerminal(child) || visiting[child] {
					continue
				}
				if _, ok := mapping[child]; ok {
					continue
				}
				visiting[child] = true
				stack = append(stack, frame{sym: child})
				continue
			}
			mapping[top.sym] = next
			next++
			stack = stack[:len(stack)-1]
		}
	}

	out := New()
	for old, id := range mapping {
		rhs := g.Rules[old]
		mapped := make([]Symbol, len(rhs))
		for i, s := range rhs {
			mapped[i] = mapSymbol(mapping, s)
		}
		out.Rules[id] = mapped
	}
	out.Sequence = make([]Symbol, len(g.Sequence))
	for i, s := range g.Sequence {
		out.Sequence[i] = mapSymbol(mapping, s)
	}
	return out, nil
}

func mapSymbol(mapping map[Symbol]Symbol, s Symbol) Symbol {
	if IsTerminal(s) {
		return s
	}
	return mapping[s]
}

// IsBinary reports whether every rule has exactly two symbols.
func (g *Grammar) IsBinary() bool {
	for _, rhs := range g.Rules {
		if len(rhs) != 2 {
			return false
		}
	}
	return true
}

// Binarize returns a copy of g in which every rule has exactly two symbols:
// longer rules become left-deep chains of fresh variables and unit rules are
// inlined into their users.
func (g *Grammar) Binarize() (*Grammar, error) {
	order, err := g.TopoOrder()
	if err != nil {
		return nil, err
	}

	out := New()
	alias := make(map[Symbol]Symbol)
	next := g.MaxID() + 1
	resolve := func(s Symbol) Symbol {
		if a, ok := alias[s]; ok {
			return a
		}
		return s
	}

	for _, id := range order {
		src := g.Rules[id]
		rhs := make([]Symbol, len(src))
		for i, s := range src {
			rhs[i] = resolve(s)
		}

		switch len(rhs) {
		case 1:
			alias[id] = rhs[0]
		case 2:
			out.Rules[id] = rhs
		default:
			acc := rhs[0]
			for _, s := range rhs[1 : len(rhs)-1] {
				out.Rules[next] = []Symbol{acc, s}
				acc = next
				next++
			}
			out.Rules[id] = []Symbol{acc, rhs[len(rhs)-1]}
		}
	}

	out.Sequence = make([]Symbol, len(g.Sequence))
	for i, s := range g.Sequence {
		out.Sequence[i] = resolve(s)
	}
	return out, nil
}

// Block is a run of one symbol repeated Count times.
type Block struct {
	Symbol Symbol
	Count  int
}

func (b Block) String() string {
	if b.Count == 1 {
		return FormatSymbol(b.Symbol)
	}
	return fmt.Sprintf("%s^%d", FormatSymbol(b.Symbol), b.Count)
}

// CompressedRule is the X -> X' wX X'' view of a rule: an optional leading
// variable, a run-length encoded middle, and an optional trailing variable.
// Absent variables are NoSymbol.
type CompressedRule struct {
	Left   Symbol
	Middle []Block
	Right  Symbol
}

// CompressRule builds the run-length view of rhs.
func CompressRule(rhs []Symbol) CompressedRule {
	cr := CompressedRule{Left: NoSymbol, Right: NoSymbol}
	start, end := 0, len(rhs)
	if end > 0 && !IsTerminal(rhs[0]) {
		cr.Left = rhs[0]
		start = 1
	}
	if end > start && !IsTerminal(rhs[end-1]) {
		cr.Right = rhs[end-1]
		end--
	}
	for i := start; i < end; {
		j := i + 1
		for j < end && rhs[j] == rhs[i] {
			j++
		}
		cr.Middle = append(cr.Middle, Block{Symbol: rhs[i], Count: j - i})
		i = j
	}
	return cr
}

// Size is the run-length size of the rule: one per block plus one per
// present outer variable.
func (cr CompressedRule) Size() int {
	n := len(cr.Middle)
	if cr.Left != NoSymbol {
		n++
	}
	if cr.Right != NoSymbol {
		n++
	}
	return n
}

// Expand converts the view back to a plain right-hand side.
func (cr CompressedRule) Expand() []Symbol {
	var out []Symbol
	if cr.Left != NoSymbol {
		out = append(out, cr.Left)
	}
	for _, b := range cr.Middle {
		for i := 0; i < b.Count; i++ {
			out = append(out, b.Symbol)
		}
	}
	if cr.Right != NoSymbol {
		out = append(out, cr.Right)
	}
	return out
}

func (cr CompressedRule) String() string {
	parts := make([]string, 0, len(cr.Middle)+2)
	if cr.Left != NoSymbol {
		parts = append(parts, FormatSymbol(cr.Left))
	}
	for _, b := range cr.Middle {
		parts = append(parts, b.String())
	}
	if cr.Right != NoSymbol {
		parts = append(parts, FormatSymbol(cr.Right))
	}
	return strings.Join(parts, " ")
}

// CompressedSize is the total run-length size of all rules.
func (g *Grammar) CompressedSize() int {
	n := 0
	for _, rhs := range g.Rules {
		n += CompressRule(rhs).Size()
	}
	return n
}
