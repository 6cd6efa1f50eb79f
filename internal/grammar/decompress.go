// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package grammar

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// Decompress expands g into the text it derives.
func Decompress(g *Grammar) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := DecompressTo(&buf, g); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecompressTo streams the expansion of g to w and returns the number of
// bytes written. Expansion uses an explicit stack, so deep grammars do not
// exhaust the goroutine stack. The grammar is validated first.
func DecompressTo(w io.Writer, g *Grammar) (int64, error) {
	if err := g.Validate(); err != nil {
		return 0, fmt.Errorf("decompressing: %w", err)
	}

	bw := bufio.NewWriterSize(w, 64<<10)
	var (
		n     int64
		stack []Symbol
	)
	for _, root := range g.Sequence {
		stack = append(stack[:0], root)
		for len(stack) > 0 {
			s := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if IsTerminal(s) {
				if err := bw.WriteByte(byte(s)); err != nil {
					return n, fmt.Errorf("writing output: %w", err)
				}
				n++
				continue
			}

			rhs := g.Rules[s]
			// Reverse push keeps the expansion left to right.
			for i := len(rhs) - 1; i >= 0; i-- {
				stack = append(stack, rhs[i])
			}
		}
	}
	if err := bw.Flush(); err != nil {
		return n, fmt.Errorf("writing output: %w", err)
	}
	return n, nil
}
