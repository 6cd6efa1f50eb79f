// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rpcodec reads and writes the binary .rp container produced by the
// RePair encoder.
//
// A file starts with three little-endian uint32 values (text length, number
// of codes, sequence length) followed by an MSB-first bit stream. Each
// sequence element is the post-order spelling of its derivation tree: a 1 bit
// and a leaf code opens a node, a 0 bit closes one. The first occurrence of a
// rule is spelled as its tree; later occurrences are leaves carrying the code
// the rule received when it was first closed.
package rpcodec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/grammar-extractor/internal/fsutil"
	"github.com/pdiddy/grammar-extractor/internal/grammar"
)

// Ext is the file extension of the binary container.
const Ext = ".rp"

const (
	headerSize = 12

	// firstFreeCode is the code in effect before any rule is defined.
	firstFreeCode = uint32(grammar.AlphabetSize)

	// preallocLimit bounds slices sized from untrusted header fields.
	preallocLimit = 1 << 20

	bitOpen  = 1
	bitClose = 0
)

var (
	// ErrUnexpectedEOF is returned when the stream ends mid-element.
	ErrUnexpectedEOF = errors.New("unexpected end of .rp stream")

	// ErrCorrupt is returned for structurally invalid streams.
	ErrCorrupt = errors.New("corrupt .rp stream")

	// ErrNotBinary is returned when encoding a grammar with non-binary rules.
	ErrNotBinary = errors.New("grammar is not binary")

	// ErrTooLarge is returned when a header field does not fit in 32 bits.
	ErrTooLarge = errors.New("grammar too large for .rp header")
)

// Header is the fixed-size prefix of a .rp file.
type Header struct {
	TextLen  uint32
	NumRules uint32
	SeqLen   uint32
}

// Rules returns the number of rules the header announces, excluding the
// reserved terminal codes.
func (h Header) Rules() int {
	if h.NumRules <= firstFreeCode+1 {
		return 0
	}
	return int(h.NumRules - firstFreeCode - 1)
}

// Decode reads a .rp stream. Rules are numbered from grammar.FirstRuleID in
// the order they are defined.
func Decode(r io.Reader) (*grammar.Grammar, Header, error) {
	var raw [headerSize]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, Header{}, fmt.Errorf("reading header: %w", ErrUnexpectedEOF)
		}
		return nil, Header{}, fmt.Errorf("reading header: %w", err)
	}
	h := Header{
		TextLen:  binary.LittleEndian.Uint32(raw[0:4]),
		NumRules: binary.LittleEndian.Uint32(raw[4:8]),
		SeqLen:   binary.LittleEndian.Uint32(raw[8:12]),
	}

	g := grammar.New()
	g.Sequence = make([]grammar.Symbol, 0, min(int(h.SeqLen), preallocLimit))
	br := newBitReader(r)
	newcode := firstFreeCode
	var stack []uint32

	for i := uint32(0); i < h.SeqLen; i++ {
		open := 0
		stack = stack[:0]
		for {
			bit, err := br.readBits(1)
			if err != nil {
				return nil, h, fmt.Errorf("element %d: %w", i, err)
			}
			if bit == bitOpen {
				open++
				leaf, err := br.readBits(bitLen(newcode))
				if err != nil {
					return nil, h, fmt.Errorf("element %d: %w", i, err)
				}
				if leaf == firstFreeCode || leaf > newcode {
					return nil, h, fmt.Errorf("element %d: %w: leaf code %d with %d defined", i, ErrCorrupt, leaf, newcode)
				}
				stack = append(stack, leaf)
				continue
			}

			if open == 0 {
				return nil, h, fmt.Errorf("element %d: %w: close without open", i, ErrCorrupt)
			}
			open--
			if open == 0 {
				break
			}
			if len(stack) < 2 {
				return nil, h, fmt.Errorf("element %d: %w: stack underflow", i, ErrCorrupt)
			}
			newcode++
			right := stack[len(stack)-1]
			left := stack[len(stack)-2]
			stack = stack[:len(stack)-2]
			g.Rules[grammar.Symbol(newcode)] = []grammar.Symbol{grammar.Symbol(left), grammar.Symbol(right)}
			stack = append(stack, newcode)
		}
		g.Sequence = append(g.Sequence, grammar.Symbol(stack[len(stack)-1]))
	}
	return g, h, nil
}

// DecodeFile decodes the .rp file at path.
func DecodeFile(path string) (*grammar.Grammar, Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Header{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	g, h, err := Decode(f)
	if err != nil {
		return nil, h, fmt.Errorf("decoding %s: %w", path, err)
	}
	return g, h, nil
}

// Encode writes g as a .rp stream. Every rule must have exactly two symbols;
// see grammar.Binarize. Rules are renumbered by first post-order appearance,
// so decoding yields the grammar that g.Renumber(grammar.FirstRuleID)
// returns.
func Encode(w io.Writer, g *grammar.Grammar) (Header, error) {
	if err := g.Validate(); err != nil {
		return Header{}, fmt.Errorf("encoding: %w", err)
	}
	for _, id := range g.RuleIDs() {
		if n := len(g.Rules[id]); n != 2 {
			return Header{}, fmt.Errorf("%w: R%d has %d symbols", ErrNotBinary, id, n)
		}
	}
	textLen, err := g.TextLen()
	if err != nil {
		return Header{}, fmt.Errorf("encoding: %w", err)
	}

	live := g.Reachable()
	var h Header
	if h.TextLen, err = headerField("text length", textLen); err != nil {
		return Header{}, err
	}
	if h.NumRules, err = headerField("number of codes", int(firstFreeCode)+1+len(live)); err != nil {
		return Header{}, err
	}
	if h.SeqLen, err = headerField("sequence length", len(g.Sequence)); err != nil {
		return Header{}, err
	}
	var raw [headerSize]byte
	binary.LittleEndian.PutUint32(raw[0:4], h.TextLen)
	binary.LittleEndian.PutUint32(raw[4:8], h.NumRules)
	binary.LittleEndian.PutUint32(raw[8:12], h.SeqLen)
	if _, err := w.Write(raw[:]); err != nil {
		return h, fmt.Errorf("writing header: %w", err)
	}

	type frame struct {
		sym   grammar.Symbol
		child int
	}
	bw := newBitWriter(w)
	codes := make(map[grammar.Symbol]uint32, len(live))
	newcode := firstFreeCode
	var stack []frame

	leafCode := func(s grammar.Symbol) (uint32, bool) {
		if grammar.IsTerminal(s) {
			return uint32(s), true
		}
		c, ok := codes[s]
		return c, ok
	}

	for _, root := range g.Sequence {
		stack = append(stack[:0], frame{sym: root})
		for len(stack) > 0 {
			top := len(stack) - 1
			f := stack[top]

			if f.child == 0 {
				if code, ok := leafCode(f.sym); ok {
					if err := bw.writeBits(bitOpen, 1); err != nil {
						return h, fmt.Errorf("writing body: %w", err)
					}
					if err := bw.writeBits(code, bitLen(newcode)); err != nil {
						return h, fmt.Errorf("writing body: %w", err)
					}
					stack = stack[:top]
					continue
				}
			}
			if f.child < 2 {
				stack[top].child++
				stack = append(stack, frame{sym: g.Rules[f.sym][f.child]})
				continue
			}

			newcode++
			codes[f.sym] = newcode
			if err := bw.writeBits(bitClose, 1); err != nil {
				return h, fmt.Errorf("writing body: %w", err)
			}
			stack = stack[:top]
		}
		if err := bw.writeBits(bitClose, 1); err != nil {
			return h, fmt.Errorf("writing body: %w", err)
		}
	}
	if err := bw.flush(); err != nil {
		return h, fmt.Errorf("writing body: %w", err)
	}
	return h, nil
}

func headerField(name string, n int) (uint32, error) {
	if n < 0 || uint64(n) > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %s %d", ErrTooLarge, name, n)
	}
	return uint32(n), nil
}

// EncodeFile atomically writes g to path as a .rp file.
func EncodeFile(path string, g *grammar.Grammar) (Header, error) {
	var h Header
	err := fsutil.WriteAtomic(path, func(w io.Writer) error {
		var err error
		h, err = Encode(w, g)
		return err
	})
	if err != nil {
		return h, fmt.Errorf("encoding %s: %w", path, err)
	}
	return h, nil
}

// IsBinaryFile reports whether path names a .rp container.
func IsBinaryFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), Ext)
}

// Load reads a grammar from path: .rp files are decoded, anything else is
// parsed as the human-readable format.
func Load(path string) (*grammar.Grammar, error) {
	if IsBinaryFile(path) {
		g, _, err := DecodeFile(path)
		return g, err
	}
	return grammar.ParseFile(path)
}
