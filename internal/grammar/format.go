// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package grammar

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pdiddy/grammar-extractor/internal/fsutil"
)

const (
	rulePrefix     = "R"
	sequencePrefix = "SEQ:"
)

// ParseError reports a malformed line in the human-readable grammar format.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	text := e.Text
	if len(text) > 60 {
		text = text[:57] + "..."
	}
	return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, text)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse reads the human-readable format:
//
//	R259:97,258
//	SEQ:259,99,97,100,259
//
// Rules may reference rules defined further down. Blank lines are ignored.
// The parsed grammar is validated before it is returned.
func Parse(r io.Reader) (*Grammar, error) {
	g := New()
	br := bufio.NewReaderSize(r, 64<<10)
	seenSeq := false

	for lineNo := 1; ; lineNo++ {
		raw, readErr := br.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return nil, fmt.Errorf("reading grammar: %w", readErr)
		}
		line := strings.TrimSpace(raw)

		switch {
		case line == "":
		case strings.HasPrefix(line, sequencePrefix):
			if seenSeq {
				return nil, &ParseError{Line: lineNo, Text: line, Err: errors.New("duplicate SEQ line")}
			}
			seq, err := parseSymbols(line[len(sequencePrefix):])
			if err != nil {
				return nil, &ParseError{Line: lineNo, Text: line, Err: err}
			}
			g.Sequence = seq
			seenSeq = true
		case strings.HasPrefix(line, rulePrefix):
			id, rhs, err := parseRule(line[len(rulePrefix):])
			if err != nil {
				return nil, &ParseError{Line: lineNo, Text: line, Err: err}
			}
			if _, dup := g.Rules[id]; dup {
				return nil, &ParseError{Line: lineNo, Text: line, Err: fmt.Errorf("duplicate rule R%d", id)}
			}
			g.Rules[id] = rhs
		default:
			return nil, &ParseError{Line: lineNo, Text: line, Err: errors.New("expected R<id>:... or SEQ:...")}
		}

		if errors.Is(readErr, io.EOF) {
			break
		}
	}

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid grammar: %w", err)
	}
	return g, nil
}

// ParseFile parses the grammar stored at path.
func ParseFile(path string) (*Grammar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening grammar %s: %w", path, err)
	}
	defer f.Close()

	g, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return g, nil
}

func parseRule(s string) (Symbol, []Symbol, error) {
	name, body, ok := strings.Cut(s, ":")
	if !ok {
		return 0, nil, errors.New("missing ':' after rule id")
	}
	n, err := strconv.Atoi(strings.TrimSpace(name))
	if err != nil {
		return 0, nil, fmt.Errorf("invalid rule id %q", name)
	}
	id := Symbol(n)
	if IsTerminal(id) {
		return 0, nil, fmt.Errorf("rule id %d is a terminal", n)
	}
	rhs, err := parseSymbols(body)
	if err != nil {
		return 0, nil, err
	}
	if len(rhs) == 0 {
		return 0, nil, fmt.Errorf("%w: R%d", ErrEmptyRule, id)
	}
	return id, rhs, nil
}

func parseSymbols(s string) ([]Symbol, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []Symbol{}, nil
	}
	fields := strings.Split(s, ",")
	out := make([]Symbol, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid symbol %q", f)
		}
		out[i] = Symbol(n)
	}
	return out, nil
}

// Write emits g in the human-readable format: rules in ascending ID order,
// then the SEQ line.
func Write(w io.Writer, g *Grammar) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 64)

	for _, id := range g.RuleIDs() {
		buf = append(buf[:0], rulePrefix...)
		buf = strconv.AppendInt(buf, int64(id), 10)
		buf = append(buf, ':')
		if _, err := bw.Write(buf); err != nil {
			return err
		}
		if err := writeSymbols(bw, g.Rules[id]); err != nil {
			return err
		}
	}

	if _, err := bw.WriteString(sequencePrefix); err != nil {
		return err
	}
	if err := writeSymbols(bw, g.Sequence); err != nil {
		return err
	}
	return bw.Flush()
}

func writeSymbols(bw *bufio.Writer, syms []Symbol) error {
	buf := make([]byte, 0, 12)
	for i, s := range syms {
		buf = buf[:0]
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendInt(buf, int64(s), 10)
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.WriteByte('\n')
}

// WriteFile atomically writes g to path in the human-readable format.
func WriteFile(path string, g *Grammar) error {
	return fsutil.WriteAtomic(path, func(w io.Writer) error {
		return Write(w, g)
	})
}

// FormatSymbol renders s for humans: printable bytes as 'c', other bytes as
// \xHH, variables as R<id>.
func FormatSymbol(s Symbol) string {
	switch {
	case s < 0:
		return "None"
	case !IsTerminal(s):
		return "R" + strconv.Itoa(int(s))
	case s >= 0x20 && s < 0x7f:
		return "'" + string(rune(s)) + "'"
	default:
		return fmt.Sprintf(`\x%02x`, int(s))
	}
}
