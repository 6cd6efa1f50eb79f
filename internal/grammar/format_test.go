// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package grammar

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	input := `
R259:258,258
R257:97,98
  R258:257,99

SEQ:259,258,100
`
	g, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	if diff := cmp.Diff(sample(), g); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}
}

func TestParseEmptySequence(t *testing.T) {
	g, err := Parse(strings.NewReader("SEQ:\n"))
	require.NoError(t, err)
	assert.Empty(t, g.Sequence)
	assert.Empty(t, g.Rules)
}

func TestParseNoTrailingNewline(t *testing.T) {
	g, err := Parse(strings.NewReader("R257:97,98\nSEQ:257,257"))
	require.NoError(t, err)
	assert.Equal(t, []Symbol{257, 257}, g.Sequence)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantLine int
	}{
		{name: "unknown line", input: "R257:97,98\nfoo\n", wantLine: 2},
		{name: "bad symbol", input: "R257:97,x\n", wantLine: 1},
		{name: "negative symbol", input: "SEQ:-3\n", wantLine: 1},
		{name: "terminal rule id", input: "R97:97,98\n", wantLine: 1},
		{name: "missing colon", input: "R257 97,98\n", wantLine: 1},
		{name: "empty rule", input: "R257:\n", wantLine: 1},
		{name: "duplicate rule", input: "R257:97\nR257:98\n", wantLine: 2},
		{name: "duplicate seq", input: "SEQ:97\n\nSEQ:98\n", wantLine: 3},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.input))
			require.Error(t, err)
			var pe *ParseError
			require.True(t, errors.As(err, &pe), "want *ParseError, got %T: %v", err, err)
			assert.Equal(t, tc.wantLine, pe.Line)
		})
	}
}

func TestParseRejectsMissingRule(t *testing.T) {
	_, err := Parse(strings.NewReader("R257:97,300\nSEQ:257\n"))
	assert.ErrorIs(t, err, ErrMissingRule)
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sample()))

	want := "R257:97,98\nR258:257,99\nR259:258,258\nSEQ:259,258,100\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteParseRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "grammar.txt")
	require.NoError(t, WriteFile(path, sample()))

	g, err := ParseFile(path)
	require.NoError(t, err)
	if diff := cmp.Diff(sample(), g); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFormatSymbol(t *testing.T) {
	tests := []struct {
		in   Symbol
		want string
	}{
		{'a', "'a'"},
		{' ', "' '"},
		{'\n', `\x0a`},
		{0xff, `\xff`},
		{257, "R257"},
		{NoSymbol, "None"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, FormatSymbol(tc.in))
	}
}
