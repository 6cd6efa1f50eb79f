// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package external

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockExecutor records calls and returns configured responses.
type mockExecutor struct {
	availableBins map[string]bool // binary -> whether LookPath succeeds
	runFunc       func(name string, args []string, out io.Writer) error
	calls         []string
}

func (m *mockExecutor) LookPath(file string) (string, error) {
	if m.availableBins[file] {
		return "/usr/local/bin/" + file, nil
	}
	return "", errors.New("not found: " + file)
}

func (m *mockExecutor) Run(_ context.Context, name string, args []string, out io.Writer) error {
	m.calls = append(m.calls, name+" "+strings.Join(args, " "))
	if m.runFunc != nil {
		return m.runFunc(name, args, out)
	}
	return nil
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name             string
		bins             map[string]bool
		encoder, decoder string
		wantEnc          string
		wantErr          string
	}{
		{
			name:    "defaults on PATH",
			bins:    map[string]bool{"encoder": true, "decoder": true},
			wantEnc: "encoder",
		},
		{
			name:    "custom names",
			bins:    map[string]bool{"repair-enc": true, "repair-dec": true},
			encoder: "repair-enc",
			decoder: "repair-dec",
			wantEnc: "repair-enc",
		},
		{
			name:    "decoder missing",
			bins:    map[string]bool{"encoder": true},
			wantErr: "decoder",
		},
		{
			name:    "both missing",
			bins:    map[string]bool{},
			wantErr: "encoder, decoder",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, dec, err := detect(&mockExecutor{availableBins: tt.bins}, tt.encoder, tt.decoder)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantEnc, enc.Name())
			assert.NotNil(t, dec)
		})
	}
}

func TestEncode(t *testing.T) {
	input := filepath.Join(t.TempDir(), "input.txt")
	require.NoError(t, os.WriteFile(input, []byte("abab"), 0o644))

	exec := &mockExecutor{
		runFunc: func(name string, args []string, out io.Writer) error {
			return os.WriteFile(args[0]+".rp", []byte{0}, 0o644)
		},
	}
	enc := &tool{bin: "encoder", exec: exec}

	out, err := Encode(context.Background(), enc, input)
	require.NoError(t, err)
	assert.Equal(t, input+".rp", out)
	assert.Equal(t, []string{"encoder " + input}, exec.calls)
}

func TestEncodeNoOutput(t *testing.T) {
	input := filepath.Join(t.TempDir(), "input.txt")
	enc := &tool{bin: "encoder", exec: &mockExecutor{}}

	_, err := Encode(context.Background(), enc, input)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDecodeFailureIncludesOutput(t *testing.T) {
	exec := &mockExecutor{
		runFunc: func(name string, args []string, out io.Writer) error {
			_, _ = io.WriteString(out, "Unexpected end of file.\n")
			return errors.New("exit status 1")
		},
	}
	dec := &tool{bin: "decoder", exec: exec}

	err := Decode(context.Background(), dec, "in.rp", "out.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unexpected end of file.")
	assert.Equal(t, []string{"decoder in.rp out.txt"}, exec.calls)
}
