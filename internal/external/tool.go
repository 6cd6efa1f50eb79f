// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package external runs the native RePair tools: the encoder that turns a
// text file into <file>.rp and the decoder that turns a .rp file into the
// readable grammar format.
package external

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

const (
	// DefaultEncoder and DefaultDecoder are the binary names looked up on PATH.
	DefaultEncoder = "encoder"
	DefaultDecoder = "decoder"

	rpExt = ".rp"
)

// Tool is an external command-line program.
type Tool interface {
	// Name returns the binary name or path.
	Name() string

	// Available reports whether the binary can be found.
	Available() bool

	// Run executes the binary with args. Output is captured and included in
	// the error when the command fails.
	Run(ctx context.Context, args ...string) error
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	Run(ctx context.Context, name string, args []string, out io.Writer) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) Run(ctx context.Context, name string, args []string, out io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = out
	cmd.Stderr = out
	return cmd.Run()
}

type tool struct {
	bin  string
	exec executor
}

func (t *tool) Name() string { return t.bin }

func (t *tool) Available() bool {
	_, err := t.exec.LookPath(t.bin)
	return err == nil
}

func (t *tool) Run(ctx context.Context, args ...string) error {
	var out bytes.Buffer
	if err := t.exec.Run(ctx, t.bin, args, &out); err != nil {
		msg := strings.TrimSpace(out.String())
		if msg == "" {
			return fmt.Errorf("running %s: %w", t.bin, err)
		}
		return fmt.Errorf("running %s: %w: %s", t.bin, err, msg)
	}
	return nil
}

var defaultExec = &osExecutor{}

// NewTool returns the tool for bin.
func NewTool(bin string) Tool {
	return &tool{bin: bin, exec: defaultExec}
}

// Detect resolves the encoder and decoder, falling back to the default names
// when a name is empty. It fails if either is missing.
func Detect(encoder, decoder string) (enc, dec Tool, err error) {
	return detect(defaultExec, encoder, decoder)
}

func detect(exec executor, encoder, decoder string) (Tool, Tool, error) {
	if encoder == "" {
		encoder = DefaultEncoder
	}
	if decoder == "" {
		decoder = DefaultDecoder
	}
	enc := &tool{bin: encoder, exec: exec}
	dec := &tool{bin: decoder, exec: exec}

	var missing []string
	for _, t := range []*tool{enc, dec} {
		if !t.Available() {
			missing = append(missing, t.bin)
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("external RePair tools not found: %s", strings.Join(missing, ", "))
	}
	return enc, dec, nil
}

// Encode runs the encoder on input and returns the path of the .rp file it
// writes next to input.
func Encode(ctx context.Context, t Tool, input string) (string, error) {
	if err := t.Run(ctx, input); err != nil {
		return "", err
	}
	out := input + rpExt
	if _, err := os.Stat(out); err != nil {
		return "", fmt.Errorf("%s did not produce %s: %w", t.Name(), out, err)
	}
	return out, nil
}

// Decode runs the decoder to translate the .rp file in into the readable
// grammar at out.
func Decode(ctx context.Context, t Tool, in, out string) error {
	if err := t.Run(ctx, in, out); err != nil {
		return err
	}
	if _, err := os.Stat(out); err != nil {
		return fmt.Errorf("%s did not produce %s: %w", t.Name(), out, err)
	}
	return nil
}
