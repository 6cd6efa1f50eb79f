// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package roundtrip checks that a text survives the whole tool chain:
// compression, the binary container, the readable grammar format, and
// decompression.
package roundtrip

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/grammar-extractor/internal/external"
	"github.com/pdiddy/grammar-extractor/internal/fsutil"
	"github.com/pdiddy/grammar-extractor/internal/grammar"
	"github.com/pdiddy/grammar-extractor/internal/log"
	"github.com/pdiddy/grammar-extractor/internal/recompress"
	"github.com/pdiddy/grammar-extractor/internal/rpcodec"
	"github.com/pdiddy/grammar-extractor/pkg/types"
)

// DefaultConcurrency is used when the config leaves concurrency unset.
const DefaultConcurrency = 4

// ErrPathCollision is reported for a batch input whose intermediate files
// would overwrite those of an earlier input.
var ErrPathCollision = errors.New("output paths collide")

// Result is the outcome of one roundtrip check.
type Result struct {
	RunID  string
	Path   string
	Status types.RoundtripStatus

	TextLen    int64
	RPSize     int64
	Rules      int
	SeqLen     int
	OutputPath string

	// FirstDiff is the first byte offset where the output differs from the
	// input, or -1 when they match.
	FirstDiff int64

	Err      error
	Duration time.Duration
}

// Paths are the files a roundtrip of input writes.
type Paths struct {
	RP         string
	Translated string
	Output     string
}

// PathsFor names the intermediate files for input, placed in workDir or
// next to input when workDir is empty.
func PathsFor(input, workDir string) Paths {
	dir := workDir
	if dir == "" {
		dir = filepath.Dir(input)
	}
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return Paths{
		RP:         filepath.Join(dir, base+rpcodec.Ext),
		Translated: filepath.Join(dir, stem+"_translated.txt"),
		Output:     filepath.Join(dir, stem+"_output.txt"),
	}
}

// Runner runs roundtrip checks.
type Runner struct {
	Config types.RoundtripConfig

	// OnDone, when set, is called as each file finishes. Batch runs call it
	// from several goroutines.
	OnDone func(Result)
}

// Run checks one file with cfg.
func Run(ctx context.Context, path string, cfg types.RoundtripConfig) Result {
	r := &Runner{Config: cfg}
	return r.Run(ctx, path)
}

// RunBatch checks paths with cfg, printing per-file status to w.
func RunBatch(ctx context.Context, paths []string, cfg types.RoundtripConfig, w io.Writer) BatchResult {
	r := &Runner{Config: cfg}
	return r.RunBatch(ctx, paths, w)
}

// Run checks one file.
func (r *Runner) Run(ctx context.Context, path string) Result {
	res := Result{
		RunID:     uuid.NewString(),
		Path:      path,
		FirstDiff: -1,
	}
	start := time.Now()
	logger := log.Component(ctx, "roundtrip").With().
		Str("run_id", res.RunID).
		Str("file", path).
		Logger()

	err := r.run(logger.WithContext(ctx), path, &res)
	res.Duration = time.Since(start)
	switch {
	case err != nil:
		res.Status = types.RoundtripError
		res.Err = err
		logger.Error().Err(err).Msg("roundtrip failed to run")
	case res.FirstDiff >= 0:
		res.Status = types.RoundtripFailed
		logger.Warn().Int64("first_diff", res.FirstDiff).Msg("output differs from input")
	default:
		res.Status = types.RoundtripPassed
		logger.Info().
			Int64("text_len", res.TextLen).
			Int64("rp_size", res.RPSize).
			Int("rules", res.Rules).
			Dur("took", res.Duration).
			Msg("roundtrip passed")
	}
	if r.OnDone != nil {
		r.OnDone(res)
	}
	return res
}

func (r *Runner) run(ctx context.Context, path string, res *Result) error {
	cfg := r.Config
	logger := zerolog.Ctx(ctx)

	text, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	res.TextLen = int64(len(text))

	paths := PathsFor(path, cfg.WorkDir)
	if cfg.WorkDir != "" {
		if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
			return fmt.Errorf("creating work dir: %w", err)
		}
	}
	res.OutputPath = paths.Output

	toolCtx, cancel := r.toolContext(ctx)
	defer cancel()

	useTools := cfg.ExternalEncoder != "" || cfg.ExternalDecoder != ""
	var g *grammar.Grammar
	if useTools {
		g, err = r.externalStages(toolCtx, path, paths)
	} else {
		g, err = r.builtinStages(ctx, text, paths)
	}
	if err != nil {
		return err
	}
	logger.Debug().Str("grammar", paths.Translated).Msg("grammar written")

	if fi, err := os.Stat(paths.RP); err == nil {
		res.RPSize = fi.Size()
	}
	res.Rules = g.RuleCount()
	res.SeqLen = len(g.Sequence)

	out, err := grammar.Decompress(g)
	if err != nil {
		return fmt.Errorf("decompressing: %w", err)
	}
	if err := fsutil.WriteFile(paths.Output, out); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	res.FirstDiff = FirstDiff(text, out)
	return nil
}

// builtinStages compresses text, writes and reads back the .rp file, and
// writes and parses back the readable grammar.
func (r *Runner) builtinStages(ctx context.Context, text []byte, paths Paths) (*grammar.Grammar, error) {
	rc := &recompress.Recompressor{MaxRounds: r.Config.Recompress.MaxRounds}
	compressed, err := rc.Compress(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("compressing: %w", err)
	}
	if _, err := rpcodec.EncodeFile(paths.RP, compressed.Grammar); err != nil {
		return nil, err
	}

	decoded, h, err := rpcodec.DecodeFile(paths.RP)
	if err != nil {
		return nil, err
	}
	if int64(h.TextLen) != int64(len(text)) {
		return nil, fmt.Errorf("%s header says %d bytes, input has %d", paths.RP, h.TextLen, len(text))
	}
	if err := grammar.WriteFile(paths.Translated, decoded); err != nil {
		return nil, fmt.Errorf("writing grammar: %w", err)
	}
	return grammar.ParseFile(paths.Translated)
}

// externalStages runs the native encoder and decoder. An empty tool name
// means the default binary on PATH.
func (r *Runner) externalStages(ctx context.Context, input string, paths Paths) (*grammar.Grammar, error) {
	cfg := r.Config
	enc, dec, err := external.Detect(cfg.ExternalEncoder, cfg.ExternalDecoder)
	if err != nil {
		return nil, err
	}

	rp, err := external.Encode(ctx, enc, input)
	if err != nil {
		return nil, err
	}
	if rp != paths.RP {
		if err := os.Rename(rp, paths.RP); err != nil {
			return nil, fmt.Errorf("moving %s: %w", rp, err)
		}
	}
	if err := external.Decode(ctx, dec, paths.RP, paths.Translated); err != nil {
		return nil, err
	}
	return grammar.ParseFile(paths.Translated)
}

func (r *Runner) toolContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.Config.Timeout > 0 {
		return context.WithTimeout(ctx, r.Config.Timeout)
	}
	return context.WithCancel(ctx)
}

// FirstDiff returns the first offset where a and b differ, or -1 if they are
// equal.
func FirstDiff(a, b []byte) int64 {
	if bytes.Equal(a, b) {
		return -1
	}
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return int64(i)
		}
	}
	return int64(n)
}

// BatchResult holds the outcome of a batch roundtrip run.
type BatchResult struct {
	Passed  int
	Failed  int
	Errored int
	Results []Result
}

// Total returns the number of files checked.
func (b BatchResult) Total() int {
	return b.Passed + b.Failed + b.Errored
}

// HasFailures reports whether any file failed or could not be checked.
func (b BatchResult) HasFailures() bool {
	return b.Failed > 0 || b.Errored > 0
}

// RunBatch checks paths with bounded concurrency. Status lines are printed
// in input order once all checks finish.
func (r *Runner) RunBatch(ctx context.Context, paths []string, w io.Writer) BatchResult {
	limit := r.Config.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	results := make([]Result, len(paths))
	taken := collisions(paths, r.Config.WorkDir)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)
	for i, p := range paths {
		if other, ok := taken[i]; ok {
			results[i] = r.reject(ctx, p, fmt.Errorf("%w with %s", ErrPathCollision, other))
			continue
		}
		eg.Go(func() error {
			results[i] = r.Run(egCtx, p)
			return nil
		})
	}
	_ = eg.Wait()

	batch := BatchResult{Results: results}
	for _, res := range results {
		switch res.Status {
		case types.RoundtripPassed:
			batch.Passed++
			fmt.Fprintf(w, "passed:  %s (%d bytes, %d rules, %d bytes .rp)\n", res.Path, res.TextLen, res.Rules, res.RPSize)
		case types.RoundtripFailed:
			batch.Failed++
			fmt.Fprintf(w, "failed:  %s (first difference at byte %d)\n", res.Path, res.FirstDiff)
		default:
			batch.Errored++
			fmt.Fprintf(w, "error:   %s (%v)\n", res.Path, res.Err)
		}
	}
	fmt.Fprintf(w, "\nRoundtrip summary: %d passed, %d failed, %d errors (total: %d)\n",
		batch.Passed, batch.Failed, batch.Errored, batch.Total())
	return batch
}

// collisions maps the index of each input whose PathsFor files are already
// claimed by an earlier input to that earlier input.
func collisions(paths []string, workDir string) map[int]string {
	owner := make(map[string]string)
	taken := make(map[int]string)
	for i, p := range paths {
		files := PathsFor(p, workDir)
		claimed := ""
		for _, f := range []string{files.RP, files.Translated, files.Output} {
			if o, ok := owner[f]; ok {
				claimed = o
				break
			}
		}
		if claimed != "" {
			taken[i] = claimed
			continue
		}
		for _, f := range []string{files.RP, files.Translated, files.Output} {
			owner[f] = p
		}
	}
	return taken
}

// reject records path as errored without running it.
func (r *Runner) reject(ctx context.Context, path string, err error) Result {
	res := Result{
		RunID:     uuid.NewString(),
		Path:      path,
		Status:    types.RoundtripError,
		FirstDiff: -1,
		Err:       err,
	}
	logger := log.Component(ctx, "roundtrip")
	logger.Error().Str("run_id", res.RunID).Str("file", path).Err(err).Msg("roundtrip skipped")
	if r.OnDone != nil {
		r.OnDone(res)
	}
	return res
}
