// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package baseline measures how general-purpose compressors do on a text, as
// a yardstick for grammar sizes.
package baseline

import (
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/ulikunitz/xz"

	"github.com/pdiddy/grammar-extractor/pkg/types"
)

// counter is a writer that only counts bytes.
type counter int64

func (c *counter) Write(p []byte) (int, error) {
	*c += counter(len(p))
	return len(p), nil
}

// Measure returns the raw, xz, and brotli sizes of text.
func Measure(text []byte) (types.BaselineSizes, error) {
	sizes := types.BaselineSizes{Raw: int64(len(text))}

	xzSize, err := compressedSize(text, func(w io.Writer) (io.WriteCloser, error) {
		return xz.NewWriter(w)
	})
	if err != nil {
		return sizes, fmt.Errorf("measuring xz: %w", err)
	}
	sizes.XZ = xzSize

	brSize, err := compressedSize(text, func(w io.Writer) (io.WriteCloser, error) {
		return brotli.NewWriterLevel(w, brotli.BestCompression), nil
	})
	if err != nil {
		return sizes, fmt.Errorf("measuring brotli: %w", err)
	}
	sizes.Brotli = brSize
	return sizes, nil
}

func compressedSize(text []byte, open func(io.Writer) (io.WriteCloser, error)) (int64, error) {
	var n counter
	zw, err := open(&n)
	if err != nil {
		return 0, err
	}
	if _, err := zw.Write(text); err != nil {
		zw.Close()
		return 0, err
	}
	if err := zw.Close(); err != nil {
		return 0, err
	}
	return int64(n), nil
}
