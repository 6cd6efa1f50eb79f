// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package roundtrip

import (
	"bufio"
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/pdiddy/grammar-extractor/internal/fsutil"
)

const (
	charPool  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	chunkSize = 100_000
)

// Generate writes length random characters drawn from [a-zA-Z0-9] to w.
// onChunk, when set, receives the byte count of each chunk written.
func Generate(w io.Writer, length int, rng *rand.Rand, onChunk func(int)) error {
	if length < 0 {
		return fmt.Errorf("generating text: negative length %d", length)
	}
	bw := bufio.NewWriterSize(w, chunkSize)
	buf := make([]byte, min(length, chunkSize))
	for written := 0; written < length; {
		n := min(chunkSize, length-written)
		for i := 0; i < n; i++ {
			buf[i] = charPool[rng.IntN(len(charPool))]
		}
		if _, err := bw.Write(buf[:n]); err != nil {
			return fmt.Errorf("writing random text: %w", err)
		}
		written += n
		if onChunk != nil {
			onChunk(n)
		}
	}
	return bw.Flush()
}

// GenerateFile atomically writes length random characters to path.
func GenerateFile(path string, length int, rng *rand.Rand, onChunk func(int)) error {
	return fsutil.WriteAtomic(path, func(w io.Writer) error {
		return Generate(w, length, rng, onChunk)
	})
}
