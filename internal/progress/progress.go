// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package progress builds terminal progress bars for long commands.
package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
)

// New returns a bar counting up to max on stderr. A max of -1 shows a
// spinner. The bar is hidden when disabled or when running under CI.
func New(max int64, desc string, enabled bool) *progressbar.ProgressBar {
	return newBar(os.Stderr, max, desc, enabled, false)
}

// NewBytes is New for byte counts.
func NewBytes(max int64, desc string, enabled bool) *progressbar.ProgressBar {
	return newBar(os.Stderr, max, desc, enabled, true)
}

func newBar(w io.Writer, max int64, desc string, enabled, showBytes bool) *progressbar.ProgressBar {
	if !enabled || os.Getenv("CI") == "true" {
		return hidden(max)
	}
	return progressbar.NewOptions64(max,
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowBytes(showBytes),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
	)
}

func hidden(max int64) *progressbar.ProgressBar {
	return progressbar.NewOptions64(max,
		progressbar.OptionSetWriter(io.Discard),
		progressbar.OptionSetVisibility(false),
	)
}
