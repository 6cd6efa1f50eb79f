// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fsutil writes output files atomically: readers see either the old
// file or the complete new one, never a partial write.
package fsutil

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

const filePerm os.FileMode = 0o644

// WriteAtomic creates the parent directory of path, streams content through
// fill into a pending file, and atomically replaces path once fill succeeds.
// On any error the pending file is removed and path is left untouched.
func WriteAtomic(path string, fill func(w io.Writer) error) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(filePerm))
	if err != nil {
		return fmt.Errorf("creating pending file for %s: %w", path, err)
	}
	defer pending.Cleanup()

	bw := bufio.NewWriterSize(pending, 64<<10)
	if err := fill(bw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// WriteFile atomically replaces path with data.
func WriteFile(path string, data []byte) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := renameio.WriteFile(path, data, filePerm); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	return nil
}
