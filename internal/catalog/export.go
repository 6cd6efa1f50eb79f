// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/grammar-extractor/internal/fsutil"
	"github.com/pdiddy/grammar-extractor/pkg/types"
)

// ExportYAML writes every grammar with its rules to <dir>/export.yaml and
// returns the path written.
func (s *Store) ExportYAML(ctx context.Context) (string, error) {
	entries, err := s.exportEntries(ctx)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, "export.yaml")
	data, err := yaml.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	return path, fsutil.WriteFile(path, data)
}

// ExportJSON writes every grammar with its rules to <dir>/export.json and
// returns the path written.
func (s *Store) ExportJSON(ctx context.Context) (string, error) {
	entries, err := s.exportEntries(ctx)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, "export.json")
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	return path, fsutil.WriteFile(path, data)
}

func (s *Store) exportEntries(ctx context.Context) ([]types.CatalogEntry, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}
	for i := range entries {
		rules, err := s.rules(ctx, entries[i].ID, 0)
		if err != nil {
			return nil, err
		}
		entries[i].Rules = rules
	}
	if entries == nil {
		entries = []types.CatalogEntry{}
	}
	return entries, nil
}
