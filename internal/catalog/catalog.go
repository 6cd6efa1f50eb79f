// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog keeps a SQLite index of analysed grammars: their size
// statistics and per-rule metadata, keyed by a content hash.
package catalog

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/grammar-extractor/internal/grammar"
	"github.com/pdiddy/grammar-extractor/internal/log"
	"github.com/pdiddy/grammar-extractor/internal/metadata"
	"github.com/pdiddy/grammar-extractor/internal/rpcodec"
	"github.com/pdiddy/grammar-extractor/pkg/types"
)

const (
	dbFile     = "catalog.db"
	defaultDir = "catalog"

	// timeLayout is fixed-width so added_at sorts as text.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

var (
	// ErrNotFound is returned when no grammar matches a reference.
	ErrNotFound = errors.New("grammar not found")

	// ErrAmbiguous is returned when an ID prefix matches several grammars.
	ErrAmbiguous = errors.New("ambiguous grammar reference")
)

// Store manages the catalog SQLite database.
type Store struct {
	db  *sql.DB
	dir string
	now func() time.Time
}

// NewStore opens or creates the catalog at cfg.Dir/catalog.db and creates
// the schema if it does not exist.
func NewStore(cfg types.CatalogConfig) (*Store, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = defaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating catalog directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, dir: dir, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dir returns the directory holding the database and exports.
func (s *Store) Dir() string { return s.dir }

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS grammars (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			source_path TEXT,
			text_len INTEGER NOT NULL,
			rule_count INTEGER NOT NULL,
			seq_len INTEGER NOT NULL,
			rhs_size INTEGER NOT NULL,
			rle_size INTEGER NOT NULL,
			height INTEGER NOT NULL,
			added_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_grammars_name ON grammars(name)`,
		`CREATE TABLE IF NOT EXISTS rules (
			grammar_id TEXT NOT NULL REFERENCES grammars(id) ON DELETE CASCADE,
			rule_id INTEGER NOT NULL,
			vocc INTEGER NOT NULL,
			length INTEGER NOT NULL,
			lambda TEXT NOT NULL,
			lambda_run INTEGER NOT NULL,
			rho TEXT NOT NULL,
			rho_run INTEGER NOT NULL,
			single_block INTEGER NOT NULL,
			PRIMARY KEY (grammar_id, rule_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rules_vocc ON rules(grammar_id, vocc)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// GrammarID returns the catalog key of g: the hex SHA-256 of its
// human-readable form.
func GrammarID(g *grammar.Grammar) (string, error) {
	h := sha256.New()
	if err := grammar.Write(h, g); err != nil {
		return "", fmt.Errorf("hashing grammar: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Add loads the grammar at path (.rp or readable), computes its metadata
// and stores it under name. An empty name uses the file stem. A grammar
// whose ID is already cataloged is left alone and reported with added=false.
func (s *Store) Add(ctx context.Context, name, path string) (entry types.CatalogEntry, added bool, err error) {
	logger := log.Component(ctx, "catalog")

	g, err := rpcodec.Load(path)
	if err != nil {
		return types.CatalogEntry{}, false, err
	}
	id, err := GrammarID(g)
	if err != nil {
		return types.CatalogEntry{}, false, err
	}

	existing, err := s.get(ctx, `SELECT `+grammarColumns+` FROM grammars WHERE id = ?`, id)
	switch {
	case err == nil:
		logger.Debug().Str("id", ShortID(id)).Str("path", path).Msg("grammar unchanged, skipping")
		return existing, false, nil
	case !errors.Is(err, ErrNotFound):
		return types.CatalogEntry{}, false, err
	}

	meta, err := metadata.Compute(g, nil)
	if err != nil {
		return types.CatalogEntry{}, false, fmt.Errorf("computing metadata: %w", err)
	}
	stats, err := metadata.Summarize(g)
	if err != nil {
		return types.CatalogEntry{}, false, fmt.Errorf("measuring grammar: %w", err)
	}

	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	entry = types.CatalogEntry{
		ID:         id,
		Name:       name,
		SourcePath: path,
		Stats:      stats,
		AddedAt:    s.now().UTC(),
		Rules:      metadata.Records(meta),
	}
	if err := s.insert(ctx, entry); err != nil {
		return types.CatalogEntry{}, false, err
	}

	logger.Info().Str("id", ShortID(id)).Str("name", name).Int("rules", stats.RuleCount).Msg("grammar cataloged")
	return entry, true, nil
}

func (s *Store) insert(ctx context.Context, e types.CatalogEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO grammars (id, name, source_path, text_len, rule_count, seq_len, rhs_size, rle_size, height, added_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, source_path=excluded.source_path, added_at=excluded.added_at`,
		e.ID, e.Name, e.SourcePath,
		e.Stats.TextLen, e.Stats.RuleCount, e.Stats.SeqLen,
		e.Stats.RHSSize, e.Stats.RLESize, e.Stats.Height,
		e.AddedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("upserting grammar: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO rules (grammar_id, rule_id, vocc, length, lambda, lambda_run, rho, rho_run, single_block)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range e.Rules {
		_, err := stmt.ExecContext(ctx,
			e.ID, r.RuleID, r.Vocc, r.Length,
			r.Lambda, r.LambdaRun, r.Rho, r.RhoRun, r.SingleBlock,
		)
		if err != nil {
			return fmt.Errorf("inserting rule R%d: %w", r.RuleID, err)
		}
	}

	return tx.Commit()
}

const grammarColumns = `id, name, source_path, text_len, rule_count, seq_len, rhs_size, rle_size, height, added_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (types.CatalogEntry, error) {
	var (
		e       types.CatalogEntry
		source  sql.NullString
		addedAt string
	)
	err := row.Scan(&e.ID, &e.Name, &source,
		&e.Stats.TextLen, &e.Stats.RuleCount, &e.Stats.SeqLen,
		&e.Stats.RHSSize, &e.Stats.RLESize, &e.Stats.Height, &addedAt)
	if err != nil {
		return types.CatalogEntry{}, err
	}
	e.SourcePath = source.String
	if e.Stats.TextLen > 0 {
		e.Stats.Ratio = float64(e.Stats.RHSSize+e.Stats.SeqLen) / float64(e.Stats.TextLen)
	}
	if e.AddedAt, err = time.Parse(timeLayout, addedAt); err != nil {
		return types.CatalogEntry{}, fmt.Errorf("parsing added_at %q: %w", addedAt, err)
	}
	return e, nil
}

func (s *Store) get(ctx context.Context, query string, args ...any) (types.CatalogEntry, error) {
	e, err := scanEntry(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return types.CatalogEntry{}, ErrNotFound
	}
	if err != nil {
		return types.CatalogEntry{}, fmt.Errorf("querying grammar: %w", err)
	}
	return e, nil
}

// List returns every cataloged grammar, oldest first. Rules are not loaded.
func (s *Store) List(ctx context.Context) ([]types.CatalogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+grammarColumns+` FROM grammars ORDER BY added_at, name`)
	if err != nil {
		return nil, fmt.Errorf("listing grammars: %w", err)
	}
	defer rows.Close()

	var out []types.CatalogEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning grammar: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Get resolves ref as an exact ID, an exact name, or a unique ID prefix.
// Rules are not loaded.
func (s *Store) Get(ctx context.Context, ref string) (types.CatalogEntry, error) {
	if ref == "" {
		return types.CatalogEntry{}, ErrNotFound
	}
	e, err := s.get(ctx, `SELECT `+grammarColumns+` FROM grammars WHERE id = ?`, ref)
	if !errors.Is(err, ErrNotFound) {
		return e, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+grammarColumns+` FROM grammars
		 WHERE name = ? OR substr(id, 1, length(?)) = ?
		 ORDER BY added_at LIMIT 2`, ref, ref, ref)
	if err != nil {
		return types.CatalogEntry{}, fmt.Errorf("querying grammar: %w", err)
	}
	defer rows.Close()

	var matches []types.CatalogEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return types.CatalogEntry{}, fmt.Errorf("scanning grammar: %w", err)
		}
		matches = append(matches, e)
	}
	if err := rows.Err(); err != nil {
		return types.CatalogEntry{}, err
	}

	switch len(matches) {
	case 0:
		return types.CatalogEntry{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return types.CatalogEntry{}, fmt.Errorf("%w: %s", ErrAmbiguous, ref)
	}
}

// Rules returns the rule metadata of the grammar ref resolves to, restricted
// to rules occurring at least minVocc times, ordered by rule ID.
func (s *Store) Rules(ctx context.Context, ref string, minVocc int64) ([]types.RuleRecord, error) {
	e, err := s.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.rules(ctx, e.ID, minVocc)
}

func (s *Store) rules(ctx context.Context, id string, minVocc int64) ([]types.RuleRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT rule_id, vocc, length, lambda, lambda_run, rho, rho_run, single_block
		 FROM rules WHERE grammar_id = ? AND vocc >= ? ORDER BY rule_id`, id, minVocc)
	if err != nil {
		return nil, fmt.Errorf("querying rules: %w", err)
	}
	defer rows.Close()

	var out []types.RuleRecord
	for rows.Next() {
		var r types.RuleRecord
		if err := rows.Scan(&r.RuleID, &r.Vocc, &r.Length,
			&r.Lambda, &r.LambdaRun, &r.Rho, &r.RhoRun, &r.SingleBlock); err != nil {
			return nil, fmt.Errorf("scanning rule: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Remove deletes the grammar ref resolves to together with its rules.
func (s *Store) Remove(ctx context.Context, ref string) (types.CatalogEntry, error) {
	e, err := s.Get(ctx, ref)
	if err != nil {
		return types.CatalogEntry{}, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM grammars WHERE id = ?`, e.ID); err != nil {
		return types.CatalogEntry{}, fmt.Errorf("deleting grammar: %w", err)
	}
	logger := log.Component(ctx, "catalog")
	logger.Info().Str("id", ShortID(e.ID)).Str("name", e.Name).Msg("grammar removed")
	return e, nil
}

// ShortID abbreviates a grammar ID for display.
func ShortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
