// Package store is the SQLite persistence layer: a per-paragraph result
// memory that lets repeated submissions skip the model host, and the user
// terminology glossary injected into translation prompts.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"
)

// Modes partition the result memory: a paragraph corrected by the grammar
// pipeline must never satisfy a translation lookup.
const (
	ModeFix       = "fix"
	ModeTranslate = "translate"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS result_memory (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		source_text TEXT NOT NULL,
		source_lang TEXT NOT NULL DEFAULT '',
		target_lang TEXT NOT NULL DEFAULT '',
		output_text TEXT NOT NULL,
		model TEXT,
		usage_count INTEGER DEFAULT 1,
		invalidated BOOLEAN DEFAULT FALSE,
		last_used TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(mode, source_text, source_lang, target_lang)
	);

	CREATE TABLE IF NOT EXISTS glossary (
		id TEXT PRIMARY KEY,
		source_lang TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		source_term TEXT NOT NULL,
		target_term TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(source_lang, target_lang, source_term)
	);

	CREATE INDEX IF NOT EXISTS idx_memory_lookup ON result_memory(mode, source_text, source_lang, target_lang);
	CREATE INDEX IF NOT EXISTS idx_glossary_lookup ON glossary(source_lang, target_lang);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// GetCached looks up a remembered result for one paragraph. A hit bumps the
// usage counter. Invalidated entries behave like misses.
func (s *Store) GetCached(ctx context.Context, mode, sourceText, sourceLang, targetLang string) (string, bool, error) {
	key := normalizeKey(sourceText)

	var outputText string
	var invalidated bool
	err := s.db.QueryRowContext(ctx,
		`SELECT output_text, invalidated FROM result_memory WHERE mode = ? AND source_text = ? AND source_lang = ? AND target_lang = ?`,
		mode, key, sourceLang, targetLang).Scan(&outputText, &invalidated)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if invalidated {
		return "", false, nil
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE result_memory SET usage_count = usage_count + 1, last_used = ? WHERE mode = ? AND source_text = ? AND source_lang = ? AND target_lang = ?`,
		time.Now(), mode, key, sourceLang, targetLang)
	return outputText, true, err
}

// SaveResult remembers one paragraph's processed text, replacing any earlier
// entry for the same key.
func (s *Store) SaveResult(ctx context.Context, mode, sourceText, sourceLang, targetLang, outputText, model string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO result_memory (id, mode, source_text, source_lang, target_lang, output_text, model, usage_count, invalidated, last_used, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, 1, FALSE, ?, ?)`,
		uuid.New().String(), mode, normalizeKey(sourceText), sourceLang, targetLang, outputText, model, time.Now(), time.Now())
	return err
}

// MemoryEntry is a row from the result_memory table.
type MemoryEntry struct {
	ID          string
	Mode        string
	SourceText  string
	SourceLang  string
	TargetLang  string
	OutputText  string
	Model       string
	UsageCount  int
	Invalidated bool
	LastUsed    time.Time
}

// ListMemory returns all entries ordered by most recently used.
func (s *Store) ListMemory(ctx context.Context) ([]MemoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mode, source_text, source_lang, target_lang, output_text, COALESCE(model, ''), usage_count, invalidated, last_used FROM result_memory ORDER BY last_used DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []MemoryEntry
	for rows.Next() {
		var e MemoryEntry
		if err := rows.Scan(&e.ID, &e.Mode, &e.SourceText, &e.SourceLang, &e.TargetLang, &e.OutputText, &e.Model, &e.UsageCount, &e.Invalidated, &e.LastUsed); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Invalidate marks an entry invalid without deleting it.
func (s *Store) Invalidate(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE result_memory SET invalidated = TRUE WHERE id = ?`, id)
	return err
}

// DeleteMemory permanently removes one entry by ID.
func (s *Store) DeleteMemory(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM result_memory WHERE id = ?`, id)
	return err
}

// ClearMemory removes all entries and reports how many were deleted.
func (s *Store) ClearMemory(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM result_memory`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MemoryStats summarises result memory usage.
type MemoryStats struct {
	TotalEntries   int
	ActiveEntries  int
	InvalidEntries int
	TotalUsage     int
}

func (s *Store) Stats(ctx context.Context) (*MemoryStats, error) {
	stats := &MemoryStats{}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN NOT invalidated THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN invalidated THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(usage_count), 0)
		FROM result_memory`).Scan(
		&stats.TotalEntries,
		&stats.ActiveEntries,
		&stats.InvalidEntries,
		&stats.TotalUsage,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// GlossaryEntry is a user terminology pair for one language direction.
type GlossaryEntry struct {
	ID         string
	SourceLang string
	TargetLang string
	SourceTerm string
	TargetTerm string
}

// AddGlossaryTerm inserts or updates one terminology pair.
func (s *Store) AddGlossaryTerm(ctx context.Context, sourceLang, targetLang, sourceTerm, targetTerm string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO glossary (id, source_lang, target_lang, source_term, target_term) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(source_lang, target_lang, source_term) DO UPDATE SET target_term = excluded.target_term`,
		uuid.New().String(), sourceLang, targetLang, sourceTerm, targetTerm)
	return err
}

// ListGlossaryTerms returns entries, optionally filtered by language codes
// (empty string matches everything).
func (s *Store) ListGlossaryTerms(ctx context.Context, sourceLang, targetLang string) ([]GlossaryEntry, error) {
	query := `SELECT id, source_lang, target_lang, source_term, target_term FROM glossary`
	var conds []string
	var args []any
	if sourceLang != "" {
		conds = append(conds, "source_lang = ?")
		args = append(args, sourceLang)
	}
	if targetLang != "" {
		conds = append(conds, "target_lang = ?")
		args = append(args, targetLang)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY source_term"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []GlossaryEntry
	for rows.Next() {
		var e GlossaryEntry
		if err := rows.Scan(&e.ID, &e.SourceLang, &e.TargetLang, &e.SourceTerm, &e.TargetTerm); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteGlossaryTerm removes one entry by ID.
func (s *Store) DeleteGlossaryTerm(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM glossary WHERE id = ?`, id)
	return err
}

// normalizeKey trims whitespace and applies Unicode NFC normalization so
// visually identical paragraphs hit the same memory row.
func normalizeKey(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}
