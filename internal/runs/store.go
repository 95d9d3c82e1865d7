// Package runs provides a SQLite-backed history store for ingestion runs.
// Every pipeline execution records a summary row so operators can answer
// "what did we ingest, when, and did it work" without trawling logs.
package runs

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver

	"github.com/54b3r/edurag-go/internal/ingest"
)

// Record is a persisted summary of one ingestion run.
type Record struct {
	// ID is the auto-assigned row identifier.
	ID int64 `json:"id"`
	// SourceType is the adapter that produced the run (youtube, boclips, ...).
	SourceType string `json:"source_type"`
	// SourceRef is the raw reference the run was invoked with.
	SourceRef string `json:"source_ref"`
	// SourceID is the resolved source identifier, empty if resolution failed.
	SourceID string `json:"source_id,omitempty"`
	// Title is the source title, when the adapter could determine one.
	Title string `json:"title,omitempty"`
	// TotalChunks is the number of chunks produced from the source text.
	TotalChunks int `json:"total_chunks"`
	// Inserted is the number of chunks written to the vector index.
	Inserted int `json:"inserted"`
	// Skipped is the number of chunks dropped as near-duplicates.
	Skipped int `json:"skipped"`
	// Elapsed is the wall-clock duration of the run.
	Elapsed time.Duration `json:"elapsed"`
	// Message is the human-readable outcome summary.
	Message string `json:"message,omitempty"`
	// Error is the run-fatal error text, empty on success.
	Error string `json:"error,omitempty"`
	// CreatedAt is when the run was recorded.
	CreatedAt time.Time `json:"created_at"`
}

// Failed reports whether the recorded run ended with a fatal error.
func (r Record) Failed() bool { return r.Error != "" }

// Store persists and lists ingestion run records. Implementations must be
// safe for concurrent use.
type Store interface {
	// Record persists a summary of the given run result.
	Record(ctx context.Context, res *ingest.Result) error
	// Recent returns up to n records, newest first. sourceType narrows the
	// listing to a single adapter; pass "" for all sources.
	Recent(ctx context.Context, sourceType string, n int) ([]Record, error)
	// Close releases any resources held by the store.
	Close() error
}

// SQLiteStore is a Store backed by a local SQLite database.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the run history database.
// It resolves to ~/.edurag/runs.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("runs: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".edurag")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("runs: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "runs.db"), nil
}

// Open opens (or creates) a SQLiteStore at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("runs: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS ingestion_runs (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    source_type  TEXT    NOT NULL,
    source_ref   TEXT    NOT NULL,
    source_id    TEXT    NOT NULL DEFAULT '',
    title        TEXT    NOT NULL DEFAULT '',
    total_chunks INTEGER NOT NULL DEFAULT 0,
    inserted     INTEGER NOT NULL DEFAULT 0,
    skipped      INTEGER NOT NULL DEFAULT 0,
    elapsed_ms   INTEGER NOT NULL DEFAULT 0,
    message      TEXT    NOT NULL DEFAULT '',
    error        TEXT    NOT NULL DEFAULT '',
    created_at   INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_ingestion_runs_source_created
    ON ingestion_runs (source_type, created_at);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("runs: migrate: %w", err)
	}
	return nil
}

// Record persists a summary of the given run result.
func (s *SQLiteStore) Record(ctx context.Context, res *ingest.Result) error {
	if res == nil {
		return fmt.Errorf("runs: record: nil result")
	}
	const q = `
INSERT INTO ingestion_runs
    (source_type, source_ref, source_id, title, total_chunks, inserted, skipped, elapsed_ms, message, error, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		res.SourceType, res.SourceRef, res.SourceID, res.Title,
		res.TotalChunks, len(res.InsertedIDs), res.SkippedCount,
		res.Elapsed.Milliseconds(), res.Message, res.Error, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("runs: record: %w", err)
	}
	return nil
}

// Recent returns up to n records, newest first, optionally narrowed to a
// single source type.
func (s *SQLiteStore) Recent(ctx context.Context, sourceType string, n int) ([]Record, error) {
	const q = `
SELECT id, source_type, source_ref, source_id, title, total_chunks, inserted, skipped, elapsed_ms, message, error, created_at
FROM   ingestion_runs
WHERE  (? = '' OR source_type = ?)
ORDER  BY created_at DESC, id DESC
LIMIT  ?`

	rows, err := s.db.QueryContext(ctx, q, sourceType, sourceType, n)
	if err != nil {
		return nil, fmt.Errorf("runs: recent: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var r Record
		var elapsedMS, ts int64
		if err := rows.Scan(&r.ID, &r.SourceType, &r.SourceRef, &r.SourceID, &r.Title,
			&r.TotalChunks, &r.Inserted, &r.Skipped, &elapsedMS, &r.Message, &r.Error, &ts); err != nil {
			return nil, fmt.Errorf("runs: recent scan: %w", err)
		}
		r.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		r.CreatedAt = time.Unix(ts, 0)
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("runs: recent rows: %w", err)
	}
	return recs, nil
}

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("runs: close: %w", err)
	}
	return nil
}
