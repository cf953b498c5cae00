package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Ledger is the persisted record of source documents already indexed
// into a knowledge base. It survives process restarts, so duplicate
// ingestion is rejected across runs.
type Ledger struct {
	db *sql.DB
}

// OpenLedger opens (creating if necessary) the ledger database at
// path. Each knowledge base keeps its own ledger file.
func OpenLedger(path string) (*Ledger, error) {
	if path == "" {
		return nil, fmt.Errorf("ledger path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS ingested_sources (
		source_id   TEXT PRIMARY KEY,
		ingested_at TEXT NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize ledger schema: %w", err)
	}

	return &Ledger{db: db}, nil
}

// Has reports whether sourceID has already been ingested.
func (l *Ledger) Has(ctx context.Context, sourceID string) (bool, error) {
	var one int
	err := l.db.QueryRowContext(ctx,
		"SELECT 1 FROM ingested_sources WHERE source_id = ?", sourceID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ledger lookup failed: %w", err)
	}
	return true, nil
}

// Add records sourceID as ingested. Recording an already-present id is
// a no-op.
func (l *Ledger) Add(ctx context.Context, sourceID string) error {
	_, err := l.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO ingested_sources (source_id, ingested_at) VALUES (?, ?)",
		sourceID, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("ledger insert failed: %w", err)
	}
	return nil
}

// List returns every ingested source id in insertion order.
func (l *Ledger) List(ctx context.Context) ([]string, error) {
	rows, err := l.db.QueryContext(ctx,
		"SELECT source_id FROM ingested_sources ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("ledger list failed: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ledger scan failed: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Clear forgets every ingested source, returning all of them to the
// not-ingested state.
func (l *Ledger) Clear(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, "DELETE FROM ingested_sources"); err != nil {
		return fmt.Errorf("ledger clear failed: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (l *Ledger) Close() error {
	return l.db.Close()
}
