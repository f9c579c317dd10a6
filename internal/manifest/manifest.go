// Package manifest keeps a SQLite ledger of completed builds and the pages
// each one wrote.
package manifest

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/dainiki/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS builds (
	id          TEXT PRIMARY KEY,
	started_at  DATETIME NOT NULL,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	output_dir  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS pages (
	build_id TEXT NOT NULL REFERENCES builds(id) ON DELETE CASCADE,
	name     TEXT NOT NULL,
	checksum TEXT NOT NULL,
	size     INTEGER NOT NULL DEFAULT 0,
	UNIQUE(build_id, name)
);

CREATE INDEX IF NOT EXISTS idx_builds_started_at ON builds(started_at);
`

// Ledger is the build history store.
type Ledger interface {
	RecordBuild(rec models.BuildRecord) error
	ListBuilds(limit int) ([]models.BuildRecord, error)
	Pages(buildID string) ([]models.PageRecord, error)
	Close() error
}

// Verify *DB satisfies Ledger at compile time.
var _ Ledger = (*DB)(nil)

// DB wraps a sql.DB with manifest operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("manifest: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("manifest: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("manifest: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// RecordBuild stores a build and its pages within a transaction.
func (db *DB) RecordBuild(rec models.BuildRecord) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("manifest: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`INSERT INTO builds (id, started_at, duration_ms, output_dir) VALUES (?, ?, ?, ?)`,
		rec.ID, rec.StartedAt.UTC(), rec.Duration.Milliseconds(), rec.OutputDir)
	if err != nil {
		return fmt.Errorf("manifest: insert build: %w", err)
	}

	if len(rec.Pages) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO pages (build_id, name, checksum, size) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("manifest: prepare page insert: %w", err)
		}
		defer stmt.Close()
		for _, p := range rec.Pages {
			if _, err := stmt.Exec(rec.ID, p.Name, p.Checksum, p.Size); err != nil {
				return fmt.Errorf("manifest: insert page %s: %w", p.Name, err)
			}
		}
	}

	return tx.Commit()
}

// ListBuilds returns the most recent builds first, without their pages.
func (db *DB) ListBuilds(limit int) ([]models.BuildRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT id, started_at, duration_ms, output_dir
		FROM builds
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("manifest: list builds: %w", err)
	}
	defer rows.Close()

	var out []models.BuildRecord
	for rows.Next() {
		var (
			rec models.BuildRecord
			ms  int64
		)
		if err := rows.Scan(&rec.ID, &rec.StartedAt, &ms, &rec.OutputDir); err != nil {
			return nil, err
		}
		rec.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Pages returns the pages written by a build, ordered by name.
func (db *DB) Pages(buildID string) ([]models.PageRecord, error) {
	rows, err := db.conn.Query(`SELECT name, checksum, size FROM pages WHERE build_id = ? ORDER BY name`, buildID)
	if err != nil {
		return nil, fmt.Errorf("manifest: pages: %w", err)
	}
	defer rows.Close()

	var out []models.PageRecord
	for rows.Next() {
		var p models.PageRecord
		if err := rows.Scan(&p.Name, &p.Checksum, &p.Size); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
