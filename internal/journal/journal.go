// Package journal persists a per-anchor history of control-plane workflow
// invocations in SQLite. Entries record what was attempted and how it ended;
// they never contain credentials.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"weft/internal/mesh"
)

const schema = `
CREATE TABLE IF NOT EXISTS operations (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	at      TEXT NOT NULL,
	mesh    TEXT NOT NULL,
	op      TEXT NOT NULL,
	target  TEXT NOT NULL DEFAULT '',
	outcome TEXT NOT NULL,
	detail  TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS operations_mesh ON operations(mesh, id);
`

// Entry is one recorded workflow invocation, as read back for display.
type Entry struct {
	At      time.Time
	Mesh    string
	Op      string
	Target  string
	Outcome string
	Detail  string
}

// Journal implements mesh.Journal backed by SQLite.
type Journal struct {
	db *sql.DB
}

var _ mesh.Journal = (*Journal)(nil)

// Open creates or opens the journal database at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Record appends one entry.
func (j *Journal) Record(ctx context.Context, e mesh.JournalEntry) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO operations (at, mesh, op, target, outcome, detail) VALUES (?, ?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339),
		e.Mesh, e.Op, e.Target, e.Outcome, e.Detail,
	)
	if err != nil {
		return fmt.Errorf("record journal entry: %w", err)
	}
	return nil
}

// List returns the most recent entries for one mesh, newest first, capped at
// limit (or all when limit <= 0).
func (j *Journal) List(ctx context.Context, meshName string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as unbounded.
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT at, mesh, op, target, outcome, detail
FROM operations
WHERE mesh = ?
ORDER BY id DESC
LIMIT ?`, meshName, limit)
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var at string
		if err := rows.Scan(&at, &e.Mesh, &e.Op, &e.Target, &e.Outcome, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, at); err == nil {
			e.At = t
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	return out, nil
}
