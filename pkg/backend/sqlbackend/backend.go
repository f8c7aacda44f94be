// Package sqlbackend implements the Relational storage backend variant
// over a SQLite database, storing a single flat "keys" table reached
// through modernc.org/sqlite's pure-Go driver.
//
// Init takes a filesystem path, not a "sqlite://" DSN: GHOST_STASH_PATH
// names a file the same way it does for the Embedded-JSON variant, and
// this package hands that path to the sqlite driver unchanged. A bare
// path is interpreted as a file on disk.
package sqlbackend

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/nir0s/clu/pkg/backend"
	"github.com/nir0s/clu/pkg/record"
)

//go:embed schema.sql
var schemaSQL string

// Backend persists records in a SQLite "keys" table.
type Backend struct {
	mu   sync.Mutex
	path string
	db   *sql.DB
}

// New creates a Backend bound to path (a plain filesystem path).
func New(path string) *Backend {
	return &Backend{path: path}
}

// Init creates the parent directory if missing, opens the database, and
// creates the keys table. Returns backend.ErrAlreadyInitialized if the
// table already exists.
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if dir := filepath.Dir(b.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return backend.Fail("init", err)
		}
	}

	db, err := sql.Open("sqlite", b.path)
	if err != nil {
		return backend.Fail("init", err)
	}

	var exists bool
	err = db.QueryRow(
		"SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = 'keys'",
	).Scan(&exists)
	if err != nil && err != sql.ErrNoRows {
		db.Close()
		return backend.Fail("init", err)
	}
	if exists {
		db.Close()
		return backend.ErrAlreadyInitialized
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return backend.Fail("init", err)
	}

	b.db = db
	return nil
}

// Open attaches to an already-initialized database file.
func (b *Backend) Open() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	db, err := sql.Open("sqlite", b.path)
	if err != nil {
		return backend.Fail("open", err)
	}
	b.db = db
	return nil
}

// Put upserts doc by name and returns the SQLite rowid of the row.
func (b *Backend) Put(rec record.Record) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	metadata, err := encodeMetadata(rec.Metadata)
	if err != nil {
		return 0, backend.Fail("put", err)
	}

	_, err = b.db.Exec(
		`INSERT INTO keys (name, value, description, metadata, uid, created_at, modified_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   value = excluded.value,
		   description = excluded.description,
		   metadata = excluded.metadata,
		   uid = excluded.uid,
		   created_at = excluded.created_at,
		   modified_at = excluded.modified_at`,
		rec.Name, rec.Value, rec.Description, metadata, rec.UID, rec.CreatedAt, rec.ModifiedAt,
	)
	if err != nil {
		return 0, backend.Fail("put", err)
	}

	var rowid int64
	if err := b.db.QueryRow("SELECT rowid FROM keys WHERE name = ?", rec.Name).Scan(&rowid); err != nil {
		return 0, backend.Fail("put", err)
	}
	return rowid, nil
}

// Get returns the record named name, or ok=false if absent.
func (b *Backend) Get(name string) (record.Record, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	row := b.db.QueryRow(
		"SELECT name, value, description, metadata, uid, created_at, modified_at FROM keys WHERE name = ?",
		name,
	)
	rec, err := hydrate(row)
	if err == sql.ErrNoRows {
		return record.Record{}, false, nil
	}
	if err != nil {
		return record.Record{}, false, backend.Fail("get", err)
	}
	return rec, true, nil
}

// List returns every record in rowid (insertion) order.
func (b *Backend) List() ([]record.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rows, err := b.db.Query(
		"SELECT name, value, description, metadata, uid, created_at, modified_at FROM keys ORDER BY rowid",
	)
	if err != nil {
		return nil, backend.Fail("list", err)
	}
	defer rows.Close()

	var out []record.Record
	for rows.Next() {
		rec, err := hydrate(rows)
		if err != nil {
			return nil, backend.Fail("list", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, backend.Fail("list", err)
	}
	return out, nil
}

// Delete removes the record named name and reports whether it existed.
func (b *Backend) Delete(name string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	result, err := b.db.Exec("DELETE FROM keys WHERE name = ?", name)
	if err != nil {
		return false, backend.Fail("delete", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, backend.Fail("delete", err)
	}
	return n > 0, nil
}

// Close closes the underlying database connection. Close is idempotent.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	if err != nil {
		return backend.Fail("close", err)
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows, both of which expose Scan.
type scanner interface {
	Scan(dest ...any) error
}

func hydrate(s scanner) (record.Record, error) {
	var (
		rec         record.Record
		description sql.NullString
		metadata    sql.NullString
	)
	if err := s.Scan(&rec.Name, &rec.Value, &description, &metadata, &rec.UID, &rec.CreatedAt, &rec.ModifiedAt); err != nil {
		return record.Record{}, err
	}
	if description.Valid {
		rec.Description = &description.String
	}
	if metadata.Valid && metadata.String != "" {
		m, err := decodeMetadata(metadata.String)
		if err != nil {
			return record.Record{}, err
		}
		rec.Metadata = m
	}
	return rec, nil
}

func encodeMetadata(m map[string]string) (any, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return string(b), nil
}

func decodeMetadata(s string) (map[string]string, error) {
	var m map[string]string
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return m, nil
}
