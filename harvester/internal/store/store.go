// Package store persists scan history in SQLite.
//
// The caller must blank-import a database/sql driver registered as "sqlite":
//
//	import _ "modernc.org/sqlite"
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const schema = `
CREATE TABLE IF NOT EXISTS scans (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    format     TEXT NOT NULL,
    size       INTEGER NOT NULL,
    emails     INTEGER NOT NULL,
    created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS scan_emails (
    scan_id TEXT NOT NULL REFERENCES scans(id) ON DELETE CASCADE,
    address TEXT NOT NULL,
    UNIQUE (scan_id, address)
);
CREATE INDEX IF NOT EXISTS idx_scan_emails_address ON scan_emails (address);
CREATE INDEX IF NOT EXISTS idx_scans_created ON scans (created_at);
`

// Scan is one recording request.
type Scan struct {
	Name   string
	Format string
	Size   int64
	Emails []string
}

// ScanInfo is one history row.
type ScanInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Format    string    `json:"format"`
	Size      int64     `json:"size"`
	Emails    int       `json:"emails"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the SQLite-backed history store.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed creates) the database at path, applying WAL and
// busy-timeout pragmas plus the schema. Parent directories are created.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("store: mkdir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func newScanID() string {
	return "scan_" + uuid.Must(uuid.NewV7()).String()
}

// Record inserts a scan and its addresses in one transaction, retrying on
// SQLITE_BUSY. Returns the generated scan ID.
func (s *Store) Record(ctx context.Context, sc Scan) (string, error) {
	id := newScanID()
	err := runTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO scans (id, name, format, size, emails, created_at)
			VALUES (?,?,?,?,?,?)`,
			id, sc.Name, sc.Format, sc.Size, len(sc.Emails), time.Now().UnixMilli())
		if err != nil {
			return err
		}
		for _, addr := range sc.Emails {
			if _, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO scan_emails (scan_id, address) VALUES (?,?)`,
				id, addr); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("store: record: %w", err)
	}
	return id, nil
}

// Addresses returns every distinct recorded address, sorted.
func (s *Store) Addresses(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT address FROM scan_emails ORDER BY address`)
	if err != nil {
		return nil, fmt.Errorf("store: addresses: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, rows.Err()
}

// History returns the most recent scans, newest first. limit <= 0 means 50.
func (s *Store) History(ctx context.Context, limit int) ([]ScanInfo, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, format, size, emails, created_at
		FROM scans ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: history: %w", err)
	}
	defer rows.Close()

	var out []ScanInfo
	for rows.Next() {
		var info ScanInfo
		var createdMs int64
		if err := rows.Scan(&info.ID, &info.Name, &info.Format, &info.Size, &info.Emails, &createdMs); err != nil {
			return nil, err
		}
		info.CreatedAt = time.UnixMilli(createdMs)
		out = append(out, info)
	}
	return out, rows.Err()
}

const maxRetries = 3

// isBusy reports whether err indicates an SQLite BUSY condition.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// runTx executes fn inside a transaction with retry on SQLITE_BUSY.
func runTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	for i := range maxRetries {
		err := runOnce(ctx, db, fn)
		if err == nil {
			return nil
		}
		if !isBusy(err) || i == maxRetries-1 {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(100*(i+1)) * time.Millisecond):
		}
	}
	return fmt.Errorf("store: max retries exceeded")
}

func runOnce(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
