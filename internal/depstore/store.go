// Package depstore persists per-document dependency records between builds so
// that unchanged documents can be skipped.
package depstore

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Status of a document after its last build.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Record is everything remembered about one document.
type Record struct {
	DocName    string
	SourcePath string
	SourceHash string
	Status     string
	Reread     bool
	BuildID    string
	UpdatedAt  time.Time
	// Dependencies maps doc-root-relative paths to content hashes.
	Dependencies map[string]string
	// Outputs are the absolute paths of files the build wrote.
	Outputs  []string
	Metadata map[string]any
}

// Store keeps dependency records in SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens (and creates when needed) the store at dbPath. ":memory:" keeps
// the records in memory only.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create state directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		docname TEXT PRIMARY KEY,
		source_path TEXT NOT NULL,
		source_hash TEXT NOT NULL,
		status TEXT NOT NULL,
		reread INTEGER NOT NULL DEFAULT 0,
		build_id TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS dependencies (
		docname TEXT NOT NULL,
		path TEXT NOT NULL,
		hash TEXT NOT NULL,
		PRIMARY KEY (docname, path)
	);
	CREATE TABLE IF NOT EXISTS metadata (
		docname TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (docname, key)
	);
	CREATE TABLE IF NOT EXISTS outputs (
		docname TEXT NOT NULL,
		path TEXT NOT NULL,
		PRIMARY KEY (docname, path)
	);
	CREATE INDEX IF NOT EXISTS idx_dependencies_path ON dependencies(path);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Put replaces the record of rec.DocName.
func (s *Store) Put(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	updated := rec.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	reread := 0
	if rec.Reread {
		reread = 1
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents (docname, source_path, source_hash, status, reread, build_id, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(docname) DO UPDATE SET source_path = excluded.source_path,
		   source_hash = excluded.source_hash, status = excluded.status, reread = excluded.reread,
		   build_id = excluded.build_id, updated_at = excluded.updated_at`,
		rec.DocName, rec.SourcePath, rec.SourceHash, rec.Status, reread, rec.BuildID, updated.Unix(),
	); err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM dependencies WHERE docname = ?", rec.DocName); err != nil {
		return fmt.Errorf("clear dependencies: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM metadata WHERE docname = ?", rec.DocName); err != nil {
		return fmt.Errorf("clear metadata: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM outputs WHERE docname = ?", rec.DocName); err != nil {
		return fmt.Errorf("clear outputs: %w", err)
	}
	for path, hash := range rec.Dependencies {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO dependencies (docname, path, hash) VALUES (?, ?, ?)",
			rec.DocName, path, hash,
		); err != nil {
			return fmt.Errorf("insert dependency %s: %w", path, err)
		}
	}
	for _, path := range rec.Outputs {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO outputs (docname, path) VALUES (?, ?)",
			rec.DocName, path,
		); err != nil {
			return fmt.Errorf("insert output %s: %w", path, err)
		}
	}
	for key, value := range rec.Metadata {
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal metadata %s: %w", key, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO metadata (docname, key, value) VALUES (?, ?, ?)",
			rec.DocName, key, string(encoded),
		); err != nil {
			return fmt.Errorf("insert metadata %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Get returns the record of docName. The boolean is false when none exists.
func (s *Store) Get(ctx context.Context, docName string) (Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec := Record{DocName: docName}
	var reread int
	var updated int64
	err := s.db.QueryRowContext(ctx,
		"SELECT source_path, source_hash, status, reread, build_id, updated_at FROM documents WHERE docname = ?",
		docName,
	).Scan(&rec.SourcePath, &rec.SourceHash, &rec.Status, &reread, &rec.BuildID, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("query document: %w", err)
	}
	rec.Reread = reread != 0
	rec.UpdatedAt = time.Unix(updated, 0)

	if rec.Dependencies, err = s.dependencies(ctx, docName); err != nil {
		return Record{}, false, err
	}
	if rec.Outputs, err = s.outputs(ctx, docName); err != nil {
		return Record{}, false, err
	}
	if rec.Metadata, err = s.metadata(ctx, docName); err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

func (s *Store) dependencies(ctx context.Context, docName string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT path, hash FROM dependencies WHERE docname = ?", docName)
	if err != nil {
		return nil, fmt.Errorf("query dependencies: %w", err)
	}
	defer rows.Close()

	deps := make(map[string]string)
	for rows.Next() {
		var path, hash string
		if err := rows.Scan(&path, &hash); err != nil {
			return nil, fmt.Errorf("scan dependency: %w", err)
		}
		deps[path] = hash
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return deps, nil
}

func (s *Store) outputs(ctx context.Context, docName string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT path FROM outputs WHERE docname = ? ORDER BY path", docName)
	if err != nil {
		return nil, fmt.Errorf("query outputs: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("scan output: %w", err)
		}
		paths = append(paths, path)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return paths, nil
}

func (s *Store) metadata(ctx context.Context, docName string) (map[string]any, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM metadata WHERE docname = ?", docName)
	if err != nil {
		return nil, fmt.Errorf("query metadata: %w", err)
	}
	defer rows.Close()

	meta := make(map[string]any)
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("scan metadata: %w", err)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("unmarshal metadata %s: %w", key, err)
		}
		meta[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return meta, nil
}

// DocNames lists every recorded document, sorted.
func (s *Store) DocNames(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT docname FROM documents ORDER BY docname")
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return names, nil
}

// Dependents returns the documents that depend on the doc-root-relative path.
func (s *Store) Dependents(ctx context.Context, path string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT docname FROM dependencies WHERE path = ? ORDER BY docname", path)
	if err != nil {
		return nil, fmt.Errorf("query dependents: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan dependent: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Delete forgets docName.
func (s *Store) Delete(ctx context.Context, docName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"documents", "dependencies", "outputs", "metadata"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE docname = ?", docName); err != nil {
			return fmt.Errorf("delete from %s: %w", table, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// HashFile returns the hex SHA-256 of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashBytes returns the hex SHA-256 of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
