package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on resolutions(run_id, operation)
const currentSchemaVersion = 1

// Store is the resolution journal. It uses SQLite with WAL mode so traces can be
// read while a run is still writing. One Store may be shared by a Recorder and
// any number of readers.
type Store struct {
	db *sql.DB
}

// Open creates or opens a journal at the given path, applying pragmas and
// migrations.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (a crash may lose the last few resolutions, never corrupt a run)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement (resolutions and clears reference runs)
//
// Open is idempotent: reopening an existing journal reapplies the schema
// and only the migrations it has not seen.
func Open(path string) (*Store, error) {
	// Creates the file if it doesn't exist.
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sql.Open is lazy; Ping surfaces a bad path or permissions here.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure the pool for SQLite. It allows one writer at a time, and a
	// second connection would just wait on the busy timeout.
	db.SetMaxOpenConns(1) // single writer, no SQLITE_BUSY between our own conns
	db.SetMaxIdleConns(1) // keep it warm between recorder writes

	// Pragmas are per connection; with a pool of one they stick.
	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	// Tables first, then migrations on top of them.
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection. A Recorder writing to the store must
// be done before Close is called.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Query executes a read-only query against the journal. Callers close the rows.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}

// applyPragmas sets the journal's SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates the tables if they don't exist and migrates them.
// Every statement in schema.sql is IF NOT EXISTS, so this is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
// A fresh journal reports version 0 even though schema.sql already created
// the tables, so every migration must tolerate running against a current schema.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	// Apply in order; each step assumes the ones before it ran.
	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	// Record the version only after every step succeeded, so a failed
	// migration is retried on the next Open.
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 indexes resolutions by operation for trace filtering.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_resolutions_operation
		ON resolutions(run_id, operation)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
