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
// 1 - Initial schema (time_terms + prescription_drugs)
const currentSchemaVersion = 1

// Store provides durable storage for prescription records and the
// time-term lookup table. Uses SQLite with WAL mode for concurrent
// read access during writes.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas, the schema, and the time-term seed
// automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement (timeTermId is delete-restrict)
//
// The connection pool is limited to a single connection: SQLite
// supports only one writer at a time, and funneling every statement
// through one connection serializes all mutations at the store level.
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Single writer to avoid SQLITE_BUSY errors
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	if err := seedTimeTerms(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to seed time terms: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
// Should be called when the store is no longer needed.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Query executes a raw query and returns the resulting rows.
// Used by the external facade, which builds its own SQL from address
// patterns. Callers are responsible for closing the returned rows.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}

// Exec executes a raw statement and returns the result.
// Used by the external facade for its address-routed mutations.
// Constraint violations are translated into the store error taxonomy.
func (s *Store) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, translateConstraintError(err)
	}
	return res, nil
}

// applyPragmas sets required SQLite configuration.
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

// applySchema creates tables if they don't exist.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// seedTimeTerms inserts the nine fixed time-term rows on first
// creation. The table is read-only afterward; reopening an existing
// database leaves it untouched.
func seedTimeTerms(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM time_terms").Scan(&count); err != nil {
		return fmt.Errorf("count time terms: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, t := range SeedTimeTerms() {
		if _, err := tx.Exec(
			"INSERT INTO time_terms (id, code, sortOrder) VALUES (?, ?, ?)",
			t.ID, t.Code, t.SortOrder,
		); err != nil {
			return fmt.Errorf("seed term %d: %w", t.ID, err)
		}
	}

	return tx.Commit()
}
