// Package history persists finished gate runs so trends can be inspected
// after the fact. SQLite is the default store; a postgres:// DSN selects
// PostgreSQL through pgx.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Driver names registered with database/sql.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// timeLayout is fixed-width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// Store wraps the history database connection.
type Store struct {
	conn   *sql.DB
	driver string
}

// IsPostgres reports whether dsn names a PostgreSQL database.
func IsPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Open opens or creates the store described by dsn. Anything that is not a
// postgres URL is treated as a SQLite file path; its directory is created.
func Open(dsn string) (*Store, error) {
	if IsPostgres(dsn) {
		conn, err := sql.Open(DriverPostgres, dsn)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := conn.Ping(); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		return &Store{conn: conn, driver: DriverPostgres}, nil
	}

	if dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create directory for %s: %w", dsn, err)
		}
	}
	conn, err := sql.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &Store{conn: conn, driver: DriverSQLite}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Driver returns the database/sql driver in use.
func (s *Store) Driver() string {
	return s.driver
}

var placeholderRe = regexp.MustCompile(`\$\d+`)

// rebind converts $N placeholders to the driver's syntax.
func (s *Store) rebind(query string) string {
	if s.driver == DriverPostgres {
		return query
	}
	return placeholderRe.ReplaceAllString(query, "?")
}

// schemaV1 is portable between SQLite and PostgreSQL. Statements are run one
// at a time.
var schemaV1 = []string{
	`CREATE TABLE IF NOT EXISTS gate_runs (
    id            TEXT PRIMARY KEY,
    project_root  TEXT NOT NULL,
    config_digest TEXT NOT NULL DEFAULT '',
    success       BOOLEAN NOT NULL,
    total         INTEGER NOT NULL,
    passed        INTEGER NOT NULL,
    failed        INTEGER NOT NULL,
    skipped       INTEGER NOT NULL,
    errors        INTEGER NOT NULL,
    duration_ms   BIGINT NOT NULL,
    created_at    TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_gate_runs_created ON gate_runs(created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS gate_results (
    run_id        TEXT NOT NULL REFERENCES gate_runs(id) ON DELETE CASCADE,
    position      INTEGER NOT NULL,
    name          TEXT NOT NULL,
    status        TEXT NOT NULL CHECK(status IN ('passed','failed','skipped','error')),
    message       TEXT NOT NULL DEFAULT '',
    duration_ms   BIGINT NOT NULL,
    error_count   INTEGER NOT NULL DEFAULT 0,
    warning_count INTEGER NOT NULL DEFAULT 0,
    details       TEXT,
    PRIMARY KEY (run_id, position)
)`,
	`CREATE INDEX IF NOT EXISTS idx_gate_results_name ON gate_results(name)`,
}

// Migrate applies the schema. It is safe to call on every open.
func (s *Store) Migrate() error {
	if _, err := s.conn.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
    version    INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	var count int
	err := s.conn.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = 1").Scan(&count)
	if err == nil && count > 0 {
		return nil
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range schemaV1 {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema v1: %w", err)
		}
	}
	if _, err := tx.Exec(s.rebind("INSERT INTO schema_version (version, applied_at) VALUES (1, $1)"),
		time.Now().UTC().Format(timeLayout)); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}

// Reset drops all tables and re-applies the schema.
func (s *Store) Reset() error {
	for _, t := range []string{"gate_results", "gate_runs", "schema_version"} {
		if _, err := s.conn.Exec("DROP TABLE IF EXISTS " + t); err != nil {
			return fmt.Errorf("drop table %s: %w", t, err)
		}
	}
	return s.Migrate()
}
