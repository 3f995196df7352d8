package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// SQLite driver, registers itself as "sqlite3".
	_ "github.com/mattn/go-sqlite3"
)

const (
	// msPerSecond converts seconds to milliseconds.
	msPerSecond = 1000
)

// Config holds database configuration.
type Config struct {
	// Path to the SQLite database file.
	Path string

	// BusyTimeout is the maximum time to wait for a database lock
	// (seconds). Default: 5.
	BusyTimeout int

	// WALMode enables write-ahead logging. Recommended for concurrent
	// read/write access.
	WALMode bool
}

// DB wraps the SQL database connection with lifecycle management.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens the SQLite database at the configured path, creating the
// file and parent directories if they do not exist.
//
// The connection pool is limited to a single connection. SQLite permits
// only one writer at a time, and a single shared connection avoids
// SQLITE_BUSY contention between pool members.
func Open(cfg Config) (*DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database: path is required")
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5
	}

	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("database: failed to create directory %s: %w", dir, err)
	}

	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on", cfg.Path, cfg.BusyTimeout*msPerSecond)
	if cfg.WALMode {
		connStr += "&_journal_mode=WAL&_synchronous=NORMAL"
	}

	conn, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("database: failed to open: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("database: failed to ping: %w", err)
	}

	// Database holds device sighting history; restrict to owner access.
	if err := os.Chmod(cfg.Path, 0o600); err != nil {
		conn.Close()
		return nil, fmt.Errorf("database: failed to set file permissions: %w", err)
	}

	return &DB{conn: conn, path: cfg.Path}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("database: failed to close: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Conn returns the underlying sql.DB for use by repositories.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// HealthCheck verifies the database is reachable and responsive.
func (db *DB) HealthCheck(ctx context.Context) error {
	var result int
	if err := db.conn.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database: health check failed: %w", err)
	}
	if result != 1 {
		return fmt.Errorf("database: health check returned unexpected value: %d", result)
	}
	return nil
}

// ExecContext executes a query without returning rows.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.conn.ExecContext(ctx, query, args...)
}

// QueryContext executes a query that returns rows.
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.conn.QueryContext(ctx, query, args...)
}

// QueryRowContext executes a query expected to return at most one row.
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.conn.QueryRowContext(ctx, query, args...)
}

// BeginTx starts a transaction.
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return db.conn.BeginTx(ctx, opts)
}
