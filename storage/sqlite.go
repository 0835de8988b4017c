// Package storage persists trigger rules, alerts, and rule-event rows in
// SQLite.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// identPattern restricts table names interpolated into SQL. Everything
// else arrives as bind parameters.
var identPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// SQLite holds the SQLite connection used by the trigger engine and the
// alert store.
type SQLite struct {
	DB     *sql.DB
	Path   string
	Logger *zap.SugaredLogger
}

// NewSQLite opens the database at dbPath, creating parent directories as
// needed, and applies the connection pragmas.
func NewSQLite(dbPath string, logger *zap.SugaredLogger) (*SQLite, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	if dir := filepath.Dir(dbPath); dir != "." && dir != "" && dbPath != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// WAL supports one writer with concurrent readers; a single writer
	// connection avoids SQLITE_BUSY between the trigger workers.
	db.SetMaxOpenConns(1)

	if err := configure(db, dbPath); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Infof("SQLite database opened at %s", dbPath)
	return &SQLite{DB: db, Path: dbPath, Logger: logger}, nil
}

func configure(db *sql.DB, dbPath string) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	// In-memory databases report journal mode "memory", not "wal".
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to query journal mode: %w", err)
	}
	if dbPath != ":memory:" && journalMode != "wal" {
		return fmt.Errorf("WAL mode not enabled (got %q)", journalMode)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.DB.Close()
}

func validIdent(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return nil
}
