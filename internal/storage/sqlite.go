// Package storage implements the persistence layer on SQLite, tolerant of
// schema drift between the code's expected shape and the deployed database.
package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/mfigueira/caixinha/internal/common"
)

// SQLiteStorage implements the service.Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	logger *slog.Logger
	dbPath string
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string, logger *slog.Logger) (*SQLiteStorage, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("%w: dbPath is required", common.ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:     db,
		dbPath: dbPath,
		logger: logger,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// asSchemaMismatch inspects a driver error and, when it is the backend's way
// of saying a referenced column is absent, wraps it in the typed
// SchemaMismatchError. The error text is only examined here, never by
// callers.
func asSchemaMismatch(err error, table string) error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	if strings.Contains(msg, "has no column named") || strings.Contains(msg, "no such column") {
		column := ""
		if idx := strings.LastIndex(msg, " "); idx >= 0 {
			column = strings.Trim(msg[idx+1:], `"'`)
		}
		return &common.SchemaMismatchError{Err: err, Table: table, Column: column}
	}

	return err
}
