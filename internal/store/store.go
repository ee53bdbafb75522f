// File path: internal/store/store.go

// Package store persists context-document metadata, per-source fetch
// history and the build/refresh task queue in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Store wraps a pooled sqlx.DB connection to the SQLite catalog.
type Store struct {
	db *sqlx.DB
}

var errNilStore = errors.New("store not initialised")

// Open constructs a Store backed by the SQLite database at the provided
// path. The schema is migrated on first use.
func Open(path string) (*Store, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		cfg.Path = trimmed
	}
	return OpenWithConfig(cfg)
}

// OpenWithConfig constructs a Store using the provided configuration.
func OpenWithConfig(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path required")
	}
	abs, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve sqlite path: %w", err)
	}
	busy := int(cfg.BusyTimeout / time.Millisecond)
	if busy <= 0 {
		busy = 5000
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", abs, busy)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingTimeout := cfg.BusyTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the underlying database resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureReady() error {
	if s == nil || s.db == nil {
		return errNilStore
	}
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	// Journal mode cannot change inside a transaction; pragmas run on the
	// connection first, only the schema statements are transactional.
	for _, pragma := range pragmaStatements {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("apply pragma: %w", err)
		}
	}
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	for i, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute schema statement %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}

var pragmaStatements = []string{
	`PRAGMA journal_mode = WAL;`,
	`PRAGMA foreign_keys = ON;`,
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS context_files (
                id INTEGER PRIMARY KEY,
                ticket_id TEXT NOT NULL UNIQUE,
                filename TEXT NOT NULL,
                keywords TEXT NOT NULL,
                last_updated TIMESTAMP NOT NULL,
                created_at TIMESTAMP NOT NULL
        );`,
	`CREATE INDEX IF NOT EXISTS idx_context_ticket_id ON context_files(ticket_id);`,
	`CREATE INDEX IF NOT EXISTS idx_context_filename ON context_files(filename);`,
	`CREATE TABLE IF NOT EXISTS fetch_history (
                context_file_id INTEGER NOT NULL,
                source TEXT NOT NULL,
                last_fetched TIMESTAMP NOT NULL,
                PRIMARY KEY (context_file_id, source),
                FOREIGN KEY (context_file_id) REFERENCES context_files(id) ON DELETE CASCADE
        );`,
	`CREATE TABLE IF NOT EXISTS tasks (
                id INTEGER PRIMARY KEY,
                ticket_id TEXT NOT NULL,
                task_type TEXT NOT NULL,
                status TEXT NOT NULL DEFAULT 'pending',
                created_at TIMESTAMP NOT NULL,
                started_at TIMESTAMP,
                completed_at TIMESTAMP,
                error_message TEXT
        );`,
	`CREATE INDEX IF NOT EXISTS idx_task_status ON tasks(status);`,
	`CREATE INDEX IF NOT EXISTS idx_task_ticket ON tasks(ticket_id);`,
}
