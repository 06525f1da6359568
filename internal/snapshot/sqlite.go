package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements domain.SnapshotStore using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	dbPath  string
	slotKey string
}

// NewSQLiteStore creates a new SQLite snapshot store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath, slotKey string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:      db,
		dbPath:  dbPath,
		slotKey: slotKey,
	}, nil
}

// createSchema creates the slot table.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshot_slots (
		slot_key TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := db.Exec(schema)
	return err
}

// Load returns the document stored under the slot key.
func (s *SQLiteStore) Load(ctx context.Context) ([]byte, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		"SELECT payload FROM snapshot_slots WHERE slot_key = ?",
		s.slotKey,
	).Scan(&payload)

	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read slot: %w", err)
	}
	return []byte(payload), true, nil
}

// Save replaces the document stored under the slot key.
func (s *SQLiteStore) Save(ctx context.Context, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshot_slots (slot_key, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(slot_key) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, s.slotKey, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to write slot: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
