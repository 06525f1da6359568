package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore implements domain.SnapshotStore using PostgreSQL.
type PostgresStore struct {
	db      *sql.DB
	slotKey string
}

// NewPostgresStore creates a new PostgreSQL snapshot store.
// It expects the schema to already exist (created via migrations).
func NewPostgresStore(ctx context.Context, db *sql.DB, slotKey string) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db, slotKey: slotKey}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL snapshot store from a connection URL.
func NewPostgresStoreFromURL(ctx context.Context, databaseURL, slotKey string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("postgres URL is required")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One row is written at a time; a small pool is plenty
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(ctx, db, slotKey)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Load returns the document stored under the slot key.
func (s *PostgresStore) Load(ctx context.Context) ([]byte, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT payload FROM snapshot_slots WHERE slot_key = $1",
		s.slotKey,
	).Scan(&payload)

	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read slot: %w", err)
	}
	return payload, true, nil
}

// Save replaces the document stored under the slot key.
func (s *PostgresStore) Save(ctx context.Context, data []byte) error {
	query := `
		INSERT INTO snapshot_slots (slot_key, payload, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (slot_key) DO UPDATE SET
			payload = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := s.db.ExecContext(ctx, query, s.slotKey, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to write slot: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
