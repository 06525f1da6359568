// Package snapshot provides durable storage for the serialized worklist.
// Every backend holds exactly one document under a fixed slot key and
// replaces it wholesale on each save.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/radflow-triage-server/internal/domain"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// ExportVersion is the current export envelope version.
const ExportVersion = "1.0"

// Options selects and configures a backend.
type Options struct {
	Backend     string
	SlotKey     string
	SQLitePath  string
	PostgresURL string
	RedisURL    string
}

// Open creates the backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (domain.SnapshotStore, error) {
	if opts.SlotKey == "" {
		return nil, fmt.Errorf("slot key is required")
	}

	var (
		store domain.SnapshotStore
		err   error
	)
	switch opts.Backend {
	case BackendMemory:
		store = NewMemoryStore(opts.SlotKey)
	case BackendSQLite, "":
		var s *SQLiteStore
		if s, err = NewSQLiteStore(opts.SQLitePath, opts.SlotKey); err == nil {
			store = s
		}
	case BackendPostgres:
		var s *PostgresStore
		if s, err = NewPostgresStoreFromURL(ctx, opts.PostgresURL, opts.SlotKey); err == nil {
			store = s
		}
	case BackendRedis:
		var s *RedisStore
		if s, err = NewRedisStoreFromURL(ctx, opts.RedisURL, opts.SlotKey); err == nil {
			store = s
		}
	default:
		err = fmt.Errorf("unknown snapshot backend: %s", opts.Backend)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Export represents the JSON export format.
type Export struct {
	Version    string                `json:"version"`
	SlotKey    string                `json:"slot_key"`
	ExportedAt time.Time             `json:"exported_at"`
	Count      int                   `json:"count"`
	Studies    []domain.PatientStudy `json:"studies"`
}

// ExportJSON writes the studies held in store to writer.
func ExportJSON(ctx context.Context, store domain.SnapshotStore, slotKey string, writer io.Writer) (int, error) {
	studies := []domain.PatientStudy{}

	data, ok, err := store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if ok {
		studies, err = domain.DecodeStudies(data)
		if err != nil {
			return 0, err
		}
	}

	export := &Export{
		Version:    ExportVersion,
		SlotKey:    slotKey,
		ExportedAt: time.Now().UTC(),
		Count:      len(studies),
		Studies:    studies,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(export); err != nil {
		return 0, fmt.Errorf("failed to encode export: %w", err)
	}
	return len(studies), nil
}

// ImportJSON replaces the slot contents with the studies in an export
// document. Studies whose id already appeared earlier in the document are
// skipped so the imported list keeps ids unique.
func ImportJSON(ctx context.Context, store domain.SnapshotStore, reader io.Reader) (imported int, skipped int, err error) {
	var export Export
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}
	if export.Version != ExportVersion {
		return 0, 0, fmt.Errorf("unsupported export version %q", export.Version)
	}

	seen := make(map[string]bool, len(export.Studies))
	studies := make([]domain.PatientStudy, 0, len(export.Studies))
	for _, study := range export.Studies {
		if study.ID == "" || seen[study.ID] {
			skipped++
			continue
		}
		seen[study.ID] = true
		studies = append(studies, study)
	}

	data, err := json.Marshal(studies)
	if err != nil {
		return 0, skipped, fmt.Errorf("failed to encode studies: %w", err)
	}
	if err := store.Save(ctx, data); err != nil {
		return 0, skipped, fmt.Errorf("failed to save snapshot: %w", err)
	}
	return len(studies), skipped, nil
}
