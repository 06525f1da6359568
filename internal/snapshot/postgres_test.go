package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewPostgresStore(context.Background(), db, "radflow_studies")
	require.NoError(t, err)
	return store, mock
}

func TestNewPostgresStore_NilDB(t *testing.T) {
	_, err := NewPostgresStore(context.Background(), nil, "radflow_studies")
	assert.Error(t, err)
}

func TestPostgresStore_Load(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT payload FROM snapshot_slots WHERE slot_key = \$1`).
		WithArgs("radflow_studies").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow([]byte(`[{"id":"P-1001"}]`)))

	data, ok, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `[{"id":"P-1001"}]`, string(data))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT payload FROM snapshot_slots`).
		WithArgs("radflow_studies").
		WillReturnError(sql.ErrNoRows)

	data, ok, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, data)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT payload FROM snapshot_slots`).
		WillReturnError(errors.New("connection refused"))

	_, _, err := store.Load(context.Background())
	assert.ErrorContains(t, err, "failed to read slot")
}

func TestPostgresStore_Save(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO snapshot_slots`).
		WithArgs("radflow_studies", `[{"id":"P-1001"}]`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Save(context.Background(), []byte(`[{"id":"P-1001"}]`))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO snapshot_slots`).
		WillReturnError(errors.New("disk full"))

	err := store.Save(context.Background(), []byte(`[]`))
	assert.ErrorContains(t, err, "failed to write slot")
}

// TestPostgresStore_Live runs against a real database when TEST_DATABASE_URL is set.
func TestPostgresStore_Live(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping PostgreSQL tests")
	}

	ctx := context.Background()
	store, err := NewPostgresStoreFromURL(ctx, dbURL, "radflow_studies_test")
	require.NoError(t, err)
	defer store.Close()

	_, err = store.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS snapshot_slots (
			slot_key TEXT PRIMARY KEY,
			payload JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, []byte(`[{"id":"P-2001"}]`)))
	data, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `[{"id":"P-2001"}]`, string(data))
}
