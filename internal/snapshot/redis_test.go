package snapshot

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisStoreFromURL_InvalidURL(t *testing.T) {
	_, err := NewRedisStoreFromURL(context.Background(), "not-a-url://", "radflow_studies")
	assert.ErrorContains(t, err, "failed to parse Redis URL")
}

func TestRedisStore_SaveAndLoad(t *testing.T) {
	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("TEST_REDIS_URL not set, skipping Redis tests")
	}

	ctx := context.Background()
	store, err := NewRedisStoreFromURL(ctx, redisURL, "radflow_studies_test")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.client.Del(ctx, "radflow_studies_test").Err())

	_, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, []byte(`[{"id":"P-3001"}]`)))
	data, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"P-3001"}]`, string(data))
}
