package status

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MODELHUB_TEST_MONGO_URI points at a disposable MongoDB (e.g. mongodb://localhost:27017).
func setupTestMongo(t *testing.T) *Mongo {
	t.Helper()
	uri := os.Getenv("MODELHUB_TEST_MONGO_URI")
	if uri == "" || testing.Short() {
		t.Skip("MODELHUB_TEST_MONGO_URI not set")
	}
	ctx := context.Background()

	store, err := NewMongo(ctx, MongoConfig{
		URI:        uri,
		Database:   "modelhub_test",
		Collection: "status_" + uuid.NewString()[:8],
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.coll.Drop(ctx)
		_ = store.Close(ctx)
	})
	return store
}

func TestMongo_UpsertAndGet(t *testing.T) {
	store := setupTestMongo(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "deck_240101_000000")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Upsert(ctx, "deck_240101_000000", 102, "RECEIVED"))
	require.NoError(t, store.Upsert(ctx, "deck_240101_000000", 500, "FAILED: Model already exists"))

	rec, err := store.Get(ctx, "deck_240101_000000")
	require.NoError(t, err)
	assert.Equal(t, 500, rec.Status)
	assert.Equal(t, []string{"RECEIVED", "FAILED: Model already exists"}, rec.Log)
}

func TestMongo_ConcurrentFirstWriters(t *testing.T) {
	store := setupTestMongo(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Upsert(ctx, "race_240101_000000", 102, "RECEIVED"))
		}()
	}
	wg.Wait()

	rec, err := store.Get(ctx, "race_240101_000000")
	require.NoError(t, err)
	assert.Len(t, rec.Log, 10)
}
