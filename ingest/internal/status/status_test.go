package status

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polymerwire/modelhub/common/logging"
	"github.com/polymerwire/modelhub/ingest/internal/metrics"
	"github.com/polymerwire/modelhub/ingest/internal/models"
)

func TestMessage(t *testing.T) {
	assert.Equal(t, "RECEIVED", Message("RECEIVED", ""))
	assert.Equal(t, "FAILED: bad units", Message("FAILED", "bad units"))
	assert.Equal(t, "FAILED", State("FAILED: bad units: again"))
	assert.Equal(t, "RECEIVED", State("RECEIVED"))
}

func TestTracker_Checkpoint(t *testing.T) {
	store := NewMemory()
	tracker := NewTracker(store, logging.Discard(), time.Second)
	ctx := context.Background()

	tracker.Checkpoint(ctx, "deck_240101_000000", models.StatusInProgress, "RECEIVED", "")
	tracker.Checkpoint(ctx, "deck_240101_000000", models.StatusInProgress, "STRUCTURE_OK", "sections present")
	tracker.Checkpoint(ctx, "deck_240101_000000", models.StatusStaged, "STAGED_FOR_TESSELLATION", "models-staging")

	rec, err := tracker.Get(ctx, "deck_240101_000000")
	require.NoError(t, err)
	assert.Equal(t, models.StatusStaged, rec.Status)
	assert.Equal(t, []string{
		"RECEIVED",
		"STRUCTURE_OK: sections present",
		"STAGED_FOR_TESSELLATION: models-staging",
	}, rec.Log)
	assert.Equal(t, "STAGED_FOR_TESSELLATION: models-staging", rec.Summary().LatestLogMessage)
}

func TestTracker_DuplicateMessagesAppend(t *testing.T) {
	tracker := NewTracker(NewMemory(), logging.Discard(), 0)
	ctx := context.Background()

	tracker.Checkpoint(ctx, "a_240101_000000", models.StatusInProgress, "RECEIVED", "")
	tracker.Checkpoint(ctx, "a_240101_000000", models.StatusFailed, "FAILED", "Model already exists")
	tracker.Checkpoint(ctx, "a_240101_000000", models.StatusInProgress, "RECEIVED", "")

	rec, err := tracker.Get(ctx, "a_240101_000000")
	require.NoError(t, err)
	assert.Len(t, rec.Log, 3)
	assert.Equal(t, models.StatusInProgress, rec.Status, "last writer wins")
}

func TestTracker_EmptyNameIsSkipped(t *testing.T) {
	store := NewMemory()
	tracker := NewTracker(store, logging.Discard(), 0)

	tracker.Checkpoint(context.Background(), "", models.StatusFailed, "FAILED", "missing sections")

	assert.Empty(t, store.records)
}

type failingStore struct {
	upsertFunc func(ctx context.Context, name string, code int, message string) error
}

func (f *failingStore) Upsert(ctx context.Context, name string, code int, message string) error {
	return f.upsertFunc(ctx, name, code, message)
}

func (f *failingStore) Get(context.Context, string) (*models.StatusRecord, error) {
	return nil, errors.New("connection refused")
}

func TestTracker_StoreFailureIsSwallowed(t *testing.T) {
	var sawDeadline bool
	store := &failingStore{upsertFunc: func(ctx context.Context, _ string, _ int, _ string) error {
		_, sawDeadline = ctx.Deadline()
		return errors.New("connection refused")
	}}
	tracker := NewTracker(store, logging.Discard(), 50*time.Millisecond)

	before := testutil.ToFloat64(metrics.CheckpointFailures)
	assert.NotPanics(t, func() {
		tracker.Checkpoint(context.Background(), "a_240101_000000", models.StatusInProgress, "RECEIVED", "")
	})

	assert.True(t, sawDeadline, "each write carries a timeout")
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.CheckpointFailures))

	_, err := tracker.Get(context.Background(), "a_240101_000000")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestTracker_CancelledCallerStillWrites(t *testing.T) {
	var sawDeadline bool
	store := NewMemory()
	wrapped := &failingStore{upsertFunc: func(ctx context.Context, name string, code int, message string) error {
		_, sawDeadline = ctx.Deadline()
		return store.Upsert(ctx, name, code, message)
	}}
	tracker := NewTracker(wrapped, logging.Discard(), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tracker.Checkpoint(ctx, "a_240101_000000", models.StatusFailed, "WRITE_FAILED", "context canceled")

	assert.True(t, sawDeadline)
	rec, err := store.Get(context.Background(), "a_240101_000000")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, rec.Status)
	assert.Equal(t, "WRITE_FAILED: context canceled", rec.Latest())
}

func TestMemory_GetNotFound(t *testing.T) {
	_, err := NewMemory().Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_GetReturnsCopy(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, "m", 102, "RECEIVED"))

	rec, err := store.Get(ctx, "m")
	require.NoError(t, err)
	rec.Log[0] = "mutated"

	again, err := store.Get(ctx, "m")
	require.NoError(t, err)
	assert.Equal(t, "RECEIVED", again.Log[0])
}
