package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polymerwire/modelhub/ingest/internal/models"
	"github.com/polymerwire/modelhub/ingest/internal/objectstore"
	"github.com/polymerwire/modelhub/ingest/internal/status"
)

var testConfig = Config{SiteBucket: "models-site", DataFolder: "data"}

type mockValidator struct {
	validateFunc func(ctx context.Context, sub *models.Submission) models.Outcome
}

func (m *mockValidator) Validate(ctx context.Context, sub *models.Submission) models.Outcome {
	return m.validateFunc(ctx, sub)
}

func seededStore(t *testing.T) *objectstore.Memory {
	t.Helper()
	store := objectstore.NewMemory()
	store.SetClock(func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 123000000, time.UTC) })
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "models-site", "data/", nil, objectstore.PutOptions{}))
	require.NoError(t, store.Put(ctx, "models-site", "data/deck_240309_140507.json",
		[]byte(`{"modelInformation":{"name":"deck_240309_140507","units":"metric"},"payload":{"linearElements":[{"vertices":[[0,0,0]],"metadata":{"id":1}}],"planarElements":[]}}`),
		objectstore.PutOptions{Tags: "name=deck_240309_140507&units=metric"}))
	require.NoError(t, store.Put(ctx, "models-site", "data/legacy_170101_000000.json",
		[]byte(`{"modelInformation":{"name":"legacy_170101_000000","units":"imperial"},"payload":[{"vertices":[[1.5,0,0]],"metadata":{"id":2}}]}`),
		objectstore.PutOptions{}))
	return store
}

func TestSubmit(t *testing.T) {
	var got *models.Submission
	svc := New(objectstore.NewMemory(), &mockValidator{validateFunc: func(_ context.Context, sub *models.Submission) models.Outcome {
		got = sub
		return models.Stored(sub.Name(), false)
	}}, status.NewMemory(), testConfig)

	t.Run("delegates to the pipeline", func(t *testing.T) {
		outcome := svc.Submit(context.Background(), []byte(`{"modelInformation":{"name":"a_240101_000000","units":"metric"},"payload":[]}`))
		assert.True(t, outcome.OK())
		require.NotNil(t, got)
		assert.Equal(t, "a_240101_000000", got.Name())
	})

	t.Run("unparseable body", func(t *testing.T) {
		got = nil
		for _, body := range []string{`{"modelInformation":`, `[1,2]`, ``} {
			outcome := svc.Submit(context.Background(), []byte(body))
			assert.Equal(t, MsgUnparseable, outcome.Error, "body %q", body)
		}
		assert.Nil(t, got, "the pipeline never sees unparseable bodies")
	})
}

func TestListModels(t *testing.T) {
	svc := New(seededStore(t), nil, nil, testConfig)

	list, err := svc.ListModels(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []ModelSummary{
		{Model: "deck_240309_140507", S3Attributes: map[string]string{
			"name": "deck_240309_140507", "units": "metric", "uploadTime": "2024-03-09 14:05:07",
		}},
		{Model: "legacy_170101_000000", S3Attributes: map[string]string{"uploadTime": "2024-03-09 14:05:07"}},
	}, list)
}

func TestListModels_Empty(t *testing.T) {
	list, err := New(objectstore.NewMemory(), nil, nil, testConfig).ListModels(context.Background())
	require.NoError(t, err)

	data, err := json.Marshal(list)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

type tagErrorStore struct{ *objectstore.Memory }

func (tagErrorStore) Tags(context.Context, string, string) (map[string]string, error) {
	return nil, errors.New("access denied")
}

func TestListModels_TagError(t *testing.T) {
	_, err := New(tagErrorStore{seededStore(t)}, nil, nil, testConfig).ListModels(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestGetModel(t *testing.T) {
	svc := New(seededStore(t), nil, nil, testConfig)
	ctx := context.Background()

	t.Run("classified document", func(t *testing.T) {
		doc, err := svc.GetModel(ctx, "deck_240309_140507")
		require.NoError(t, err)

		data, err := json.Marshal(doc)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"modelInformation": {
				"name": "deck_240309_140507",
				"units": "metric",
				"s3_attributes": {"uploadTime": "2024-03-09 14:05:07"}
			},
			"payload": {"linearElements": [{"vertices": [[0,0,0]], "metadata": {"id": 1}}], "planarElements": []}
		}`, string(data))
	})

	t.Run("legacy payload array", func(t *testing.T) {
		doc, err := svc.GetModel(ctx, "legacy_170101_000000")
		require.NoError(t, err)

		data, err := json.Marshal(doc["payload"])
		require.NoError(t, err)
		assert.JSONEq(t, `{"linearElements": [{"vertices": [[1.5,0,0]], "metadata": {"id": 2}}], "planarElements": []}`, string(data))
	})

	t.Run("missing", func(t *testing.T) {
		_, err := svc.GetModel(ctx, "nope_240101_000000")
		assert.ErrorIs(t, err, ErrModelNotFound)
	})
}

func TestGetModel_Malformed(t *testing.T) {
	store := objectstore.NewMemory()
	require.NoError(t, store.Put(context.Background(), "models-site", "data/bad_240101_000000.json", []byte(`{"payload":[]}`), objectstore.PutOptions{}))

	_, err := New(store, nil, nil, testConfig).GetModel(context.Background(), "bad_240101_000000")
	assert.ErrorIs(t, err, ErrMalformedModel)
}

func TestGetStatus(t *testing.T) {
	statuses := status.NewMemory()
	ctx := context.Background()
	require.NoError(t, statuses.Upsert(ctx, "deck_240101_000000", 102, "RECEIVED"))
	require.NoError(t, statuses.Upsert(ctx, "deck_240101_000000", 200, "UPLOAD_COMPLETE: models-site"))
	svc := New(nil, nil, statuses, testConfig)

	summary, err := svc.GetStatus(ctx, "deck_240101_000000")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSummary{
		Name:             "deck_240101_000000",
		LatestStatus:     200,
		LatestLogMessage: "UPLOAD_COMPLETE: models-site",
	}, summary)

	_, err = svc.GetStatus(ctx, "missing_240101_000000")
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestFormatUploadTime(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	assert.Equal(t, "2024-03-09 12:05:07", FormatUploadTime(time.Date(2024, 3, 9, 14, 5, 7, 999, loc)))
}
