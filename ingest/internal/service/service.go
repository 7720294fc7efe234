// Package service implements the model API on top of the object store, the
// status store and the ingestion pipeline.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/polymerwire/modelhub/ingest/internal/metrics"
	"github.com/polymerwire/modelhub/ingest/internal/models"
	"github.com/polymerwire/modelhub/ingest/internal/objectstore"
	"github.com/polymerwire/modelhub/ingest/internal/status"
)

// UploadTimeLayout renders object modification times in listings.
const UploadTimeLayout = "2006-01-02 15:04:05"

// Caller-facing messages.
const (
	MsgUnparseable   = "model could not be uploaded"
	MsgModelNotFound = "model not found"
)

var (
	ErrModelNotFound = errors.New(MsgModelNotFound)
	// ErrMalformedModel is returned for a stored document that cannot be served.
	ErrMalformedModel = errors.New("stored model is malformed")
)

// Validator runs a submission through the ingestion pipeline.
type Validator interface {
	Validate(ctx context.Context, sub *models.Submission) models.Outcome
}

// StatusReader reads checkpoint records.
type StatusReader interface {
	Get(ctx context.Context, name string) (*models.StatusRecord, error)
}

// Config selects where served models live.
type Config struct {
	SiteBucket string
	DataFolder string
	// TagConcurrency bounds parallel tag lookups in ListModels.
	TagConcurrency int
}

// ModelSummary is one entry of the model listing.
type ModelSummary struct {
	Model        string            `json:"model"`
	S3Attributes map[string]string `json:"s3_attributes"`
}

type ModelService struct {
	objects  objectstore.Store
	pipeline Validator
	status   StatusReader
	cfg      Config
}

func New(objects objectstore.Store, pipeline Validator, status StatusReader, cfg Config) *ModelService {
	if cfg.TagConcurrency <= 0 {
		cfg.TagConcurrency = 8
	}
	return &ModelService{objects: objects, pipeline: pipeline, status: status, cfg: cfg}
}

// Submit decodes body and runs it through the pipeline.
func (s *ModelService) Submit(ctx context.Context, body []byte) models.Outcome {
	metrics.SubmissionBytesTotal.Add(float64(len(body)))

	sub, err := models.DecodeSubmission(body)
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues(models.OutcomeRejected.String()).Inc()
		return models.Outcome{Error: MsgUnparseable, Kind: models.OutcomeRejected}
	}
	return s.pipeline.Validate(ctx, sub)
}

// ListModels returns every model in the site bucket with its tags and upload time.
func (s *ModelService) ListModels(ctx context.Context) ([]ModelSummary, error) {
	prefix := objectstore.FolderPrefix(s.cfg.DataFolder)
	objects, err := s.objects.List(ctx, s.cfg.SiteBucket, prefix)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}

	var listed []objectstore.ObjectInfo
	for _, obj := range objects {
		if obj.Key != prefix {
			listed = append(listed, obj)
		}
	}

	out := make([]ModelSummary, len(listed))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.TagConcurrency)
	for i, obj := range listed {
		g.Go(func() error {
			tagSet, err := s.objects.Tags(gctx, s.cfg.SiteBucket, obj.Key)
			if err != nil {
				return fmt.Errorf("tags of %s: %w", obj.Key, err)
			}
			if tagSet == nil {
				tagSet = make(map[string]string, 1)
			}
			tagSet["uploadTime"] = FormatUploadTime(obj.LastModified)
			out[i] = ModelSummary{Model: objectstore.ModelName(obj.Key), S3Attributes: tagSet}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetModel returns the stored document for name with
// modelInformation.s3_attributes.uploadTime added. Documents stored before
// classification existed carry a payload array; it is served as linear elements.
func (s *ModelService) GetModel(ctx context.Context, name string) (map[string]any, error) {
	obj, err := s.objects.Get(ctx, s.cfg.SiteBucket, objectstore.ModelKey(s.cfg.DataFolder, name))
	if errors.Is(err, objectstore.ErrNotFound) {
		return nil, ErrModelNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get model %s: %w", name, err)
	}

	var doc map[string]any
	dec := json.NewDecoder(bytes.NewReader(obj.Body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedModel, err)
	}

	info, ok := doc[models.SectionModelInformation].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: no modelInformation", ErrMalformedModel)
	}
	info[models.InfoAttributes] = map[string]string{"uploadTime": FormatUploadTime(obj.LastModified)}

	if _, classified := doc[models.SectionPayload].(map[string]any); !classified {
		legacy := doc[models.SectionPayload]
		if legacy == nil {
			legacy = []any{}
		}
		doc[models.SectionPayload] = map[string]any{
			"linearElements": legacy,
			"planarElements": []any{},
		}
	}
	return doc, nil
}

// GetStatus returns the latest checkpoint of name.
func (s *ModelService) GetStatus(ctx context.Context, name string) (models.StatusSummary, error) {
	rec, err := s.status.Get(ctx, name)
	if errors.Is(err, status.ErrNotFound) {
		return models.StatusSummary{}, ErrModelNotFound
	}
	if err != nil {
		return models.StatusSummary{}, err
	}
	return rec.Summary(), nil
}

// FormatUploadTime renders t in UTC without zone or fractional seconds.
func FormatUploadTime(t time.Time) string {
	return t.UTC().Format(UploadTimeLayout)
}
