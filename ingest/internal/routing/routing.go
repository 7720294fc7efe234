// Package routing decides where a classified model is stored and writes it.
package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/polymerwire/modelhub/ingest/internal/models"
	"github.com/polymerwire/modelhub/ingest/internal/objectstore"
	"github.com/polymerwire/modelhub/ingest/internal/tags"
)

// Terminal checkpoint states.
const (
	StateStaged   = "STAGED_FOR_TESSELLATION"
	StateComplete = "UPLOAD_COMPLETE"
)

// Config names the buckets and data folder.
type Config struct {
	SiteBucket    string
	StagingBucket string
	DataFolder    string
}

// Decision is where a model goes and which terminal checkpoint it reaches.
type Decision struct {
	Bucket string
	Key    string
	Staged bool
	State  string
	Code   int
}

// Router applies the routing rule and performs the write.
type Router struct {
	store objectstore.Store
	cfg   Config
}

func NewRouter(store objectstore.Store, cfg Config) *Router {
	return &Router{store: store, cfg: cfg}
}

// Route picks the bucket. A model with planar elements goes to staging with
// modelInformation.destination set to the site bucket; anything else goes
// straight to the site bucket and is left unannotated.
func (r *Router) Route(sub *models.Submission) Decision {
	d := Decision{
		Bucket: r.cfg.SiteBucket,
		Key:    objectstore.ModelKey(r.cfg.DataFolder, sub.Name()),
		State:  StateComplete,
		Code:   models.StatusComplete,
	}
	if sub.Classified != nil && sub.Classified.HasPlanar() {
		sub.SetDestination(r.cfg.SiteBucket)
		d.Bucket = r.cfg.StagingBucket
		d.Staged = true
		d.State = StateStaged
		d.Code = models.StatusStaged
	}
	return d
}

// Write stores the document at d with tags built from modelInformation. The
// write is create-if-absent; an existing key maps to models.ErrAlreadyExists.
func (r *Router) Write(ctx context.Context, sub *models.Submission, d Decision) error {
	body, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("encode model %s: %w", sub.Name(), err)
	}
	err = r.store.Put(ctx, d.Bucket, d.Key, body, objectstore.PutOptions{
		Tags:        tags.Encode(sub.ModelInformation),
		IfAbsent:    true,
		ContentType: "application/json",
	})
	if errors.Is(err, objectstore.ErrPreconditionFailed) {
		return models.ErrAlreadyExists
	}
	return err
}

// Buckets returns every bucket that can hold a model name.
func (r *Router) Buckets() []string {
	if r.cfg.StagingBucket == "" || r.cfg.StagingBucket == r.cfg.SiteBucket {
		return []string{r.cfg.SiteBucket}
	}
	return []string{r.cfg.SiteBucket, r.cfg.StagingBucket}
}
