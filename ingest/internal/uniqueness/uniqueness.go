// Package uniqueness checks a candidate model name against stored documents.
package uniqueness

import (
	"context"
	"fmt"
	"strings"

	"github.com/polymerwire/modelhub/ingest/internal/models"
	"github.com/polymerwire/modelhub/ingest/internal/objectstore"
)

// StateNameUnique is the checkpoint emitted after a clean scan.
const StateNameUnique = "NAME_UNIQUE"

// Checker scans the data folder of one or more buckets.
type Checker struct {
	store  objectstore.Store
	folder string
}

func NewChecker(store objectstore.Store, folder string) *Checker {
	return &Checker{store: store, folder: folder}
}

// CheckUnique lists every key under the data folder of bucket and compares
// base names to name case-insensitively. It returns models.ErrAlreadyExists
// on the first match and a wrapped error when the listing fails.
func (c *Checker) CheckUnique(ctx context.Context, bucket, name string) error {
	objects, err := c.store.List(ctx, bucket, objectstore.FolderPrefix(c.folder))
	if err != nil {
		return fmt.Errorf("uniqueness scan of %s: %w", bucket, err)
	}
	for _, obj := range objects {
		if existing := objectstore.ModelName(obj.Key); existing != "" && strings.EqualFold(existing, name) {
			return models.ErrAlreadyExists
		}
	}
	return nil
}

// CheckAll runs CheckUnique against each bucket in order.
func (c *Checker) CheckAll(ctx context.Context, name string, buckets ...string) error {
	for _, b := range buckets {
		if err := c.CheckUnique(ctx, b, name); err != nil {
			return err
		}
	}
	return nil
}
