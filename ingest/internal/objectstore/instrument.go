package objectstore

import (
	"context"
	"errors"
	"time"

	"github.com/polymerwire/modelhub/ingest/internal/metrics"
)

type instrumented struct {
	next Store
}

// Instrument records latency and error counts for every call on next.
// ErrNotFound and ErrPreconditionFailed are outcomes, not errors, and are not counted.
func Instrument(next Store) Store {
	return &instrumented{next: next}
}

func observe(op string, start time.Time, err error) {
	metrics.ObjectStoreDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrPreconditionFailed) {
		metrics.ObjectStoreErrors.WithLabelValues(op).Inc()
	}
}

func (i *instrumented) List(ctx context.Context, bucket, prefix string) (out []ObjectInfo, err error) {
	defer func(start time.Time) { observe("list", start, err) }(time.Now())
	return i.next.List(ctx, bucket, prefix)
}

func (i *instrumented) Get(ctx context.Context, bucket, key string) (out *Object, err error) {
	defer func(start time.Time) { observe("get", start, err) }(time.Now())
	return i.next.Get(ctx, bucket, key)
}

func (i *instrumented) Tags(ctx context.Context, bucket, key string) (out map[string]string, err error) {
	defer func(start time.Time) { observe("tags", start, err) }(time.Now())
	return i.next.Tags(ctx, bucket, key)
}

func (i *instrumented) Put(ctx context.Context, bucket, key string, body []byte, opts PutOptions) (err error) {
	defer func(start time.Time) { observe("put", start, err) }(time.Now())
	return i.next.Put(ctx, bucket, key, body, opts)
}
