package objectstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/polymerwire/modelhub/ingest/internal/tags"
)

// Memory is an in-process Store for tests and local runs.
type Memory struct {
	mu      sync.RWMutex
	buckets map[string]map[string]memObject
	now     func() time.Time
}

type memObject struct {
	body     []byte
	tags     map[string]string
	modified time.Time
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{buckets: make(map[string]map[string]memObject), now: time.Now}
}

// SetClock overrides the LastModified source.
func (m *Memory) SetClock(now func() time.Time) { m.now = now }

func (m *Memory) List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ObjectInfo
	for key, obj := range m.buckets[bucket] {
		if strings.HasPrefix(key, prefix) {
			out = append(out, ObjectInfo{Key: key, LastModified: obj.modified, Size: int64(len(obj.body))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *Memory) Get(ctx context.Context, bucket, key string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.buckets[bucket][key]
	if !ok {
		return nil, ErrNotFound
	}
	return &Object{
		ObjectInfo: ObjectInfo{Key: key, LastModified: obj.modified, Size: int64(len(obj.body))},
		Body:       append([]byte(nil), obj.body...),
	}, nil
}

func (m *Memory) Tags(ctx context.Context, bucket, key string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.buckets[bucket][key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make(map[string]string, len(obj.tags))
	for k, v := range obj.tags {
		out[k] = v
	}
	return out, nil
}

func (m *Memory) Put(ctx context.Context, bucket, key string, body []byte, opts PutOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	objects, ok := m.buckets[bucket]
	if !ok {
		objects = make(map[string]memObject)
		m.buckets[bucket] = objects
	}
	if _, exists := objects[key]; exists && opts.IfAbsent {
		return ErrPreconditionFailed
	}
	objects[key] = memObject{
		body:     append([]byte(nil), body...),
		tags:     tags.Decode(opts.Tags),
		modified: m.now().UTC(),
	}
	return nil
}
