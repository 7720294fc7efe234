package status

import (
	"context"
	"sync"
	"time"

	"github.com/polymerwire/modelhub/ingest/internal/models"
)

// Memory is a Store held in process memory.
type Memory struct {
	mu      sync.Mutex
	records map[string]*models.StatusRecord
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]*models.StatusRecord), now: time.Now}
}

func (m *Memory) Upsert(ctx context.Context, name string, code int, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[name]
	if !ok {
		rec = &models.StatusRecord{Name: name}
		m.records[name] = rec
	}
	rec.Status = code
	rec.Log = append(rec.Log, message)
	rec.UpdatedAt = m.now().UTC()
	return nil
}

func (m *Memory) Get(ctx context.Context, name string) (*models.StatusRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[name]
	if !ok {
		return nil, ErrNotFound
	}
	out := *rec
	out.Log = append([]string(nil), rec.Log...)
	return &out, nil
}
