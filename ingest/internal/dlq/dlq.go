// Package dlq records submissions whose final write failed so they can be
// inspected and replayed.
package dlq

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Reasons recorded on entries.
const (
	ReasonWriteFailed = "write_failed"
	ReasonListFailed  = "list_failed"
	ReasonLockFailed  = "lock_failed"
)

// Entry is one dead-lettered submission.
type Entry struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Name      string          `json:"name"`
	Bucket    string          `json:"bucket,omitempty"`
	Key       string          `json:"key,omitempty"`
	Reason    string          `json:"reason"`
	Error     string          `json:"error"`
	Attempts  int             `json:"attempts"`
	Document  json.RawMessage `json:"document,omitempty"`
}

// NewEntry builds an entry stamped with a fresh ID.
func NewEntry(name, reason string, err error, document []byte) Entry {
	e := Entry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Name:      name,
		Reason:    reason,
		Attempts:  1,
		Document:  document,
	}
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// Writer accepts dead-lettered submissions.
type Writer interface {
	Write(ctx context.Context, entry Entry) error
}

// Queue is a Writer that can also be inspected.
type Queue interface {
	Writer
	List(ctx context.Context, limit int) ([]Entry, error)
	Stats(ctx context.Context) map[string]any
}

// Deleter removes an inspected entry by ID.
type Deleter interface {
	Delete(ctx context.Context, id string) error
}

// Noop discards entries.
type Noop struct{}

func (Noop) Write(context.Context, Entry) error { return nil }

func (Noop) List(context.Context, int) ([]Entry, error) { return nil, nil }

func (Noop) Stats(context.Context) map[string]any {
	return map[string]any{"enabled": false}
}
