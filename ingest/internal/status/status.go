// Package status persists the per-model checkpoint log.
package status

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/polymerwire/modelhub/common/database"
	"github.com/polymerwire/modelhub/common/logging"
	"github.com/polymerwire/modelhub/ingest/internal/metrics"
	"github.com/polymerwire/modelhub/ingest/internal/models"
)

// ErrNotFound is returned by Get for a name with no checkpoints.
var ErrNotFound = errors.New("model not found")

// Store is a document store keyed by model name. Upsert creates the record
// on first use, overwrites status and appends message to the log.
type Store interface {
	Upsert(ctx context.Context, name string, code int, message string) error
	Get(ctx context.Context, name string) (*models.StatusRecord, error)
}

// Message formats a checkpoint log entry.
func Message(state, detail string) string {
	if detail == "" {
		return state
	}
	return state + ": " + detail
}

// State extracts the state from a message built by Message.
func State(message string) string {
	state, _, _ := strings.Cut(message, ": ")
	return state
}

// Tracker writes checkpoints on a best-effort basis: failures are logged and
// counted but never returned.
type Tracker struct {
	store   Store
	logger  *logging.Logger
	timeout time.Duration
}

// NewTracker wraps store. timeout bounds each write; zero uses the database default.
func NewTracker(store Store, logger *logging.Logger, timeout time.Duration) *Tracker {
	if logger == nil {
		logger = logging.Default()
	}
	return &Tracker{store: store, logger: logger, timeout: timeout}
}

// Checkpoint records state for name with the given status code.
func (t *Tracker) Checkpoint(ctx context.Context, name string, code int, state, detail string) {
	if name == "" {
		t.logger.DebugContext(ctx, "checkpoint skipped for unnamed submission", logging.Stage(state))
		return
	}

	// The write outlives a cancelled caller; the per-write timeout still bounds it.
	wctx, cancel := database.WriteContext(context.WithoutCancel(ctx), t.timeout)
	defer cancel()

	if err := t.store.Upsert(wctx, name, code, Message(state, detail)); err != nil {
		metrics.CheckpointFailures.Inc()
		t.logger.WarnContext(ctx, "checkpoint write failed",
			logging.Model(name),
			logging.Stage(state),
			logging.Status(code),
			logging.Error(err),
		)
		return
	}
	metrics.CheckpointsTotal.WithLabelValues(state).Inc()
	t.logger.DebugContext(ctx, "checkpoint", logging.Model(name), logging.Stage(state), slog.Int("code", code))
}

// Get reads the record for name.
func (t *Tracker) Get(ctx context.Context, name string) (*models.StatusRecord, error) {
	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	rec, err := t.store.Get(ctx, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get status %s: %w", name, err)
	}
	return rec, nil
}
