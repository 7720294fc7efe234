package dlq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/polymerwire/modelhub/common/logging"
	"github.com/polymerwire/modelhub/ingest/internal/metrics"
)

// DefaultPath is used when FileQueue is given an empty directory.
const DefaultPath = "/var/lib/modelhub/dlq"

// ErrEntryNotFound is returned by Delete for an unknown ID.
var ErrEntryNotFound = errors.New("dlq entry not found")

// FileQueue writes one JSON file per entry.
type FileQueue struct {
	basePath string
	logger   *logging.Logger
	mu       sync.Mutex
	written  uint64
}

// NewFileQueue creates basePath if needed.
func NewFileQueue(basePath string, logger *logging.Logger) (*FileQueue, error) {
	if basePath == "" {
		basePath = DefaultPath
	}
	if logger == nil {
		logger = logging.Default()
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create dlq directory: %w", err)
	}
	return &FileQueue{basePath: basePath, logger: logger}, nil
}

func (q *FileQueue) Write(ctx context.Context, entry Entry) error {
	if q == nil {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	filename := fmt.Sprintf("failed_%d_%s.json", entry.Timestamp.Unix(), entry.ID)
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		metrics.DeadLettersTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("marshal dlq entry: %w", err)
	}
	if err := os.WriteFile(filepath.Join(q.basePath, filename), data, 0o644); err != nil {
		metrics.DeadLettersTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("write dlq entry: %w", err)
	}

	q.written++
	metrics.DeadLettersTotal.WithLabelValues("written").Inc()
	q.logger.WarnContext(ctx, "dead-lettered submission",
		logging.Model(entry.Name),
		logging.Key(filename),
		slog.String("reason", entry.Reason),
	)
	return nil
}

// List returns up to limit entries, oldest first. limit <= 0 returns all.
func (q *FileQueue) List(ctx context.Context, limit int) ([]Entry, error) {
	if q == nil {
		return nil, fmt.Errorf("dlq not enabled")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	files, err := q.entryFiles()
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, name := range files {
		if limit > 0 && len(entries) >= limit {
			break
		}
		data, err := os.ReadFile(filepath.Join(q.basePath, name))
		if err != nil {
			q.logger.ErrorContext(ctx, "failed to read dlq file", logging.Key(name), logging.Error(err))
			continue
		}
		var e Entry
		if err := json.Unmarshal(data, &e); err != nil {
			q.logger.ErrorContext(ctx, "failed to parse dlq file", logging.Key(name), logging.Error(err))
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Delete removes the entry with the given ID.
func (q *FileQueue) Delete(ctx context.Context, id string) error {
	if q == nil {
		return fmt.Errorf("dlq not enabled")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	matches, err := filepath.Glob(filepath.Join(q.basePath, "failed_*_"+id+".json"))
	if err != nil {
		return fmt.Errorf("search dlq files: %w", err)
	}
	if len(matches) == 0 {
		return ErrEntryNotFound
	}
	for _, match := range matches {
		if err := os.Remove(match); err != nil {
			return fmt.Errorf("delete dlq file: %w", err)
		}
	}
	return nil
}

func (q *FileQueue) Stats(ctx context.Context) map[string]any {
	if q == nil {
		return map[string]any{"enabled": false}
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	files, err := q.entryFiles()
	if err != nil {
		return map[string]any{
			"enabled":       true,
			"backend":       "file",
			"written":       q.written,
			"pending_files": 0,
			"error":         err.Error(),
		}
	}
	return map[string]any{
		"enabled":       true,
		"backend":       "file",
		"written":       q.written,
		"pending_files": len(files),
		"base_path":     q.basePath,
	}
}

// entryFiles lists entry file names ordered by write time. Callers hold mu.
func (q *FileQueue) entryFiles() ([]string, error) {
	dirEntries, err := os.ReadDir(q.basePath)
	if err != nil {
		return nil, fmt.Errorf("read dlq directory: %w", err)
	}
	var names []string
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasPrefix(de.Name(), "failed_") {
			continue
		}
		names = append(names, de.Name())
	}
	sort.Strings(names)
	return names, nil
}
