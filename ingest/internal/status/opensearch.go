package status

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"

	"github.com/polymerwire/modelhub/ingest/internal/models"
)

// OpenSearchConfig holds connection and index settings.
type OpenSearchConfig struct {
	URL             string
	Username        string
	Password        string
	TLSSkipVerify   bool
	Index           string
	RetryOnConflict int
}

// OpenSearch keeps one document per model, id = model name.
type OpenSearch struct {
	client *opensearch.Client
	cfg    OpenSearchConfig
	now    func() time.Time
}

// NewOpenSearch connects and creates the status index if it does not exist.
func NewOpenSearch(ctx context.Context, cfg OpenSearchConfig) (*OpenSearch, error) {
	httpClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.TLSSkipVerify,
			},
		},
	}

	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: httpClient.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}
	if cfg.RetryOnConflict <= 0 {
		cfg.RetryOnConflict = 3
	}

	s := &OpenSearch{client: client, cfg: cfg, now: time.Now}
	if err := s.Ping(ctx); err != nil {
		return nil, err
	}
	if err := s.ensureIndex(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Ping checks the cluster is reachable.
func (s *OpenSearch) Ping(ctx context.Context) error {
	info, err := s.client.Info(s.client.Info.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to ping opensearch: %w", err)
	}
	defer info.Body.Close()

	if info.IsError() {
		return fmt.Errorf("opensearch returned error: %s", info.Status())
	}
	return nil
}

func (s *OpenSearch) ensureIndex(ctx context.Context) error {
	exists, err := s.client.Indices.Exists([]string{s.cfg.Index}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check status index: %w", err)
	}
	exists.Body.Close()
	if exists.StatusCode == http.StatusOK {
		return nil
	}

	mapping := map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"name":      map[string]string{"type": "keyword"},
				"status":    map[string]string{"type": "integer"},
				"log":       map[string]any{"type": "text", "index": false},
				"updatedAt": map[string]string{"type": "date"},
			},
		},
	}
	body, err := json.Marshal(mapping)
	if err != nil {
		return err
	}

	res, err := s.client.Indices.Create(s.cfg.Index,
		s.client.Indices.Create.WithContext(ctx),
		s.client.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return fmt.Errorf("failed to create status index: %w", err)
	}
	defer res.Body.Close()

	// A concurrent creator wins with resource_already_exists_exception.
	if res.IsError() && res.StatusCode != http.StatusBadRequest {
		bodyBytes, _ := io.ReadAll(res.Body)
		return fmt.Errorf("failed to create status index: %s - %s", res.Status(), string(bodyBytes))
	}
	return nil
}

const appendLogScript = "ctx._source.status = params.status; ctx._source.updatedAt = params.updatedAt; " +
	"if (ctx._source.log == null) { ctx._source.log = [params.message] } else { ctx._source.log.add(params.message) }"

func (s *OpenSearch) Upsert(ctx context.Context, name string, code int, message string) error {
	now := s.now().UTC()
	doc := map[string]any{
		"script": map[string]any{
			"lang":   "painless",
			"source": appendLogScript,
			"params": map[string]any{
				"status":    code,
				"message":   message,
				"updatedAt": now,
			},
		},
		"upsert": models.StatusRecord{
			Name:      name,
			Status:    code,
			Log:       []string{message},
			UpdatedAt: now,
		},
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	res, err := s.client.Update(s.cfg.Index, name, bytes.NewReader(body),
		s.client.Update.WithContext(ctx),
		s.client.Update.WithRetryOnConflict(s.cfg.RetryOnConflict),
	)
	if err != nil {
		return fmt.Errorf("failed to update status %s: %w", name, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		bodyBytes, _ := io.ReadAll(res.Body)
		return fmt.Errorf("opensearch error: %s - %s", res.Status(), string(bodyBytes))
	}
	return nil
}

func (s *OpenSearch) Get(ctx context.Context, name string) (*models.StatusRecord, error) {
	res, err := s.client.Get(s.cfg.Index, name, s.client.Get.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get status %s: %w", name, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if res.IsError() {
		bodyBytes, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("opensearch error: %s - %s", res.Status(), string(bodyBytes))
	}

	var doc struct {
		Found  bool                `json:"found"`
		Source models.StatusRecord `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode status document: %w", err)
	}
	if !doc.Found {
		return nil, ErrNotFound
	}
	return &doc.Source, nil
}
