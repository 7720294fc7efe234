// Package client talks to the ingest HTTP API on behalf of modelctl.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrNotFound is returned for 404 responses.
var ErrNotFound = errors.New("not found")

// APIError is a non-2xx response that carried an {"error": "..."} body.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ingest returned %d: %s", e.StatusCode, e.Message)
}

// SubmitResult is the decoded post-model response.
type SubmitResult struct {
	StatusCode int    `json:"-"`
	Success    *bool  `json:"success,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Staged reports whether the model went to the staging bucket.
func (r SubmitResult) Staged() bool { return r.StatusCode == http.StatusAccepted }

type ModelSummary struct {
	Model        string            `json:"model"`
	S3Attributes map[string]string `json:"s3_attributes"`
}

type Status struct {
	Name             string `json:"name"`
	LatestStatus     int    `json:"latestStatus"`
	LatestLogMessage string `json:"latestLogMessage"`
}

type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// Submit posts a model document. Rejections are not errors: they come back
// in SubmitResult.Error with the HTTP status.
func (c *Client) Submit(ctx context.Context, document []byte) (*SubmitResult, error) {
	resp, err := c.do(ctx, http.MethodPost, "/post-model", bytes.NewReader(document))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusTooManyRequests {
		return nil, decodeError(resp)
	}

	result := &SubmitResult{StatusCode: resp.StatusCode}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return result, nil
}

func (c *Client) ListModels(ctx context.Context) ([]ModelSummary, error) {
	var out []ModelSummary
	if err := c.getJSON(ctx, "/get-models", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetModel returns the raw stored document.
func (c *Client) GetModel(ctx context.Context, name string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.getJSON(ctx, "/get-model-data/"+url.PathEscape(name), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetStatus(ctx context.Context, name string) (*Status, error) {
	var out Status
	if err := c.getJSON(ctx, "/get-model-status/"+url.PathEscape(name), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

func decodeError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(data, &body) != nil || body.Error == "" {
		body.Error = http.StatusText(resp.StatusCode)
	}
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: body.Error}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", ErrNotFound, apiErr)
	}
	return apiErr
}
