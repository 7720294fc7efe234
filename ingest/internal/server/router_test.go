package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/polymerwire/modelhub/common/logging"
	"github.com/polymerwire/modelhub/common/middleware"
	"github.com/polymerwire/modelhub/ingest/internal/handlers"
	"github.com/polymerwire/modelhub/ingest/internal/models"
	"github.com/polymerwire/modelhub/ingest/internal/service"
)

type mockModelService struct{}

func (m *mockModelService) Submit(context.Context, []byte) models.Outcome {
	return models.Stored("bridge_240101_120000", false)
}

func (m *mockModelService) ListModels(context.Context) ([]service.ModelSummary, error) {
	return []service.ModelSummary{}, nil
}

func (m *mockModelService) GetModel(_ context.Context, name string) (map[string]any, error) {
	if name != "bridge_240101_120000" {
		return nil, service.ErrModelNotFound
	}
	return map[string]any{"modelInformation": map[string]any{"name": name}}, nil
}

func (m *mockModelService) GetStatus(_ context.Context, name string) (models.StatusSummary, error) {
	return models.StatusSummary{Name: name, LatestStatus: 200}, nil
}

func newTestRouter(opts Options) http.Handler {
	h := handlers.New(&mockModelService{}, handlers.Options{Logger: logging.Discard()})
	return NewRouter(h, opts)
}

func TestRouter_Routes(t *testing.T) {
	router := newTestRouter(Options{})

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodPost, "/post-model", http.StatusOK},
		{http.MethodGet, "/get-models", http.StatusOK},
		{http.MethodGet, "/get-model-data/bridge_240101_120000", http.StatusOK},
		{http.MethodGet, "/get-model-data/other_240101_120000", http.StatusNotFound},
		{http.MethodGet, "/get-model-status/bridge_240101_120000", http.StatusOK},
		{http.MethodGet, "/dlq", http.StatusOK},
		{http.MethodDelete, "/dlq/abc", http.StatusNotImplemented},
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/readyz", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/post-model", http.StatusMethodNotAllowed},
		{http.MethodGet, "/nonexistent", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(`{}`))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

func TestRouter_AuthWrapsAPIOnly(t *testing.T) {
	deny := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
	}
	router := newTestRouter(Options{Auth: deny})

	for _, path := range []string{"/get-models", "/get-model-status/x", "/dlq"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
	}
	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
}

func TestRouter_RequestIDMiddleware(t *testing.T) {
	router := newTestRouter(Options{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.NotEmpty(t, rr.Header().Get(middleware.RequestIDHeader))
}

func TestRouter_CORSPreflight(t *testing.T) {
	router := newTestRouter(Options{CORS: middleware.DefaultCORS([]string{"https://viewer.example.com"})})

	req := httptest.NewRequest(http.MethodOptions, "/get-models", nil)
	req.Header.Set("Origin", "https://viewer.example.com")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "https://viewer.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
}
