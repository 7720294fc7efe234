package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/polymerwire/modelhub/common/middleware"
	"github.com/polymerwire/modelhub/ingest/internal/handlers"
)

// Options carries the middleware applied around the routes.
type Options struct {
	// Auth wraps every model API route. Nil leaves them open.
	Auth func(http.Handler) http.Handler
	CORS middleware.CORSConfig
}

// NewRouter constructs a ServeMux with the model API routes registered.
func NewRouter(h *handlers.Handler, opts Options) http.Handler {
	protect := opts.Auth
	if protect == nil {
		protect = func(next http.Handler) http.Handler { return next }
	}

	mux := http.NewServeMux()

	// Model API
	mux.Handle("POST /post-model", protect(http.HandlerFunc(h.PostModel)))
	mux.Handle("GET /get-models", protect(http.HandlerFunc(h.GetModels)))
	mux.Handle("GET /get-model-data/{modelname}", protect(http.HandlerFunc(h.GetModelData)))
	mux.Handle("GET /get-model-status/{modelname}", protect(http.HandlerFunc(h.GetModelStatus)))

	// Operations
	mux.Handle("GET /dlq", protect(http.HandlerFunc(h.DeadLetterList)))
	mux.Handle("DELETE /dlq/{id}", protect(http.HandlerFunc(h.DeadLetterDelete)))

	// Health endpoints
	mux.HandleFunc("GET /healthz", h.Health)
	mux.HandleFunc("GET /readyz", h.Ready)

	// Prometheus metrics
	mux.Handle("GET /metrics", promhttp.Handler())

	return middleware.RequestID(middleware.CORS(opts.CORS)(mux))
}
