// Package handlers exposes the model API over HTTP.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/polymerwire/modelhub/common/httputil"
	"github.com/polymerwire/modelhub/common/logging"
	"github.com/polymerwire/modelhub/common/middleware"
	"github.com/polymerwire/modelhub/ingest/internal/dlq"
	"github.com/polymerwire/modelhub/ingest/internal/models"
	"github.com/polymerwire/modelhub/ingest/internal/ratelimit"
	"github.com/polymerwire/modelhub/ingest/internal/service"
)

const (
	defaultDLQLimit = 50
	maxDLQLimit     = 500
	readyTimeout    = 2 * time.Second
)

// ModelService is the behaviour the handlers need from service.ModelService.
type ModelService interface {
	Submit(ctx context.Context, body []byte) models.Outcome
	ListModels(ctx context.Context) ([]service.ModelSummary, error)
	GetModel(ctx context.Context, name string) (map[string]any, error)
	GetStatus(ctx context.Context, name string) (models.StatusSummary, error)
}

// DeadLetters lists failed submissions.
type DeadLetters interface {
	List(ctx context.Context, limit int) ([]dlq.Entry, error)
	Stats(ctx context.Context) map[string]any
}

// ReadyCheck reports whether one dependency can serve requests.
type ReadyCheck func(ctx context.Context) error

// Options tune a Handler. Zero values get defaults.
type Options struct {
	MaxBodyBytes int64
	Limiter      ratelimit.RateLimiter
	DeadLetters  DeadLetters
	Checks       map[string]ReadyCheck
	Logger       *logging.Logger
}

type Handler struct {
	service     ModelService
	limiter     ratelimit.RateLimiter
	deadLetters DeadLetters
	checks      map[string]ReadyCheck
	maxBody     int64
	logger      *logging.Logger
}

func New(svc ModelService, opts Options) *Handler {
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.NoOpRateLimiter{}
	}
	if opts.DeadLetters == nil {
		opts.DeadLetters = dlq.Noop{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = httputil.MaxBodyBytes
	}
	return &Handler{
		service:     svc,
		limiter:     opts.Limiter,
		deadLetters: opts.DeadLetters,
		checks:      opts.Checks,
		maxBody:     opts.MaxBodyBytes,
		logger:      opts.Logger,
	}
}

// StatusCode maps a pipeline outcome to its HTTP status.
func StatusCode(o models.Outcome) int {
	switch o.Kind {
	case models.OutcomeStored:
		return http.StatusOK
	case models.OutcomeStaged:
		return http.StatusAccepted
	case models.OutcomeConflict:
		return http.StatusConflict
	case models.OutcomeWriteFailed:
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

// PostModel handles POST /post-model.
func (h *Handler) PostModel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.WithContext(ctx)

	subject := middleware.GetSubject(ctx)
	allowed, err := h.limiter.Allow(ctx, subject)
	if err != nil {
		// Fail open on limiter errors.
		logger.WarnContext(ctx, "rate limiter unavailable", logging.Error(err))
	} else if !allowed {
		httputil.WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	body, err := httputil.ReadBody(r, h.maxBody)
	if errors.Is(err, httputil.ErrBodyTooLarge) {
		httputil.WriteError(w, http.StatusRequestEntityTooLarge, "model too large")
		return
	}
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, service.MsgUnparseable)
		return
	}

	outcome := h.service.Submit(ctx, body)
	httputil.WriteJSON(w, StatusCode(outcome), outcome)
}

// GetModels handles GET /get-models.
func (h *Handler) GetModels(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListModels(r.Context())
	if err != nil {
		h.logger.WithContext(r.Context()).ErrorContext(r.Context(), "failed to list models", logging.Error(err))
		httputil.WriteError(w, http.StatusBadGateway, "models could not be listed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

// GetModelData handles GET /get-model-data/{modelname}.
func (h *Handler) GetModelData(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("modelname")
	doc, err := h.service.GetModel(r.Context(), name)
	switch {
	case errors.Is(err, service.ErrModelNotFound):
		httputil.WriteError(w, http.StatusNotFound, service.MsgModelNotFound)
	case errors.Is(err, service.ErrMalformedModel):
		h.logger.WithContext(r.Context()).ErrorContext(r.Context(), "stored model is malformed",
			logging.Model(name), logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "model could not be read")
	case err != nil:
		h.logger.WithContext(r.Context()).ErrorContext(r.Context(), "failed to get model",
			logging.Model(name), logging.Error(err))
		httputil.WriteError(w, http.StatusBadGateway, "model could not be read")
	default:
		httputil.WriteJSON(w, http.StatusOK, doc)
	}
}

// GetModelStatus handles GET /get-model-status/{modelname}.
func (h *Handler) GetModelStatus(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("modelname")
	summary, err := h.service.GetStatus(r.Context(), name)
	switch {
	case errors.Is(err, service.ErrModelNotFound):
		httputil.WriteError(w, http.StatusNotFound, service.MsgModelNotFound)
	case err != nil:
		h.logger.WithContext(r.Context()).ErrorContext(r.Context(), "failed to read status",
			logging.Model(name), logging.Error(err))
		httputil.WriteError(w, http.StatusBadGateway, "status could not be read")
	default:
		httputil.WriteJSON(w, http.StatusOK, summary)
	}
}

// DeadLetterList handles GET /dlq?limit=N.
func (h *Handler) DeadLetterList(w http.ResponseWriter, r *http.Request) {
	limit := defaultDLQLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httputil.WriteError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxDLQLimit)
	}

	entries, err := h.deadLetters.List(r.Context(), limit)
	if err != nil {
		h.logger.WithContext(r.Context()).ErrorContext(r.Context(), "failed to list dead letters", logging.Error(err))
		httputil.WriteError(w, http.StatusBadGateway, "dead letters could not be listed")
		return
	}
	if entries == nil {
		entries = []dlq.Entry{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"stats":   h.deadLetters.Stats(r.Context()),
	})
}

// DeadLetterDelete handles DELETE /dlq/{id}.
func (h *Handler) DeadLetterDelete(w http.ResponseWriter, r *http.Request) {
	deleter, ok := h.deadLetters.(dlq.Deleter)
	if !ok {
		httputil.WriteError(w, http.StatusNotImplemented, "dead letter backend does not support delete")
		return
	}

	id := r.PathValue("id")
	err := deleter.Delete(r.Context(), id)
	if errors.Is(err, dlq.ErrEntryNotFound) {
		httputil.WriteError(w, http.StatusNotFound, "dead letter not found")
		return
	}
	if err != nil {
		h.logger.WithContext(r.Context()).ErrorContext(r.Context(), "failed to delete dead letter",
			slog.String("id", id), logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "dead letter could not be deleted")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Ready runs every readiness check and answers 503 if any fails.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	code := http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.logger.WithContext(ctx).WarnContext(ctx, "readiness check failed",
				slog.String("check", name), logging.Error(err))
			results[name] = err.Error()
			code = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	state := "ready"
	if code != http.StatusOK {
		state = "not_ready"
	}
	httputil.WriteJSON(w, code, map[string]any{"status": state, "checks": results})
}
