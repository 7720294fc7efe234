// Package pipeline runs a model submission through validation, classification,
// the uniqueness check and the routed write, checkpointing every stage.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/polymerwire/modelhub/common/logging"
	"github.com/polymerwire/modelhub/common/messaging"
	"github.com/polymerwire/modelhub/ingest/internal/classifier"
	"github.com/polymerwire/modelhub/ingest/internal/dlq"
	"github.com/polymerwire/modelhub/ingest/internal/lock"
	"github.com/polymerwire/modelhub/ingest/internal/metrics"
	"github.com/polymerwire/modelhub/ingest/internal/models"
	"github.com/polymerwire/modelhub/ingest/internal/notify"
	"github.com/polymerwire/modelhub/ingest/internal/objectstore"
	"github.com/polymerwire/modelhub/ingest/internal/routing"
	"github.com/polymerwire/modelhub/ingest/internal/uniqueness"
	"github.com/polymerwire/modelhub/ingest/internal/validator"
)

// Pipeline-level checkpoint states. Stage states live with their stages.
const (
	StateReceived    = "RECEIVED"
	StateFailed      = "FAILED"
	StateWriteFailed = "WRITE_FAILED"
)

// Checkpointer records progress. It never fails the caller.
type Checkpointer interface {
	Checkpoint(ctx context.Context, name string, code int, state, detail string)
}

// Deps are the collaborators of a Pipeline. Nil optional fields get no-op defaults.
type Deps struct {
	Objects  objectstore.Store
	Status   Checkpointer
	Lock     lock.Locker
	Notifier notify.Notifier
	DLQ      dlq.Writer
	Logger   *logging.Logger
	Clock    func() time.Time
}

// Config holds the routing layout and store call bounds.
type Config struct {
	Routing routing.Config
	// StoreTimeout bounds each list and write call. Zero leaves only the caller's deadline.
	StoreTimeout time.Duration
}

// Pipeline is safe for concurrent use; it keeps no per-submission state.
type Pipeline struct {
	validator *validator.Chain
	checker   *uniqueness.Checker
	router    *routing.Router
	status    Checkpointer
	lock      lock.Locker
	notifier  notify.Notifier
	dlq       dlq.Writer
	logger    *logging.Logger
	clock     func() time.Time
	cfg       Config
}

// New wires a pipeline. deps.Objects and deps.Status are required.
func New(deps Deps, cfg Config) (*Pipeline, error) {
	if deps.Objects == nil {
		return nil, errors.New("pipeline: object store is required")
	}
	if deps.Status == nil {
		return nil, errors.New("pipeline: status tracker is required")
	}
	if cfg.Routing.SiteBucket == "" {
		return nil, errors.New("pipeline: site bucket is required")
	}
	if deps.Lock == nil {
		deps.Lock = lock.Noop{}
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Noop{}
	}
	if deps.DLQ == nil {
		deps.DLQ = dlq.Noop{}
	}
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	return &Pipeline{
		validator: validator.Default(),
		checker:   uniqueness.NewChecker(deps.Objects, cfg.Routing.DataFolder),
		router:    routing.NewRouter(deps.Objects, cfg.Routing),
		status:    deps.Status,
		lock:      deps.Lock,
		notifier:  deps.Notifier,
		dlq:       deps.DLQ,
		logger:    deps.Logger,
		clock:     deps.Clock,
		cfg:       cfg,
	}, nil
}

// Validate runs sub through every stage and stops at the first failure.
// Rejections return {error}, infrastructure failures {success:false}.
func (p *Pipeline) Validate(ctx context.Context, sub *models.Submission) models.Outcome {
	start := p.clock()
	name := sub.Name()
	logger := p.logger.WithContext(ctx).With(logging.Model(name))

	outcome := p.run(ctx, logger, sub, name)

	metrics.SubmissionsTotal.WithLabelValues(outcome.Kind.String()).Inc()
	metrics.PipelineDuration.Observe(p.clock().Sub(start).Seconds())
	logger.InfoContext(ctx, "submission processed",
		slog.String("outcome", outcome.Kind.String()),
		logging.Duration(p.clock().Sub(start)),
	)
	return outcome
}

func (p *Pipeline) run(ctx context.Context, logger *slog.Logger, sub *models.Submission, name string) models.Outcome {
	p.status.Checkpoint(ctx, name, models.StatusInProgress, StateReceived, "")

	report := func(ctx context.Context, state, detail string) {
		p.status.Checkpoint(ctx, name, models.StatusInProgress, state, detail)
	}
	if err := p.validator.Validate(ctx, sub, report); err != nil {
		return p.reject(ctx, logger, name, err)
	}

	c := classifier.Apply(sub)
	metrics.ElementsClassified.WithLabelValues("linear").Add(float64(len(c.LinearElements)))
	metrics.ElementsClassified.WithLabelValues("planar").Add(float64(len(c.PlanarElements)))
	report(ctx, classifier.StateClassified,
		fmt.Sprintf("%d linear, %d planar", len(c.LinearElements), len(c.PlanarElements)))

	lease, err := p.lock.Acquire(ctx, name)
	if errors.Is(err, lock.ErrHeld) {
		metrics.LockContention.Inc()
		return p.reject(ctx, logger, name, models.ErrAlreadyExists)
	}
	if err != nil {
		return p.fail(ctx, logger, sub, dlq.ReasonLockFailed, routing.Decision{}, err)
	}
	defer func() {
		// The caller's context may already be done; the lease must still go.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := lease.Release(releaseCtx); err != nil {
			logger.WarnContext(ctx, "failed to release name lock", logging.Error(err))
		}
	}()

	buckets := p.router.Buckets()
	if err := p.withStoreTimeout(ctx, func(ctx context.Context) error {
		return p.checker.CheckAll(ctx, name, buckets...)
	}); err != nil {
		if errors.Is(err, models.ErrAlreadyExists) {
			return p.reject(ctx, logger, name, err)
		}
		return p.fail(ctx, logger, sub, dlq.ReasonListFailed, routing.Decision{}, err)
	}
	report(ctx, uniqueness.StateNameUnique, strings.Join(buckets, ","))

	d := p.router.Route(sub)
	if err := p.withStoreTimeout(ctx, func(ctx context.Context) error {
		return p.router.Write(ctx, sub, d)
	}); err != nil {
		if errors.Is(err, models.ErrAlreadyExists) {
			return p.reject(ctx, logger, name, err)
		}
		return p.fail(ctx, logger, sub, dlq.ReasonWriteFailed, d, err)
	}
	p.status.Checkpoint(ctx, name, d.Code, d.State, d.Bucket)

	if d.Staged {
		p.notifyStaged(ctx, logger, name, d, c)
	}
	return models.Stored(name, d.Staged)
}

func (p *Pipeline) withStoreTimeout(ctx context.Context, fn func(ctx context.Context) error) error {
	if p.cfg.StoreTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.StoreTimeout)
		defer cancel()
	}
	return fn(ctx)
}

// reject records a caller-facing failure. err is expected to be a
// *models.ValidationError; anything else is reported as an infrastructure failure.
func (p *Pipeline) reject(ctx context.Context, logger *slog.Logger, name string, err error) models.Outcome {
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		logger.ErrorContext(ctx, "unexpected validation failure", logging.Error(err))
		p.status.Checkpoint(ctx, name, models.StatusFailed, StateWriteFailed, err.Error())
		return models.WriteFailed(name)
	}

	metrics.RejectionsTotal.WithLabelValues(verr.Kind.String(), string(verr.Kind.Category())).Inc()
	logger.InfoContext(ctx, "submission rejected",
		slog.String("kind", verr.Kind.String()),
		slog.String("reason", verr.Message),
	)
	p.status.Checkpoint(ctx, name, models.StatusFailed, StateFailed, verr.Message)
	return models.Rejected(name, verr)
}

// fail records an infrastructure failure and dead-letters the submission.
func (p *Pipeline) fail(ctx context.Context, logger *slog.Logger, sub *models.Submission, reason string, d routing.Decision, err error) models.Outcome {
	name := sub.Name()
	logger.ErrorContext(ctx, "submission failed",
		slog.String("reason", reason),
		logging.Bucket(d.Bucket),
		logging.Error(err),
	)
	p.status.Checkpoint(ctx, name, models.StatusFailed, StateWriteFailed, err.Error())

	doc, merr := json.Marshal(sub)
	if merr != nil {
		doc = nil
	}
	entry := dlq.NewEntry(name, reason, err, doc)
	entry.Bucket, entry.Key = d.Bucket, d.Key
	if derr := p.dlq.Write(context.WithoutCancel(ctx), entry); derr != nil {
		logger.ErrorContext(ctx, "failed to dead-letter submission", logging.Error(derr))
	}
	return models.WriteFailed(name)
}

func (p *Pipeline) notifyStaged(ctx context.Context, logger *slog.Logger, name string, d routing.Decision, c models.ClassifiedPayload) {
	err := p.notifier.Staged(ctx, messaging.StagedModel{
		Name:          name,
		StagingBucket: d.Bucket,
		Key:           d.Key,
		Destination:   p.cfg.Routing.SiteBucket,
		PlanarCount:   len(c.PlanarElements),
		LinearCount:   len(c.LinearElements),
		StagedAt:      p.clock().UTC(),
	})
	if err != nil {
		logger.WarnContext(ctx, "tessellation notification failed", logging.Error(err))
	}
}
