// Package validator enforces the structure of a model submission as an
// ordered chain of checks. The first failing check stops the chain.
package validator

import (
	"context"

	"github.com/polymerwire/modelhub/ingest/internal/models"
)

// Checkpoint states reported by the checks in this package.
const (
	StateStructureOK   = "STRUCTURE_OK"
	StateTimestampOK   = "TIMESTAMP_OK"
	StateUnitsOK       = "UNITS_OK"
	StatePayloadKeysOK = "PAYLOAD_KEYS_OK"
	StateVerticesOK    = "VERTICES_OK"
	StateMetadataOK    = "METADATA_OK"
)

// Reporter receives a checkpoint for every check that passes.
type Reporter func(ctx context.Context, state, detail string)

// Check is one validation step. It returns a *models.ValidationError on
// rejection and may fill in derived fields on sub.
type Check interface {
	Check(ctx context.Context, sub *models.Submission, report Reporter) error
}

// CheckFunc adapts a function to Check.
type CheckFunc func(ctx context.Context, sub *models.Submission, report Reporter) error

func (f CheckFunc) Check(ctx context.Context, sub *models.Submission, report Reporter) error {
	return f(ctx, sub, report)
}

// Chain applies checks sequentially.
type Chain struct {
	checks []Check
}

// NewChain constructs a validator chain.
func NewChain(checks ...Check) *Chain {
	return &Chain{checks: checks}
}

// Default is the submission chain: sections, model information keys,
// timestamp, units, then every payload element in order.
func Default() *Chain {
	return NewChain(Sections{}, ModelInfo{}, Timestamp{}, Units{}, Payload{})
}

// Validate runs the checks until one fails. report may be nil.
func (c *Chain) Validate(ctx context.Context, sub *models.Submission, report Reporter) error {
	if c == nil {
		return nil
	}
	if report == nil {
		report = func(context.Context, string, string) {}
	}
	for _, check := range c.checks {
		if err := check.Check(ctx, sub, report); err != nil {
			return err
		}
	}
	return nil
}
