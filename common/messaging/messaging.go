// Package messaging defines the broker-neutral publishing surface modelhub
// uses to hand staged models to the tessellation service.
package messaging

import (
	"context"
	"time"
)

// Subjects published by the ingest service.
const (
	// SubjectModelStaged carries a StagedModel for every staging-bucket write.
	SubjectModelStaged = "models.staged"
	// SubjectDeadLetter prefixes subjects carrying submissions whose final
	// write failed: models.dlq.<reason>.
	SubjectDeadLetter = "models.dlq"
)

// DeadLetterSubject returns the subject for a dead-lettered submission.
func DeadLetterSubject(reason string) string {
	if reason == "" {
		reason = "unknown"
	}
	return SubjectDeadLetter + "." + reason
}

// Message is a payload plus optional headers.
type Message struct {
	Subject   string
	Data      []byte
	Metadata  map[string]string
	Timestamp time.Time
}

// Publisher publishes messages to subjects.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
	PublishMsg(ctx context.Context, msg *Message) error
	Close() error
}

// StagedModel is the body of a models.staged message.
type StagedModel struct {
	Name          string    `json:"name"`
	StagingBucket string    `json:"stagingBucket"`
	Key           string    `json:"key"`
	Destination   string    `json:"destination"`
	PlanarCount   int       `json:"planarCount"`
	LinearCount   int       `json:"linearCount"`
	StagedAt      time.Time `json:"stagedAt"`
}
