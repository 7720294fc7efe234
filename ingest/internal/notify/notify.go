// Package notify tells the tessellation service about staged models.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/polymerwire/modelhub/common/messaging"
	"github.com/polymerwire/modelhub/ingest/internal/metrics"
)

// Notifier announces a staging write.
type Notifier interface {
	Staged(ctx context.Context, m messaging.StagedModel) error
}

// Publisher sends StagedModel messages on a subject.
type Publisher struct {
	pub     messaging.Publisher
	subject string
}

// NewPublisher publishes on subject, or messaging.SubjectModelStaged when empty.
func NewPublisher(pub messaging.Publisher, subject string) *Publisher {
	if subject == "" {
		subject = messaging.SubjectModelStaged
	}
	return &Publisher{pub: pub, subject: subject}
}

func (p *Publisher) Staged(ctx context.Context, m messaging.StagedModel) error {
	data, err := json.Marshal(m)
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("marshal staged model: %w", err)
	}

	err = p.pub.PublishMsg(ctx, &messaging.Message{
		Subject:   p.subject,
		Data:      data,
		Metadata:  map[string]string{"Model-Name": m.Name},
		Timestamp: m.StagedAt,
	})
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	return nil
}

// Noop drops notifications.
type Noop struct{}

func (Noop) Staged(context.Context, messaging.StagedModel) error { return nil }
