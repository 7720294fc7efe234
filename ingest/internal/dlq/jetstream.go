package dlq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/polymerwire/modelhub/common/logging"
	"github.com/polymerwire/modelhub/common/messaging"
	"github.com/polymerwire/modelhub/common/messaging/nats"
	"github.com/polymerwire/modelhub/ingest/internal/metrics"
)

type syncPublisher interface {
	PublishSync(ctx context.Context, msg *messaging.Message) (*jetstream.PubAck, error)
}

// JetStreamQueue publishes entries to the MODELS_DLQ stream, shared by every
// ingest instance.
type JetStreamQueue struct {
	pub     syncPublisher
	stream  jetstream.Stream
	logger  *logging.Logger
	written atomic.Uint64
}

// NewJetStreamQueue declares the dead-letter stream and returns a queue on it.
func NewJetStreamQueue(ctx context.Context, js *nats.JetStreamClient, logger *logging.Logger) (*JetStreamQueue, error) {
	if js == nil {
		return nil, errors.New("jetstream client is nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	stream, err := js.CreateOrUpdateStream(ctx, nats.DeadLetterStream)
	if err != nil {
		return nil, fmt.Errorf("create dlq stream: %w", err)
	}
	logger.InfoContext(ctx, "dlq stream ready", slog.String("stream", nats.DeadLetterStream.Name))

	return &JetStreamQueue{pub: js, stream: stream, logger: logger}, nil
}

func (q *JetStreamQueue) Write(ctx context.Context, entry Entry) error {
	if q == nil {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		metrics.DeadLettersTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("marshal dlq entry: %w", err)
	}

	msg := &messaging.Message{
		Subject: messaging.DeadLetterSubject(entry.Reason),
		Data:    data,
		Metadata: map[string]string{
			"Nats-Msg-Id": entry.ID,
			"Model-Name":  entry.Name,
		},
		Timestamp: entry.Timestamp,
	}
	if _, err := q.pub.PublishSync(ctx, msg); err != nil {
		metrics.DeadLettersTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("publish dlq entry: %w", err)
	}

	q.written.Add(1)
	metrics.DeadLettersTotal.WithLabelValues("written").Inc()
	q.logger.WarnContext(ctx, "dead-lettered submission",
		logging.Model(entry.Name),
		slog.String("reason", entry.Reason),
		slog.String("subject", msg.Subject),
	)
	return nil
}

// List reads up to limit entries from the start of the stream.
func (q *JetStreamQueue) List(ctx context.Context, limit int) ([]Entry, error) {
	if q == nil || q.stream == nil {
		return nil, fmt.Errorf("dlq not enabled")
	}
	if limit <= 0 {
		limit = 100
	}

	consumer, err := q.stream.OrderedConsumer(ctx, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{messaging.SubjectDeadLetter + ".>"},
		DeliverPolicy:  jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("create list consumer: %w", err)
	}

	msgs, err := consumer.Fetch(limit, jetstream.FetchMaxWait(2*time.Second))
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}

	var entries []Entry
	for msg := range msgs.Messages() {
		var e Entry
		if err := json.Unmarshal(msg.Data(), &e); err != nil {
			q.logger.ErrorContext(ctx, "failed to parse dlq message", logging.Error(err))
			continue
		}
		entries = append(entries, e)
	}
	if err := msgs.Error(); err != nil && !errors.Is(err, jetstream.ErrNoMessages) {
		q.logger.WarnContext(ctx, "dlq fetch completed with error", logging.Error(err))
	}
	return entries, nil
}

func (q *JetStreamQueue) Stats(ctx context.Context) map[string]any {
	if q == nil || q.stream == nil {
		return map[string]any{"enabled": false, "backend": "jetstream"}
	}

	info, err := q.stream.Info(ctx)
	if err != nil {
		return map[string]any{
			"enabled":       true,
			"backend":       "jetstream",
			"written_local": q.written.Load(),
			"error":         err.Error(),
		}
	}
	return map[string]any{
		"enabled":        true,
		"backend":        "jetstream",
		"written_local":  q.written.Load(),
		"total_messages": info.State.Msgs,
		"total_bytes":    info.State.Bytes,
		"first_seq":      info.State.FirstSeq,
		"last_seq":       info.State.LastSeq,
	}
}
