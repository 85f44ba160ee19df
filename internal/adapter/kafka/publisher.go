// Package kafka publishes location update outcomes to a Kafka topic for
// downstream consumers. Publishing is optional; the service runs without a
// broker when no brokers are configured.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/nearspot/locationd/internal/domain"
	"github.com/nearspot/locationd/internal/scheduler"
)

// Publisher produces one message per pipeline outcome, successes and
// terminal failures alike.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the update topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// Run drains the subscription channel until the context is canceled or the
// channel closes. Publish failures are logged and dropped: the broker is a
// consumer of updates, never a gate on them.
func (p *Publisher) Run(ctx context.Context, updates <-chan scheduler.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if err := p.Publish(ctx, u); err != nil {
				p.logger.Warn("publish update failed", "error", err)
			}
		}
	}
}

// Publish serializes and writes a single update outcome.
func (p *Publisher) Publish(ctx context.Context, u scheduler.Update) error {
	msg, err := serializeToMessage(u)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// updateEvent is the wire payload for one pipeline outcome.
type updateEvent struct {
	Outcome  domain.Outcome           `json:"outcome"`
	Snapshot *domain.LocationSnapshot `json:"snapshot,omitempty"`
	Error    string                   `json:"error,omitempty"`
}

// serializeToMessage marshals an update into a Kafka message. Messages are
// keyed by outcome so consumers partition successes and failures apart.
func serializeToMessage(u scheduler.Update) (kafkago.Message, error) {
	event := updateEvent{Outcome: domain.OutcomeSuccess, Snapshot: u.Snapshot}
	if u.Err != nil {
		event.Outcome = domain.OutcomeFailure
		event.Error = u.Err.Error()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize update event: %w", err)
	}

	headers := []kafkago.Header{
		{Key: "outcome", Value: []byte(event.Outcome)},
	}
	if u.Snapshot != nil {
		headers = append(headers,
			kafkago.Header{Key: "source", Value: []byte(u.Snapshot.Source)},
			kafkago.Header{Key: "timestamp", Value: []byte(u.Snapshot.Timestamp.Format(time.RFC3339))},
		)
	}

	return kafkago.Message{
		Key:     []byte(event.Outcome),
		Value:   data,
		Headers: headers,
	}, nil
}
