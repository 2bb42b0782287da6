package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/couchcryptid/hazard-fusion-service/internal/config"
	"github.com/couchcryptid/hazard-fusion-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Event header values.
const (
	EventCreated = "created"
	EventUpdated = "updated"
)

const maxPublishAttempts = 3

// messageWriter is the subset of *kafkago.Writer the broadcaster uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Broadcaster publishes created and updated alerts to a Kafka topic. Headers carry
// region, hazard type and severity so subscribers can filter without decoding.
// It implements fusion.AlertPublisher.
type Broadcaster struct {
	writer          messageWriter
	initialInterval time.Duration
	logger          *slog.Logger
}

// NewBroadcaster creates a Kafka producer for the configured alert topic.
func NewBroadcaster(cfg *config.Config, logger *slog.Logger) *Broadcaster {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaAlertTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Broadcaster{writer: w, initialInterval: 200 * time.Millisecond, logger: logger}
}

// PublishAlerts writes one message per alert in a single batch, retrying the
// batch with exponential backoff.
func (b *Broadcaster) PublishAlerts(ctx context.Context, created, updated []domain.Alert) error {
	msgs := make([]kafkago.Message, 0, len(created)+len(updated))
	for _, group := range []struct {
		event  string
		alerts []domain.Alert
	}{{EventCreated, created}, {EventUpdated, updated}} {
		for i := range group.alerts {
			msg, err := serializeToMessage(group.alerts[i], group.event)
			if err != nil {
				return err
			}
			msgs = append(msgs, msg)
		}
	}
	if len(msgs) == 0 {
		return nil
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = b.initialInterval
	exp.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, maxPublishAttempts-1), ctx)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		if err := b.writer.WriteMessages(ctx, msgs...); err != nil {
			b.logger.Warn("publish alerts attempt failed", "attempt", attempt, "messages", len(msgs), "error", err)
			return err
		}
		return nil
	}, policy)
	if err != nil {
		return fmt.Errorf("publish %d alert events after %d attempts: %w", len(msgs), attempt, err)
	}

	b.logger.Debug("published alert events", "messages", len(msgs))
	return nil
}

func (b *Broadcaster) Close() error {
	return b.writer.Close()
}

// serializeToMessage marshals an Alert into a Kafka message keyed by alert id, so
// every event for one alert lands on the same partition.
func serializeToMessage(alert domain.Alert, event string) (kafkago.Message, error) {
	data, err := json.Marshal(alert)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert %s: %w", alert.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(alert.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event", Value: []byte(event)},
			{Key: "region", Value: []byte(alert.Region.Name)},
			{Key: "hazard_type", Value: []byte(alert.HazardType)},
			{Key: "severity", Value: []byte(alert.Severity)},
		},
	}, nil
}
