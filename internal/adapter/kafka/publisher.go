package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/weather-alert-dashboard/internal/domain"
	"github.com/couchcryptid/weather-alert-dashboard/internal/observability"
)

// AlertPublisher produces storm alerts to a Kafka topic. Alert IDs are
// deterministic, so consumers deduplicate replays by key.
type AlertPublisher struct {
	writer  *kafkago.Writer
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewAlertPublisher creates a Kafka producer for the alert topic.
func NewAlertPublisher(brokers []string, topic string, metrics *observability.Metrics, logger *slog.Logger) *AlertPublisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &AlertPublisher{writer: w, metrics: metrics, logger: logger}
}

// Publish serializes and produces one alert.
func (p *AlertPublisher) Publish(ctx context.Context, alert domain.Alert) error {
	msg, err := serializeToMessage(alert)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish alert %s: %w", alert.ID, err)
	}
	if p.metrics != nil {
		p.metrics.AlertsPublished.Inc()
	}
	p.logger.Info("alert published", "alert_id", alert.ID, "location", alert.Location, "level", alert.Level)
	return nil
}

// Close flushes and closes the underlying writer.
func (p *AlertPublisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals an Alert into a Kafka message keyed by alert ID.
func serializeToMessage(alert domain.Alert) (kafkago.Message, error) {
	data, err := json.Marshal(alert)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(alert.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "level", Value: []byte(alert.Level)},
			{Key: "issued_at", Value: []byte(alert.IssuedAt.Format(time.RFC3339))},
		},
	}, nil
}
