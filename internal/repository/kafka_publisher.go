package repository

import (
	"context"
	"time"

	"ForecastPull/internal/domain/models"
	"ForecastPull/internal/domain/repository"
	pkgkafka "ForecastPull/pkg/kafka"
)

// KafkaNotificationPublisher emits resolution notifications keyed by event
// ID so every notification for one event lands on the same partition.
type KafkaNotificationPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaNotificationPublisher creates a Kafka-backed publisher.
func NewKafkaNotificationPublisher(producer *pkgkafka.Producer, topic string) repository.NotificationPublisher {
	return &KafkaNotificationPublisher{producer: producer, topic: topic}
}

func (p *KafkaNotificationPublisher) Publish(ctx context.Context, n *models.ResolutionNotification) error {
	return p.producer.Publish(ctx, p.topic, []byte(n.EventID), map[string]interface{}{
		"event_id":    n.EventID,
		"outcome":     n.Outcome,
		"resolved_at": n.ResolvedAt.UTC().Format(time.RFC3339Nano),
		"source":      n.Source,
	})
}

func (p *KafkaNotificationPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
