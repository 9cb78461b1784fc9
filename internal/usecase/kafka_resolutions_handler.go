package usecase

import (
	"context"
	"encoding/json"
	"time"

	"ForecastPull/internal/domain/models"
	drepo "ForecastPull/internal/domain/repository"
	pkgkafka "ForecastPull/pkg/kafka"
)

// KafkaResolutionsHandler consumes resolution notifications and hands them
// to the applier. Redelivery is safe: applying is idempotent.
type KafkaResolutionsHandler struct {
	topic   string
	applier *ResolutionApplier
	metrics drepo.Metrics
}

func NewKafkaResolutionsHandler(topic string, applier *ResolutionApplier, metrics drepo.Metrics) *KafkaResolutionsHandler {
	return &KafkaResolutionsHandler{topic: topic, applier: applier, metrics: metrics}
}

func (h *KafkaResolutionsHandler) Topic() string { return h.topic }

// incoming message schema: {event_id, outcome, resolved_at, source}
func (h *KafkaResolutionsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		EventID    string `json:"event_id"`
		Outcome    bool   `json:"outcome"`
		ResolvedAt string `json:"resolved_at"`
		Source     string `json:"source"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}

	n := &models.ResolutionNotification{
		EventID: m.EventID,
		Outcome: m.Outcome,
		Source:  m.Source,
	}
	if m.ResolvedAt != "" {
		if at, err := time.Parse(time.RFC3339Nano, m.ResolvedAt); err == nil {
			n.ResolvedAt = at
		}
	}

	start := time.Now()
	err := h.applier.Apply(ctx, n)
	h.metrics.RecordLatency("consume_apply", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_apply")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaResolutionsHandler)(nil)
