package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"brokergate/internal/platform/kafka"
)

// KafkaSink publishes audit entries to the audit topic, keyed by tenant so a
// tenant's trail stays ordered within a partition.
type KafkaSink struct {
	producer *kafka.Producer
}

// NewKafkaSink wraps a connected producer.
func NewKafkaSink(producer *kafka.Producer) *KafkaSink {
	return &KafkaSink{producer: producer}
}

// Publish serializes the entry as JSON and produces it.
func (s *KafkaSink) Publish(ctx context.Context, entry Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	return s.producer.Produce(ctx, []byte(entry.TenantID.String()), payload)
}
