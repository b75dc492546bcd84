package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/libhub/orders-storage/internal/domain/inventory"
	"github.com/libhub/orders-storage/internal/domain/shared"
)

// Publisher delivers committed audit rows to the downstream transport.
type Publisher interface {
	Publish(ctx context.Context, log *shared.OutboxEventLog) error
}

// auditEnvelope is the wire format published to the audit topic.
type auditEnvelope struct {
	ID         string          `json:"id"`
	Tenant     string          `json:"tenant"`
	EntityType string          `json:"entityType"`
	Action     string          `json:"action"`
	EntityID   string          `json:"entityId"`
	Entity     json.RawMessage `json:"entity"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// KafkaPublisher publishes audit rows to a Kafka topic
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a publisher writing to the given audit topic.
// Messages are keyed by entity id so edits to the same entity stay ordered
// within a partition.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// Publish writes one audit row to the topic
func (p *KafkaPublisher) Publish(ctx context.Context, log *shared.OutboxEventLog) error {
	value, err := json.Marshal(auditEnvelope{
		ID:         log.ID.String(),
		Tenant:     log.TenantID,
		EntityType: string(log.EntityType),
		Action:     string(log.Action),
		EntityID:   log.EntityID.String(),
		Entity:     log.Payload,
		CreatedAt:  log.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal audit envelope: %w", err)
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(log.EntityID.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: inventory.TenantHeader, Value: []byte(log.TenantID)},
		},
	})
}

// Close flushes and closes the underlying writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
