package inventorybridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/libhub/orders-storage/internal/domain/inventory"
)

// batchUpdateRequest asks the inventory service to move a set of holdings to
// a new instance.
type batchUpdateRequest struct {
	Tenant     string      `json:"tenant"`
	InstanceID uuid.UUID   `json:"instanceId"`
	HoldingIDs []uuid.UUID `json:"holdingIds"`
}

// KafkaPropagator pushes adjacent-holding instance updates to the inventory
// service over Kafka. It is always called after the PO-line transaction has
// committed; a lost request leaves inventory to converge on the next holding
// event.
type KafkaPropagator struct {
	writer *kafka.Writer
}

// NewKafkaPropagator creates a propagator writing to the inventory
// batch-update topic
func NewKafkaPropagator(brokers []string, topic string) *KafkaPropagator {
	return &KafkaPropagator{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// BatchUpdateAdjacentHoldings publishes one batch-update request for the
// holdings. A zero-length holding set is a no-op.
func (p *KafkaPropagator) BatchUpdateAdjacentHoldings(ctx context.Context, tenantID string, instanceID uuid.UUID, holdingIDs []uuid.UUID) error {
	if len(holdingIDs) == 0 {
		return nil
	}

	value, err := json.Marshal(batchUpdateRequest{
		Tenant:     tenantID,
		InstanceID: instanceID,
		HoldingIDs: holdingIDs,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal batch update request: %w", err)
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(instanceID.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: inventory.TenantHeader, Value: []byte(tenantID)},
		},
	})
}

// Close flushes and closes the underlying writer
func (p *KafkaPropagator) Close() error {
	return p.writer.Close()
}
