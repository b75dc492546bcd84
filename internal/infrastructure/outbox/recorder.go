package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/libhub/orders-storage/internal/domain/orders"
	"github.com/libhub/orders-storage/internal/domain/shared"
)

// poLineSnapshot is the audit payload for a purchase order line edit.
type poLineSnapshot struct {
	ID                uuid.UUID         `json:"id"`
	PurchaseOrderID   uuid.UUID         `json:"purchaseOrderId"`
	InstanceID        *uuid.UUID        `json:"instanceId,omitempty"`
	PoLineNumber      string            `json:"poLineNumber"`
	Locations         []orders.Location `json:"locations"`
	SearchLocationIDs []uuid.UUID       `json:"searchLocationIds"`
}

// pieceSnapshot is the audit payload for a piece edit.
type pieceSnapshot struct {
	ID                uuid.UUID  `json:"id"`
	PoLineID          uuid.UUID  `json:"poLineId"`
	TitleID           uuid.UUID  `json:"titleId"`
	HoldingID         *uuid.UUID `json:"holdingId,omitempty"`
	LocationID        *uuid.UUID `json:"locationId,omitempty"`
	ItemID            *uuid.UUID `json:"itemId,omitempty"`
	ReceivingTenantID string     `json:"receivingTenantId,omitempty"`
	Barcode           string     `json:"barcode,omitempty"`
	CallNumber        string     `json:"callNumber,omitempty"`
	AccessionNumber   string     `json:"accessionNumber,omitempty"`
}

// Recorder writes audit rows inside the caller's transaction and publishes
// them after commit. It implements the reconciliation AuditRecorder contract:
// recording is transactional, flushing is best effort.
type Recorder struct {
	repo      *GormOutboxRepository
	publisher Publisher
	batchSize int
	logger    *zap.Logger
}

// NewRecorder creates a new Recorder
func NewRecorder(repo *GormOutboxRepository, publisher Publisher, batchSize int, logger *zap.Logger) *Recorder {
	return &Recorder{
		repo:      repo,
		publisher: publisher,
		batchSize: batchSize,
		logger:    logger.Named("outbox"),
	}
}

// RecordPoLineEdits logs an EDIT audit row per line on the caller's
// transaction. Zero lines is a success.
func (r *Recorder) RecordPoLineEdits(ctx context.Context, tx *gorm.DB, tenantID string, lines []orders.PoLine) error {
	if len(lines) == 0 {
		return nil
	}

	logs := make([]*shared.OutboxEventLog, 0, len(lines))
	for i := range lines {
		l := &lines[i]
		payload, err := json.Marshal(poLineSnapshot{
			ID:                l.ID,
			PurchaseOrderID:   l.PurchaseOrderID,
			InstanceID:        l.InstanceID,
			PoLineNumber:      l.PoLineNumber,
			Locations:         l.Locations,
			SearchLocationIDs: l.SearchLocationIDs,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal po line snapshot %s: %w", l.ID, err)
		}
		logs = append(logs, shared.NewOutboxEventLog(tenantID, shared.EntityTypePoLine, shared.AuditActionEdit, l.ID, payload))
	}
	return r.repo.WithTx(tx).Save(ctx, logs...)
}

// RecordPieceEdits logs an EDIT audit row per piece on the caller's
// transaction. Zero pieces is a success.
func (r *Recorder) RecordPieceEdits(ctx context.Context, tx *gorm.DB, tenantID string, pieces []orders.Piece) error {
	if len(pieces) == 0 {
		return nil
	}

	logs := make([]*shared.OutboxEventLog, 0, len(pieces))
	for i := range pieces {
		p := &pieces[i]
		payload, err := json.Marshal(pieceSnapshot{
			ID:                p.ID,
			PoLineID:          p.PoLineID,
			TitleID:           p.TitleID,
			HoldingID:         p.HoldingID,
			LocationID:        p.LocationID,
			ItemID:            p.ItemID,
			ReceivingTenantID: p.ReceivingTenantID,
			Barcode:           p.Barcode,
			CallNumber:        p.CallNumber,
			AccessionNumber:   p.AccessionNumber,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal piece snapshot %s: %w", p.ID, err)
		}
		logs = append(logs, shared.NewOutboxEventLog(tenantID, shared.EntityTypePiece, shared.AuditActionEdit, p.ID, payload))
	}
	return r.repo.WithTx(tx).Save(ctx, logs...)
}

// Flush claims pending rows for the tenant and publishes them. Publication
// failures are recorded on the row with backoff and left for the processor;
// only claim or bookkeeping errors propagate.
func (r *Recorder) Flush(ctx context.Context, tenantID string) error {
	for {
		claimed, err := r.repo.ClaimPending(ctx, tenantID, r.batchSize)
		if err != nil {
			return fmt.Errorf("failed to claim pending outbox rows: %w", err)
		}
		if len(claimed) == 0 {
			return nil
		}

		for _, log := range claimed {
			if err := r.publisher.Publish(ctx, log); err != nil {
				log.MarkFailed(err.Error())
				r.logger.Warn("audit publication failed",
					zap.String("outbox_id", log.ID.String()),
					zap.String("tenant_id", tenantID),
					zap.Int("retry_count", log.RetryCount),
					zap.Error(err),
				)
			} else {
				log.MarkSent()
			}
			if err := r.repo.Update(ctx, log); err != nil {
				return fmt.Errorf("failed to update outbox row %s: %w", log.ID, err)
			}
		}

		if len(claimed) < r.batchSize {
			return nil
		}
	}
}
