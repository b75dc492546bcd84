package reconciliation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/libhub/orders-storage/internal/domain/inventory"
	"github.com/libhub/orders-storage/internal/domain/orders"
)

// ItemUpdateHandler mirrors item field changes onto pieces and refreshes the
// affected PO lines' location data.
//
// Item update events may arrive as part of a batch, one event per item of an
// inventory-side bulk operation. The batch tracker counts events durably so
// that the PO-line audit rows for the whole batch are written exactly once,
// by whichever event observes the counter reaching the expected total.
type ItemUpdateHandler struct {
	deps *Deps
}

// NewItemUpdateHandler creates a new handler for item UPDATE events
func NewItemUpdateHandler(deps *Deps) *ItemUpdateHandler {
	return &ItemUpdateHandler{deps: deps}
}

func (h *ItemUpdateHandler) Kind() inventory.ResourceKind { return inventory.KindItem }

func (h *ItemUpdateHandler) Action() inventory.EventAction { return inventory.ActionUpdate }

// Handle processes an item UPDATE event against the order tenant.
func (h *ItemUpdateHandler) Handle(ctx context.Context, evt *inventory.ResourceEvent, ec EventContext) error {
	oldItem, err := evt.OldItem()
	if err != nil {
		return err
	}
	newItem, err := evt.NewItem()
	if err != nil {
		return err
	}

	if !newItem.RelevantFieldsChanged(oldItem) {
		return nil
	}

	orderTenant, err := h.resolveOrderTenant(ctx, ec, newItem.ID)
	if err != nil {
		return fmt.Errorf("resolving order tenant for item %s: %w", newItem.ID, err)
	}

	log := h.deps.Logger.With(
		zap.String("item_id", newItem.ID.String()),
		zap.String("order_tenant", orderTenant),
	)

	err = h.deps.Tx.InTx(ctx, func(tx *gorm.DB) error {
		// The counter is consumed before any other work so that batch
		// completion is detected regardless of per-item transaction order.
		lastInBatch := false
		if evt.Batch != nil {
			count, err := h.deps.Batches.IncreaseProgress(ctx, tx, orderTenant, *evt.Batch)
			if err != nil {
				return err
			}
			lastInBatch = count == evt.Batch.TotalExpected
		}

		changed, err := h.syncPieces(ctx, tx, orderTenant, newItem)
		if err != nil {
			return err
		}

		if len(changed) > 0 {
			updatedLines, err := h.deps.PoLines.UpdateLocationData(ctx, tx, orderTenant, distinctPoLineIDs(changed), newItem)
			if err != nil {
				return err
			}
			// One audit entry set per batch: intermediate batch events skip
			// the PO-line rows, the final event writes them.
			if evt.Batch == nil || lastInBatch {
				if err := h.deps.Audit.RecordPoLineEdits(ctx, tx, orderTenant, updatedLines); err != nil {
					return err
				}
			}
			log.Info("pieces synced with item update",
				zap.Int("piece_count", len(changed)),
				zap.Int("line_count", len(updatedLines)),
				zap.Bool("last_in_batch", lastInBatch),
			)
		}

		if evt.Batch != nil {
			return h.deps.Batches.Delete(ctx, tx, orderTenant, evt.Batch.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("item update reconciliation for %s: %w", newItem.ID, err)
	}

	h.deps.flushAudit(ctx, orderTenant)
	return nil
}

// resolveOrderTenant decides which tenant owns the order data for the item.
// Items that already have pieces in the origin tenant keep their order data
// there; everything else lives with the central tenant. The existence check
// runs in its own short transaction against the origin tenant.
func (h *ItemUpdateHandler) resolveOrderTenant(ctx context.Context, ec EventContext, itemID uuid.UUID) (string, error) {
	var exists bool
	err := h.deps.Tx.InTx(ctx, func(tx *gorm.DB) error {
		var err error
		exists, err = h.deps.Pieces.ExistsByItemID(ctx, tx, ec.OriginTenant, itemID)
		return err
	})
	if err != nil {
		return "", err
	}
	if exists {
		return ec.OriginTenant, nil
	}
	return ec.CentralTenant, nil
}

func (h *ItemUpdateHandler) syncPieces(ctx context.Context, tx *gorm.DB, tenantID string, item inventory.Item) ([]orders.Piece, error) {
	pieces, err := h.deps.Pieces.FindByItemID(ctx, tx, tenantID, item.ID)
	if err != nil {
		return nil, err
	}

	fields := orders.ItemFields{
		HoldingID:       item.HoldingsRecordID,
		Barcode:         item.Barcode,
		CallNumber:      item.CallNumber,
		AccessionNumber: item.AccessionNumber,
	}

	changed := make([]orders.Piece, 0, len(pieces))
	for i := range pieces {
		piece := &pieces[i]
		if !piece.DiffersFromItem(fields) {
			continue
		}
		piece.ApplyItemFields(fields)
		changed = append(changed, *piece)
	}
	if len(changed) == 0 {
		return nil, nil
	}

	if err := h.deps.Pieces.UpdateBatch(ctx, tx, tenantID, changed); err != nil {
		return nil, err
	}
	if err := h.deps.Audit.RecordPieceEdits(ctx, tx, tenantID, changed); err != nil {
		return nil, err
	}
	return changed, nil
}

func distinctPoLineIDs(pieces []orders.Piece) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(pieces))
	ids := make([]uuid.UUID, 0, len(pieces))
	for i := range pieces {
		id := pieces[i].PoLineID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

var _ Handler = (*ItemUpdateHandler)(nil)
