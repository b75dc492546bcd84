package reconciliation

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/libhub/orders-storage/internal/domain/inventory"
	"github.com/libhub/orders-storage/internal/domain/orders"
)

// ItemCreateHandler reassigns pieces to the tenant that created an inventory
// item for them. A piece with an explicit location is pinned and never
// follows the item to a different holding.
//
// Unlike the other handlers this path writes pieces through the plain record
// store, without audit rows: an inventory-driven reassignment on create is
// not an order-side edit.
type ItemCreateHandler struct {
	deps *Deps
}

// NewItemCreateHandler creates a new handler for item CREATE events
func NewItemCreateHandler(deps *Deps) *ItemCreateHandler {
	return &ItemCreateHandler{deps: deps}
}

func (h *ItemCreateHandler) Kind() inventory.ResourceKind { return inventory.KindItem }

func (h *ItemCreateHandler) Action() inventory.EventAction { return inventory.ActionCreate }

// Handle processes an item CREATE event against the central tenant.
func (h *ItemCreateHandler) Handle(ctx context.Context, evt *inventory.ResourceEvent, ec EventContext) error {
	item, err := evt.NewItem()
	if err != nil {
		return err
	}

	log := h.deps.Logger.With(
		zap.String("item_id", item.ID.String()),
		zap.String("origin_tenant", ec.OriginTenant),
	)

	err = h.deps.Tx.InTx(ctx, func(tx *gorm.DB) error {
		pieces, err := h.deps.Pieces.FindByItemID(ctx, tx, ec.CentralTenant, item.ID)
		if err != nil {
			return err
		}

		changed := make([]orders.Piece, 0, len(pieces))
		for i := range pieces {
			piece := &pieces[i]
			if piece.ReceivingTenantID == ec.OriginTenant {
				continue
			}
			if piece.Pinned() && piece.HoldingEquals(item.HoldingsRecordID) {
				continue
			}
			piece.ReceivingTenantID = ec.OriginTenant
			if !piece.Pinned() {
				holdingID := item.HoldingsRecordID
				piece.HoldingID = &holdingID
			}
			changed = append(changed, *piece)
		}
		if len(changed) == 0 {
			log.Debug("no pieces to reassign for new item")
			return nil
		}

		if err := h.deps.Pieces.UpdateBatch(ctx, tx, ec.CentralTenant, changed); err != nil {
			return err
		}
		log.Info("pieces reassigned to item tenant", zap.Int("piece_count", len(changed)))
		return nil
	})
	if err != nil {
		return fmt.Errorf("item create reconciliation for %s: %w", item.ID, err)
	}
	return nil
}

var _ Handler = (*ItemCreateHandler)(nil)
