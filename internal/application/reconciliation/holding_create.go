package reconciliation

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/libhub/orders-storage/internal/domain/inventory"
	"github.com/libhub/orders-storage/internal/domain/orders"
)

// HoldingCreateHandler reconciles order storage with a newly created holding:
// PO line locations referencing the holding adopt the origin tenant and the
// holding's permanent location, and pieces under the holding move their
// receiving tenant. Line and piece changes for one event commit atomically.
type HoldingCreateHandler struct {
	deps *Deps
}

// NewHoldingCreateHandler creates a new handler for holding CREATE events
func NewHoldingCreateHandler(deps *Deps) *HoldingCreateHandler {
	return &HoldingCreateHandler{deps: deps}
}

func (h *HoldingCreateHandler) Kind() inventory.ResourceKind { return inventory.KindHolding }

func (h *HoldingCreateHandler) Action() inventory.EventAction { return inventory.ActionCreate }

// Handle processes a holding CREATE event against the central tenant.
func (h *HoldingCreateHandler) Handle(ctx context.Context, evt *inventory.ResourceEvent, ec EventContext) error {
	holding, err := evt.NewHolding()
	if err != nil {
		return err
	}

	log := h.deps.Logger.With(
		zap.String("holding_id", holding.ID.String()),
		zap.String("origin_tenant", ec.OriginTenant),
		zap.String("central_tenant", ec.CentralTenant),
	)

	err = h.deps.Tx.InTx(ctx, func(tx *gorm.DB) error {
		if err := h.reconcileLines(ctx, tx, ec, holding, log); err != nil {
			return err
		}
		return h.reconcilePieces(ctx, tx, ec, holding, log)
	})
	if err != nil {
		return fmt.Errorf("holding create reconciliation for %s: %w", holding.ID, err)
	}

	h.deps.flushAudit(ctx, ec.CentralTenant)
	return nil
}

func (h *HoldingCreateHandler) reconcileLines(ctx context.Context, tx *gorm.DB, ec EventContext, holding inventory.Holding, log *zap.Logger) error {
	lines, err := h.deps.PoLines.FindByHoldingID(ctx, tx, ec.CentralTenant, holding.ID)
	if err != nil {
		return err
	}

	changed := make([]orders.PoLine, 0, len(lines))
	for i := range lines {
		line := &lines[i]
		lineChanged := line.AssignHoldingTenant(holding.ID, ec.OriginTenant)
		if holding.PermanentLocationID != nil && line.AddSearchLocation(*holding.PermanentLocationID) {
			lineChanged = true
		}
		if lineChanged {
			changed = append(changed, *line)
		}
	}
	if len(changed) == 0 {
		log.Debug("no po lines to reconcile for new holding")
		return nil
	}

	if err := h.deps.PoLines.UpdateBatch(ctx, tx, ec.CentralTenant, changed); err != nil {
		return err
	}
	if err := h.deps.Audit.RecordPoLineEdits(ctx, tx, ec.CentralTenant, changed); err != nil {
		return err
	}

	log.Info("po lines reconciled with new holding", zap.Int("line_count", len(changed)))
	return nil
}

func (h *HoldingCreateHandler) reconcilePieces(ctx context.Context, tx *gorm.DB, ec EventContext, holding inventory.Holding, log *zap.Logger) error {
	pieces, err := h.deps.Pieces.FindByHoldingID(ctx, tx, ec.CentralTenant, holding.ID)
	if err != nil {
		return err
	}

	changed := make([]orders.Piece, 0, len(pieces))
	for i := range pieces {
		piece := &pieces[i]
		if piece.ReceivingTenantID == ec.OriginTenant {
			continue
		}
		piece.ReceivingTenantID = ec.OriginTenant
		changed = append(changed, *piece)
	}
	if len(changed) == 0 {
		log.Debug("no pieces to reconcile for new holding")
		return nil
	}

	if err := h.deps.Pieces.UpdateBatch(ctx, tx, ec.CentralTenant, changed); err != nil {
		return err
	}
	if err := h.deps.Audit.RecordPieceEdits(ctx, tx, ec.CentralTenant, changed); err != nil {
		return err
	}

	log.Info("pieces moved to holding tenant", zap.Int("piece_count", len(changed)))
	return nil
}

var _ Handler = (*HoldingCreateHandler)(nil)
