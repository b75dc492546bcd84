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

// HoldingUpdateHandler reconciles PO lines with a changed holding. Only two
// holding fields matter here: the instance reference and the permanent
// location. Lines are persisted only when they actually differ, which is the
// mechanism that breaks the event feedback cycle: the adjacent-holding
// propagation in turn produces holding update events, and those must converge
// to "no net change".
//
// The adjacent-holding propagation runs after the PO-line transaction has
// committed, never inside it. A propagation failure must not be able to roll
// back correct PO-line state.
type HoldingUpdateHandler struct {
	deps *Deps
}

// NewHoldingUpdateHandler creates a new handler for holding UPDATE events
func NewHoldingUpdateHandler(deps *Deps) *HoldingUpdateHandler {
	return &HoldingUpdateHandler{deps: deps}
}

func (h *HoldingUpdateHandler) Kind() inventory.ResourceKind { return inventory.KindHolding }

func (h *HoldingUpdateHandler) Action() inventory.EventAction { return inventory.ActionUpdate }

// Handle processes a holding UPDATE event against the central tenant.
func (h *HoldingUpdateHandler) Handle(ctx context.Context, evt *inventory.ResourceEvent, ec EventContext) error {
	oldHolding, err := evt.OldHolding()
	if err != nil {
		return err
	}
	newHolding, err := evt.NewHolding()
	if err != nil {
		return err
	}

	instanceChanged := newHolding.InstanceChanged(oldHolding)
	searchLocationChanged := newHolding.PermanentLocationChanged(oldHolding)
	if !instanceChanged && !searchLocationChanged {
		return nil
	}

	log := h.deps.Logger.With(
		zap.String("holding_id", newHolding.ID.String()),
		zap.String("central_tenant", ec.CentralTenant),
		zap.Bool("instance_changed", instanceChanged),
		zap.Bool("search_location_changed", searchLocationChanged),
	)

	var changed []orders.PoLine
	err = h.deps.Tx.InTx(ctx, func(tx *gorm.DB) error {
		lines, err := h.deps.PoLines.FindByHoldingID(ctx, tx, ec.CentralTenant, newHolding.ID)
		if err != nil {
			return err
		}

		changed = changed[:0]
		for i := range lines {
			line := &lines[i]
			lineChanged := false
			if instanceChanged && line.SetInstance(newHolding.InstanceID) {
				lineChanged = true
			}
			if searchLocationChanged && newHolding.PermanentLocationID != nil &&
				line.AddSearchLocation(*newHolding.PermanentLocationID) {
				lineChanged = true
			}
			if lineChanged {
				changed = append(changed, *line)
			}
		}
		if len(changed) == 0 {
			log.Debug("holding update produced no net po line change")
			return nil
		}

		if err := h.deps.PoLines.UpdateBatch(ctx, tx, ec.CentralTenant, changed); err != nil {
			return err
		}
		if err := h.deps.PoLines.SyncTitles(ctx, tx, ec.CentralTenant, changed); err != nil {
			return err
		}
		return h.deps.Audit.RecordPoLineEdits(ctx, tx, ec.CentralTenant, changed)
	})
	if err != nil {
		return fmt.Errorf("holding update reconciliation for %s: %w", newHolding.ID, err)
	}

	if instanceChanged && len(changed) > 0 {
		h.propagateToAdjacentHoldings(ctx, ec, newHolding, changed, log)
	}

	h.deps.flushAudit(ctx, ec.CentralTenant)
	return nil
}

// propagateToAdjacentHoldings pushes the new instance id to the other
// holdings referenced by the updated lines. Failures are logged only: the
// PO-line transaction is already committed and the inventory side will
// converge on a later event.
func (h *HoldingUpdateHandler) propagateToAdjacentHoldings(ctx context.Context, ec EventContext, holding inventory.Holding, lines []orders.PoLine, log *zap.Logger) {
	seen := map[uuid.UUID]struct{}{holding.ID: {}}
	var adjacent []uuid.UUID
	for i := range lines {
		for _, id := range lines[i].HoldingIDs() {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			adjacent = append(adjacent, id)
		}
	}
	if len(adjacent) == 0 {
		return
	}

	if err := h.deps.Inventory.BatchUpdateAdjacentHoldings(ctx, ec.OriginTenant, holding.InstanceID, adjacent); err != nil {
		log.Warn("adjacent holding propagation failed",
			zap.Int("holding_count", len(adjacent)),
			zap.Error(err),
		)
		return
	}
	log.Info("propagated instance to adjacent holdings", zap.Int("holding_count", len(adjacent)))
}

var _ Handler = (*HoldingUpdateHandler)(nil)
