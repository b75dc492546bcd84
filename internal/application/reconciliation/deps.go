package reconciliation

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/libhub/orders-storage/internal/domain/inventory"
	"github.com/libhub/orders-storage/internal/domain/orders"
)

// TxRunner opens one database transaction per handler unit of work.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// PoLineStore is the purchase-order-line adapter the handlers orchestrate.
// Every method runs on the caller's transaction and against an explicit
// tenant.
type PoLineStore interface {
	// FindByHoldingID returns the lines whose locations reference the holding.
	FindByHoldingID(ctx context.Context, tx *gorm.DB, tenantID string, holdingID uuid.UUID) ([]orders.PoLine, error)
	// UpdateBatch persists the given lines in one batch.
	UpdateBatch(ctx context.Context, tx *gorm.DB, tenantID string, lines []orders.PoLine) error
	// SyncTitles refreshes each line's title record from the line state.
	SyncTitles(ctx context.Context, tx *gorm.DB, tenantID string, lines []orders.PoLine) error
	// UpdateLocationData refreshes the location data of the given lines
	// against the new item fields and returns the lines that changed.
	UpdateLocationData(ctx context.Context, tx *gorm.DB, tenantID string, poLineIDs []uuid.UUID, item inventory.Item) ([]orders.PoLine, error)
}

// PieceStore is the piece adapter.
type PieceStore interface {
	FindByItemID(ctx context.Context, tx *gorm.DB, tenantID string, itemID uuid.UUID) ([]orders.Piece, error)
	FindByHoldingID(ctx context.Context, tx *gorm.DB, tenantID string, holdingID uuid.UUID) ([]orders.Piece, error)
	ExistsByItemID(ctx context.Context, tx *gorm.DB, tenantID string, itemID uuid.UUID) (bool, error)
	UpdateBatch(ctx context.Context, tx *gorm.DB, tenantID string, pieces []orders.Piece) error
}

// BatchTracker is the durable progress counter for multi-event batches.
type BatchTracker interface {
	// IncreaseProgress atomically increments the processed counter under row
	// locking and returns the new count.
	IncreaseProgress(ctx context.Context, tx *gorm.DB, tenantID string, batch inventory.BatchContext) (int, error)
	Delete(ctx context.Context, tx *gorm.DB, tenantID string, batchID uuid.UUID) error
}

// AuditRecorder writes audit rows inside the caller's transaction and
// publishes them after commit.
type AuditRecorder interface {
	// RecordPoLineEdits logs an EDIT audit row per line. Zero lines is a
	// success, not an error.
	RecordPoLineEdits(ctx context.Context, tx *gorm.DB, tenantID string, lines []orders.PoLine) error
	// RecordPieceEdits logs an EDIT audit row per piece.
	RecordPieceEdits(ctx context.Context, tx *gorm.DB, tenantID string, pieces []orders.Piece) error
	// Flush publishes pending audit rows for the tenant. Runs outside any
	// caller transaction; failures are retried on the next flush.
	Flush(ctx context.Context, tenantID string) error
}

// TenantResolver resolves the consortium central tenant for an origin tenant.
// The second return value is false when the consortium does not use
// centralized ordering, in which case handlers short-circuit successfully.
type TenantResolver interface {
	CentralTenantID(ctx context.Context, originTenant string) (string, bool, error)
}

// InventoryPropagator pushes an instance change to holdings adjacent to the
// one that triggered a reconciliation. Deliberately called outside the
// PO-line transaction.
type InventoryPropagator interface {
	BatchUpdateAdjacentHoldings(ctx context.Context, tenantID string, instanceID uuid.UUID, holdingIDs []uuid.UUID) error
}

// EventContext carries the resolved tenant context for one event. It is
// immutable; handlers never mutate a shared holder.
type EventContext struct {
	OriginTenant  string
	CentralTenant string
	Headers       map[string]string
}

// Handler processes one validated resource event.
type Handler interface {
	Kind() inventory.ResourceKind
	Action() inventory.EventAction
	Handle(ctx context.Context, evt *inventory.ResourceEvent, ec EventContext) error
}

// Deps bundles the collaborators shared by all reconciliation handlers.
// Built once at process start and passed by reference.
type Deps struct {
	Tx        TxRunner
	PoLines   PoLineStore
	Pieces    PieceStore
	Batches   BatchTracker
	Audit     AuditRecorder
	Inventory InventoryPropagator
	Logger    *zap.Logger
}

func (d *Deps) flushAudit(ctx context.Context, tenantID string) {
	// Outbox flush is best effort: the rows are already committed, the next
	// flush picks up anything left behind.
	if err := d.Audit.Flush(ctx, tenantID); err != nil {
		d.Logger.Warn("audit outbox flush failed, rows remain pending",
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
	}
}
