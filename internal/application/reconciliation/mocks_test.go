package reconciliation

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/libhub/orders-storage/internal/domain/inventory"
	"github.com/libhub/orders-storage/internal/domain/orders"
)

// fakeTxRunner runs the unit of work without a real database. The nil tx is
// fine because every collaborator below is a mock.
type fakeTxRunner struct {
	err   error
	calls int
}

func (f *fakeTxRunner) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

type MockPoLineStore struct {
	mock.Mock
}

func (m *MockPoLineStore) FindByHoldingID(ctx context.Context, tx *gorm.DB, tenantID string, holdingID uuid.UUID) ([]orders.PoLine, error) {
	args := m.Called(ctx, tx, tenantID, holdingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]orders.PoLine), args.Error(1)
}

func (m *MockPoLineStore) UpdateBatch(ctx context.Context, tx *gorm.DB, tenantID string, lines []orders.PoLine) error {
	args := m.Called(ctx, tx, tenantID, lines)
	return args.Error(0)
}

func (m *MockPoLineStore) SyncTitles(ctx context.Context, tx *gorm.DB, tenantID string, lines []orders.PoLine) error {
	args := m.Called(ctx, tx, tenantID, lines)
	return args.Error(0)
}

func (m *MockPoLineStore) UpdateLocationData(ctx context.Context, tx *gorm.DB, tenantID string, poLineIDs []uuid.UUID, item inventory.Item) ([]orders.PoLine, error) {
	args := m.Called(ctx, tx, tenantID, poLineIDs, item)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]orders.PoLine), args.Error(1)
}

type MockPieceStore struct {
	mock.Mock
}

func (m *MockPieceStore) FindByItemID(ctx context.Context, tx *gorm.DB, tenantID string, itemID uuid.UUID) ([]orders.Piece, error) {
	args := m.Called(ctx, tx, tenantID, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]orders.Piece), args.Error(1)
}

func (m *MockPieceStore) FindByHoldingID(ctx context.Context, tx *gorm.DB, tenantID string, holdingID uuid.UUID) ([]orders.Piece, error) {
	args := m.Called(ctx, tx, tenantID, holdingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]orders.Piece), args.Error(1)
}

func (m *MockPieceStore) ExistsByItemID(ctx context.Context, tx *gorm.DB, tenantID string, itemID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tx, tenantID, itemID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPieceStore) UpdateBatch(ctx context.Context, tx *gorm.DB, tenantID string, pieces []orders.Piece) error {
	args := m.Called(ctx, tx, tenantID, pieces)
	return args.Error(0)
}

type MockBatchTracker struct {
	mock.Mock
}

func (m *MockBatchTracker) IncreaseProgress(ctx context.Context, tx *gorm.DB, tenantID string, batch inventory.BatchContext) (int, error) {
	args := m.Called(ctx, tx, tenantID, batch)
	return args.Int(0), args.Error(1)
}

func (m *MockBatchTracker) Delete(ctx context.Context, tx *gorm.DB, tenantID string, batchID uuid.UUID) error {
	args := m.Called(ctx, tx, tenantID, batchID)
	return args.Error(0)
}

type MockAuditRecorder struct {
	mock.Mock
}

func (m *MockAuditRecorder) RecordPoLineEdits(ctx context.Context, tx *gorm.DB, tenantID string, lines []orders.PoLine) error {
	args := m.Called(ctx, tx, tenantID, lines)
	return args.Error(0)
}

func (m *MockAuditRecorder) RecordPieceEdits(ctx context.Context, tx *gorm.DB, tenantID string, pieces []orders.Piece) error {
	args := m.Called(ctx, tx, tenantID, pieces)
	return args.Error(0)
}

func (m *MockAuditRecorder) Flush(ctx context.Context, tenantID string) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}

type MockTenantResolver struct {
	mock.Mock
}

func (m *MockTenantResolver) CentralTenantID(ctx context.Context, originTenant string) (string, bool, error) {
	args := m.Called(ctx, originTenant)
	return args.String(0), args.Bool(1), args.Error(2)
}

type MockInventoryPropagator struct {
	mock.Mock
}

func (m *MockInventoryPropagator) BatchUpdateAdjacentHoldings(ctx context.Context, tenantID string, instanceID uuid.UUID, holdingIDs []uuid.UUID) error {
	args := m.Called(ctx, tenantID, instanceID, holdingIDs)
	return args.Error(0)
}

// testDeps bundles fresh mocks for one handler test.
type testDeps struct {
	tx        *fakeTxRunner
	poLines   *MockPoLineStore
	pieces    *MockPieceStore
	batches   *MockBatchTracker
	audit     *MockAuditRecorder
	inventory *MockInventoryPropagator
}

func newTestDeps() (*Deps, *testDeps) {
	td := &testDeps{
		tx:        &fakeTxRunner{},
		poLines:   new(MockPoLineStore),
		pieces:    new(MockPieceStore),
		batches:   new(MockBatchTracker),
		audit:     new(MockAuditRecorder),
		inventory: new(MockInventoryPropagator),
	}
	return &Deps{
		Tx:        td.tx,
		PoLines:   td.poLines,
		Pieces:    td.pieces,
		Batches:   td.batches,
		Audit:     td.audit,
		Inventory: td.inventory,
		Logger:    zap.NewNop(),
	}, td
}

func (td *testDeps) assertExpectations(t mock.TestingT) {
	td.poLines.AssertExpectations(t)
	td.pieces.AssertExpectations(t)
	td.batches.AssertExpectations(t)
	td.audit.AssertExpectations(t)
	td.inventory.AssertExpectations(t)
}
