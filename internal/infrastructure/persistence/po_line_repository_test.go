package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/libhub/orders-storage/internal/domain/inventory"
	"github.com/libhub/orders-storage/internal/domain/orders"
)

// newMockDB creates a gorm handle over a mocked SQL connection
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func poLineColumns() []string {
	return []string{
		"id", "tenant_id", "purchase_order_id", "instance_id",
		"po_line_number", "locations", "search_location_ids",
	}
}

func TestGormPoLineRepository_FindByHoldingID(t *testing.T) {
	t.Run("queries by jsonb containment", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormPoLineRepository(gormDB)

		lineID := uuid.New()
		orderID := uuid.New()
		holdingID := uuid.New()
		locations := fmt.Sprintf(`[{"holdingId":%q,"quantity":2}]`, holdingID)

		rows := sqlmock.NewRows(poLineColumns()).
			AddRow(lineID, "central", orderID, nil, "10001-1", locations, "[]")

		mock.ExpectQuery(`SELECT \* FROM "po_lines" WHERE tenant_id = \$1 AND locations @> \$2`).
			WithArgs("central", fmt.Sprintf(`[{"holdingId":%q}]`, holdingID)).
			WillReturnRows(rows)

		lines, err := repo.FindByHoldingID(context.Background(), nil, "central", holdingID)

		require.NoError(t, err)
		require.Len(t, lines, 1)
		assert.Equal(t, lineID, lines[0].ID)
		assert.True(t, lines[0].ReferencesHolding(holdingID))
		assert.Equal(t, 2, lines[0].Locations[0].Quantity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no matches yields empty slice", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormPoLineRepository(gormDB)

		mock.ExpectQuery(`SELECT \* FROM "po_lines"`).
			WillReturnRows(sqlmock.NewRows(poLineColumns()))

		lines, err := repo.FindByHoldingID(context.Background(), nil, "central", uuid.New())

		require.NoError(t, err)
		assert.Empty(t, lines)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormPoLineRepository_FindByIDs(t *testing.T) {
	t.Run("splits large id sets into chunks", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormPoLineRepository(gormDB)

		ids := make([]uuid.UUID, idChunkSize+3)
		for i := range ids {
			ids[i] = uuid.New()
		}

		first := sqlmock.NewRows(poLineColumns()).
			AddRow(ids[0], "central", uuid.New(), nil, "10001-1", "[]", "[]")
		second := sqlmock.NewRows(poLineColumns()).
			AddRow(ids[idChunkSize], "central", uuid.New(), nil, "10002-1", "[]", "[]")

		mock.ExpectQuery(`SELECT \* FROM "po_lines" WHERE tenant_id = \$1 AND id IN`).
			WillReturnRows(first)
		mock.ExpectQuery(`SELECT \* FROM "po_lines" WHERE tenant_id = \$1 AND id IN`).
			WillReturnRows(second)

		lines, err := repo.FindByIDs(context.Background(), nil, "central", ids)

		require.NoError(t, err)
		assert.Len(t, lines, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty id set skips the database", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormPoLineRepository(gormDB)

		lines, err := repo.FindByIDs(context.Background(), nil, "central", nil)

		require.NoError(t, err)
		assert.Empty(t, lines)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormPoLineRepository_UpdateBatch(t *testing.T) {
	gormDB, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	repo := NewGormPoLineRepository(gormDB)

	instanceID := uuid.New()
	lines := []orders.PoLine{{ID: uuid.New(), InstanceID: &instanceID}}

	mock.ExpectExec(`UPDATE "po_lines" SET .* WHERE tenant_id = \$\d+ AND id = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateBatch(context.Background(), nil, "central", lines)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormPoLineRepository_SyncTitles(t *testing.T) {
	gormDB, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	repo := NewGormPoLineRepository(gormDB)

	instanceID := uuid.New()
	lines := []orders.PoLine{{ID: uuid.New(), InstanceID: &instanceID}}

	mock.ExpectExec(`UPDATE "titles" SET .* WHERE tenant_id = \$\d+ AND po_line_id = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SyncTitles(context.Background(), nil, "central", lines)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormPoLineRepository_UpdateLocationData(t *testing.T) {
	t.Run("appends a location for the item's new holding", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormPoLineRepository(gormDB)

		lineID := uuid.New()
		oldHolding := uuid.New()
		newHolding := uuid.New()
		item := inventory.Item{ID: uuid.New(), HoldingsRecordID: newHolding}

		locations := fmt.Sprintf(`[{"holdingId":%q,"quantity":1}]`, oldHolding)
		lineRows := sqlmock.NewRows(poLineColumns()).
			AddRow(lineID, "central", uuid.New(), nil, "10001-1", locations, "[]")

		// one unpinned piece moved onto the item's holding
		pieceRows := sqlmock.NewRows([]string{"id", "tenant_id", "po_line_id", "holding_id", "location_id", "item_id"}).
			AddRow(uuid.New(), "central", lineID, newHolding, nil, item.ID)

		mock.ExpectQuery(`SELECT \* FROM "po_lines" WHERE tenant_id = \$1 AND id IN`).
			WillReturnRows(lineRows)
		mock.ExpectQuery(`SELECT \* FROM "pieces" WHERE tenant_id = \$1 AND po_line_id IN`).
			WillReturnRows(pieceRows)
		mock.ExpectExec(`UPDATE "po_lines" SET .* WHERE tenant_id = \$\d+ AND id = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		changed, err := repo.UpdateLocationData(context.Background(), nil, "central", []uuid.UUID{lineID}, item)

		require.NoError(t, err)
		require.Len(t, changed, 1)
		require.Len(t, changed[0].Locations, 2)
		assert.Equal(t, newHolding, *changed[0].Locations[1].HoldingID)
		assert.Equal(t, 1, changed[0].Locations[1].Quantity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no piece drift means no writes", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormPoLineRepository(gormDB)

		lineID := uuid.New()
		holding := uuid.New()
		item := inventory.Item{ID: uuid.New(), HoldingsRecordID: holding}

		locations := fmt.Sprintf(`[{"holdingId":%q,"quantity":1}]`, holding)
		lineRows := sqlmock.NewRows(poLineColumns()).
			AddRow(lineID, "central", uuid.New(), nil, "10001-1", locations, "[]")
		pieceRows := sqlmock.NewRows([]string{"id", "tenant_id", "po_line_id", "holding_id", "location_id", "item_id"}).
			AddRow(uuid.New(), "central", lineID, holding, nil, item.ID)

		mock.ExpectQuery(`SELECT \* FROM "po_lines" WHERE tenant_id = \$1 AND id IN`).
			WillReturnRows(lineRows)
		mock.ExpectQuery(`SELECT \* FROM "pieces" WHERE tenant_id = \$1 AND po_line_id IN`).
			WillReturnRows(pieceRows)

		changed, err := repo.UpdateLocationData(context.Background(), nil, "central", []uuid.UUID{lineID}, item)

		require.NoError(t, err)
		assert.Empty(t, changed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
