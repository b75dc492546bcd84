package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libhub/orders-storage/internal/domain/orders"
)

func pieceColumns() []string {
	return []string{
		"id", "tenant_id", "po_line_id", "title_id", "holding_id",
		"location_id", "item_id", "receiving_tenant_id",
		"barcode", "call_number", "accession_number",
	}
}

func TestGormPieceRepository_FindByItemID(t *testing.T) {
	gormDB, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	repo := NewGormPieceRepository(gormDB)

	pieceID := uuid.New()
	itemID := uuid.New()
	holdingID := uuid.New()

	rows := sqlmock.NewRows(pieceColumns()).
		AddRow(pieceID, "central", uuid.New(), uuid.New(), holdingID, nil, itemID, "member", "b-1", "c-1", "")

	mock.ExpectQuery(`SELECT \* FROM "pieces" WHERE tenant_id = \$1 AND item_id = \$2`).
		WithArgs("central", itemID).
		WillReturnRows(rows)

	pieces, err := repo.FindByItemID(context.Background(), nil, "central", itemID)

	require.NoError(t, err)
	require.Len(t, pieces, 1)
	assert.Equal(t, pieceID, pieces[0].ID)
	assert.Equal(t, holdingID, *pieces[0].HoldingID)
	assert.False(t, pieces[0].Pinned())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormPieceRepository_FindByHoldingID(t *testing.T) {
	gormDB, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	repo := NewGormPieceRepository(gormDB)

	holdingID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "pieces" WHERE tenant_id = \$1 AND holding_id = \$2`).
		WithArgs("central", holdingID).
		WillReturnRows(sqlmock.NewRows(pieceColumns()))

	pieces, err := repo.FindByHoldingID(context.Background(), nil, "central", holdingID)

	require.NoError(t, err)
	assert.Empty(t, pieces)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormPieceRepository_ExistsByItemID(t *testing.T) {
	t.Run("reports existing pieces", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormPieceRepository(gormDB)

		itemID := uuid.New()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "pieces" WHERE tenant_id = \$1 AND item_id = \$2`).
			WithArgs("member", itemID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

		exists, err := repo.ExistsByItemID(context.Background(), nil, "member", itemID)

		require.NoError(t, err)
		assert.True(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports absence", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormPieceRepository(gormDB)

		itemID := uuid.New()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "pieces" WHERE tenant_id = \$1 AND item_id = \$2`).
			WithArgs("member", itemID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		exists, err := repo.ExistsByItemID(context.Background(), nil, "member", itemID)

		require.NoError(t, err)
		assert.False(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormPieceRepository_UpdateBatch(t *testing.T) {
	gormDB, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	repo := NewGormPieceRepository(gormDB)

	holdingID := uuid.New()
	pieces := []orders.Piece{
		{ID: uuid.New(), PoLineID: uuid.New(), HoldingID: &holdingID, ReceivingTenantID: "member", Barcode: "b-1"},
		{ID: uuid.New(), PoLineID: uuid.New(), HoldingID: &holdingID, ReceivingTenantID: "member", Barcode: "b-2"},
	}

	mock.ExpectExec(`UPDATE "pieces" SET .* WHERE tenant_id = \$\d+ AND id = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "pieces" SET .* WHERE tenant_id = \$\d+ AND id = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateBatch(context.Background(), nil, "central", pieces)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
