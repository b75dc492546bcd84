package outbox

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/libhub/orders-storage/internal/domain/shared"
)

func newMockOutboxRepository(t *testing.T) (*GormOutboxRepository, sqlmock.Sqlmock, *sql.DB) {
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

	return NewGormOutboxRepository(gormDB), mock, mockDB
}

func outboxColumns() []string {
	return []string{
		"id", "tenant_id", "entity_type", "action", "entity_id", "payload",
		"status", "retry_count", "max_retries", "last_error",
		"next_retry_at", "processed_at", "created_at", "updated_at",
	}
}

func TestGormOutboxRepository_Save(t *testing.T) {
	t.Run("inserts rows in one batch", func(t *testing.T) {
		repo, mock, mockDB := newMockOutboxRepository(t)
		defer mockDB.Close()

		row := shared.NewOutboxEventLog("central", shared.EntityTypePoLine, shared.AuditActionEdit, uuid.New(), []byte(`{}`))

		mock.ExpectQuery(`INSERT INTO "outbox_event_logs"`).
			WillReturnRows(sqlmock.NewRows([]string{"retry_count"}).AddRow(0))

		err := repo.Save(context.Background(), row)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero rows is a no-op", func(t *testing.T) {
		repo, mock, mockDB := newMockOutboxRepository(t)
		defer mockDB.Close()

		err := repo.Save(context.Background())

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormOutboxRepository_ClaimPending(t *testing.T) {
	t.Run("locks pending rows and marks them processing", func(t *testing.T) {
		repo, mock, mockDB := newMockOutboxRepository(t)
		defer mockDB.Close()

		rowID := uuid.New()
		entityID := uuid.New()
		now := time.Now()

		rows := sqlmock.NewRows(outboxColumns()).AddRow(
			rowID, "central", "PO_LINE", "EDIT", entityID, []byte(`{}`),
			"PENDING", 0, 5, "", nil, nil, now, now,
		)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "outbox_event_logs" WHERE tenant_id = \$1 AND status = \$2 ORDER BY created_at ASC LIMIT \$3 FOR UPDATE SKIP LOCKED`).
			WithArgs("central", "PENDING", 10).
			WillReturnRows(rows)
		mock.ExpectExec(`UPDATE "outbox_event_logs" SET .* WHERE id IN \(\$\d+\)`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		claimed, err := repo.ClaimPending(context.Background(), "central", 10)

		require.NoError(t, err)
		require.Len(t, claimed, 1)
		assert.Equal(t, rowID, claimed[0].ID)
		assert.Equal(t, shared.OutboxStatusProcessing, claimed[0].Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nothing pending claims nothing", func(t *testing.T) {
		repo, mock, mockDB := newMockOutboxRepository(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "outbox_event_logs"`).
			WillReturnRows(sqlmock.NewRows(outboxColumns()))
		mock.ExpectCommit()

		claimed, err := repo.ClaimPending(context.Background(), "central", 10)

		require.NoError(t, err)
		assert.Empty(t, claimed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormOutboxRepository_FindRetryable(t *testing.T) {
	repo, mock, mockDB := newMockOutboxRepository(t)
	defer mockDB.Close()

	rowID := uuid.New()
	now := time.Now()
	retryAt := now.Add(-time.Minute)

	rows := sqlmock.NewRows(outboxColumns()).AddRow(
		rowID, "central", "PIECE", "EDIT", uuid.New(), []byte(`{}`),
		"FAILED", 2, 5, "broker unreachable", retryAt, nil, now, now,
	)

	mock.ExpectQuery(`SELECT \* FROM "outbox_event_logs" WHERE status = \$1 AND next_retry_at <= \$2 ORDER BY next_retry_at ASC LIMIT \$3`).
		WillReturnRows(rows)

	logs, err := repo.FindRetryable(context.Background(), now, 50)

	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, rowID, logs[0].ID)
	assert.True(t, logs[0].CanRetry())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepository_FindByID(t *testing.T) {
	t.Run("returns not found for missing row", func(t *testing.T) {
		repo, mock, mockDB := newMockOutboxRepository(t)
		defer mockDB.Close()

		id := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "outbox_event_logs" WHERE id = \$1`).
			WillReturnError(gorm.ErrRecordNotFound)

		row, err := repo.FindByID(context.Background(), id)

		assert.Nil(t, row)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormOutboxRepository_TenantsWithPending(t *testing.T) {
	repo, mock, mockDB := newMockOutboxRepository(t)
	defer mockDB.Close()

	rows := sqlmock.NewRows([]string{"tenant_id"}).
		AddRow("central").
		AddRow("member")

	mock.ExpectQuery(`SELECT DISTINCT "tenant_id" FROM "outbox_event_logs" WHERE status = \$1 LIMIT \$2`).
		WillReturnRows(rows)

	tenants, err := repo.TenantsWithPending(context.Background(), 100)

	require.NoError(t, err)
	assert.Equal(t, []string{"central", "member"}, tenants)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepository_DeleteSentOlderThan(t *testing.T) {
	repo, mock, mockDB := newMockOutboxRepository(t)
	defer mockDB.Close()

	mock.ExpectExec(`DELETE FROM "outbox_event_logs" WHERE status = \$1 AND processed_at < \$2`).
		WillReturnResult(sqlmock.NewResult(0, 4))

	removed, err := repo.DeleteSentOlderThan(context.Background(), time.Now().Add(-24*time.Hour))

	require.NoError(t, err)
	assert.Equal(t, int64(4), removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepository_CountByStatus(t *testing.T) {
	repo, mock, mockDB := newMockOutboxRepository(t)
	defer mockDB.Close()

	rows := sqlmock.NewRows([]string{"status", "count"}).
		AddRow("PENDING", 3).
		AddRow("DEAD", 1)

	mock.ExpectQuery(`SELECT status, count\(\*\) as count FROM "outbox_event_logs" GROUP BY "status"`).
		WillReturnRows(rows)

	counts, err := repo.CountByStatus(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(3), counts[shared.OutboxStatusPending])
	assert.Equal(t, int64(1), counts[shared.OutboxStatusDead])
	assert.NoError(t, mock.ExpectationsWereMet())
}
