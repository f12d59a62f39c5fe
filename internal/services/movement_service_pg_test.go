package services

import (
	"context"
	"testing"
	"time"

	"binledger/internal/common"
	"binledger/internal/models"
	"binledger/internal/repositories"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	pgBinColumns  = []string{"id", "name", "type", "status", "max_capacity", "assigned_to_da", "da_phone", "created_at", "updated_at"}
	pgItemColumns = []string{"bin_id", "item_id", "item_name", "quantity", "reserved_quantity", "cost_per_unit", "created_at", "updated_at"}
)

// expectLockedDeduction queues the statements of one deduction up to and
// including the locked item read, which returns quantity.
func expectLockedDeduction(mock pgxmock.PgxPoolIface, binID, itemID uuid.UUID, quantity int) {
	now := time.Now()
	capacity := 100

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM bins WHERE id = \$1 FOR UPDATE`).
		WithArgs(binID).
		WillReturnRows(pgxmock.NewRows(pgBinColumns).
			AddRow(binID, "A-01", "generic", "active", &capacity, (*string)(nil), (*string)(nil), now, now))
	mock.ExpectQuery(`SELECT .+ FROM bin_items WHERE bin_id = \$1 ORDER BY item_name ASC FOR UPDATE`).
		WithArgs(binID).
		WillReturnRows(pgxmock.NewRows(pgItemColumns).
			AddRow(binID, itemID, "Widget", quantity, 0, decimal.Zero, now, now))
	mock.ExpectQuery(`SELECT .+ FROM bin_items WHERE bin_id = \$1 AND item_id = \$2 FOR UPDATE`).
		WithArgs(binID, itemID).
		WillReturnRows(pgxmock.NewRows(pgItemColumns).
			AddRow(binID, itemID, "Widget", quantity, 0, decimal.Zero, now, now))
}

// TestDeductInventory_PostgresLocksBeforeWriting checks the statement order on
// Postgres: the bin and item rows are locked before the quantity is written,
// and a second deduction decides on the quantity read under that lock.
func TestDeductInventory_PostgresLocksBeforeWriting(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	binID, itemID := uuid.New(), uuid.New()
	service := NewMovementService(repositories.NewPgStore(mock), nil, zaptest.NewLogger(t))
	deduct := func() error {
		_, err := service.DeductInventory(context.Background(), binID, &models.DeductInventoryRequest{
			ItemID:   itemID,
			Quantity: 30,
			Reason:   "order",
		}, models.UnattributedActor())
		return err
	}

	// first deduction: 50 on hand, commits 20
	expectLockedDeduction(mock, binID, itemID, 50)
	mock.ExpectExec(`UPDATE bin_items`).
		WithArgs(20, binID, itemID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(`INSERT INTO inventory_logs .+ RETURNING id, created_at`).
		WithArgs(binID, "A-01", pgxmock.AnyArg(), "Widget", "deduction", 30, 50, 20,
			pgxmock.AnyArg(), true, "order", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), time.Now()))
	mock.ExpectCommit()

	// second deduction waits on the lock and then reads the committed 20
	expectLockedDeduction(mock, binID, itemID, 20)
	mock.ExpectRollback()

	require.NoError(t, deduct())
	err = deduct()

	assert.True(t, common.IsKind(err, common.KindInsufficientQuantity), err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
