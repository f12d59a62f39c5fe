package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"binledger/internal/models"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

var (
	binRowColumns  = []string{"id", "name", "type", "status", "max_capacity", "assigned_to_da", "da_phone", "created_at", "updated_at"}
	itemRowColumns = []string{"bin_id", "item_id", "item_name", "quantity", "reserved_quantity", "cost_per_unit", "created_at", "updated_at"}
)

type BinRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	repo    BinRepository
	binID   uuid.UUID
	context context.Context
}

func (suite *BinRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewBinRepo(mock)
	suite.binID = uuid.New()
	suite.context = context.Background()
}

func (suite *BinRepoTestSuite) TearDownTest() {
	suite.mock.Close()
}

func TestBinRepoTestSuite(t *testing.T) {
	suite.Run(t, new(BinRepoTestSuite))
}

func intPtr(i int) *int {
	return &i
}

func stringPtr(s string) *string {
	return &s
}

func (suite *BinRepoTestSuite) TestCreate_Success() {
	bin := &models.Bin{
		ID:          suite.binID,
		Name:        "A-01",
		Type:        models.BinTypeGeneric,
		Status:      models.BinStatusActive,
		MaxCapacity: intPtr(100),
	}
	now := time.Now()

	suite.mock.ExpectQuery(`INSERT INTO bins \(id, name, type, status, max_capacity, assigned_to_da, da_phone, created_at, updated_at\)`).
		WithArgs(bin.ID, "A-01", "generic", "active", bin.MaxCapacity, bin.AssignedToDA, bin.DAPhone).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	err := suite.repo.Create(suite.context, bin)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), now, bin.CreatedAt)
	assert.NotNil(suite.T(), bin.Items)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *BinRepoTestSuite) TestCreate_DuplicateName() {
	bin := &models.Bin{
		ID:     suite.binID,
		Name:   "A-01",
		Type:   models.BinTypeGeneric,
		Status: models.BinStatusActive,
	}

	suite.mock.ExpectQuery(`INSERT INTO bins`).
		WithArgs(bin.ID, "A-01", "generic", "active", bin.MaxCapacity, bin.AssignedToDA, bin.DAPhone).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := suite.repo.Create(suite.context, bin)
	assert.ErrorIs(suite.T(), err, ErrDuplicate)
}

func (suite *BinRepoTestSuite) TestGetByID_LoadsItems() {
	itemID := uuid.New()
	now := time.Now()

	suite.mock.ExpectQuery(`SELECT .+ FROM bins WHERE id = \$1`).
		WithArgs(suite.binID).
		WillReturnRows(pgxmock.NewRows(binRowColumns).
			AddRow(suite.binID, "A-01", "generic", "active", intPtr(100), (*string)(nil), (*string)(nil), now, now))
	suite.mock.ExpectQuery(`SELECT .+ FROM bin_items WHERE bin_id = \$1 ORDER BY item_name ASC`).
		WithArgs(suite.binID).
		WillReturnRows(pgxmock.NewRows(itemRowColumns).
			AddRow(suite.binID, itemID, "SKU1", 40, 0, decimal.NewFromInt(12), now, now))

	bin, err := suite.repo.GetByID(suite.context, suite.binID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.BinTypeGeneric, bin.Type)
	assert.Equal(suite.T(), 100, *bin.MaxCapacity)
	assert.Len(suite.T(), bin.Items, 1)
	assert.Equal(suite.T(), 40, bin.CurrentCapacity())
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *BinRepoTestSuite) TestGetByID_NotFound() {
	suite.mock.ExpectQuery(`SELECT .+ FROM bins WHERE id = \$1`).
		WithArgs(suite.binID).
		WillReturnError(pgx.ErrNoRows)

	bin, err := suite.repo.GetByID(suite.context, suite.binID)
	assert.Nil(suite.T(), bin)
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *BinRepoTestSuite) TestGetByIDForUpdate_LocksBinAndItems() {
	now := time.Now()

	suite.mock.ExpectQuery(`SELECT .+ FROM bins WHERE id = \$1 FOR UPDATE`).
		WithArgs(suite.binID).
		WillReturnRows(pgxmock.NewRows(binRowColumns).
			AddRow(suite.binID, "A-01", "generic", "active", (*int)(nil), (*string)(nil), (*string)(nil), now, now))
	suite.mock.ExpectQuery(`SELECT .+ FROM bin_items WHERE bin_id = \$1 ORDER BY item_name ASC FOR UPDATE`).
		WithArgs(suite.binID).
		WillReturnRows(pgxmock.NewRows(itemRowColumns))

	bin, err := suite.repo.GetByIDForUpdate(suite.context, suite.binID)
	assert.NoError(suite.T(), err)
	assert.Nil(suite.T(), bin.MaxCapacity)
	assert.Empty(suite.T(), bin.Items)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *BinRepoTestSuite) TestList_WithStatusFilter() {
	status := models.BinStatusActive
	otherID := uuid.New()
	itemID := uuid.New()
	now := time.Now()

	suite.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bins WHERE 1=1 AND status = \$1`).
		WithArgs("active").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))
	suite.mock.ExpectQuery(`SELECT .+ FROM bins WHERE 1=1 AND status = \$1 ORDER BY name ASC LIMIT \$2 OFFSET \$3`).
		WithArgs("active", 50, 0).
		WillReturnRows(pgxmock.NewRows(binRowColumns).
			AddRow(suite.binID, "A-01", "generic", "active", (*int)(nil), (*string)(nil), (*string)(nil), now, now).
			AddRow(otherID, "A-02", "delivery_agent", "active", (*int)(nil), stringPtr("DA-1"), stringPtr("555"), now, now))
	suite.mock.ExpectQuery(`SELECT .+ FROM bin_items WHERE bin_id = ANY\(\$1::uuid\[\]\)`).
		WithArgs([]string{suite.binID.String(), otherID.String()}).
		WillReturnRows(pgxmock.NewRows(itemRowColumns).
			AddRow(otherID, itemID, "SKU1", 5, 0, decimal.Zero, now, now))

	bins, total, err := suite.repo.List(suite.context, &models.BinFilter{Status: &status, Limit: 50})
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 2, total)
	assert.Len(suite.T(), bins, 2)
	assert.Empty(suite.T(), bins[0].Items)
	assert.Len(suite.T(), bins[1].Items, 1)
	assert.Equal(suite.T(), "DA-1", *bins[1].AssignedToDA)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *BinRepoTestSuite) TestUpdateAssignment_Success() {
	bin := &models.Bin{ID: suite.binID, Name: "A-01"}
	bin.AssignAgent("DA-9", "555-0101")
	now := time.Now()

	suite.mock.ExpectQuery(`UPDATE bins\s+SET type = \$1, assigned_to_da = \$2, da_phone = \$3, updated_at = NOW\(\)\s+WHERE id = \$4`).
		WithArgs("delivery_agent", bin.AssignedToDA, bin.DAPhone, suite.binID).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(now))

	err := suite.repo.UpdateAssignment(suite.context, bin)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), now, bin.UpdatedAt)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *BinRepoTestSuite) TestUpdateAssignment_NotFound() {
	bin := &models.Bin{ID: suite.binID}
	bin.AssignAgent("DA-9", "555-0101")

	suite.mock.ExpectQuery(`UPDATE bins`).
		WithArgs("delivery_agent", bin.AssignedToDA, bin.DAPhone, suite.binID).
		WillReturnError(pgx.ErrNoRows)

	err := suite.repo.UpdateAssignment(suite.context, bin)
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *BinRepoTestSuite) TestListIDs_QueryError() {
	suite.mock.ExpectQuery(`SELECT id FROM bins ORDER BY name ASC`).
		WillReturnError(errors.New("connection reset"))

	ids, err := suite.repo.ListIDs(suite.context)
	assert.Nil(suite.T(), ids)
	assert.Error(suite.T(), err)
}
