package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"binledger/internal/common"
	"binledger/internal/models"
	"binledger/internal/repositories"
	"binledger/testhelpers"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"
)

type BinServiceTestSuite struct {
	suite.Suite
	ctx   context.Context
	store *repositories.MemoryStore
	cache *MockCacheService
	ttl   time.Duration
}

func (suite *BinServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.store = repositories.NewMemoryStore()
	suite.cache = new(MockCacheService)
	suite.ttl = time.Minute
}

func (suite *BinServiceTestSuite) newService(withCache bool) BinService {
	if withCache {
		return NewBinService(suite.store, suite.cache, suite.ttl, zaptest.NewLogger(suite.T()))
	}
	return NewBinService(suite.store, nil, suite.ttl, zaptest.NewLogger(suite.T()))
}

func (suite *BinServiceTestSuite) TestCreate_DefaultsToActiveGenericBin() {
	// Arrange
	service := suite.newService(false)

	// Act
	view, err := service.Create(suite.ctx, &models.CreateBinRequest{Name: "  A-01 ", MaxCapacity: testhelpers.IntPtr(100)})

	// Assert
	require.NoError(suite.T(), err)
	assert.NotEqual(suite.T(), uuid.Nil, view.ID)
	assert.Equal(suite.T(), "A-01", view.Name)
	assert.Equal(suite.T(), models.BinTypeGeneric, view.Type)
	assert.Equal(suite.T(), models.BinStatusActive, view.Status)
	assert.Zero(suite.T(), view.CurrentCapacity)
	require.NotNil(suite.T(), view.AvailableCapacity)
	assert.Equal(suite.T(), 100, *view.AvailableCapacity)
}

func (suite *BinServiceTestSuite) TestCreate_DuplicateNameConflicts() {
	service := suite.newService(false)
	_, err := service.Create(suite.ctx, &models.CreateBinRequest{Name: "A-01"})
	require.NoError(suite.T(), err)

	_, err = service.Create(suite.ctx, &models.CreateBinRequest{Name: "A-01"})

	assert.True(suite.T(), common.IsKind(err, common.KindConflict))
}

func (suite *BinServiceTestSuite) TestCreate_RejectsNegativeCapacity() {
	service := suite.newService(false)

	_, err := service.Create(suite.ctx, &models.CreateBinRequest{Name: "A-01", MaxCapacity: testhelpers.IntPtr(-1)})

	assert.True(suite.T(), common.IsKind(err, common.KindValidation))
}

func (suite *BinServiceTestSuite) TestCreate_RejectsCapacityAboveIntegerRange() {
	service := suite.newService(false)

	_, err := service.Create(suite.ctx, &models.CreateBinRequest{Name: "A-01", MaxCapacity: testhelpers.IntPtr(models.MaxQuantity + 1)})

	assert.True(suite.T(), common.IsKind(err, common.KindValidation))
	_, total, err := suite.store.Bins().List(suite.ctx, &models.BinFilter{})
	require.NoError(suite.T(), err)
	assert.Zero(suite.T(), total)
}

func (suite *BinServiceTestSuite) TestGetByID_CacheMissLoadsAndStores() {
	// Arrange
	bin := testhelpers.SeedBin(suite.T(), suite.store, "A-01", nil)
	suite.cache.On("GetBin", mock.Anything, bin.ID).Return(nil, nil).Once()
	suite.cache.On("BinGeneration", mock.Anything, bin.ID).Return(int64(4), nil).Once()
	suite.cache.On("SetBin", mock.Anything, mock.AnythingOfType("*models.BinView"), int64(4), suite.ttl).Return(nil).Once()

	// Act
	view, err := suite.newService(true).GetByID(suite.ctx, bin.ID)

	// Assert
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), bin.ID, view.ID)
	assert.Nil(suite.T(), view.AvailableCapacity)
	suite.cache.AssertExpectations(suite.T())
}

func (suite *BinServiceTestSuite) TestGetByID_CacheHitSkipsStore() {
	binID := uuid.New()
	cached := models.NewBinView(&models.Bin{ID: binID, Name: "cached"})
	suite.cache.On("GetBin", mock.Anything, binID).Return(cached, nil).Once()

	view, err := suite.newService(true).GetByID(suite.ctx, binID)

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "cached", view.Name)
	suite.cache.AssertNotCalled(suite.T(), "SetBin", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *BinServiceTestSuite) TestGetByID_CacheFailureFallsBackToStore() {
	bin := testhelpers.SeedBin(suite.T(), suite.store, "A-01", nil)
	suite.cache.On("GetBin", mock.Anything, bin.ID).Return(nil, errors.New("timeout"))

	view, err := suite.newService(true).GetByID(suite.ctx, bin.ID)

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "A-01", view.Name)
	suite.cache.AssertNotCalled(suite.T(), "SetBin", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *BinServiceTestSuite) TestGetByID_GenerationFailureSkipsCacheWrite() {
	bin := testhelpers.SeedBin(suite.T(), suite.store, "A-01", nil)
	suite.cache.On("GetBin", mock.Anything, bin.ID).Return(nil, nil)
	suite.cache.On("BinGeneration", mock.Anything, bin.ID).Return(int64(0), errors.New("timeout"))

	view, err := suite.newService(true).GetByID(suite.ctx, bin.ID)

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), bin.ID, view.ID)
	suite.cache.AssertNotCalled(suite.T(), "SetBin", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *BinServiceTestSuite) TestGetByID_LoadRacingAMovementDoesNotCacheOldView() {
	// Arrange
	bin := testhelpers.SeedBin(suite.T(), suite.store, "A-01", testhelpers.IntPtr(100))
	cache := newGenerationCache()
	logger := zaptest.NewLogger(suite.T())
	movements := NewMovementService(suite.store, cache, logger)
	itemID := uuid.New()

	// the movement commits and invalidates after the load read the bin but
	// before the load writes the cache
	racing := &afterBinLoadStore{Store: suite.store, hook: func() {
		_, err := movements.AddInventory(suite.ctx, bin.ID, &models.AddInventoryRequest{
			ItemID:   itemID,
			ItemName: "Widget",
			Quantity: 7,
		}, models.UnattributedActor())
		require.NoError(suite.T(), err)
	}}
	service := NewBinService(racing, cache, suite.ttl, logger)

	// Act
	stale, err := service.GetByID(suite.ctx, bin.ID)
	require.NoError(suite.T(), err)
	racing.hook = nil
	fresh, err := service.GetByID(suite.ctx, bin.ID)
	require.NoError(suite.T(), err)

	// Assert
	assert.Zero(suite.T(), stale.CurrentCapacity)
	assert.Equal(suite.T(), 7, fresh.CurrentCapacity)
	assert.Equal(suite.T(), 2, racing.loads)
}

func (suite *BinServiceTestSuite) TestGetByID_NotFound() {
	_, err := suite.newService(false).GetByID(suite.ctx, uuid.New())

	assert.True(suite.T(), common.IsKind(err, common.KindNotFound))
}

func (suite *BinServiceTestSuite) TestList_FiltersAndPages() {
	// Arrange
	service := suite.newService(false)
	for _, name := range []string{"C-01", "A-01", "B-01"} {
		testhelpers.SeedBin(suite.T(), suite.store, name, nil)
	}
	active := models.BinStatusActive

	// Act
	views, total, err := service.List(suite.ctx, &models.BinFilter{Status: &active, Limit: 2, Offset: 0})

	// Assert
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 3, total)
	require.Len(suite.T(), views, 2)
	assert.Equal(suite.T(), "A-01", views[0].Name)
	assert.Equal(suite.T(), "B-01", views[1].Name)

	agentType := models.BinTypeDeliveryAgent
	views, total, err = service.List(suite.ctx, &models.BinFilter{Type: &agentType, Limit: 10})
	require.NoError(suite.T(), err)
	assert.Zero(suite.T(), total)
	assert.Empty(suite.T(), views)
}

func TestBinServiceTestSuite(t *testing.T) {
	suite.Run(t, new(BinServiceTestSuite))
}
