package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"binledger/internal/caching"
	"binledger/internal/models"
	"binledger/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) GetBin(ctx context.Context, binID uuid.UUID) (*models.BinView, error) {
	args := m.Called(ctx, binID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BinView), args.Error(1)
}

func (m *MockCacheService) BinGeneration(ctx context.Context, binID uuid.UUID) (int64, error) {
	args := m.Called(ctx, binID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCacheService) SetBin(ctx context.Context, view *models.BinView, generation int64, ttl time.Duration) error {
	args := m.Called(ctx, view, generation, ttl)
	return args.Error(0)
}

func (m *MockCacheService) DeleteBin(ctx context.Context, binID uuid.UUID) error {
	args := m.Called(ctx, binID)
	return args.Error(0)
}

func (m *MockCacheService) GetSweepSummary(ctx context.Context) (*models.SweepSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SweepSummary), args.Error(1)
}

func (m *MockCacheService) SetSweepSummary(ctx context.Context, summary *models.SweepSummary) error {
	args := m.Called(ctx, summary)
	return args.Error(0)
}

func (m *MockCacheService) GetArchiveCursor(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCacheService) SetArchiveCursor(ctx context.Context, lastID int64) error {
	args := m.Called(ctx, lastID)
	return args.Error(0)
}

func (m *MockCacheService) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockMinioService records uploaded objects. Configure failures through the
// embedded mock.
type MockMinioService struct {
	mock.Mock
	objects map[string][]byte
}

func (m *MockMinioService) UploadObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, contentType string) error {
	args := m.Called(ctx, bucketName, objectName, objectSize, contentType)
	if err := args.Error(0); err != nil {
		return err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return err
	}
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	m.objects[objectName] = buf.Bytes()
	return nil
}

func (m *MockMinioService) EnsureBucketExists(ctx context.Context, bucketName string) error {
	args := m.Called(ctx, bucketName)
	return args.Error(0)
}

func (m *MockMinioService) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	args := m.Called(ctx, bucketName)
	return args.Bool(0), args.Error(1)
}

var errLedgerUnavailable = errors.New("ledger write failed: disk full")

// failingLedgerStore wraps a Store so every ledger append fails, inside and
// outside transactions.
type failingLedgerStore struct {
	repositories.Store
}

func (s *failingLedgerStore) InventoryLogs() repositories.InventoryLogRepository {
	return failingLedgerRepo{InventoryLogRepository: s.Store.InventoryLogs()}
}

func (s *failingLedgerStore) WithTx(ctx context.Context, fn func(tx repositories.Store) error) error {
	return s.Store.WithTx(ctx, func(tx repositories.Store) error {
		return fn(&failingLedgerStore{Store: tx})
	})
}

type failingLedgerRepo struct {
	repositories.InventoryLogRepository
}

func (failingLedgerRepo) Append(ctx context.Context, entry *models.InventoryLog) error {
	return errLedgerUnavailable
}

// countingStore counts store accesses so tests can assert that rejected
// requests never reach it.
type countingStore struct {
	repositories.Store
	calls int
}

func (s *countingStore) Bins() repositories.BinRepository {
	s.calls++
	return s.Store.Bins()
}

func (s *countingStore) BinItems() repositories.BinItemRepository {
	s.calls++
	return s.Store.BinItems()
}

func (s *countingStore) InventoryLogs() repositories.InventoryLogRepository {
	s.calls++
	return s.Store.InventoryLogs()
}

func (s *countingStore) WithTx(ctx context.Context, fn func(tx repositories.Store) error) error {
	s.calls++
	return s.Store.WithTx(ctx, fn)
}

// generationCache is an in-process bin cache with the same generation rules as
// the redis implementation.
type generationCache struct {
	caching.CacheService
	mu          sync.Mutex
	views       map[uuid.UUID]*models.BinView
	generations map[uuid.UUID]int64
}

func newGenerationCache() *generationCache {
	return &generationCache{
		views:       make(map[uuid.UUID]*models.BinView),
		generations: make(map[uuid.UUID]int64),
	}
}

func (c *generationCache) GetBin(ctx context.Context, binID uuid.UUID) (*models.BinView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.views[binID], nil
}

func (c *generationCache) BinGeneration(ctx context.Context, binID uuid.UUID) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[binID], nil
}

func (c *generationCache) SetBin(ctx context.Context, view *models.BinView, generation int64, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[view.ID] == generation {
		c.views[view.ID] = view
	}
	return nil
}

func (c *generationCache) DeleteBin(ctx context.Context, binID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[binID]++
	delete(c.views, binID)
	return nil
}

// afterBinLoadStore runs hook after each bin load returns, standing in for a
// writer that commits between a cache-aside read and its cache write.
type afterBinLoadStore struct {
	repositories.Store
	hook  func()
	loads int
}

func (s *afterBinLoadStore) Bins() repositories.BinRepository {
	return &afterBinLoadRepo{BinRepository: s.Store.Bins(), store: s}
}

type afterBinLoadRepo struct {
	repositories.BinRepository
	store *afterBinLoadStore
}

func (r *afterBinLoadRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Bin, error) {
	bin, err := r.BinRepository.GetByID(ctx, id)
	r.store.loads++
	if r.store.hook != nil {
		r.store.hook()
	}
	return bin, err
}
