package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"binledger/internal/caching"
	"binledger/internal/common"
	"binledger/internal/models"
	"binledger/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BinService interface {
	Create(ctx context.Context, req *models.CreateBinRequest) (*models.BinView, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.BinView, error)
	List(ctx context.Context, filter *models.BinFilter) ([]*models.BinView, int, error)
}

type binService struct {
	store  repositories.Store
	cache  caching.CacheService
	ttl    time.Duration
	logger *zap.Logger
}

// NewBinService builds the bin read/create service. cache may be nil.
func NewBinService(store repositories.Store, cache caching.CacheService, ttl time.Duration, logger *zap.Logger) BinService {
	return &binService{
		store:  store,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

func (s *binService) Create(ctx context.Context, req *models.CreateBinRequest) (*models.BinView, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, common.NewValidationError("name", "name is required")
	}
	if req.MaxCapacity != nil && *req.MaxCapacity < 0 {
		return nil, common.NewValidationError("max_capacity", "max_capacity cannot be negative")
	}
	if req.MaxCapacity != nil && *req.MaxCapacity > models.MaxQuantity {
		return nil, common.NewValidationError("max_capacity", fmt.Sprintf("max_capacity must be at most %d", models.MaxQuantity))
	}

	binType := req.Type
	if binType == "" {
		binType = models.BinTypeGeneric
	}

	bin := &models.Bin{
		ID:          uuid.New(),
		Name:        name,
		Type:        binType,
		Status:      models.BinStatusActive,
		MaxCapacity: req.MaxCapacity,
		Items:       []*models.BinItem{},
	}
	if err := s.store.Bins().Create(ctx, bin); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, common.NewConflictError("a bin named " + name + " already exists")
		}
		return nil, err
	}

	s.logger.Info("bin created", zap.String("bin_id", bin.ID.String()), zap.String("bin_name", bin.Name))
	return models.NewBinView(bin), nil
}

func (s *binService) GetByID(ctx context.Context, id uuid.UUID) (*models.BinView, error) {
	var generation int64
	cacheable := false
	if s.cache != nil {
		cached, err := s.cache.GetBin(ctx, id)
		if err != nil {
			s.logger.Warn("bin cache read failed", zap.String("bin_id", id.String()), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		} else if generation, err = s.cache.BinGeneration(ctx, id); err != nil {
			s.logger.Warn("bin cache generation read failed", zap.String("bin_id", id.String()), zap.Error(err))
		} else {
			cacheable = true
		}
	}

	bin, err := s.store.Bins().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, common.NewNotFoundError("bin")
		}
		return nil, err
	}

	view := models.NewBinView(bin)
	if cacheable {
		if err := s.cache.SetBin(ctx, view, generation, s.ttl); err != nil {
			s.logger.Warn("bin cache write failed", zap.String("bin_id", id.String()), zap.Error(err))
		}
	}
	return view, nil
}

func (s *binService) List(ctx context.Context, filter *models.BinFilter) ([]*models.BinView, int, error) {
	bins, total, err := s.store.Bins().List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	views := make([]*models.BinView, 0, len(bins))
	for _, bin := range bins {
		views = append(views, models.NewBinView(bin))
	}
	return views, total, nil
}

// invalidateBin drops the cached view after a committed mutation and bumps the
// bin's cache generation so in-flight loads discard what they read. Failures
// are logged only; the entry expires on its own.
func invalidateBin(ctx context.Context, cache caching.CacheService, logger *zap.Logger, binID uuid.UUID) {
	if cache == nil {
		return
	}
	if err := cache.DeleteBin(ctx, binID); err != nil {
		logger.Warn("failed to invalidate bin cache", zap.String("bin_id", binID.String()), zap.Error(err))
	}
}

// wrapTxError passes domain errors through and reports anything else raised
// inside a transaction as a rolled back TRANSACTION_FAILURE.
func wrapTxError(operation string, err error) error {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return common.NewTransactionFailure(operation, err)
}

func actorField(actor models.Actor) zap.Field {
	if actor.Unattributed() {
		return zap.Bool("unattributed", true)
	}
	return zap.String("user_id", actor.UserID.String())
}
