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
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MovementService applies stock movements. Each movement mutates exactly one
// bin item and appends exactly one ledger entry in the same transaction.
// Failed movements are never retried here; the caller resubmits.
type MovementService interface {
	AddInventory(ctx context.Context, binID uuid.UUID, req *models.AddInventoryRequest, actor models.Actor) (*models.MovementResult, error)
	DeductInventory(ctx context.Context, binID uuid.UUID, req *models.DeductInventoryRequest, actor models.Actor) (*models.MovementResult, error)
}

type movementService struct {
	store  repositories.Store
	cache  caching.CacheService
	logger *zap.Logger
}

func NewMovementService(store repositories.Store, cache caching.CacheService, logger *zap.Logger) MovementService {
	return &movementService{
		store:  store,
		cache:  cache,
		logger: logger,
	}
}

func validateQuantity(quantity int) error {
	if quantity < 1 {
		return common.NewValidationError("quantity", "quantity must be a positive integer")
	}
	if quantity > models.MaxQuantity {
		return common.NewValidationError("quantity", fmt.Sprintf("quantity must be at most %d", models.MaxQuantity))
	}
	return nil
}

func (s *movementService) AddInventory(ctx context.Context, binID uuid.UUID, req *models.AddInventoryRequest, actor models.Actor) (*models.MovementResult, error) {
	if err := validateQuantity(req.Quantity); err != nil {
		return nil, err
	}
	if req.ItemID == uuid.Nil {
		return nil, common.NewValidationError("item_id", "item_id is required")
	}
	itemName := strings.TrimSpace(req.ItemName)
	if itemName == "" {
		return nil, common.NewValidationError("item_name", "item_name is required")
	}
	cost := decimal.Zero
	if req.CostPerUnit != nil {
		if req.CostPerUnit.IsNegative() {
			return nil, common.NewValidationError("cost_per_unit", "cost_per_unit cannot be negative")
		}
		cost = *req.CostPerUnit
	}

	var result *models.MovementResult
	err := s.store.WithTx(ctx, func(tx repositories.Store) error {
		bin, err := tx.Bins().GetByIDForUpdate(ctx, binID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return common.NewNotFoundError("bin")
			}
			return err
		}

		if err := bin.CheckCapacity(req.Quantity); err != nil {
			return err
		}

		created, err := tx.BinItems().EnsureExists(ctx, &models.BinItem{
			BinID:       binID,
			ItemID:      req.ItemID,
			ItemName:    itemName,
			CostPerUnit: cost,
		})
		if err != nil {
			return err
		}

		item, err := tx.BinItems().GetForUpdate(ctx, binID, req.ItemID)
		if err != nil {
			return err
		}

		before := item.Quantity
		after, err := item.Add(req.Quantity)
		if err != nil {
			return err
		}
		if err := tx.BinItems().UpdateQuantity(ctx, item); err != nil {
			return err
		}

		entry := &models.InventoryLog{
			BinID:          binID,
			BinLocation:    bin.Name,
			ItemID:         &item.ItemID,
			ItemName:       item.ItemName,
			Action:         models.ActionAddition,
			Quantity:       req.Quantity,
			QuantityBefore: before,
			QuantityAfter:  after,
			UserID:         actor.UserID,
			Unattributed:   actor.Unattributed(),
			Note:           req.Notes,
			Metadata: models.AdditionMetadata{
				BinID:       binID,
				ItemID:      item.ItemID,
				CostPerUnit: cost,
				ItemCreated: created,
				RecordedAt:  time.Now().UTC(),
			},
		}
		if err := tx.InventoryLogs().Append(ctx, entry); err != nil {
			return err
		}

		result = &models.MovementResult{
			Item:              item,
			RemainingQuantity: after,
			LedgerEntry:       entry,
			Logged:            true,
		}
		return nil
	})
	if err != nil {
		return nil, wrapTxError("inventory addition", err)
	}

	invalidateBin(ctx, s.cache, s.logger, binID)
	s.logMovement(result, actor)
	return result, nil
}

func (s *movementService) DeductInventory(ctx context.Context, binID uuid.UUID, req *models.DeductInventoryRequest, actor models.Actor) (*models.MovementResult, error) {
	if err := validateQuantity(req.Quantity); err != nil {
		return nil, err
	}
	if req.ItemID == uuid.Nil {
		return nil, common.NewValidationError("item_id", "item_id is required")
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, common.NewValidationError("reason", "reason is required")
	}

	var result *models.MovementResult
	err := s.store.WithTx(ctx, func(tx repositories.Store) error {
		bin, err := tx.Bins().GetByIDForUpdate(ctx, binID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return common.NewNotFoundError("bin")
			}
			return err
		}

		item, err := tx.BinItems().GetForUpdate(ctx, binID, req.ItemID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return common.NewNotFoundError(fmt.Sprintf("item %s in bin %s", req.ItemID, bin.Name))
			}
			return err
		}

		before := item.Quantity
		after, err := item.Deduct(req.Quantity)
		if err != nil {
			return err
		}
		if err := tx.BinItems().UpdateQuantity(ctx, item); err != nil {
			return err
		}

		entry := &models.InventoryLog{
			BinID:          binID,
			BinLocation:    bin.Name,
			ItemID:         &item.ItemID,
			ItemName:       item.ItemName,
			Action:         models.ActionDeduction,
			Quantity:       req.Quantity,
			QuantityBefore: before,
			QuantityAfter:  after,
			UserID:         actor.UserID,
			Unattributed:   actor.Unattributed(),
			Note:           reason,
			Metadata: models.DeductionMetadata{
				BinID:      binID,
				ItemID:     item.ItemID,
				Reason:     reason,
				RecordedAt: time.Now().UTC(),
			},
		}
		if err := tx.InventoryLogs().Append(ctx, entry); err != nil {
			return err
		}

		result = &models.MovementResult{
			Item:              item,
			RemainingQuantity: after,
			LedgerEntry:       entry,
			Logged:            true,
		}
		return nil
	})
	if err != nil {
		if common.IsKind(err, common.KindInsufficientQuantity) {
			s.logger.Info("deduction rejected",
				zap.String("bin_id", binID.String()),
				zap.String("item_id", req.ItemID.String()),
				zap.Int("requested", req.Quantity))
		}
		return nil, wrapTxError("inventory deduction", err)
	}

	invalidateBin(ctx, s.cache, s.logger, binID)
	s.logMovement(result, actor)
	return result, nil
}

func (s *movementService) logMovement(result *models.MovementResult, actor models.Actor) {
	entry := result.LedgerEntry
	fields := []zap.Field{
		zap.Int64("ledger_id", entry.ID),
		zap.String("bin_id", entry.BinID.String()),
		zap.String("item_id", result.Item.ItemID.String()),
		zap.String("action", string(entry.Action)),
		zap.Int("quantity", entry.Quantity),
		zap.Int("quantity_before", entry.QuantityBefore),
		zap.Int("quantity_after", entry.QuantityAfter),
		actorField(actor),
	}
	if actor.Unattributed() {
		s.logger.Warn("unattributed ledger write", fields...)
		return
	}
	s.logger.Info("ledger entry appended", fields...)
}
