package services

import (
	"context"
	"errors"

	"binledger/internal/common"
	"binledger/internal/models"
	"binledger/internal/repositories"

	"github.com/google/uuid"
)

type LedgerService interface {
	// ListBinLogs pages a bin's ledger, newest entry first
	ListBinLogs(ctx context.Context, binID uuid.UUID, filter *models.InventoryLogFilter) ([]*models.InventoryLog, int, error)
}

type ledgerService struct {
	store repositories.Store
}

func NewLedgerService(store repositories.Store) LedgerService {
	return &ledgerService{store: store}
}

func (s *ledgerService) ListBinLogs(ctx context.Context, binID uuid.UUID, filter *models.InventoryLogFilter) ([]*models.InventoryLog, int, error) {
	if _, err := s.store.Bins().GetByID(ctx, binID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, 0, common.NewNotFoundError("bin")
		}
		return nil, 0, err
	}

	return s.store.InventoryLogs().ListByBin(ctx, binID, filter)
}
