package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"binledger/internal/caching"
	"binledger/internal/common"
	"binledger/internal/models"
	"binledger/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IntegrityService reconciles bins against the ledger and gates delivery agent
// assignment on the result.
type IntegrityService interface {
	Check(ctx context.Context, binID uuid.UUID) (*models.IntegrityReport, error)
	AssignDeliveryAgent(ctx context.Context, binID uuid.UUID, req *models.AssignAgentRequest, actor models.Actor) (*models.BinView, error)
	Sweep(ctx context.Context) (*models.SweepSummary, error)
	LastSweep(ctx context.Context) (*models.SweepSummary, error)
}

type integrityService struct {
	store  repositories.Store
	cache  caching.CacheService
	logger *zap.Logger

	mu        sync.RWMutex
	lastSweep *models.SweepSummary
}

func NewIntegrityService(store repositories.Store, cache caching.CacheService, logger *zap.Logger) IntegrityService {
	return &integrityService{
		store:  store,
		cache:  cache,
		logger: logger,
	}
}

// inspect locks the bin so no movement commits between reading its items and
// summing its ledger.
func (s *integrityService) inspect(ctx context.Context, tx repositories.Store, binID uuid.UUID) (*models.Bin, *models.IntegrityReport, error) {
	bin, err := tx.Bins().GetByIDForUpdate(ctx, binID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil, common.NewNotFoundError("bin")
		}
		return nil, nil, err
	}

	totals, err := tx.InventoryLogs().Totals(ctx, binID)
	if err != nil {
		return nil, nil, err
	}
	entries, err := tx.InventoryLogs().ListByBinAscending(ctx, binID)
	if err != nil {
		return nil, nil, err
	}

	report := models.ComputeIntegrity(bin, totals)
	report.AttachReplay(bin, models.ReplayLedger(entries))
	return bin, report, nil
}

func (s *integrityService) Check(ctx context.Context, binID uuid.UUID) (*models.IntegrityReport, error) {
	var report *models.IntegrityReport
	err := s.store.WithTx(ctx, func(tx repositories.Store) error {
		var err error
		_, report, err = s.inspect(ctx, tx, binID)
		return err
	})
	if err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to check bin integrity: %w", err)
	}

	if report.Status == models.IntegrityViolation {
		s.logger.Warn("unlogged stock detected",
			zap.String("bin_id", binID.String()),
			zap.Int("unlogged_stock", report.UnloggedStock))
	}
	return report, nil
}

func (s *integrityService) AssignDeliveryAgent(ctx context.Context, binID uuid.UUID, req *models.AssignAgentRequest, actor models.Actor) (*models.BinView, error) {
	agentCode := strings.TrimSpace(req.AgentCode)
	if agentCode == "" {
		return nil, common.NewValidationError("agent_code", "agent_code is required")
	}
	agentPhone := strings.TrimSpace(req.AgentPhone)
	if agentPhone == "" {
		return nil, common.NewValidationError("agent_phone", "agent_phone is required")
	}

	var view *models.BinView
	err := s.store.WithTx(ctx, func(tx repositories.Store) error {
		bin, report, err := s.inspect(ctx, tx, binID)
		if err != nil {
			return err
		}

		if !report.HasStock {
			return common.NewNoStockLoggedError()
		}
		if report.Status == models.IntegrityViolation {
			return common.NewUnloggedStockError(report.UnloggedStock)
		}

		var previous *string
		if bin.AssignedToDA != nil {
			prev := *bin.AssignedToDA
			previous = &prev
		}

		bin.AssignAgent(agentCode, agentPhone)
		if err := tx.Bins().UpdateAssignment(ctx, bin); err != nil {
			return err
		}

		total := bin.CurrentCapacity()
		entry := &models.InventoryLog{
			BinID:          binID,
			BinLocation:    bin.Name,
			Action:         models.ActionAgentAssignment,
			Quantity:       0,
			QuantityBefore: total,
			QuantityAfter:  total,
			UserID:         actor.UserID,
			Unattributed:   actor.Unattributed(),
			Note:           fmt.Sprintf("delivery agent changed from %s to %s", describeAgent(previous), agentCode),
			Metadata: models.AssignmentMetadata{
				BinID:         binID,
				PreviousAgent: previous,
				NewAgent:      agentCode,
				NewPhone:      agentPhone,
				RecordedAt:    time.Now().UTC(),
			},
		}
		if err := tx.InventoryLogs().Append(ctx, entry); err != nil {
			return err
		}

		view = models.NewBinView(bin)
		return nil
	})
	if err != nil {
		if common.IsKind(err, common.KindNoStockLogged) || common.IsKind(err, common.KindUnloggedStockDetected) {
			s.logger.Warn("agent assignment blocked by integrity gate",
				zap.String("bin_id", binID.String()),
				zap.String("agent_code", agentCode),
				zap.Error(err))
		}
		return nil, wrapTxError("agent assignment", err)
	}

	invalidateBin(ctx, s.cache, s.logger, binID)
	fields := []zap.Field{
		zap.String("bin_id", binID.String()),
		zap.String("agent_code", agentCode),
		actorField(actor),
	}
	if actor.Unattributed() {
		s.logger.Warn("unattributed agent assignment", fields...)
	} else {
		s.logger.Info("delivery agent assigned", fields...)
	}
	return view, nil
}

func describeAgent(agent *string) string {
	if name := common.SafeString(agent); name != "" {
		return name
	}
	return "none"
}

// Sweep checks every bin. Per-bin failures are counted and logged; they do not
// stop the sweep.
func (s *integrityService) Sweep(ctx context.Context) (*models.SweepSummary, error) {
	summary := &models.SweepSummary{
		StartedAt:     time.Now().UTC(),
		ViolatingBins: []models.SweepViolation{},
	}

	ids, err := s.store.Bins().ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list bins for sweep: %w", err)
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var report *models.IntegrityReport
		err := s.store.WithTx(ctx, func(tx repositories.Store) error {
			var err error
			_, report, err = s.inspect(ctx, tx, id)
			return err
		})
		if err != nil {
			summary.Errors++
			s.logger.Error("integrity sweep failed for bin", zap.String("bin_id", id.String()), zap.Error(err))
			continue
		}

		summary.BinsChecked++
		if !report.ReplayConsistent {
			summary.Inconsistent++
		}
		if report.Status == models.IntegrityViolation || !report.ReplayConsistent {
			if report.Status == models.IntegrityViolation {
				summary.Violations++
			}
			summary.ViolatingBins = append(summary.ViolatingBins, models.SweepViolation{
				BinID:            report.BinID,
				BinName:          report.BinName,
				UnloggedStock:    report.UnloggedStock,
				ReplayConsistent: report.ReplayConsistent,
			})
			s.logger.Warn("integrity sweep flagged bin",
				zap.String("bin_id", report.BinID.String()),
				zap.String("bin_name", report.BinName),
				zap.Int("unlogged_stock", report.UnloggedStock),
				zap.Bool("replay_consistent", report.ReplayConsistent))
		}
	}
	summary.FinishedAt = time.Now().UTC()

	s.mu.Lock()
	s.lastSweep = summary
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.SetSweepSummary(ctx, summary); err != nil {
			s.logger.Warn("failed to store sweep summary", zap.Error(err))
		}
	}

	s.logger.Info("integrity sweep finished",
		zap.Int("bins_checked", summary.BinsChecked),
		zap.Int("violations", summary.Violations),
		zap.Int("replay_inconsistent", summary.Inconsistent),
		zap.Int("errors", summary.Errors),
		zap.Duration("duration", summary.FinishedAt.Sub(summary.StartedAt)))
	return summary, nil
}

// LastSweep returns the most recent sweep summary, preferring the shared cache
// so every replica reports the same run. nil means no sweep has run yet.
func (s *integrityService) LastSweep(ctx context.Context) (*models.SweepSummary, error) {
	if s.cache != nil {
		summary, err := s.cache.GetSweepSummary(ctx)
		if err != nil {
			s.logger.Warn("failed to read sweep summary from cache", zap.Error(err))
		} else if summary != nil {
			return summary, nil
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSweep, nil
}
