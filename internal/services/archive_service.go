package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"binledger/internal/caching"
	"binledger/internal/models"
	"binledger/internal/repositories"

	"go.uber.org/zap"
)

const archivePrefix = "ledger-archive/"

// ArchiveService exports ledger entries appended since the previous run to
// object storage as JSON Lines. The ledger itself is never modified.
type ArchiveService interface {
	ArchivePending(ctx context.Context) (*models.ArchiveResult, error)
}

type archiveService struct {
	store     repositories.Store
	storage   MinioService
	cache     caching.CacheService
	bucket    string
	batchSize int
	settle    time.Duration
	now       func() time.Time
	logger    *zap.Logger

	// used when no cache is configured
	mu     sync.Mutex
	cursor int64
}

func NewArchiveService(store repositories.Store, storage MinioService, cache caching.CacheService, bucket string, batchSize int, settle time.Duration, logger *zap.Logger) ArchiveService {
	return &archiveService{
		store:     store,
		storage:   storage,
		cache:     cache,
		bucket:    bucket,
		batchSize: batchSize,
		settle:    settle,
		now:       time.Now,
		logger:    logger,
	}
}

func archiveObjectName(fromID, toID int64) string {
	return fmt.Sprintf("%s%020d-%020d.jsonl", archivePrefix, fromID, toID)
}

// settledPrefix returns the leading entries created before cutoff. Ids are
// taken before commit, so an entry still inside the window may have a lower
// id that is not visible yet; everything from the first young entry on waits
// for a later run.
func settledPrefix(entries []*models.InventoryLog, cutoff time.Time) []*models.InventoryLog {
	for i, entry := range entries {
		if !entry.CreatedAt.Before(cutoff) {
			return entries[:i]
		}
	}
	return entries
}

func (s *archiveService) loadCursor(ctx context.Context) (int64, error) {
	if s.cache != nil {
		return s.cache.GetArchiveCursor(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor, nil
}

func (s *archiveService) saveCursor(ctx context.Context, cursor int64) error {
	if s.cache != nil {
		return s.cache.SetArchiveCursor(ctx, cursor)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = cursor
	return nil
}

// ArchivePending uploads one object per batch. The cursor only advances after
// an upload succeeds, so a failed run is repeated in full next time.
func (s *archiveService) ArchivePending(ctx context.Context) (*models.ArchiveResult, error) {
	cursor, err := s.loadCursor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load archive cursor: %w", err)
	}

	if err := s.storage.EnsureBucketExists(ctx, s.bucket); err != nil {
		return nil, fmt.Errorf("failed to ensure archive bucket: %w", err)
	}

	result := &models.ArchiveResult{Objects: []string{}, FromID: cursor + 1, ToID: cursor}
	for {
		page, err := s.store.InventoryLogs().ListAfterID(ctx, cursor, s.batchSize)
		if err != nil {
			return result, fmt.Errorf("failed to read ledger after id %d: %w", cursor, err)
		}
		entries := page
		if s.settle > 0 {
			entries = settledPrefix(page, s.now().Add(-s.settle))
		}
		if len(entries) == 0 {
			if len(page) > 0 {
				s.logger.Debug("ledger archive waiting for entries to settle",
					zap.Int64("next_id", page[0].ID),
					zap.Duration("settle", s.settle))
			}
			break
		}

		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		for _, entry := range entries {
			if err := enc.Encode(entry); err != nil {
				return result, fmt.Errorf("failed to encode ledger entry %d: %w", entry.ID, err)
			}
		}

		fromID := entries[0].ID
		toID := entries[len(entries)-1].ID
		name := archiveObjectName(fromID, toID)
		if err := s.storage.UploadObject(ctx, s.bucket, name, bytes.NewReader(buf.Bytes()), int64(buf.Len()), "application/x-ndjson"); err != nil {
			return result, fmt.Errorf("failed to upload %s: %w", name, err)
		}
		if err := s.saveCursor(ctx, toID); err != nil {
			return result, fmt.Errorf("failed to save archive cursor: %w", err)
		}

		cursor = toID
		result.Objects = append(result.Objects, name)
		result.Entries += len(entries)
		result.ToID = toID
		result.Archived = true

		if len(entries) < len(page) || len(page) < s.batchSize {
			break
		}
	}

	if result.Archived {
		s.logger.Info("ledger archived",
			zap.Int("entries", result.Entries),
			zap.Int64("from_id", result.FromID),
			zap.Int64("to_id", result.ToID),
			zap.Strings("objects", result.Objects))
	}
	return result, nil
}
