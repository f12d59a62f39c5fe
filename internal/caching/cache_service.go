package caching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"binledger/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	binKeyPrefix     = "binledger:bin:"
	binGenKeyPrefix  = "binledger:bin-gen:"
	lastSweepKey     = "binledger:integrity:last_sweep"
	archiveCursorKey = "binledger:archive:cursor"
)

type CacheService interface {
	// Bin view caching. A miss returns (nil, nil).
	GetBin(ctx context.Context, binID uuid.UUID) (*models.BinView, error)
	// BinGeneration is read before loading a bin from the store. SetBin only
	// stores the view while the generation is unchanged, and DeleteBin bumps
	// it, so a load that raced a committed write never caches the old view.
	BinGeneration(ctx context.Context, binID uuid.UUID) (int64, error)
	SetBin(ctx context.Context, view *models.BinView, generation int64, ttl time.Duration) error
	DeleteBin(ctx context.Context, binID uuid.UUID) error

	// Integrity sweep results
	GetSweepSummary(ctx context.Context) (*models.SweepSummary, error)
	SetSweepSummary(ctx context.Context, summary *models.SweepSummary) error

	// Ledger archive progress; zero when nothing was archived yet
	GetArchiveCursor(ctx context.Context) (int64, error)
	SetArchiveCursor(ctx context.Context, lastID int64) error

	Ping(ctx context.Context) error
}

type redisCacheService struct {
	client redis.UniversalClient
}

func NewRedisCacheService(addr, password string, db int, logger *zap.Logger) CacheService {
	// Accept redis://host:port as well as host:port
	parsedAddr := strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://")

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("redis ping failed on initialization", zap.String("addr", parsedAddr), zap.Error(err))
	} else {
		logger.Info("redis connection established", zap.String("addr", parsedAddr))
	}

	return NewCacheServiceWithClient(client)
}

func NewCacheServiceWithClient(client redis.UniversalClient) CacheService {
	return &redisCacheService{client: client}
}

func binKey(binID uuid.UUID) string {
	return binKeyPrefix + binID.String()
}

func (r *redisCacheService) GetBin(ctx context.Context, binID uuid.UUID) (*models.BinView, error) {
	data, err := r.client.Get(ctx, binKey(binID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // cache miss
		}
		return nil, err
	}

	var view models.BinView
	if err := json.Unmarshal(data, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func binGenerationKey(binID uuid.UUID) string {
	return binGenKeyPrefix + binID.String()
}

func generationOf(cmd *redis.StringCmd) (int64, error) {
	generation, err := cmd.Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return generation, err
}

func (r *redisCacheService) BinGeneration(ctx context.Context, binID uuid.UUID) (int64, error) {
	return generationOf(r.client.Get(ctx, binGenerationKey(binID)))
}

func (r *redisCacheService) SetBin(ctx context.Context, view *models.BinView, generation int64, ttl time.Duration) error {
	data, err := json.Marshal(view)
	if err != nil {
		return err
	}

	genKey := binGenerationKey(view.ID)
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := generationOf(tx.Get(ctx, genKey))
		if err != nil {
			return err
		}
		if current != generation {
			return nil // invalidated since the load started
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, binKey(view.ID), data, ttl)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

func (r *redisCacheService) DeleteBin(ctx context.Context, binID uuid.UUID) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, binGenerationKey(binID))
		pipe.Del(ctx, binKey(binID))
		return nil
	})
	return err
}

func (r *redisCacheService) GetSweepSummary(ctx context.Context) (*models.SweepSummary, error) {
	data, err := r.client.Get(ctx, lastSweepKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var summary models.SweepSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (r *redisCacheService) SetSweepSummary(ctx context.Context, summary *models.SweepSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, lastSweepKey, data, 0).Err()
}

func (r *redisCacheService) GetArchiveCursor(ctx context.Context) (int64, error) {
	val, err := r.client.Get(ctx, archiveCursorKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	cursor, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid archive cursor %q: %w", val, err)
	}
	return cursor, nil
}

func (r *redisCacheService) SetArchiveCursor(ctx context.Context, lastID int64) error {
	return r.client.Set(ctx, archiveCursorKey, strconv.FormatInt(lastID, 10), 0).Err()
}

func (r *redisCacheService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
