package caching

import (
	"context"
	"os"
	"testing"
	"time"

	"binledger/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) CacheService {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())
	return NewCacheServiceWithClient(client)
}

func TestRedisBinCache_GenerationGuardsWrites(t *testing.T) {
	cache := setupRedis(t)
	ctx := context.Background()
	binID := uuid.New()
	t.Cleanup(func() { _ = cache.DeleteBin(ctx, binID) })

	generation, err := cache.BinGeneration(ctx, binID)
	require.NoError(t, err)

	// a committed write invalidates while the load is in flight
	require.NoError(t, cache.DeleteBin(ctx, binID))
	stale := models.NewBinView(&models.Bin{ID: binID, Name: "stale"})
	require.NoError(t, cache.SetBin(ctx, stale, generation, time.Minute))

	cached, err := cache.GetBin(ctx, binID)
	require.NoError(t, err)
	assert.Nil(t, cached)

	current, err := cache.BinGeneration(ctx, binID)
	require.NoError(t, err)
	assert.Equal(t, generation+1, current)

	fresh := models.NewBinView(&models.Bin{ID: binID, Name: "fresh"})
	require.NoError(t, cache.SetBin(ctx, fresh, current, time.Minute))
	cached, err = cache.GetBin(ctx, binID)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "fresh", cached.Name)
}

func TestRedisArchiveCursor(t *testing.T) {
	cache := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.SetArchiveCursor(ctx, 42))
	cursor, err := cache.GetArchiveCursor(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(42), cursor)
}
