package handlers

import (
	"context"
	"net/http"
	"time"

	"binledger/internal/caching"
	"binledger/internal/repositories"
	"binledger/internal/services"

	"github.com/labstack/echo/v4"
)

const healthCheckTimeout = 3 * time.Second

// HealthHandlers handles health check endpoints. cache and storage are nil
// when not configured and are then reported as disabled.
type HealthHandlers struct {
	store   repositories.Store
	cache   caching.CacheService
	storage services.MinioService
	bucket  string
	version string
	started time.Time
}

func NewHealthHandlers(store repositories.Store, cache caching.CacheService, storage services.MinioService, bucket, version string) *HealthHandlers {
	return &HealthHandlers{
		store:   store,
		cache:   cache,
		storage: storage,
		bucket:  bucket,
		version: version,
		started: time.Now(),
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Uptime    string            `json:"uptime"`
	Version   string            `json:"version"`
}

func (h *HealthHandlers) checkStore(ctx context.Context) error {
	return h.store.Ping(ctx)
}

func (h *HealthHandlers) checkRedis(ctx context.Context) error {
	if h.cache == nil {
		return nil
	}
	return h.cache.Ping(ctx)
}

func (h *HealthHandlers) checkMinIO(ctx context.Context) error {
	if h.storage == nil {
		return nil
	}
	_, err := h.storage.BucketExists(ctx, h.bucket)
	return err
}

func serviceState(enabled bool, err error) string {
	switch {
	case !enabled:
		return "disabled"
	case err != nil:
		return "unhealthy"
	default:
		return "healthy"
	}
}

// HealthCheck reports every dependency. The store being down is fatal; cache
// or storage trouble only degrades the service.
func (h *HealthHandlers) HealthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
	defer cancel()

	health := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  make(map[string]string),
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Version:   h.version,
	}

	storeErr := h.checkStore(ctx)
	health.Services["database"] = serviceState(true, storeErr)

	redisErr := h.checkRedis(ctx)
	health.Services["redis"] = serviceState(h.cache != nil, redisErr)

	minioErr := h.checkMinIO(ctx)
	health.Services["storage"] = serviceState(h.storage != nil, minioErr)

	statusCode := http.StatusOK
	switch {
	case storeErr != nil:
		health.Status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	case redisErr != nil || minioErr != nil:
		health.Status = "degraded"
	}

	return c.JSON(statusCode, health)
}

// ReadinessCheck determines if the application is ready to serve traffic
func (h *HealthHandlers) ReadinessCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
	defer cancel()

	if err := h.checkStore(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status":  "not_ready",
			"message": "Store unavailable",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ready",
		"message": "All systems operational",
	})
}
