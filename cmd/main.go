package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	_ "binledger/docs"
	"binledger/internal/caching"
	"binledger/internal/common"
	"binledger/internal/config"
	"binledger/internal/handlers"
	"binledger/internal/jobs/background"
	"binledger/internal/logger"
	"binledger/internal/middleware"
	"binledger/internal/repositories"
	"binledger/internal/services"
	"binledger/pkg/database"
)

const version = "1.0.0"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("WARNING: failed to load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	zlog, err := logger.New(cfg.Logger, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Store
	var store repositories.Store
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		zlog.Warn("using in-memory store; data is lost on restart")
		store = repositories.NewMemoryStore()
	default:
		pool, err := database.NewPool(ctx, cfg.Postgres.URL, cfg.Postgres.MaxConns, zlog)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		if cfg.Postgres.RunMigrations {
			if err := database.Migrate(ctx, pool); err != nil {
				return err
			}
			if unmatched, err := database.UnmatchedLegacyEntries(ctx, pool); err != nil {
				zlog.Warn("failed to count unmatched ledger entries", zap.Error(err))
			} else if unmatched > 0 {
				zlog.Warn("legacy ledger entries match no bin and were left unkeyed", zap.Int("count", unmatched))
			}
			zlog.Info("database schema up to date")
		}
		store = repositories.NewPgStore(pool)
	}

	// Cache
	var cache caching.CacheService
	if cfg.Redis.Enabled {
		cache = caching.NewRedisCacheService(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, zlog)
	}

	// Object storage for the ledger archive
	var storage services.MinioService
	var archiveSvc services.ArchiveService
	if cfg.MinIO.Enabled {
		minioSvc, err := services.NewMinioService(cfg.MinIO.Endpoint, cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, cfg.MinIO.UseSSL)
		if err != nil {
			return fmt.Errorf("failed to initialize MinIO: %w", err)
		}
		storage = minioSvc
		archiveSvc = services.NewArchiveService(store, storage, cache, cfg.MinIO.Bucket, cfg.Jobs.ArchiveBatchSize, cfg.Jobs.ArchiveSettle, zlog)
	}

	// Services
	binSvc := services.NewBinService(store, cache, cfg.Cache.BinTTL, zlog)
	movementSvc := services.NewMovementService(store, cache, zlog)
	integritySvc := services.NewIntegrityService(store, cache, zlog)
	ledgerSvc := services.NewLedgerService(store)

	// Auth
	var keyFunc jwt.Keyfunc
	if cfg.Auth.JWKSURL != "" {
		kf, stopRefresh, err := middleware.NewJWKSKeyFunc(cfg.Auth.JWKSURL, zlog)
		if err != nil {
			return err
		}
		defer stopRefresh()
		keyFunc = kf
	}
	if cfg.Auth.Optional {
		zlog.Warn("authentication is optional; ledger writes without a token are recorded as unattributed")
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = common.NewRequestValidator()

	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.RequestID())
	e.Use(middleware.RequestLogger(zlog))
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{AllowOrigins: cfg.Server.AllowedOrigins}))
	e.Use(echoMiddleware.RemoveTrailingSlash())

	healthHandlers := handlers.NewHealthHandlers(store, cache, storage, cfg.MinIO.Bucket, version)
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	versionMiddleware := middleware.NewVersionMiddleware()
	v1 := versionMiddleware.VersionRoute(e, versionMiddleware.GetCurrentVersion(), middleware.JWTMiddleware(cfg.Auth, keyFunc))

	handlers.NewBinHandlers(binSvc, movementSvc, integritySvc, ledgerSvc).Register(v1)

	// Background jobs
	if cfg.Jobs.Enabled {
		scheduler, err := background.NewJobScheduler(cfg.Jobs, integritySvc, archiveSvc, zlog)
		if err != nil {
			return fmt.Errorf("failed to create job scheduler: %w", err)
		}
		scheduler.Start()
		defer func() {
			if err := scheduler.Stop(); err != nil {
				zlog.Error("failed to stop job scheduler", zap.Error(err))
			}
		}()
		handlers.NewJobHandlers(scheduler).Register(v1)
	}

	serverErr := make(chan error, 1)
	go func() {
		zlog.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("version", version))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	zlog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
