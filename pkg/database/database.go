package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Execer is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Querier adds single-row reads to Execer
type Querier interface {
	Execer
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func NewPool(ctx context.Context, dsn string, maxConns int, logger *zap.Logger) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}
	if maxConns > 0 {
		config.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("database connected", zap.Int32("max_conns", config.MaxConns))
	return pool, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS bins (
		id             UUID PRIMARY KEY,
		name           VARCHAR(100) NOT NULL UNIQUE,
		type           VARCHAR(32) NOT NULL DEFAULT 'generic',
		status         VARCHAR(32) NOT NULL DEFAULT 'active',
		max_capacity   INTEGER CHECK (max_capacity IS NULL OR max_capacity >= 0),
		assigned_to_da VARCHAR(100),
		da_phone       VARCHAR(32),
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS bin_items (
		bin_id            UUID NOT NULL REFERENCES bins(id) ON DELETE CASCADE,
		item_id           UUID NOT NULL,
		item_name         VARCHAR(255) NOT NULL,
		quantity          INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
		reserved_quantity INTEGER NOT NULL DEFAULT 0 CHECK (reserved_quantity >= 0),
		cost_per_unit     NUMERIC(12, 2) NOT NULL DEFAULT 0,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (bin_id, item_id)
	)`,
	`CREATE TABLE IF NOT EXISTS inventory_logs (
		id              BIGSERIAL PRIMARY KEY,
		bin_id          UUID,
		bin_location    VARCHAR(100) NOT NULL,
		item_id         UUID,
		item_name       VARCHAR(255) NOT NULL DEFAULT '',
		action          VARCHAR(32) NOT NULL,
		quantity        INTEGER NOT NULL CHECK (quantity >= 0),
		quantity_before INTEGER NOT NULL,
		quantity_after  INTEGER NOT NULL CHECK (quantity_after >= 0),
		user_id         UUID,
		unattributed    BOOLEAN NOT NULL DEFAULT FALSE,
		note            TEXT NOT NULL DEFAULT '',
		metadata        JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	// ledgers written before entries were keyed by bin id only carry the name
	`ALTER TABLE inventory_logs ADD COLUMN IF NOT EXISTS bin_id UUID`,
	`UPDATE inventory_logs l SET bin_id = b.id FROM bins b WHERE l.bin_id IS NULL AND l.bin_location = b.name`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_logs_bin_id ON inventory_logs (bin_id, id)`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_logs_bin_action ON inventory_logs (bin_id, action)`,
	`CREATE INDEX IF NOT EXISTS idx_bins_status_type ON bins (status, type)`,
}

// Migrate applies the schema. Every statement is idempotent so it runs on
// each start.
func Migrate(ctx context.Context, db Execer) error {
	for i, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// UnmatchedLegacyEntries counts ledger rows whose bin_location matched no bin
// during the backfill. They stay in the table but are invisible to per-bin
// reads and the archive.
func UnmatchedLegacyEntries(ctx context.Context, db Querier) (int, error) {
	var count int
	err := db.QueryRow(ctx, `SELECT COUNT(*) FROM inventory_logs WHERE bin_id IS NULL`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unmatched ledger entries: %w", err)
	}
	return count, nil
}
