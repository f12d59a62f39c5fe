package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// Querier is the subset of pgx shared by pools and transactions
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgxPool is satisfied by *pgxpool.Pool and pgxmock.PgxPoolIface
type PgxPool interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

// Store groups the ledger repositories behind one transaction boundary.
// Repositories obtained from the Store passed to a WithTx callback run inside
// that transaction.
type Store interface {
	Bins() BinRepository
	BinItems() BinItemRepository
	InventoryLogs() InventoryLogRepository

	// WithTx runs fn in a single transaction. The transaction commits only if
	// fn returns nil. Calling WithTx on a transactional Store joins the
	// running transaction.
	WithTx(ctx context.Context, fn func(tx Store) error) error

	Ping(ctx context.Context) error
}

type pgStore struct {
	pool PgxPool
	db   Querier
	inTx bool
}

func NewPgStore(pool PgxPool) Store {
	return &pgStore{pool: pool, db: pool}
}

func (s *pgStore) Bins() BinRepository {
	return NewBinRepo(s.db)
}

func (s *pgStore) BinItems() BinItemRepository {
	return NewBinItemRepo(s.db)
}

func (s *pgStore) InventoryLogs() InventoryLogRepository {
	return NewInventoryLogRepo(s.db)
}

func (s *pgStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgStore{pool: s.pool, db: tx, inTx: true}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *pgStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
