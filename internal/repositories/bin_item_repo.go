package repositories

import (
	"context"
	"fmt"

	"binledger/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type BinItemRepository interface {
	// EnsureExists inserts a zero-quantity row for (bin, item) if none exists.
	// created reports whether this call inserted it.
	EnsureExists(ctx context.Context, item *models.BinItem) (created bool, err error)
	GetForUpdate(ctx context.Context, binID, itemID uuid.UUID) (*models.BinItem, error)
	UpdateQuantity(ctx context.Context, item *models.BinItem) error
	ListByBin(ctx context.Context, binID uuid.UUID) ([]*models.BinItem, error)
}

type binItemRepo struct {
	db Querier
}

func NewBinItemRepo(db Querier) BinItemRepository {
	return &binItemRepo{db: db}
}

const binItemColumns = `bin_id, item_id, item_name, quantity, reserved_quantity, cost_per_unit, created_at, updated_at`

func scanBinItem(row pgx.Row) (*models.BinItem, error) {
	item := &models.BinItem{}
	err := row.Scan(&item.BinID, &item.ItemID, &item.ItemName, &item.Quantity, &item.ReservedQuantity, &item.CostPerUnit, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *binItemRepo) EnsureExists(ctx context.Context, item *models.BinItem) (bool, error) {
	query := `
		INSERT INTO bin_items (bin_id, item_id, item_name, quantity, reserved_quantity, cost_per_unit, created_at, updated_at)
		VALUES ($1, $2, $3, 0, 0, $4, NOW(), NOW())
		ON CONFLICT (bin_id, item_id) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query, item.BinID, item.ItemID, item.ItemName, item.CostPerUnit)
	if err != nil {
		return false, fmt.Errorf("failed to upsert bin item: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *binItemRepo) GetForUpdate(ctx context.Context, binID, itemID uuid.UUID) (*models.BinItem, error) {
	query := `SELECT ` + binItemColumns + ` FROM bin_items WHERE bin_id = $1 AND item_id = $2 FOR UPDATE`
	item, err := scanBinItem(r.db.QueryRow(ctx, query, binID, itemID))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return item, nil
}

func (r *binItemRepo) UpdateQuantity(ctx context.Context, item *models.BinItem) error {
	query := `
		UPDATE bin_items
		SET quantity = $1, updated_at = NOW()
		WHERE bin_id = $2 AND item_id = $3
	`
	tag, err := r.db.Exec(ctx, query, item.Quantity, item.BinID, item.ItemID)
	if err != nil {
		return fmt.Errorf("failed to update bin item quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *binItemRepo) ListByBin(ctx context.Context, binID uuid.UUID) ([]*models.BinItem, error) {
	return listItemsByBin(ctx, r.db, binID, false)
}

func listItemsByBin(ctx context.Context, db Querier, binID uuid.UUID, lock bool) ([]*models.BinItem, error) {
	query := `SELECT ` + binItemColumns + ` FROM bin_items WHERE bin_id = $1 ORDER BY item_name ASC`
	if lock {
		query += ` FOR UPDATE`
	}
	rows, err := db.Query(ctx, query, binID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bin items: %w", err)
	}
	return collectBinItems(rows)
}

func listItemsByBins(ctx context.Context, db Querier, binIDs []string) ([]*models.BinItem, error) {
	query := `SELECT ` + binItemColumns + ` FROM bin_items WHERE bin_id = ANY($1::uuid[]) ORDER BY item_name ASC`
	rows, err := db.Query(ctx, query, binIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list bin items: %w", err)
	}
	return collectBinItems(rows)
}

func collectBinItems(rows pgx.Rows) ([]*models.BinItem, error) {
	defer rows.Close()

	items := []*models.BinItem{}
	for rows.Next() {
		item, err := scanBinItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
