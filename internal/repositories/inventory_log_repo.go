package repositories

import (
	"context"
	"fmt"

	"binledger/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// InventoryLogRepository is the append-only ledger. It has no update or delete.
type InventoryLogRepository interface {
	Append(ctx context.Context, entry *models.InventoryLog) error
	ListByBin(ctx context.Context, binID uuid.UUID, filter *models.InventoryLogFilter) ([]*models.InventoryLog, int, error)
	// ListByBinAscending returns every entry of the bin in append order
	ListByBinAscending(ctx context.Context, binID uuid.UUID) ([]*models.InventoryLog, error)
	// Totals sums logged addition and deduction quantities for the bin
	Totals(ctx context.Context, binID uuid.UUID) (models.LedgerTotals, error)
	// ListAfterID pages through the whole ledger in append order
	ListAfterID(ctx context.Context, afterID int64, limit int) ([]*models.InventoryLog, error)
}

type inventoryLogRepo struct {
	db Querier
}

func NewInventoryLogRepo(db Querier) InventoryLogRepository {
	return &inventoryLogRepo{db: db}
}

const inventoryLogColumns = `id, bin_id, bin_location, item_id, item_name, action, quantity, quantity_before, quantity_after, user_id, unattributed, note, metadata, created_at`

func scanInventoryLog(row pgx.Row) (*models.InventoryLog, error) {
	entry := &models.InventoryLog{}
	var action string
	var metadata []byte
	err := row.Scan(&entry.ID, &entry.BinID, &entry.BinLocation, &entry.ItemID, &entry.ItemName, &action,
		&entry.Quantity, &entry.QuantityBefore, &entry.QuantityAfter, &entry.UserID, &entry.Unattributed,
		&entry.Note, &metadata, &entry.CreatedAt)
	if err != nil {
		return nil, err
	}
	entry.Action = models.LedgerAction(action)

	entry.Metadata, err = models.DecodeLedgerMetadata(entry.Action, metadata)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *inventoryLogRepo) Append(ctx context.Context, entry *models.InventoryLog) error {
	metadata, err := models.EncodeLedgerMetadata(entry.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger metadata: %w", err)
	}

	query := `
		INSERT INTO inventory_logs (bin_id, bin_location, item_id, item_name, action, quantity, quantity_before, quantity_after, user_id, unattributed, note, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		RETURNING id, created_at
	`
	err = r.db.QueryRow(ctx, query, entry.BinID, entry.BinLocation, entry.ItemID, entry.ItemName, string(entry.Action),
		entry.Quantity, entry.QuantityBefore, entry.QuantityAfter, entry.UserID, entry.Unattributed, entry.Note, metadata).
		Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

func (r *inventoryLogRepo) ListByBin(ctx context.Context, binID uuid.UUID, filter *models.InventoryLogFilter) ([]*models.InventoryLog, int, error) {
	where := ` WHERE bin_id = $1`
	args := []interface{}{binID}
	if filter.Action != nil {
		where += ` AND action = $2`
		args = append(args, string(*filter.Action))
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM inventory_logs`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	query := `SELECT ` + inventoryLogColumns + ` FROM inventory_logs` + where +
		fmt.Sprintf(` ORDER BY id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	entries, err := collectInventoryLogs(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *inventoryLogRepo) ListByBinAscending(ctx context.Context, binID uuid.UUID) ([]*models.InventoryLog, error) {
	query := `SELECT ` + inventoryLogColumns + ` FROM inventory_logs WHERE bin_id = $1 ORDER BY id ASC`
	rows, err := r.db.Query(ctx, query, binID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return collectInventoryLogs(rows)
}

func (r *inventoryLogRepo) Totals(ctx context.Context, binID uuid.UUID) (models.LedgerTotals, error) {
	query := `
		SELECT
			COALESCE(SUM(quantity) FILTER (WHERE action = 'addition'), 0),
			COALESCE(SUM(quantity) FILTER (WHERE action = 'deduction'), 0)
		FROM inventory_logs
		WHERE bin_id = $1
	`
	var totals models.LedgerTotals
	if err := r.db.QueryRow(ctx, query, binID).Scan(&totals.Additions, &totals.Deductions); err != nil {
		return totals, fmt.Errorf("failed to sum ledger entries: %w", err)
	}
	return totals, nil
}

func (r *inventoryLogRepo) ListAfterID(ctx context.Context, afterID int64, limit int) ([]*models.InventoryLog, error) {
	query := `SELECT ` + inventoryLogColumns + ` FROM inventory_logs WHERE id > $1 AND bin_id IS NOT NULL ORDER BY id ASC LIMIT $2`
	rows, err := r.db.Query(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to page ledger entries: %w", err)
	}
	return collectInventoryLogs(rows)
}

func collectInventoryLogs(rows pgx.Rows) ([]*models.InventoryLog, error) {
	defer rows.Close()

	entries := []*models.InventoryLog{}
	for rows.Next() {
		entry, err := scanInventoryLog(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
