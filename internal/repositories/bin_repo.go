package repositories

import (
	"context"
	"fmt"

	"binledger/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type BinRepository interface {
	Create(ctx context.Context, bin *models.Bin) error
	// GetByID loads the bin with all of its items
	GetByID(ctx context.Context, id uuid.UUID) (*models.Bin, error)
	// GetByIDForUpdate loads the bin and its items holding row locks until the
	// surrounding transaction ends. Only meaningful inside WithTx.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Bin, error)
	List(ctx context.Context, filter *models.BinFilter) ([]*models.Bin, int, error)
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
	UpdateAssignment(ctx context.Context, bin *models.Bin) error
}

type binRepo struct {
	db Querier
}

func NewBinRepo(db Querier) BinRepository {
	return &binRepo{db: db}
}

const binColumns = `id, name, type, status, max_capacity, assigned_to_da, da_phone, created_at, updated_at`

func scanBin(row pgx.Row) (*models.Bin, error) {
	bin := &models.Bin{}
	var binType, status string
	err := row.Scan(&bin.ID, &bin.Name, &binType, &status, &bin.MaxCapacity, &bin.AssignedToDA, &bin.DAPhone, &bin.CreatedAt, &bin.UpdatedAt)
	if err != nil {
		return nil, err
	}
	bin.Type = models.BinType(binType)
	bin.Status = models.BinStatus(status)
	bin.Items = []*models.BinItem{}
	return bin, nil
}

func (r *binRepo) Create(ctx context.Context, bin *models.Bin) error {
	if bin.ID == uuid.Nil {
		bin.ID = uuid.New()
	}

	query := `
		INSERT INTO bins (id, name, type, status, max_capacity, assigned_to_da, da_phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, bin.ID, bin.Name, string(bin.Type), string(bin.Status), bin.MaxCapacity, bin.AssignedToDA, bin.DAPhone).
		Scan(&bin.CreatedAt, &bin.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create bin: %w", err)
	}
	if bin.Items == nil {
		bin.Items = []*models.BinItem{}
	}
	return nil
}

func (r *binRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Bin, error) {
	return r.get(ctx, id, false)
}

func (r *binRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Bin, error) {
	return r.get(ctx, id, true)
}

func (r *binRepo) get(ctx context.Context, id uuid.UUID, lock bool) (*models.Bin, error) {
	query := `SELECT ` + binColumns + ` FROM bins WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	bin, err := scanBin(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapNoRows(err)
	}

	items, err := listItemsByBin(ctx, r.db, id, lock)
	if err != nil {
		return nil, err
	}
	bin.Items = items
	return bin, nil
}

func (r *binRepo) List(ctx context.Context, filter *models.BinFilter) ([]*models.Bin, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if filter.Status != nil {
		argCount++
		where += fmt.Sprintf(` AND status = $%d`, argCount)
		args = append(args, string(*filter.Status))
	}
	if filter.Type != nil {
		argCount++
		where += fmt.Sprintf(` AND type = $%d`, argCount)
		args = append(args, string(*filter.Type))
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM bins`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count bins: %w", err)
	}

	query := `SELECT ` + binColumns + ` FROM bins` + where +
		fmt.Sprintf(` ORDER BY name ASC LIMIT $%d OFFSET $%d`, argCount+1, argCount+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bins: %w", err)
	}
	defer rows.Close()

	bins := []*models.Bin{}
	byID := make(map[uuid.UUID]*models.Bin)
	ids := []string{}
	for rows.Next() {
		bin, err := scanBin(rows)
		if err != nil {
			return nil, 0, err
		}
		bins = append(bins, bin)
		byID[bin.ID] = bin
		ids = append(ids, bin.ID.String())
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if len(ids) == 0 {
		return bins, total, nil
	}

	items, err := listItemsByBins(ctx, r.db, ids)
	if err != nil {
		return nil, 0, err
	}
	for _, item := range items {
		if bin, ok := byID[item.BinID]; ok {
			bin.Items = append(bin.Items, item)
		}
	}

	return bins, total, nil
}

func (r *binRepo) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM bins ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list bin ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *binRepo) UpdateAssignment(ctx context.Context, bin *models.Bin) error {
	query := `
		UPDATE bins
		SET type = $1, assigned_to_da = $2, da_phone = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query, string(bin.Type), bin.AssignedToDA, bin.DAPhone, bin.ID).Scan(&bin.UpdatedAt)
	if err != nil {
		return mapNoRows(err)
	}
	return nil
}
