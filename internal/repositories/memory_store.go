package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"binledger/internal/models"

	"github.com/google/uuid"
)

// MemoryStore is a process-local Store. Transactions are serialized on a
// single mutex and work on a copy of the state that replaces the live state
// only when the callback succeeds.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
	root  *memView
}

type memState struct {
	bins      map[uuid.UUID]*models.Bin
	items     map[uuid.UUID][]*models.BinItem
	logs      []*models.InventoryLog
	nextLogID int64
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		state: &memState{
			bins:      make(map[uuid.UUID]*models.Bin),
			items:     make(map[uuid.UUID][]*models.BinItem),
			nextLogID: 1,
		},
	}
	s.root = &memView{store: s}
	return s
}

func (s *MemoryStore) Bins() BinRepository                   { return s.root.Bins() }
func (s *MemoryStore) BinItems() BinItemRepository           { return s.root.BinItems() }
func (s *MemoryStore) InventoryLogs() InventoryLogRepository { return s.root.InventoryLogs() }
func (s *MemoryStore) Ping(ctx context.Context) error        { return nil }

func (s *MemoryStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	return s.root.WithTx(ctx, fn)
}

// memView is either the live store (st == nil) or a transaction holding the
// store mutex and working on st.
type memView struct {
	store *MemoryStore
	st    *memState
}

func (v *memView) do(fn func(st *memState) error) error {
	if v.st != nil {
		return fn(v.st)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.state)
}

func (v *memView) Bins() BinRepository                   { return &memBinRepo{v: v} }
func (v *memView) BinItems() BinItemRepository           { return &memBinItemRepo{v: v} }
func (v *memView) InventoryLogs() InventoryLogRepository { return &memInventoryLogRepo{v: v} }
func (v *memView) Ping(ctx context.Context) error        { return nil }

func (v *memView) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if v.st != nil {
		return fn(v)
	}

	v.store.mu.Lock()
	defer v.store.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	working := v.store.state.clone()
	if err := fn(&memView{store: v.store, st: working}); err != nil {
		return err
	}
	v.store.state = working
	return nil
}

func (st *memState) clone() *memState {
	c := &memState{
		bins:      make(map[uuid.UUID]*models.Bin, len(st.bins)),
		items:     make(map[uuid.UUID][]*models.BinItem, len(st.items)),
		logs:      make([]*models.InventoryLog, len(st.logs)),
		nextLogID: st.nextLogID,
	}
	for id, bin := range st.bins {
		c.bins[id] = copyBin(bin)
	}
	for id, items := range st.items {
		copied := make([]*models.BinItem, len(items))
		for i, item := range items {
			copied[i] = copyBinItem(item)
		}
		c.items[id] = copied
	}
	// ledger entries are immutable once appended
	copy(c.logs, st.logs)
	return c
}

func (st *memState) binWithItems(id uuid.UUID) (*models.Bin, bool) {
	bin, ok := st.bins[id]
	if !ok {
		return nil, false
	}
	out := copyBin(bin)
	out.Items = make([]*models.BinItem, 0, len(st.items[id]))
	for _, item := range st.items[id] {
		out.Items = append(out.Items, copyBinItem(item))
	}
	sort.Slice(out.Items, func(i, j int) bool { return out.Items[i].ItemName < out.Items[j].ItemName })
	return out, true
}

func (st *memState) findItem(binID, itemID uuid.UUID) *models.BinItem {
	for _, item := range st.items[binID] {
		if item.ItemID == itemID {
			return item
		}
	}
	return nil
}

func copyBin(b *models.Bin) *models.Bin {
	out := *b
	if b.MaxCapacity != nil {
		v := *b.MaxCapacity
		out.MaxCapacity = &v
	}
	if b.AssignedToDA != nil {
		v := *b.AssignedToDA
		out.AssignedToDA = &v
	}
	if b.DAPhone != nil {
		v := *b.DAPhone
		out.DAPhone = &v
	}
	out.Items = nil
	return &out
}

func copyBinItem(i *models.BinItem) *models.BinItem {
	out := *i
	return &out
}

func copyInventoryLog(e *models.InventoryLog) *models.InventoryLog {
	out := *e
	return &out
}

type memBinRepo struct {
	v *memView
}

func (r *memBinRepo) Create(ctx context.Context, bin *models.Bin) error {
	return r.v.do(func(st *memState) error {
		for _, existing := range st.bins {
			if existing.Name == bin.Name {
				return ErrDuplicate
			}
		}
		if bin.ID == uuid.Nil {
			bin.ID = uuid.New()
		}
		now := time.Now().UTC()
		bin.CreatedAt = now
		bin.UpdatedAt = now
		if bin.Items == nil {
			bin.Items = []*models.BinItem{}
		}
		st.bins[bin.ID] = copyBin(bin)
		return nil
	})
}

func (r *memBinRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Bin, error) {
	var out *models.Bin
	err := r.v.do(func(st *memState) error {
		bin, ok := st.binWithItems(id)
		if !ok {
			return ErrNotFound
		}
		out = bin
		return nil
	})
	return out, err
}

func (r *memBinRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Bin, error) {
	return r.GetByID(ctx, id)
}

func (r *memBinRepo) List(ctx context.Context, filter *models.BinFilter) ([]*models.Bin, int, error) {
	var out []*models.Bin
	total := 0
	err := r.v.do(func(st *memState) error {
		matched := []*models.Bin{}
		for id, bin := range st.bins {
			if filter.Status != nil && bin.Status != *filter.Status {
				continue
			}
			if filter.Type != nil && bin.Type != *filter.Type {
				continue
			}
			full, _ := st.binWithItems(id)
			matched = append(matched, full)
		}
		sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })

		total = len(matched)
		out = paginate(matched, filter.Limit, filter.Offset)
		return nil
	})
	return out, total, err
}

func (r *memBinRepo) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.v.do(func(st *memState) error {
		bins := make([]*models.Bin, 0, len(st.bins))
		for _, bin := range st.bins {
			bins = append(bins, bin)
		}
		sort.Slice(bins, func(i, j int) bool { return bins[i].Name < bins[j].Name })
		for _, bin := range bins {
			ids = append(ids, bin.ID)
		}
		return nil
	})
	return ids, err
}

func (r *memBinRepo) UpdateAssignment(ctx context.Context, bin *models.Bin) error {
	return r.v.do(func(st *memState) error {
		stored, ok := st.bins[bin.ID]
		if !ok {
			return ErrNotFound
		}
		updated := copyBin(bin)
		updated.Name = stored.Name
		updated.Status = stored.Status
		updated.MaxCapacity = stored.MaxCapacity
		updated.CreatedAt = stored.CreatedAt
		updated.UpdatedAt = time.Now().UTC()
		st.bins[bin.ID] = updated
		bin.UpdatedAt = updated.UpdatedAt
		return nil
	})
}

type memBinItemRepo struct {
	v *memView
}

func (r *memBinItemRepo) EnsureExists(ctx context.Context, item *models.BinItem) (bool, error) {
	created := false
	err := r.v.do(func(st *memState) error {
		if _, ok := st.bins[item.BinID]; !ok {
			return ErrNotFound
		}
		if st.findItem(item.BinID, item.ItemID) != nil {
			return nil
		}
		now := time.Now().UTC()
		st.items[item.BinID] = append(st.items[item.BinID], &models.BinItem{
			BinID:       item.BinID,
			ItemID:      item.ItemID,
			ItemName:    item.ItemName,
			CostPerUnit: item.CostPerUnit,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		created = true
		return nil
	})
	return created, err
}

func (r *memBinItemRepo) GetForUpdate(ctx context.Context, binID, itemID uuid.UUID) (*models.BinItem, error) {
	var out *models.BinItem
	err := r.v.do(func(st *memState) error {
		item := st.findItem(binID, itemID)
		if item == nil {
			return ErrNotFound
		}
		out = copyBinItem(item)
		return nil
	})
	return out, err
}

func (r *memBinItemRepo) UpdateQuantity(ctx context.Context, item *models.BinItem) error {
	return r.v.do(func(st *memState) error {
		stored := st.findItem(item.BinID, item.ItemID)
		if stored == nil {
			return ErrNotFound
		}
		stored.Quantity = item.Quantity
		stored.UpdatedAt = time.Now().UTC()
		item.UpdatedAt = stored.UpdatedAt
		return nil
	})
}

func (r *memBinItemRepo) ListByBin(ctx context.Context, binID uuid.UUID) ([]*models.BinItem, error) {
	var out []*models.BinItem
	err := r.v.do(func(st *memState) error {
		bin, ok := st.binWithItems(binID)
		if !ok {
			out = []*models.BinItem{}
			return nil
		}
		out = bin.Items
		return nil
	})
	return out, err
}

type memInventoryLogRepo struct {
	v *memView
}

func (r *memInventoryLogRepo) Append(ctx context.Context, entry *models.InventoryLog) error {
	return r.v.do(func(st *memState) error {
		entry.ID = st.nextLogID
		entry.CreatedAt = time.Now().UTC()
		st.nextLogID++
		st.logs = append(st.logs, copyInventoryLog(entry))
		return nil
	})
}

func (r *memInventoryLogRepo) ListByBin(ctx context.Context, binID uuid.UUID, filter *models.InventoryLogFilter) ([]*models.InventoryLog, int, error) {
	var out []*models.InventoryLog
	total := 0
	err := r.v.do(func(st *memState) error {
		matched := []*models.InventoryLog{}
		for i := len(st.logs) - 1; i >= 0; i-- {
			entry := st.logs[i]
			if entry.BinID != binID {
				continue
			}
			if filter.Action != nil && entry.Action != *filter.Action {
				continue
			}
			matched = append(matched, copyInventoryLog(entry))
		}
		total = len(matched)
		out = paginate(matched, filter.Limit, filter.Offset)
		return nil
	})
	return out, total, err
}

func (r *memInventoryLogRepo) ListByBinAscending(ctx context.Context, binID uuid.UUID) ([]*models.InventoryLog, error) {
	out := []*models.InventoryLog{}
	err := r.v.do(func(st *memState) error {
		for _, entry := range st.logs {
			if entry.BinID == binID {
				out = append(out, copyInventoryLog(entry))
			}
		}
		return nil
	})
	return out, err
}

func (r *memInventoryLogRepo) Totals(ctx context.Context, binID uuid.UUID) (models.LedgerTotals, error) {
	var totals models.LedgerTotals
	err := r.v.do(func(st *memState) error {
		for _, entry := range st.logs {
			if entry.BinID != binID {
				continue
			}
			switch entry.Action {
			case models.ActionAddition:
				totals.Additions += entry.Quantity
			case models.ActionDeduction:
				totals.Deductions += entry.Quantity
			}
		}
		return nil
	})
	return totals, err
}

func (r *memInventoryLogRepo) ListAfterID(ctx context.Context, afterID int64, limit int) ([]*models.InventoryLog, error) {
	out := []*models.InventoryLog{}
	err := r.v.do(func(st *memState) error {
		for _, entry := range st.logs {
			if entry.ID <= afterID {
				continue
			}
			out = append(out, copyInventoryLog(entry))
			if limit > 0 && len(out) == limit {
				break
			}
		}
		return nil
	})
	return out, err
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
