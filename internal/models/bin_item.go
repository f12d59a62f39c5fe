package models

import (
	"fmt"
	"math"
	"time"

	"binledger/internal/common"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxQuantity bounds any single quantity, matching the INTEGER columns
const MaxQuantity = math.MaxInt32

// BinItem is the per-item quantity counter of a bin, unique on (bin_id, item_id).
// Rows are never deleted; a zero quantity row anchors the item's history.
type BinItem struct {
	BinID            uuid.UUID       `json:"bin_id" db:"bin_id"`
	ItemID           uuid.UUID       `json:"item_id" db:"item_id"`
	ItemName         string          `json:"item_name" db:"item_name"`
	Quantity         int             `json:"quantity" db:"quantity"`
	ReservedQuantity int             `json:"reserved_quantity" db:"reserved_quantity"`
	CostPerUnit      decimal.Decimal `json:"cost_per_unit" db:"cost_per_unit"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// AvailableQuantity is the quantity that may be deducted
func (i *BinItem) AvailableQuantity() int {
	available := i.Quantity - i.ReservedQuantity
	if available < 0 {
		return 0
	}
	return available
}

// Deduct removes amount from the item and returns the new quantity. The item is
// left untouched on error.
func (i *BinItem) Deduct(amount int) (int, error) {
	if amount < 1 {
		return i.Quantity, common.NewValidationError("quantity", "quantity must be at least 1")
	}
	available := i.AvailableQuantity()
	if amount > available {
		return i.Quantity, common.NewInsufficientQuantityError(available, amount)
	}
	i.Quantity -= amount
	return i.Quantity, nil
}

// Add increments the item by amount and returns the new quantity
func (i *BinItem) Add(amount int) (int, error) {
	if amount < 1 {
		return i.Quantity, common.NewValidationError("quantity", "quantity must be at least 1")
	}
	if i.Quantity > MaxQuantity-amount {
		return i.Quantity, common.NewValidationError("quantity",
			fmt.Sprintf("item quantity cannot exceed %d: holding %d, adding %d", MaxQuantity, i.Quantity, amount))
	}
	i.Quantity += amount
	return i.Quantity, nil
}
