package models

import (
	"time"

	"binledger/internal/common"

	"github.com/google/uuid"
)

type BinType string

const (
	BinTypeGeneric       BinType = "generic"
	BinTypeDeliveryAgent BinType = "delivery_agent"
)

type BinStatus string

const (
	BinStatusActive   BinStatus = "active"
	BinStatusInactive BinStatus = "inactive"
)

// Bin is a physical or logical storage location. Items holds every BinItem row
// of the bin, including zero-quantity ones.
type Bin struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	Type         BinType    `json:"type" db:"type"`
	Status       BinStatus  `json:"status" db:"status"`
	MaxCapacity  *int       `json:"max_capacity" db:"max_capacity"`
	AssignedToDA *string    `json:"assigned_to_da" db:"assigned_to_da"`
	DAPhone      *string    `json:"da_phone" db:"da_phone"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	Items        []*BinItem `json:"items"`
}

// CurrentCapacity is the sum of all item quantities in the bin
func (b *Bin) CurrentCapacity() int {
	total := 0
	for _, item := range b.Items {
		total += item.Quantity
	}
	return total
}

// AvailableCapacity returns the remaining room in the bin. limited is false
// when the bin has no max_capacity, in which case available is meaningless.
func (b *Bin) AvailableCapacity() (available int, limited bool) {
	if b.MaxCapacity == nil {
		return 0, false
	}
	return *b.MaxCapacity - b.CurrentCapacity(), true
}

func (b *Bin) CanAccommodate(quantity int) bool {
	if b.MaxCapacity == nil {
		return true
	}
	return quantity <= *b.MaxCapacity-b.CurrentCapacity()
}

// CheckCapacity returns CAPACITY_EXCEEDED when quantity does not fit
func (b *Bin) CheckCapacity(quantity int) error {
	if b.CanAccommodate(quantity) {
		return nil
	}
	available, _ := b.AvailableCapacity()
	return common.NewCapacityExceededError(*b.MaxCapacity, b.CurrentCapacity(), available)
}

// AssignAgent hands custody of the bin to a delivery agent. It does not check
// ledger integrity; callers must pass the integrity gate first.
func (b *Bin) AssignAgent(agentCode, agentPhone string) {
	b.AssignedToDA = &agentCode
	b.DAPhone = &agentPhone
	b.Type = BinTypeDeliveryAgent
}

// HasStock reports whether any item in the bin has quantity > 0
func (b *Bin) HasStock() bool {
	for _, item := range b.Items {
		if item.Quantity > 0 {
			return true
		}
	}
	return false
}

// FindItem returns the bin's row for itemID, or nil
func (b *Bin) FindItem(itemID uuid.UUID) *BinItem {
	for _, item := range b.Items {
		if item.ItemID == itemID {
			return item
		}
	}
	return nil
}

// BinView is the API representation of a bin with its capacity figures
type BinView struct {
	*Bin
	CurrentCapacity   int  `json:"current_capacity"`
	AvailableCapacity *int `json:"available_capacity"`
}

func NewBinView(b *Bin) *BinView {
	view := &BinView{Bin: b, CurrentCapacity: b.CurrentCapacity()}
	if available, limited := b.AvailableCapacity(); limited {
		view.AvailableCapacity = &available
	}
	return view
}

// BinFilter holds list criteria for bins
type BinFilter struct {
	Status *BinStatus `json:"status,omitempty"`
	Type   *BinType   `json:"type,omitempty"`
	Limit  int        `json:"limit,omitempty"`
	Offset int        `json:"offset,omitempty"`
}
