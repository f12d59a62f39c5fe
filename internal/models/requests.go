package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateBinRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Type        BinType `json:"type" validate:"omitempty,oneof=generic delivery_agent"`
	MaxCapacity *int    `json:"max_capacity" validate:"omitempty,min=0,max=2147483647"`
}

type AssignAgentRequest struct {
	AgentCode  string `json:"agent_code" validate:"required,max=100"`
	AgentPhone string `json:"agent_phone" validate:"required,max=32"`
}

type DeductInventoryRequest struct {
	ItemID   uuid.UUID  `json:"item_id" validate:"required"`
	Quantity int        `json:"quantity" validate:"min=1,max=2147483647"`
	Reason   string     `json:"reason" validate:"required,max=255"`
	UserID   *uuid.UUID `json:"user_id,omitempty"`
}

type AddInventoryRequest struct {
	ItemID      uuid.UUID        `json:"item_id" validate:"required"`
	ItemName    string           `json:"item_name" validate:"required,max=255"`
	Quantity    int              `json:"quantity" validate:"min=1,max=2147483647"`
	CostPerUnit *decimal.Decimal `json:"cost_per_unit,omitempty"`
	Notes       string           `json:"notes" validate:"max=1000"`
	UserID      *uuid.UUID       `json:"user_id,omitempty"`
}

// MovementResult is returned by a committed add or deduct
type MovementResult struct {
	Item              *BinItem      `json:"item"`
	RemainingQuantity int           `json:"remaining_quantity"`
	LedgerEntry       *InventoryLog `json:"ledger_entry"`
	Logged            bool          `json:"logged"`
}

// ArchiveResult describes one run of the ledger archive export
type ArchiveResult struct {
	Objects  []string `json:"objects"`
	Entries  int      `json:"entries"`
	FromID   int64    `json:"from_id"`
	ToID     int64    `json:"to_id"`
	Archived bool     `json:"archived"`
}
