package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LedgerAction string

const (
	ActionAddition        LedgerAction = "addition"
	ActionDeduction       LedgerAction = "deduction"
	ActionAgentAssignment LedgerAction = "agent_assignment"
)

// InventoryLog is an immutable ledger entry. Entries are keyed to the bin by
// its id; BinLocation keeps the bin's display name at write time.
type InventoryLog struct {
	ID             int64          `json:"id" db:"id"`
	BinID          uuid.UUID      `json:"bin_id" db:"bin_id"`
	BinLocation    string         `json:"bin_location" db:"bin_location"`
	ItemID         *uuid.UUID     `json:"item_id" db:"item_id"`
	ItemName       string         `json:"item_name" db:"item_name"`
	Action         LedgerAction   `json:"action" db:"action"`
	Quantity       int            `json:"quantity" db:"quantity"`
	QuantityBefore int            `json:"quantity_before" db:"quantity_before"`
	QuantityAfter  int            `json:"quantity_after" db:"quantity_after"`
	UserID         *uuid.UUID     `json:"user_id" db:"user_id"`
	Unattributed   bool           `json:"unattributed" db:"unattributed"`
	Note           string         `json:"note" db:"note"`
	Metadata       LedgerMetadata `json:"metadata" db:"metadata"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
}

// LedgerMetadata is the action-specific payload of a ledger entry
type LedgerMetadata interface {
	Action() LedgerAction
}

type AdditionMetadata struct {
	BinID       uuid.UUID       `json:"bin_id"`
	ItemID      uuid.UUID       `json:"item_id"`
	CostPerUnit decimal.Decimal `json:"cost_per_unit"`
	ItemCreated bool            `json:"item_created"`
	RecordedAt  time.Time       `json:"recorded_at"`
}

func (AdditionMetadata) Action() LedgerAction { return ActionAddition }

type DeductionMetadata struct {
	BinID      uuid.UUID `json:"bin_id"`
	ItemID     uuid.UUID `json:"item_id"`
	Reason     string    `json:"reason"`
	RecordedAt time.Time `json:"recorded_at"`
}

func (DeductionMetadata) Action() LedgerAction { return ActionDeduction }

type AssignmentMetadata struct {
	BinID         uuid.UUID `json:"bin_id"`
	PreviousAgent *string   `json:"previous_agent"`
	NewAgent      string    `json:"new_agent"`
	NewPhone      string    `json:"new_phone"`
	RecordedAt    time.Time `json:"recorded_at"`
}

func (AssignmentMetadata) Action() LedgerAction { return ActionAgentAssignment }

// EncodeLedgerMetadata serializes metadata for the JSONB column
func EncodeLedgerMetadata(m LedgerMetadata) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// LegacyMetadata carries metadata that predates the typed variants, such as
// rows backfilled from the old ledger with numeric bin ids or free-form keys.
// The payload is kept verbatim and re-encodes unchanged.
type LegacyMetadata struct {
	Kind LedgerAction
	Raw  json.RawMessage
}

func (m LegacyMetadata) Action() LedgerAction { return m.Kind }

func (m LegacyMetadata) MarshalJSON() ([]byte, error) {
	if len(m.Raw) == 0 {
		return []byte("null"), nil
	}
	return m.Raw, nil
}

// DecodeLedgerMetadata picks the metadata variant from the entry's action.
// Payloads that do not match the variant exactly come back as LegacyMetadata;
// only malformed JSON is an error.
func DecodeLedgerMetadata(action LedgerAction, raw []byte) (LedgerMetadata, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("invalid %s metadata: not valid JSON", action)
	}

	var target LedgerMetadata
	switch action {
	case ActionAddition:
		var m AdditionMetadata
		if decodeStrict(raw, &m) {
			target = m
		}
	case ActionDeduction:
		var m DeductionMetadata
		if decodeStrict(raw, &m) {
			target = m
		}
	case ActionAgentAssignment:
		var m AssignmentMetadata
		if decodeStrict(raw, &m) {
			target = m
		}
	}
	if target == nil {
		return LegacyMetadata{Kind: action, Raw: append(json.RawMessage(nil), raw...)}, nil
	}
	return target, nil
}

func decodeStrict(raw []byte, v interface{}) bool {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v) == nil
}

// Actor identifies who performed a ledger write. A nil UserID marks the write
// as unattributed.
type Actor struct {
	UserID *uuid.UUID
}

func AttributedTo(userID uuid.UUID) Actor {
	return Actor{UserID: &userID}
}

func UnattributedActor() Actor {
	return Actor{}
}

func (a Actor) Unattributed() bool {
	return a.UserID == nil
}

// InventoryLogFilter holds paging for a bin's ledger
type InventoryLogFilter struct {
	Action *LedgerAction `json:"action,omitempty"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// LedgerTotals are the summed logged quantities for a bin
type LedgerTotals struct {
	Additions  int `json:"total_logged_additions"`
	Deductions int `json:"total_logged_deductions"`
}

func (t LedgerTotals) Expected() int {
	return t.Additions - t.Deductions
}
