package models

import (
	"time"

	"github.com/google/uuid"
)

type IntegrityStatus string

const (
	IntegrityClean     IntegrityStatus = "CLEAN"
	IntegrityViolation IntegrityStatus = "VIOLATION"
)

// IntegrityReport compares a bin's physical stock with what its ledger explains
type IntegrityReport struct {
	BinID                 uuid.UUID       `json:"bin_id"`
	BinName               string          `json:"bin_name"`
	TotalBinQuantity      int             `json:"total_bin_quantity"`
	TotalLoggedAdditions  int             `json:"total_logged_additions"`
	TotalLoggedDeductions int             `json:"total_logged_deductions"`
	ExpectedQuantity      int             `json:"expected_quantity"`
	UnloggedStock         int             `json:"unlogged_stock"`
	Status                IntegrityStatus `json:"status"`
	HasStock              bool            `json:"has_stock"`
	CanAssignAgent        bool            `json:"can_assign_agent"`
	ReplayConsistent      bool            `json:"replay_consistent"`
	Items                 []ItemIntegrity `json:"items"`
	CheckedAt             time.Time       `json:"checked_at"`
}

type ItemIntegrity struct {
	ItemID         uuid.UUID `json:"item_id"`
	ItemName       string    `json:"item_name"`
	Quantity       int       `json:"quantity"`
	LedgerQuantity int       `json:"ledger_quantity"`
	UnloggedStock  int       `json:"unlogged_stock"`
}

// ComputeIntegrity applies the unlogged stock rule to a bin and its summed
// ledger totals. Unlogged stock is never negative: a ledger that explains more
// than the bin holds is still CLEAN.
func ComputeIntegrity(bin *Bin, totals LedgerTotals) *IntegrityReport {
	total := bin.CurrentCapacity()
	expected := totals.Expected()

	unlogged := total - expected
	if unlogged < 0 {
		unlogged = 0
	}

	status := IntegrityClean
	if unlogged > 0 {
		status = IntegrityViolation
	}

	hasStock := bin.HasStock()
	return &IntegrityReport{
		BinID:                 bin.ID,
		BinName:               bin.Name,
		TotalBinQuantity:      total,
		TotalLoggedAdditions:  totals.Additions,
		TotalLoggedDeductions: totals.Deductions,
		ExpectedQuantity:      expected,
		UnloggedStock:         unlogged,
		Status:                status,
		HasStock:              hasStock,
		CanAssignAgent:        hasStock && status == IntegrityClean,
		ReplayConsistent:      true,
		Items:                 []ItemIntegrity{},
		CheckedAt:             time.Now().UTC(),
	}
}

// AttachReplay fills the per-item breakdown from a ledger replay
func (r *IntegrityReport) AttachReplay(bin *Bin, replay *LedgerReplay) {
	r.ReplayConsistent = replay.Consistent
	r.Items = make([]ItemIntegrity, 0, len(bin.Items))
	for _, item := range bin.Items {
		logged := replay.Quantities[item.ItemID]
		unlogged := item.Quantity - logged
		if unlogged < 0 {
			unlogged = 0
		}
		r.Items = append(r.Items, ItemIntegrity{
			ItemID:         item.ItemID,
			ItemName:       item.ItemName,
			Quantity:       item.Quantity,
			LedgerQuantity: logged,
			UnloggedStock:  unlogged,
		})
	}
}

// LedgerReplay is the result of re-applying a bin's ledger in append order
type LedgerReplay struct {
	Quantities map[uuid.UUID]int
	Consistent bool
	// FirstMismatch is the id of the first entry whose before/after figures
	// disagree with the running total
	FirstMismatch *int64
}

// ReplayLedger re-applies addition and deduction entries in the order given.
// Entries must be sorted by id ascending.
func ReplayLedger(entries []*InventoryLog) *LedgerReplay {
	replay := &LedgerReplay{
		Quantities: make(map[uuid.UUID]int),
		Consistent: true,
	}

	for _, entry := range entries {
		if entry.ItemID == nil {
			continue
		}

		running := replay.Quantities[*entry.ItemID]
		var next int
		switch entry.Action {
		case ActionAddition:
			next = running + entry.Quantity
		case ActionDeduction:
			next = running - entry.Quantity
		default:
			continue
		}

		if replay.Consistent && (entry.QuantityBefore != running || entry.QuantityAfter != next) {
			replay.Consistent = false
			id := entry.ID
			replay.FirstMismatch = &id
		}
		replay.Quantities[*entry.ItemID] = next
	}

	return replay
}

// SweepSummary is the outcome of one scheduled integrity pass over all bins
type SweepSummary struct {
	StartedAt     time.Time        `json:"started_at"`
	FinishedAt    time.Time        `json:"finished_at"`
	BinsChecked   int              `json:"bins_checked"`
	Violations    int              `json:"violations"`
	Inconsistent  int              `json:"replay_inconsistent"`
	Errors        int              `json:"errors"`
	ViolatingBins []SweepViolation `json:"violating_bins"`
}

type SweepViolation struct {
	BinID            uuid.UUID `json:"bin_id"`
	BinName          string    `json:"bin_name"`
	UnloggedStock    int       `json:"unlogged_stock"`
	ReplayConsistent bool      `json:"replay_consistent"`
}
