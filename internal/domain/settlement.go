package domain

import "github.com/shopspring/decimal"

// SettlementKind is the terminal outcome of a settlement attempt.
type SettlementKind string

const (
	// SettlementSuccess — confirmed on the ledger, position removed.
	SettlementSuccess SettlementKind = "success"
	// SettlementCancelled — the user dismissed the wallet prompt. Neutral,
	// neither success nor error; the position stays unsettled.
	SettlementCancelled SettlementKind = "cancelled"
	// SettlementAlreadySettled — the backend/chain no longer knows the
	// receipt; treated as a removal with a warning, not an error.
	SettlementAlreadySettled SettlementKind = "already_settled"
	// SettlementFailed — anything else; the position stays unsettled.
	SettlementFailed SettlementKind = "failed"
)

// SettlementResult is what one SettlePosition call produces.
type SettlementResult struct {
	Kind      SettlementKind
	Position  Position
	Payout    decimal.Decimal // realized amount on success
	Signature string          // ledger signature on success
	Err       error           // set only for SettlementFailed
}

// Removed reports whether the position left the visible collection.
func (r SettlementResult) Removed() bool {
	return r.Kind == SettlementSuccess || r.Kind == SettlementAlreadySettled
}
