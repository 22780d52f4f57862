package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the side of a binary market a position is staked on.
type Direction string

const (
	DirectionYes Direction = "YES"
	DirectionNo  Direction = "NO"
)

// PositionKey uniquely identifies a position within the visible collection.
type PositionKey struct {
	AssetID  string
	MarketID int64
}

// Market is the reference summary embedded in a hydrated position.
type Market struct {
	ID         int64
	Question   string
	Slug       string
	Currency   string
	Resolved   bool
	Outcome    Direction // valid only when Resolved
	ResolvedAt time.Time // zero when unresolved
	EndDate    time.Time
}

// Position is one open claim receipt held by the user. Market is nil until
// hydration fills it in. IsClaiming is a transient UI flag, never persisted.
type Position struct {
	AssetID       string
	PositionID    string
	PositionNonce int64
	MarketID      int64
	Amount        decimal.Decimal // display units
	Direction     Direction
	Market        *Market
	IsClaiming    bool
}

// Key returns the identity key of the position.
func (p Position) Key() PositionKey {
	return PositionKey{AssetID: p.AssetID, MarketID: p.MarketID}
}

// Hydrated reports whether the market summary has been filled in.
func (p Position) Hydrated() bool {
	return p.Market != nil
}

// Payout is the realized amount if the position were settled now. Winning
// receipts redeem 1:1 in display units; losing or unresolved receipts pay
// zero. The sign of this value is the sole claim-vs-burn branch.
func (p Position) Payout() decimal.Decimal {
	if p.Market == nil || !p.Market.Resolved {
		return decimal.Zero
	}
	if p.Market.Outcome != p.Direction {
		return decimal.Zero
	}
	return p.Amount
}

// Currency returns the market's display currency, or "USDC" before hydration.
func (p Position) Currency() string {
	if p.Market != nil && p.Market.Currency != "" {
		return p.Market.Currency
	}
	return "USDC"
}

// Equal reports whether two positions are identical in every visible field.
// Used by the hydration merge to skip no-op state updates.
func (p Position) Equal(o Position) bool {
	if p.AssetID != o.AssetID || p.PositionID != o.PositionID ||
		p.PositionNonce != o.PositionNonce || p.MarketID != o.MarketID ||
		p.Direction != o.Direction || !p.Amount.Equal(o.Amount) ||
		p.IsClaiming != o.IsClaiming {
		return false
	}
	if (p.Market == nil) != (o.Market == nil) {
		return false
	}
	if p.Market != nil && *p.Market != *o.Market {
		return false
	}
	return true
}
