package ports

import (
	"context"

	"github.com/danivega/stormbet/internal/domain"
)

// PositionProvider fetches the user's open claim receipts from the backend.
type PositionProvider interface {
	// FetchPositions returns the raw position metadata for the owner on the
	// given network. Positions may arrive without their market summary.
	FetchPositions(ctx context.Context, owner string, network domain.NetworkTier, limit int) ([]domain.Position, error)
}

// MarketProvider fetches market reference data.
type MarketProvider interface {
	// FetchMarket returns one market summary by ID.
	FetchMarket(ctx context.Context, id int64) (domain.Market, error)

	// FetchMarkets lists markets for the given view: "", "active",
	// "observing" or "resolved".
	FetchMarkets(ctx context.Context, view string, lastHours int) ([]domain.Market, error)
}
