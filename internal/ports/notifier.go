package ports

import (
	"context"

	"github.com/danivega/stormbet/internal/domain"
)

// Notifier is the engine's only surface toward the UI layer. The engine
// never renders; it hands over state and outcomes.
type Notifier interface {
	// PositionsUpdated reports the new visible collection after a refresh
	// or a hydration merge.
	PositionsUpdated(ctx context.Context, positions []domain.Position) error

	// SettlementFinished reports the terminal outcome of one settlement:
	// success (with payout), cancelled, already-settled warning, or failure.
	SettlementFinished(ctx context.Context, result domain.SettlementResult) error
}
