package engine

// hydrate.go — background enrichment of positions missing their market
// summary. Lookups run in small concurrency-bounded batches so the initial
// refresh never bursts the backend; each batch merges back with a single
// state update. Per-item failures are logged and skipped — one bad lookup
// must not block the rest of the batch or the visible list.

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/danivega/stormbet/internal/domain"
)

func (e *Engine) hydrateMissing(ctx context.Context, marketIDs []int64) {
	// Let the initial render settle before hitting the backend.
	if e.hydrateDelay > 0 {
		select {
		case <-time.After(e.hydrateDelay):
		case <-ctx.Done():
			return
		}
	}

	for start := 0; start < len(marketIDs); start += hydrationConcurrency {
		end := min(start+hydrationConcurrency, len(marketIDs))
		batch := marketIDs[start:end]

		found := make(map[int64]domain.Market, len(batch))
		var mu sync.Mutex

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(hydrationConcurrency)
		for _, id := range batch {
			id := id
			g.Go(func() error {
				m, err := e.markets.FetchMarket(gctx, id)
				if err != nil {
					// Non-fatal: skip this market, hydrate the rest.
					slog.Warn("engine: market hydration failed", "market_id", id, "err", err)
					return nil
				}
				mu.Lock()
				found[id] = m
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		if len(found) > 0 {
			e.mergeMarkets(ctx, found)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// mergeMarkets fills in market summaries in one state update. When nothing
// actually changes, the version stays put and no notification goes out.
func (e *Engine) mergeMarkets(ctx context.Context, found map[int64]domain.Market) {
	e.mu.Lock()
	changed := false
	for i := range e.visible {
		m, ok := found[e.visible[i].MarketID]
		if !ok {
			continue
		}
		if e.visible[i].Market != nil && *e.visible[i].Market == m {
			continue
		}
		mCopy := m
		e.visible[i].Market = &mCopy
		changed = true
	}
	if changed {
		e.stateSeq++
	}
	snapshot := make([]domain.Position, len(e.visible))
	copy(snapshot, e.visible)
	e.mu.Unlock()

	if changed {
		e.notifyPositions(ctx, snapshot)
	}
}
