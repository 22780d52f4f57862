package engine

// engine.go — the position reconciliation engine. Owns the authoritative
// in-memory collection of open positions and the locally-removed set that
// keeps optimistically-removed positions from resurrecting while the
// backend's own records catch up.
//
// All mutations replace whole state under one mutex; callers get copies.

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/danivega/stormbet/internal/domain"
	"github.com/danivega/stormbet/internal/ports"
)

const (
	// A Refresh within this window of the previous one reuses that call's
	// result instead of issuing a new fetch.
	refreshThrottle = 1500 * time.Millisecond

	fetchLimit = 100

	// Hydration: lookups run 4 at a time, after a short delay that lets the
	// initial render settle.
	hydrationConcurrency = 4
	hydrationSettleDelay = 250 * time.Millisecond

	// Watchdog clearing the transient claiming flag if the pipeline hangs.
	settleWatchdogTimeout = 30 * time.Second
)

// refreshCall is one in-flight refresh shared by throttled callers.
type refreshCall struct {
	done chan struct{}
	err  error
}

// realizedPayout records one confirmed settlement for display.
type realizedPayout struct {
	Key       domain.PositionKey
	Result    domain.SettlementResult
	RecordedAt time.Time
}

// Engine coordinates credential, builder, signer, relay and position state.
type Engine struct {
	tokens    ports.TokenSource
	positions ports.PositionProvider
	markets   ports.MarketProvider
	builder   ports.TxBuilder
	signer    ports.WalletSigner
	relay     ports.TxRelay
	notifier  ports.Notifier
	network   domain.NetworkTier

	mu          sync.Mutex
	owner       string
	visible     []domain.Position
	removed     map[domain.PositionKey]struct{}
	realized    []realizedPayout
	stateSeq    uint64
	lastRefresh time.Time
	lastErr     error
	inflight    *refreshCall

	now          func() time.Time
	hydrateDelay time.Duration
	watchdog     time.Duration
}

// New wires the engine to its collaborators.
func New(
	tokens ports.TokenSource,
	positions ports.PositionProvider,
	markets ports.MarketProvider,
	builder ports.TxBuilder,
	signer ports.WalletSigner,
	relay ports.TxRelay,
	notifier ports.Notifier,
	network domain.NetworkTier,
) *Engine {
	return &Engine{
		tokens:       tokens,
		positions:    positions,
		markets:      markets,
		builder:      builder,
		signer:       signer,
		relay:        relay,
		notifier:     notifier,
		network:      network,
		removed:      make(map[domain.PositionKey]struct{}),
		now:          time.Now,
		hydrateDelay: hydrationSettleDelay,
		watchdog:     settleWatchdogTimeout,
	}
}

// SetOwner records a wallet/network identity change: clears the visible
// collection, the locally-removed set and the throttle state. The caller is
// expected to trigger a fresh Refresh afterwards.
func (e *Engine) SetOwner(address string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if strings.EqualFold(e.owner, address) {
		return
	}
	e.owner = address
	e.visible = nil
	e.removed = make(map[domain.PositionKey]struct{})
	e.lastRefresh = time.Time{}
	e.lastErr = nil
	e.stateSeq++
	slog.Info("engine: identity changed, state reset", "owner", address)
}

// Owner returns the connected wallet address, or "".
func (e *Engine) Owner() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.owner
}

// Positions returns a copy of the visible collection.
func (e *Engine) Positions() []domain.Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Position, len(e.visible))
	copy(out, e.visible)
	return out
}

// Version increments on every visible-state change. A hydration merge that
// changes nothing leaves it untouched.
func (e *Engine) Version() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateSeq
}

// Refresh fetches position metadata, drops locally-removed keys, replaces
// the visible collection and schedules hydration of positions missing their
// market summary. Calls inside the throttle window share the previous
// call's result instead of fetching again.
func (e *Engine) Refresh(ctx context.Context) error {
	e.mu.Lock()
	if e.owner == "" {
		e.mu.Unlock()
		return domain.ErrNotConnected
	}
	if call := e.inflight; call != nil {
		e.mu.Unlock()
		select {
		case <-call.done:
			return call.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if !e.lastRefresh.IsZero() && e.now().Sub(e.lastRefresh) < refreshThrottle {
		err := e.lastErr
		e.mu.Unlock()
		return err
	}
	call := &refreshCall{done: make(chan struct{})}
	e.inflight = call
	e.lastRefresh = e.now()
	owner := e.owner
	e.mu.Unlock()

	err := e.doRefresh(ctx, owner)

	e.mu.Lock()
	e.lastErr = err
	e.inflight = nil
	e.mu.Unlock()
	call.err = err
	close(call.done)
	return err
}

func (e *Engine) doRefresh(ctx context.Context, owner string) error {
	// Validate the session credential up front; this refreshes it if expired.
	if _, err := e.tokens.EnsureToken(ctx, false); err != nil {
		return err
	}

	fetched, err := e.positions.FetchPositions(ctx, owner, e.network, fetchLimit)
	if err != nil {
		return fmt.Errorf("engine.Refresh: %w", err)
	}

	e.mu.Lock()
	if !strings.EqualFold(e.owner, owner) {
		// Identity changed while the fetch was in flight; drop the result.
		e.mu.Unlock()
		return nil
	}

	existing := make(map[domain.PositionKey]domain.Position, len(e.visible))
	for _, p := range e.visible {
		existing[p.Key()] = p
	}

	next := make([]domain.Position, 0, len(fetched))
	var missing []int64
	for _, p := range fetched {
		key := p.Key()
		if _, gone := e.removed[key]; gone {
			continue
		}
		if prev, ok := existing[key]; ok {
			// Keep hydrated market data and the transient claiming flag
			// across refreshes so re-fetching unchanged data is a no-op.
			if p.Market == nil {
				p.Market = prev.Market
			}
			p.IsClaiming = prev.IsClaiming
		}
		if p.Market == nil {
			missing = append(missing, p.MarketID)
		}
		next = append(next, p)
	}

	changed := e.replaceVisibleLocked(next)
	snapshot := make([]domain.Position, len(e.visible))
	copy(snapshot, e.visible)
	e.mu.Unlock()

	if changed {
		e.notifyPositions(ctx, snapshot)
	}

	if len(missing) > 0 {
		go e.hydrateMissing(context.WithoutCancel(ctx), dedupe(missing))
	}
	return nil
}

// replaceVisibleLocked swaps the collection, bumping the version only when
// something actually differs. Caller holds e.mu.
func (e *Engine) replaceVisibleLocked(next []domain.Position) bool {
	if len(next) == len(e.visible) {
		same := true
		for i := range next {
			if !next[i].Equal(e.visible[i]) {
				same = false
				break
			}
		}
		if same {
			return false
		}
	}
	e.visible = next
	e.stateSeq++
	return true
}

// markRemoved adds a key to the locally-removed set.
func (e *Engine) markRemoved(key domain.PositionKey) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.removed[key] = struct{}{}
}

// isRemoved reports whether a key is in the locally-removed set.
func (e *Engine) isRemoved(key domain.PositionKey) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.removed[key]
	return ok
}

// RealizedPayouts returns the confirmed settlements recorded this session.
func (e *Engine) RealizedPayouts() []domain.SettlementResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.SettlementResult, 0, len(e.realized))
	for _, r := range e.realized {
		out = append(out, r.Result)
	}
	return out
}

func (e *Engine) notifyPositions(ctx context.Context, snapshot []domain.Position) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.PositionsUpdated(ctx, snapshot); err != nil {
		slog.Warn("engine: notifier error", "err", err)
	}
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
