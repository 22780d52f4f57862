package engine

// settle.go — the settlement pipeline: build → (setup messages, each
// signed, relayed and confirmed in order) → sign primary → relay → confirm.
//
// The payout sign is the sole claim-vs-burn branch. Confirmed success
// removes the position optimistically and records its key in the
// locally-removed set so a concurrent refresh cannot resurrect it. Errors
// whose text means "already settled / not found" are reclassified into a
// successful removal — the chain is simply ahead of the client's view.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/danivega/stormbet/internal/domain"
	"github.com/danivega/stormbet/internal/ports"
)

// SettlePosition settles one position end to end. Cancellation is returned
// as a neutral outcome with a nil error; only SettlementFailed carries one.
func (e *Engine) SettlePosition(ctx context.Context, key domain.PositionKey) (domain.SettlementResult, error) {
	e.mu.Lock()
	var pos domain.Position
	idx := -1
	for i, p := range e.visible {
		if p.Key() == key {
			pos = p
			idx = i
			break
		}
	}
	if idx == -1 {
		e.mu.Unlock()
		return domain.SettlementResult{}, fmt.Errorf("engine.SettlePosition: position %s/%d not in collection", key.AssetID, key.MarketID)
	}
	if pos.IsClaiming {
		e.mu.Unlock()
		return domain.SettlementResult{}, fmt.Errorf("engine.SettlePosition: settlement already in progress for %s", key.AssetID)
	}
	e.visible[idx].IsClaiming = true
	e.stateSeq++
	e.mu.Unlock()

	// Watchdog: if the pipeline hangs (wallet never answers, confirmation
	// stalls) the transient flag still clears so the UI never gets stuck.
	watchdog := time.AfterFunc(e.watchdog, func() {
		slog.Warn("engine: settlement watchdog fired", "asset_id", key.AssetID)
		e.clearClaiming(key)
	})
	defer watchdog.Stop()
	defer e.clearClaiming(key)

	payout := pos.Payout()
	intent := ports.IntentBurnReceipt
	if payout.IsPositive() {
		intent = ports.IntentClaimPayout
	}
	params := ports.BuildParams{
		AssetID:  pos.AssetID,
		MarketID: pos.MarketID,
		Amount:   pos.Amount.String(),
		Side:     string(pos.Direction),
	}

	signature, err := e.runPipeline(ctx, intent, params)
	result := domain.SettlementResult{Position: pos, Signature: signature}

	switch {
	case err == nil:
		result.Kind = domain.SettlementSuccess
		result.Payout = payout
		e.removePosition(key)
		e.recordRealized(key, result)
		slog.Info("engine: settlement confirmed",
			"asset_id", key.AssetID, "intent", string(intent),
			"payout", payout.StringFixed(2), "signature", signature)

	case errors.Is(err, domain.ErrSigningCancelled):
		result.Kind = domain.SettlementCancelled
		slog.Info("engine: settlement cancelled by user", "asset_id", key.AssetID)

	case isAlreadySettled(err):
		// Backend and chain already diverged from our stale view; treat the
		// removal as done and warn instead of erroring.
		result.Kind = domain.SettlementAlreadySettled
		e.removePosition(key)
		slog.Warn("engine: position already settled elsewhere, removing",
			"asset_id", key.AssetID, "err", err)

	default:
		result.Kind = domain.SettlementFailed
		result.Err = err
		slog.Error("engine: settlement failed", "asset_id", key.AssetID, "err", err)
	}

	e.notifySettlement(ctx, result)
	if result.Kind == domain.SettlementFailed {
		return result, err
	}
	return result, nil
}

// runPipeline drives build → setup messages → primary message. Setup
// messages must each be confirmed strictly before the primary is signed.
func (e *Engine) runPipeline(ctx context.Context, intent ports.TxIntent, params ports.BuildParams) (string, error) {
	built, err := e.builder.Build(ctx, intent, params)
	if err != nil {
		return "", err
	}

	for i, setup := range built.SetupMessages {
		if _, err := e.signAndSend(ctx, setup, built.Reference); err != nil {
			return "", fmt.Errorf("setup message %d: %w", i, err)
		}
	}

	return e.signAndSend(ctx, built.Message, built.Reference)
}

// signAndSend signs one message, forwards it, and blocks until ledger
// confirmation. A stale wallet session gets exactly one reauthorize+retry.
func (e *Engine) signAndSend(ctx context.Context, message []byte, reference string) (string, error) {
	signed, err := e.signer.Sign(ctx, message)
	if errors.Is(err, domain.ErrWalletAuthStale) {
		slog.Info("engine: wallet session stale, reauthorizing")
		if _, raErr := e.signer.Reauthorize(ctx); raErr != nil {
			return "", fmt.Errorf("reauthorize: %w", raErr)
		}
		signed, err = e.signer.Sign(ctx, message)
	}
	if err != nil {
		return "", err
	}

	fwd, err := e.relay.Forward(ctx, signed, reference, ports.ForwardOptions{})
	if err != nil {
		return "", err
	}
	if err := e.relay.Confirm(ctx, fwd.Signature); err != nil {
		return "", err
	}
	return fwd.Signature, nil
}

// removePosition drops the key from the visible collection and records it
// in the locally-removed set.
func (e *Engine) removePosition(key domain.PositionKey) {
	e.mu.Lock()
	next := e.visible[:0:0]
	for _, p := range e.visible {
		if p.Key() != key {
			next = append(next, p)
		}
	}
	e.visible = next
	e.removed[key] = struct{}{}
	e.stateSeq++
	snapshot := make([]domain.Position, len(e.visible))
	copy(snapshot, e.visible)
	e.mu.Unlock()

	e.notifyPositions(context.Background(), snapshot)
}

func (e *Engine) recordRealized(key domain.PositionKey, result domain.SettlementResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.realized = append(e.realized, realizedPayout{Key: key, Result: result, RecordedAt: e.now()})
}

// clearClaiming resets the transient flag. Idempotent; runs from both the
// deferred cleanup and the watchdog.
func (e *Engine) clearClaiming(key domain.PositionKey) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.visible {
		if e.visible[i].Key() == key && e.visible[i].IsClaiming {
			e.visible[i].IsClaiming = false
			e.stateSeq++
		}
	}
}

func (e *Engine) notifySettlement(ctx context.Context, result domain.SettlementResult) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.SettlementFinished(ctx, result); err != nil {
		slog.Warn("engine: notifier error", "err", err)
	}
}

// isAlreadySettled matches both the sentinel and raw backend/ledger text.
func isAlreadySettled(err error) bool {
	if errors.Is(err, domain.ErrAlreadySettled) {
		return true
	}
	return domain.IsAlreadySettled(err.Error())
}
