package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/danivega/stormbet/internal/domain"
)

// Console implements ports.Notifier for the headless CLI: a formatted table
// for the visible collection, one line per settlement outcome.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole creates a notifier that writes to stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter creates a notifier for tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// PositionsUpdated prints the current visible collection.
func (c *Console) PositionsUpdated(_ context.Context, positions []domain.Position) error {
	now := time.Now().Format("15:04:05")
	if len(positions) == 0 {
		fmt.Fprintf(c.out, "[%s] no open positions\n", now)
		return nil
	}

	if !c.table {
		fmt.Fprintf(c.out, "[%s] %d open positions\n", now, len(positions))
		return nil
	}

	tbl := tablewriter.NewWriter(c.out)
	tbl.Header("#", "Asset", "Market", "Side", "Amount", "Payout", "State")
	for i, p := range positions {
		question := "(hydrating...)"
		if p.Market != nil {
			question = truncate(p.Market.Question, 40)
		}
		state := "open"
		if p.IsClaiming {
			state = "claiming"
		}
		tbl.Append(
			fmt.Sprintf("%d", i+1),
			truncate(p.AssetID, 12),
			question,
			string(p.Direction),
			p.Amount.StringFixed(2),
			p.Payout().StringFixed(2)+" "+p.Currency(),
			state,
		)
	}
	tbl.Render()
	return nil
}

// SettlementFinished prints one line per terminal settlement outcome.
func (c *Console) SettlementFinished(_ context.Context, result domain.SettlementResult) error {
	now := time.Now().Format("15:04:05")
	asset := truncate(result.Position.AssetID, 12)

	switch result.Kind {
	case domain.SettlementSuccess:
		fmt.Fprintf(c.out, "[%s] SETTLED %s — received %s %s (sig %s)\n",
			now, asset, result.Payout.StringFixed(2), result.Position.Currency(),
			truncate(result.Signature, 16))
	case domain.SettlementCancelled:
		fmt.Fprintf(c.out, "[%s] cancelled — %s left unsettled\n", now, asset)
	case domain.SettlementAlreadySettled:
		fmt.Fprintf(c.out, "[%s] WARNING: %s was already settled elsewhere, removed from view\n", now, asset)
	case domain.SettlementFailed:
		fmt.Fprintf(c.out, "[%s] FAILED %s — %v (position unchanged, safe to retry)\n", now, asset, result.Err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
