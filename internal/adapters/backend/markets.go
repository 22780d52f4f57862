package backend

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danivega/stormbet/internal/domain"
)

type marketDTO struct {
	ID         int64  `json:"id"`
	Question   string `json:"question"`
	Slug       string `json:"slug"`
	Currency   string `json:"currency"`
	Resolved   bool   `json:"resolved"`
	Outcome    string `json:"outcome,omitempty"`
	ResolvedAt int64  `json:"resolvedAt,omitempty"` // unix seconds
	EndDate    int64  `json:"endDate"`              // unix seconds
}

func (dto marketDTO) toDomain() domain.Market {
	m := domain.Market{
		ID:       dto.ID,
		Question: dto.Question,
		Slug:     dto.Slug,
		Currency: dto.Currency,
		Resolved: dto.Resolved,
		Outcome:  domain.Direction(dto.Outcome),
		EndDate:  time.Unix(dto.EndDate, 0).UTC(),
	}
	if dto.ResolvedAt > 0 {
		m.ResolvedAt = time.Unix(dto.ResolvedAt, 0).UTC()
	}
	return m
}

// FetchMarket implements ports.MarketProvider for one market by ID. Used by
// the engine's hydration batches.
func (c *Client) FetchMarket(ctx context.Context, id int64) (domain.Market, error) {
	var dto marketDTO
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/markets/%d", id), nil, &dto, nil); err != nil {
		return domain.Market{}, fmt.Errorf("backend.FetchMarket %d: %w", id, err)
	}
	return dto.toDomain(), nil
}

// FetchMarkets lists markets for a view: "" (all), "active", "observing",
// or "resolved" with a lastHours window.
func (c *Client) FetchMarkets(ctx context.Context, view string, lastHours int) ([]domain.Market, error) {
	path := "/markets"
	switch view {
	case "":
	case "active", "observing":
		path += "/" + view
	case "resolved":
		path = fmt.Sprintf("/markets/resolved?lastHours=%d", lastHours)
	default:
		return nil, fmt.Errorf("backend.FetchMarkets: unknown view %q", view)
	}

	var dtos []marketDTO
	if err := c.do(ctx, http.MethodGet, path, nil, &dtos, nil); err != nil {
		return nil, fmt.Errorf("backend.FetchMarkets: %w", err)
	}

	markets := make([]domain.Market, 0, len(dtos))
	for _, dto := range dtos {
		markets = append(markets, dto.toDomain())
	}
	return markets, nil
}
