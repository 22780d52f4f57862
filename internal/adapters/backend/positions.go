package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/danivega/stormbet/internal/domain"
)

type fetchPositionsRequest struct {
	OwnerAddress string `json:"ownerAddress"`
	Network      string `json:"network"`
	MarketID     int64  `json:"marketId,omitempty"`
	Limit        int    `json:"limit"`
}

type positionDTO struct {
	AssetID       string     `json:"assetId"`
	PositionID    string     `json:"positionId"`
	PositionNonce int64      `json:"positionNonce"`
	Amount        string     `json:"amount"`
	Direction     string     `json:"direction"`
	MarketID      int64      `json:"marketId"`
	Market        *marketDTO `json:"market,omitempty"`
}

type fetchPositionsResponse struct {
	Success bool          `json:"success"`
	Data    []positionDTO `json:"data"`
}

// FetchPositions implements ports.PositionProvider: the user's open claim
// receipts, possibly without their market summary (hydrated later).
func (c *Client) FetchPositions(ctx context.Context, owner string, network domain.NetworkTier, limit int) ([]domain.Position, error) {
	req := fetchPositionsRequest{OwnerAddress: owner, Network: string(network), Limit: limit}

	var resp fetchPositionsResponse
	if err := c.do(ctx, http.MethodPost, "/nft/fetch-valid-positions", req, &resp, nil); err != nil {
		return nil, fmt.Errorf("backend.FetchPositions: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("backend.FetchPositions: backend reported failure")
	}

	positions := make([]domain.Position, 0, len(resp.Data))
	for _, dto := range resp.Data {
		p, err := dto.toDomain()
		if err != nil {
			return nil, fmt.Errorf("backend.FetchPositions: asset %s: %w", dto.AssetID, err)
		}
		positions = append(positions, p)
	}
	return positions, nil
}

func (dto positionDTO) toDomain() (domain.Position, error) {
	amount, err := decimal.NewFromString(dto.Amount)
	if err != nil {
		return domain.Position{}, fmt.Errorf("parse amount %q: %w", dto.Amount, err)
	}
	p := domain.Position{
		AssetID:       dto.AssetID,
		PositionID:    dto.PositionID,
		PositionNonce: dto.PositionNonce,
		MarketID:      dto.MarketID,
		Amount:        amount,
		Direction:     domain.Direction(dto.Direction),
	}
	if dto.Market != nil {
		m := dto.Market.toDomain()
		p.Market = &m
	}
	return p, nil
}
