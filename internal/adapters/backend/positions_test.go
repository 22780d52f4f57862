package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danivega/stormbet/internal/domain"
)

func TestFetchPositions_MapsDTOs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/nft/fetch-valid-positions", r.URL.Path)

		var req fetchPositionsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, testWallet, req.OwnerAddress)
		assert.Equal(t, "mainnet", req.Network)
		assert.Equal(t, 100, req.Limit)

		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": []map[string]any{
				{
					"assetId":       "asset-1",
					"positionId":    "pos-1",
					"positionNonce": 7,
					"amount":        "50.00",
					"direction":     "YES",
					"marketId":      42,
					"market": map[string]any{
						"id":         42,
						"question":   "Will it rain in Miami tomorrow?",
						"currency":   "USDC",
						"resolved":   true,
						"outcome":    "YES",
						"resolvedAt": 1756600000,
						"endDate":    1756500000,
					},
				},
				{
					"assetId":   "asset-2",
					"amount":    "12.5",
					"direction": "NO",
					"marketId":  43,
				},
			},
		})
	}))
	defer srv.Close()

	client, _ := newTestClient(srv.URL)
	positions, err := client.FetchPositions(context.Background(), testWallet, domain.NetworkMainnet, 100)
	require.NoError(t, err)
	require.Len(t, positions, 2)

	first := positions[0]
	assert.Equal(t, "asset-1", first.AssetID)
	assert.Equal(t, "pos-1", first.PositionID)
	assert.Equal(t, int64(7), first.PositionNonce)
	assert.Equal(t, "50.00", first.Amount.StringFixed(2))
	assert.Equal(t, domain.DirectionYes, first.Direction)
	require.True(t, first.Hydrated())
	assert.Equal(t, time.Unix(1756600000, 0).UTC(), first.Market.ResolvedAt)
	assert.Equal(t, "50.00", first.Payout().StringFixed(2))

	second := positions[1]
	assert.False(t, second.Hydrated(), "market summary arrives later via hydration")
	assert.Equal(t, domain.DirectionNo, second.Direction)
}

func TestFetchPositions_BackendFailureFlag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false})
	}))
	defer srv.Close()

	client, _ := newTestClient(srv.URL)
	_, err := client.FetchPositions(context.Background(), testWallet, domain.NetworkMainnet, 100)
	assert.Error(t, err)
}

func TestFetchPositions_BadAmount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": []map[string]any{
				{"assetId": "asset-1", "amount": "not-a-number", "direction": "YES", "marketId": 1},
			},
		})
	}))
	defer srv.Close()

	client, _ := newTestClient(srv.URL)
	_, err := client.FetchPositions(context.Background(), testWallet, domain.NetworkMainnet, 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "asset-1")
}

func TestFetchMarket_MapsTimestamps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets/42", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"id":       42,
			"question": "Heat wave in Phoenix?",
			"slug":     "heat-wave-phoenix",
			"currency": "USDC",
			"resolved": false,
			"endDate":  1756500000,
		})
	}))
	defer srv.Close()

	client, _ := newTestClient(srv.URL)
	m, err := client.FetchMarket(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, int64(42), m.ID)
	assert.Equal(t, time.Unix(1756500000, 0).UTC(), m.EndDate)
	assert.True(t, m.ResolvedAt.IsZero(), "unresolved market carries no resolution time")
}

func TestFetchMarkets_ResolvedView(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets/resolved", r.URL.Path)
		assert.Equal(t, "48", r.URL.Query().Get("lastHours"))
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": 1, "question": "q1", "resolved": true, "outcome": "NO", "endDate": 1756500000},
		})
	}))
	defer srv.Close()

	client, _ := newTestClient(srv.URL)
	markets, err := client.FetchMarkets(context.Background(), "resolved", 48)
	require.NoError(t, err)
	require.Len(t, markets, 1)
	assert.Equal(t, domain.DirectionNo, markets[0].Outcome)
}

func TestFetchMarkets_UnknownView(t *testing.T) {
	client, _ := newTestClient("http://127.0.0.1:0")
	_, err := client.FetchMarkets(context.Background(), "archived", 0)
	assert.Error(t, err)
}
