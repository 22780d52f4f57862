package domain_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/danivega/stormbet/internal/domain"
)

func resolvedMarket(outcome domain.Direction) *domain.Market {
	return &domain.Market{
		ID:       42,
		Question: "Will it rain in Miami tomorrow?",
		Currency: "USDC",
		Resolved: true,
		Outcome:  outcome,
		EndDate:  time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
}

func TestPayout_WinningPosition(t *testing.T) {
	p := domain.Position{
		AssetID:   "asset-1",
		MarketID:  42,
		Amount:    decimal.RequireFromString("50.00"),
		Direction: domain.DirectionYes,
		Market:    resolvedMarket(domain.DirectionYes),
	}
	assert.Equal(t, "50.00", p.Payout().StringFixed(2))
}

func TestPayout_LosingPosition(t *testing.T) {
	p := domain.Position{
		AssetID:   "asset-1",
		MarketID:  42,
		Amount:    decimal.RequireFromString("50.00"),
		Direction: domain.DirectionNo,
		Market:    resolvedMarket(domain.DirectionYes),
	}
	assert.True(t, p.Payout().IsZero())
}

func TestPayout_UnhydratedOrUnresolved(t *testing.T) {
	p := domain.Position{Amount: decimal.RequireFromString("10"), Direction: domain.DirectionYes}
	assert.True(t, p.Payout().IsZero(), "unhydrated position pays nothing")

	m := resolvedMarket(domain.DirectionYes)
	m.Resolved = false
	p.Market = m
	assert.True(t, p.Payout().IsZero(), "unresolved market pays nothing")
}

func TestAccessValid_Boundary(t *testing.T) {
	now := time.Now()
	cred := domain.SessionCredential{AccessExpiresAt: now}
	assert.False(t, cred.AccessValid(now), "a token exactly at expiry is expired")
	assert.True(t, cred.AccessValid(now.Add(-time.Nanosecond)))
}

func TestRefreshValid_SafetyMargin(t *testing.T) {
	now := time.Now()
	cred := domain.SessionCredential{RefreshExpiresAt: now.Add(domain.RefreshSafetyMargin)}
	assert.False(t, cred.RefreshValid(now), "inside the margin counts as unusable")

	cred.RefreshExpiresAt = now.Add(domain.RefreshSafetyMargin + time.Second)
	assert.True(t, cred.RefreshValid(now))
}

func TestPositionEqual(t *testing.T) {
	base := domain.Position{
		AssetID:   "asset-1",
		MarketID:  42,
		Amount:    decimal.RequireFromString("50.00"),
		Direction: domain.DirectionYes,
		Market:    resolvedMarket(domain.DirectionYes),
	}

	same := base
	m := *base.Market
	same.Market = &m
	assert.True(t, base.Equal(same), "distinct pointers to equal markets compare equal")

	hydratedDiff := base
	m2 := *base.Market
	m2.Question = "different"
	hydratedDiff.Market = &m2
	assert.False(t, base.Equal(hydratedDiff))

	claiming := base
	claiming.IsClaiming = true
	assert.False(t, base.Equal(claiming))

	unhydrated := base
	unhydrated.Market = nil
	assert.False(t, base.Equal(unhydrated))
}

func TestWalletAuthorizationSelected(t *testing.T) {
	auth := domain.WalletAuthorization{
		Accounts: []domain.Account{
			{Address: "addr-1", Label: "main"},
			{Address: "addr-2", Label: "cold"},
		},
	}
	auth.SelectedAccount = auth.Accounts[1]
	assert.Equal(t, "addr-2", auth.Selected())
}
