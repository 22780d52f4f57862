package backend

import (
	"context"
	"fmt"

	"github.com/danivega/stormbet/internal/ports"
)

// AuthAPI implements ports.RefreshAPI against the unauthenticated refresh
// endpoint. Kept separate from Client: the session manager depends on this,
// while Client depends on the session manager for tokens.
type AuthAPI struct {
	client *Client
}

// NewAuthAPI creates the refresh-endpoint client for the given base URL.
func NewAuthAPI(base string) *AuthAPI {
	// tokens and owner are never consulted on the public path.
	return &AuthAPI{client: NewClient(base, nil, func() string { return "" })}
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
	DeviceID     string `json:"deviceId"`
}

type refreshResponse struct {
	AccessToken      string `json:"accessToken"`
	AccessExpiresAt  int64  `json:"accessExpiresAt"`
	RefreshToken     string `json:"refreshToken"`
	RefreshExpiresAt int64  `json:"refreshExpiresAt"`
}

// Refresh exchanges a refresh token for a new credential quadruple.
func (a *AuthAPI) Refresh(ctx context.Context, refreshToken, deviceID string) (ports.TokenQuad, error) {
	var resp refreshResponse
	err := a.client.postPublic(ctx, "/auth/refresh", refreshRequest{RefreshToken: refreshToken, DeviceID: deviceID}, &resp)
	if err != nil {
		return ports.TokenQuad{}, fmt.Errorf("backend.Refresh: %w", err)
	}
	if resp.AccessToken == "" {
		return ports.TokenQuad{}, fmt.Errorf("backend.Refresh: empty access token in response")
	}
	return ports.TokenQuad{
		AccessToken:      resp.AccessToken,
		AccessExpiresAt:  resp.AccessExpiresAt,
		RefreshToken:     resp.RefreshToken,
		RefreshExpiresAt: resp.RefreshExpiresAt,
	}, nil
}

// StreamURL returns the server-sent-events URL for out-of-band status
// updates on a signature. Consumed by the UI layer, not the engine.
func (c *Client) StreamURL(signature string) string {
	return c.base + "/tx/stream?signature=" + signature
}
