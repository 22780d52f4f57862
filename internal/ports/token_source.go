package ports

import "context"

// TokenSource yields a usable access token for backend calls. Implemented by
// the session manager; adapters call it instead of touching storage.
type TokenSource interface {
	// EnsureToken returns a valid access token, refreshing if needed. With
	// force set, any cached token is discarded first. Concurrent callers
	// during an in-flight refresh all observe the same result.
	EnsureToken(ctx context.Context, force bool) (string, error)
}

// RefreshAPI mints a new credential quadruple from a refresh token.
type RefreshAPI interface {
	// Refresh exchanges the refresh token for new access/refresh tokens.
	// Returns the raw quadruple; the caller stamps the owner identity.
	Refresh(ctx context.Context, refreshToken, deviceID string) (TokenQuad, error)
}

// TokenQuad is the backend's refresh response.
type TokenQuad struct {
	AccessToken      string
	AccessExpiresAt  int64 // unix seconds
	RefreshToken     string
	RefreshExpiresAt int64 // unix seconds
}
