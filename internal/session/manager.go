package session

// manager.go — credential lifecycle: the single path by which anything in
// the process obtains a usable access token.
//
// Correctness property: overlapping callers during an in-flight load/refresh
// share one underlying operation (singleflight) and all observe the same
// token or the same failure. The in-memory cache never outlives the durable
// record's validity and is cleared on every failure path.

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/danivega/stormbet/internal/domain"
	"github.com/danivega/stormbet/internal/ports"
)

type cachedToken struct {
	token     string
	expiresAt time.Time
}

// Manager implements ports.TokenSource over a durable CredentialStore and
// the backend refresh endpoint.
type Manager struct {
	store    ports.CredentialStore
	api      ports.RefreshAPI
	deviceID string

	mu       sync.Mutex
	identity string
	cached   *cachedToken

	group singleflight.Group

	now func() time.Time
}

// New creates a manager bound to the given store and refresh API. deviceID
// correlates refresh requests from this installation.
func New(store ports.CredentialStore, api ports.RefreshAPI, deviceID string) *Manager {
	return &Manager{
		store:    store,
		api:      api,
		deviceID: deviceID,
		now:      time.Now,
	}
}

// SetIdentity records the connected wallet address. Changing identity drops
// the in-memory cache; the durable record is validated lazily on next use.
func (m *Manager) SetIdentity(address string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !strings.EqualFold(m.identity, address) {
		m.cached = nil
	}
	m.identity = address
}

// Identity returns the connected wallet address, or "".
func (m *Manager) Identity() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity
}

// StoreCredential adopts a freshly issued credential (sign-in/sign-up path)
// and primes the cache.
func (m *Manager) StoreCredential(ctx context.Context, cred domain.SessionCredential) error {
	if err := m.store.SaveCredential(ctx, cred); err != nil {
		return fmt.Errorf("session.StoreCredential: %w", err)
	}
	m.mu.Lock()
	m.identity = cred.OwnerIdentity
	m.cached = &cachedToken{token: cred.AccessToken, expiresAt: cred.AccessExpiresAt}
	m.mu.Unlock()
	return nil
}

// Logout purges the durable credential and the in-memory cache.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.cached = nil
	m.identity = ""
	m.mu.Unlock()
	if err := m.store.DeleteCredential(ctx); err != nil {
		return fmt.Errorf("session.Logout: %w", err)
	}
	return nil
}

// EnsureToken returns a valid access token, refreshing through the backend
// when the durable record is expired or inside the safety margin. With
// force set, the cached token is discarded first.
func (m *Manager) EnsureToken(ctx context.Context, force bool) (string, error) {
	m.mu.Lock()
	identity := m.identity
	if identity == "" {
		m.mu.Unlock()
		return "", domain.ErrNotConnected
	}
	if force {
		m.cached = nil
	}
	if m.cached != nil && m.now().Before(m.cached.expiresAt) {
		token := m.cached.token
		m.mu.Unlock()
		return token, nil
	}
	m.mu.Unlock()

	// All concurrent callers funnel into one load/refresh.
	v, err, _ := m.group.Do("token", func() (any, error) {
		return m.resolve(ctx, identity)
	})
	if err != nil {
		m.mu.Lock()
		m.cached = nil
		m.mu.Unlock()
		return "", err
	}
	return v.(string), nil
}

// resolve loads the durable credential, validates ownership and expiry, and
// refreshes when needed. Runs at most once per singleflight window.
func (m *Manager) resolve(ctx context.Context, identity string) (string, error) {
	cred, err := m.store.LoadCredential(ctx)
	if err != nil {
		return "", fmt.Errorf("session: load credential: %w", err)
	}
	if cred == nil {
		return "", domain.ErrAuthRequired
	}

	if !strings.EqualFold(cred.OwnerIdentity, identity) {
		slog.Warn("session: stored credential belongs to another wallet, purging",
			"stored", cred.OwnerIdentity, "connected", identity)
		_ = m.store.DeleteCredential(ctx)
		return "", domain.ErrIdentityMismatch
	}

	now := m.now()
	if cred.AccessValid(now) {
		m.cache(cred.AccessToken, cred.AccessExpiresAt)
		return cred.AccessToken, nil
	}

	if !cred.RefreshValid(now) {
		_ = m.store.DeleteCredential(ctx)
		return "", domain.ErrSessionExpired
	}

	quad, err := m.api.Refresh(ctx, cred.RefreshToken, m.deviceID)
	if err != nil {
		slog.Warn("session: refresh failed, purging credential", "err", err)
		_ = m.store.DeleteCredential(ctx)
		return "", fmt.Errorf("%w: %v", domain.ErrSessionExpired, err)
	}

	next := domain.SessionCredential{
		AccessToken:      quad.AccessToken,
		AccessExpiresAt:  time.Unix(quad.AccessExpiresAt, 0),
		RefreshToken:     quad.RefreshToken,
		RefreshExpiresAt: time.Unix(quad.RefreshExpiresAt, 0),
		OwnerIdentity:    identity,
	}
	if err := m.store.SaveCredential(ctx, next); err != nil {
		return "", fmt.Errorf("session: save refreshed credential: %w", err)
	}

	m.cache(next.AccessToken, next.AccessExpiresAt)
	slog.Debug("session: credential refreshed", "expires_at", next.AccessExpiresAt)
	return next.AccessToken, nil
}

func (m *Manager) cache(token string, expiresAt time.Time) {
	m.mu.Lock()
	m.cached = &cachedToken{token: token, expiresAt: expiresAt}
	m.mu.Unlock()
}
