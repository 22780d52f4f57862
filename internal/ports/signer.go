package ports

import (
	"context"

	"github.com/danivega/stormbet/internal/domain"
)

// WalletSigner is the out-of-process signing capability (the user's wallet).
// Sign may block indefinitely while the user decides; the context is the
// only way out.
type WalletSigner interface {
	// Authorize connects to the wallet and returns the granted session.
	Authorize(ctx context.Context) (domain.WalletAuthorization, error)

	// Reauthorize refreshes a stale wallet session token.
	Reauthorize(ctx context.Context) (domain.WalletAuthorization, error)

	// Sign turns an unsigned message into signed transaction bytes.
	// Failure is one of domain.ErrSigningCancelled, domain.ErrWalletAuthStale
	// or domain.ErrSigningFailed (wrapped with the provider's text).
	Sign(ctx context.Context, unsignedMessage []byte) ([]byte, error)

	// Disconnect ends the wallet session.
	Disconnect(ctx context.Context) error
}
