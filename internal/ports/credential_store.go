package ports

import (
	"context"

	"github.com/danivega/stormbet/internal/domain"
)

// CredentialStore owns the durable session credential and the wallet
// authorization record. Both are replaced wholesale, never patched.
type CredentialStore interface {
	// LoadCredential returns the stored session credential, or
	// (nil, nil) when no record exists.
	LoadCredential(ctx context.Context) (*domain.SessionCredential, error)

	// SaveCredential atomically replaces the session credential.
	SaveCredential(ctx context.Context, cred domain.SessionCredential) error

	// DeleteCredential purges the session credential. Deleting a missing
	// record is not an error.
	DeleteCredential(ctx context.Context) error

	// LoadAuthorization returns the stored wallet authorization, or
	// (nil, nil) when no record exists.
	LoadAuthorization(ctx context.Context) (*domain.WalletAuthorization, error)

	// SaveAuthorization atomically replaces the wallet authorization.
	SaveAuthorization(ctx context.Context, auth domain.WalletAuthorization) error

	// DeleteAuthorization purges the wallet authorization.
	DeleteAuthorization(ctx context.Context) error

	// Close releases the underlying database.
	Close() error
}
