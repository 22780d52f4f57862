package domain

import "time"

// RefreshSafetyMargin is subtracted from the refresh token expiry: a refresh
// token this close to expiring is not worth attempting, the backend would
// reject it mid-flight anyway.
const RefreshSafetyMargin = 30 * time.Second

// SessionCredential is the durable session record issued by the backend on
// sign-in and replaced wholesale on every refresh.
type SessionCredential struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	OwnerIdentity    string // wallet address the credential was issued to
}

// AccessValid reports whether the access token is usable at the given
// instant. A token exactly at its expiry is already expired.
func (c SessionCredential) AccessValid(now time.Time) bool {
	return now.Before(c.AccessExpiresAt)
}

// RefreshValid reports whether the refresh token is usable at the given
// instant, leaving the safety margin.
func (c SessionCredential) RefreshValid(now time.Time) bool {
	return now.Before(c.RefreshExpiresAt.Add(-RefreshSafetyMargin))
}

// NetworkTier selects which ledger network the session is bound to.
type NetworkTier string

const (
	NetworkMainnet NetworkTier = "mainnet"
	NetworkDevnet  NetworkTier = "devnet"
)

// AccessTier is the authorization level granted by the wallet provider.
type AccessTier string

const (
	AccessPublic   AccessTier = "public"
	AccessElevated AccessTier = "elevated"
)

// Account is one wallet account exposed by the provider.
type Account struct {
	Address string
	Label   string
}

// WalletSession is the optional tier record granted at authorization time.
type WalletSession struct {
	Network   NetworkTier
	Access    AccessTier
	GrantedAt time.Time
}

// WalletAuthorization is the wallet-provider session handle, distinct from
// the backend SessionCredential. SelectedAccount is always a member of
// Accounts when Accounts is non-empty.
type WalletAuthorization struct {
	Accounts        []Account
	SelectedAccount Account
	AuthToken       string
	Session         *WalletSession
}

// Selected returns the address of the selected account.
func (w WalletAuthorization) Selected() string {
	return w.SelectedAccount.Address
}
