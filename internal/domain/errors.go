package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the engine's failure taxonomy. Credential errors
// always purge the durable record before propagating; AlreadySettled is
// reclassified into a successful removal by the engine rather than surfaced.
var (
	// ErrNotConnected — no wallet identity is known.
	ErrNotConnected = errors.New("wallet not connected")

	// ErrAuthRequired — no durable credential exists; a fresh sign-in is needed.
	ErrAuthRequired = errors.New("authentication required")

	// ErrIdentityMismatch — the stored credential belongs to a different wallet.
	ErrIdentityMismatch = errors.New("credential identity mismatch")

	// ErrSessionExpired — refresh failed; the session cannot be recovered.
	ErrSessionExpired = errors.New("session expired")

	// ErrSigningCancelled — the user dismissed the wallet prompt.
	ErrSigningCancelled = errors.New("signing cancelled by user")

	// ErrSigningFailed — the wallet failed for any non-cancellation reason.
	ErrSigningFailed = errors.New("signing failed")

	// ErrWalletAuthStale — the wallet reports its session token is no longer
	// valid; re-authorizing and retrying once is appropriate.
	ErrWalletAuthStale = errors.New("wallet auth token stale")

	// ErrAlreadySettled — the receipt no longer exists server-side; the
	// client's view is behind the source of truth.
	ErrAlreadySettled = errors.New("position already settled")

	// ErrConfirmedWithError — the ledger accepted the transaction but its
	// execution embedded an error. Acceptance alone is not success.
	ErrConfirmedWithError = errors.New("transaction confirmed with execution error")
)

// BuildError is a non-2xx response from the transaction builder, carrying
// the response body for diagnostics.
type BuildError struct {
	Status int
	Body   string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("transaction build failed: status %d: %s", e.Status, e.Body)
}

// RelayError is a rejected relay submission. When the backend returned a
// structured simulation failure, Message and Logs carry its diagnostics;
// otherwise Body holds the raw response.
type RelayError struct {
	Status  int
	Message string
	Logs    []string
	Body    string
}

func (e *RelayError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("relay rejected: %s", e.Message)
	}
	return fmt.Sprintf("relay rejected: status %d: %s", e.Status, e.Body)
}
