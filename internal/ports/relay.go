package ports

import "context"

// ForwardOptions tune the server-side submission.
type ForwardOptions struct {
	SkipPreflight bool
	MaxRetries    int
}

// ForwardResult is the relay's acceptance record. Acceptance alone is not
// success; Confirm must still be called.
type ForwardResult struct {
	Signature string
	Status    string
}

// TxRelay forwards a signed transaction and confirms it against the ledger.
type TxRelay interface {
	// Forward submits signed transaction bytes under a fresh idempotency
	// token. A 401 retry reuses the same token; distinct submissions never do.
	Forward(ctx context.Context, signedTx []byte, reference string, opts ForwardOptions) (ForwardResult, error)

	// Confirm blocks until the signature is confirmed, then verifies both
	// the status record and the parsed transaction for an embedded
	// execution error, returning domain.ErrConfirmedWithError if found.
	Confirm(ctx context.Context, signature string) error
}
