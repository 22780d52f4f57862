package ports

import "context"

// TxIntent names a transaction the backend knows how to construct.
type TxIntent string

const (
	IntentOpenPosition TxIntent = "open-position"
	IntentClaimPayout  TxIntent = "claim-payout"
	IntentBurnReceipt  TxIntent = "burn-receipt"
)

// BuildParams are the intent parameters forwarded to the builder endpoint.
type BuildParams struct {
	AssetID  string `json:"assetId,omitempty"`
	MarketID int64  `json:"marketId,omitempty"`
	Amount   string `json:"amount,omitempty"`
	Side     string `json:"side,omitempty"`
}

// BuiltTransaction is an unsigned message bundle from the builder. Setup
// messages, when present, must each be signed, relayed and confirmed before
// the primary message is signed.
type BuiltTransaction struct {
	Message              []byte
	SetupMessages        [][]byte
	Reference            string
	Blockhash            string
	LastValidBlockHeight uint64
}

// TxBuilder asks the backend to construct an unsigned transaction for an
// intent. Stateless per call; retries once on credential rejection.
type TxBuilder interface {
	Build(ctx context.Context, intent TxIntent, params BuildParams) (BuiltTransaction, error)
}
