package backend

// relay.go — forwards a signed transaction and confirms it on the ledger.
//
// Forwarding attaches a fresh Idempotency-Key per logical submission; the
// single 401 retry inside the base client replays the same key, so the
// server never executes one submission twice. Confirmation is two-phase:
// the network accepting the bytes is not success until the status record
// and the parsed transaction both come back without an embedded error.

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/danivega/stormbet/internal/adapters/ledger"
	"github.com/danivega/stormbet/internal/domain"
	"github.com/danivega/stormbet/internal/ports"
)

const (
	confirmPollInterval = 800 * time.Millisecond
	maxSimulationLogs   = 10
)

// LedgerReader is the slice of the ledger RPC client the relay needs.
type LedgerReader interface {
	SignatureStatus(ctx context.Context, signature string) (*ledger.SignatureStatus, error)
	Transaction(ctx context.Context, signature string) (*ledger.TransactionRecord, error)
}

// Relay implements ports.TxRelay over the backend forward endpoint and a
// ledger RPC node.
type Relay struct {
	client       *Client
	ledger       LedgerReader
	pollInterval time.Duration
}

// NewRelay creates a relay bound to the backend client and ledger node.
func NewRelay(client *Client, reader LedgerReader) *Relay {
	return &Relay{client: client, ledger: reader, pollInterval: confirmPollInterval}
}

type forwardRequest struct {
	SignedTx  string          `json:"signedTx"`
	Reference string          `json:"reference,omitempty"`
	Options   *forwardOptions `json:"options,omitempty"`
}

type forwardOptions struct {
	SkipPreflight bool `json:"skipPreflight,omitempty"`
	MaxRetries    int  `json:"maxRetries,omitempty"`
}

type forwardResponse struct {
	Signature string `json:"signature"`
	Status    string `json:"status"`
}

// simulationFailure is the structured rejection payload the backend returns
// when preflight simulation fails.
type simulationFailure struct {
	Error struct {
		Message string   `json:"message"`
		Logs    []string `json:"logs"`
	} `json:"error"`
}

// Forward submits signed transaction bytes under a fresh idempotency token.
func (r *Relay) Forward(ctx context.Context, signedTx []byte, reference string, opts ports.ForwardOptions) (ports.ForwardResult, error) {
	req := forwardRequest{
		SignedTx:  base64.StdEncoding.EncodeToString(signedTx),
		Reference: reference,
	}
	if opts.SkipPreflight || opts.MaxRetries > 0 {
		req.Options = &forwardOptions{SkipPreflight: opts.SkipPreflight, MaxRetries: opts.MaxRetries}
	}

	headers := map[string]string{"Idempotency-Key": uuid.NewString()}

	var resp forwardResponse
	if err := r.client.do(ctx, http.MethodPost, "/tx/forward", req, &resp, headers); err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) {
			return ports.ForwardResult{}, relayErrorFrom(apiErr)
		}
		return ports.ForwardResult{}, fmt.Errorf("backend.Forward: %w", err)
	}
	return ports.ForwardResult{Signature: resp.Signature, Status: resp.Status}, nil
}

// relayErrorFrom shapes a non-2xx forward response: a structured simulation
// failure surfaces its message and the last few log lines, anything else
// the raw body.
func relayErrorFrom(apiErr *apiError) *domain.RelayError {
	var sim simulationFailure
	if err := json.Unmarshal(apiErr.Body, &sim); err == nil && sim.Error.Message != "" {
		logs := sim.Error.Logs
		if len(logs) > maxSimulationLogs {
			logs = logs[len(logs)-maxSimulationLogs:]
		}
		return &domain.RelayError{Status: apiErr.Status, Message: sim.Error.Message, Logs: logs}
	}
	return &domain.RelayError{Status: apiErr.Status, Body: string(apiErr.Body)}
}

// Confirm blocks until the signature reaches confirmed level, then verifies
// both the status record and the parsed transaction for an embedded
// execution error.
func (r *Relay) Confirm(ctx context.Context, signature string) error {
	var status *ledger.SignatureStatus
	for {
		s, err := r.ledger.SignatureStatus(ctx, signature)
		if err != nil {
			return fmt.Errorf("backend.Confirm: %w", err)
		}
		if s != nil && s.Confirmed() {
			status = s
			break
		}
		select {
		case <-time.After(r.pollInterval):
		case <-ctx.Done():
			return fmt.Errorf("backend.Confirm: %w", ctx.Err())
		}
	}

	if status.HasError() {
		return fmt.Errorf("%w: %s", domain.ErrConfirmedWithError, status.Err)
	}

	tx, err := r.ledger.Transaction(ctx, signature)
	if err != nil {
		return fmt.Errorf("backend.Confirm: fetch transaction: %w", err)
	}
	if tx != nil && tx.HasError() {
		return fmt.Errorf("%w: %s", domain.ErrConfirmedWithError, tx.Meta.Err)
	}
	return nil
}
