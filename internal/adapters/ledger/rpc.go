package ledger

// rpc.go — minimal JSON-RPC client for the ledger node. Only the two
// methods the confirmation path needs: signature status and the parsed
// transaction record. The relay performs the accepted-vs-succeeded check on
// top of these.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SignatureStatus is one entry of a getSignatureStatuses response.
type SignatureStatus struct {
	Slot               uint64          `json:"slot"`
	Confirmations      *uint64         `json:"confirmations"`
	ConfirmationStatus string          `json:"confirmationStatus"` // processed | confirmed | finalized
	Err                json.RawMessage `json:"err"`
}

// Confirmed reports whether the signature reached at least confirmed level.
func (s SignatureStatus) Confirmed() bool {
	return s.ConfirmationStatus == "confirmed" || s.ConfirmationStatus == "finalized"
}

// HasError reports whether the status record embeds an execution error.
func (s SignatureStatus) HasError() bool {
	return len(s.Err) > 0 && string(s.Err) != "null"
}

// TransactionRecord is the slice of a getTransaction response the engine
// cares about: whether execution failed, and its log output.
type TransactionRecord struct {
	Slot uint64 `json:"slot"`
	Meta struct {
		Err         json.RawMessage `json:"err"`
		LogMessages []string        `json:"logMessages"`
	} `json:"meta"`
}

// HasError reports whether the executed transaction embeds an error.
func (t TransactionRecord) HasError() bool {
	return len(t.Meta.Err) > 0 && string(t.Meta.Err) != "null"
}

// Client talks JSON-RPC to a ledger node.
type Client struct {
	http     *http.Client
	endpoint string
}

// NewClient creates a ledger RPC client for the given endpoint.
func NewClient(endpoint string) *Client {
	return &Client{
		http:     &http.Client{Timeout: 15 * time.Second},
		endpoint: endpoint,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("ledger: rpc error %d: %s", e.Code, e.Message)
}

// call executes one JSON-RPC method and decodes result into out.
func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("ledger: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ledger: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ledger: %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ledger: %s: status %d", method, resp.StatusCode)
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("ledger: decode %s response: %w", method, err)
	}
	if envelope.Error != nil {
		return envelope.Error
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("ledger: decode %s result: %w", method, err)
	}
	return nil
}

// SignatureStatus fetches the status record for one signature. Returns
// (nil, nil) while the ledger has not seen the signature yet.
func (c *Client) SignatureStatus(ctx context.Context, signature string) (*SignatureStatus, error) {
	var result struct {
		Value []*SignatureStatus `json:"value"`
	}
	params := []any{[]string{signature}, map[string]bool{"searchTransactionHistory": true}}
	if err := c.call(ctx, "getSignatureStatuses", params, &result); err != nil {
		return nil, err
	}
	if len(result.Value) == 0 {
		return nil, nil
	}
	return result.Value[0], nil
}

// Transaction fetches the parsed transaction record for one signature.
// Returns (nil, nil) when the ledger has no record.
func (c *Client) Transaction(ctx context.Context, signature string) (*TransactionRecord, error) {
	var result *TransactionRecord
	params := []any{signature, map[string]any{"encoding": "jsonParsed", "commitment": "confirmed"}}
	if err := c.call(ctx, "getTransaction", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}
