package wallet

// bridge.go — adapter to the out-of-process wallet daemon. Signing may
// block indefinitely while the user decides, so no timeout is set on the
// sign request itself; the caller's context is the only way out.
//
// The daemon reports failures as free text. Mapping that text onto the
// cancelled / stale-auth / failed taxonomy happens in exactly one place
// (domain.ClassifySigningError); everything here just carries it over.

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/danivega/stormbet/internal/domain"
)

const defaultEndpoint = "http://127.0.0.1:8417"

// Bridge implements ports.WalletSigner over the wallet daemon's local HTTP
// surface.
type Bridge struct {
	http     *http.Client
	endpoint string

	mu   sync.Mutex
	auth *domain.WalletAuthorization
}

// NewBridge creates a bridge to the wallet daemon. endpoint falls back to
// the daemon's default local address when empty.
func NewBridge(endpoint string) *Bridge {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Bridge{
		// No Timeout: authorize/sign wait on human interaction.
		http:     &http.Client{},
		endpoint: endpoint,
	}
}

type authorizeResponse struct {
	Accounts []struct {
		Address string `json:"address"`
		Label   string `json:"label"`
	} `json:"accounts"`
	SelectedAddress string `json:"selectedAddress"`
	AuthToken       string `json:"authToken"`
	Session         *struct {
		Network   string `json:"network"`
		Access    string `json:"access"`
		GrantedAt int64  `json:"grantedAt"`
	} `json:"session,omitempty"`
}

type signRequest struct {
	AuthToken string `json:"authToken"`
	Message   string `json:"message"`
}

type signResponse struct {
	SignedTx string `json:"signedTx"`
}

type daemonError struct {
	Error string `json:"error"`
}

// Authorize connects to the wallet and caches the granted session.
func (b *Bridge) Authorize(ctx context.Context) (domain.WalletAuthorization, error) {
	return b.authorize(ctx, "/v1/authorize", "")
}

// Reauthorize refreshes a stale wallet session, presenting the old token.
func (b *Bridge) Reauthorize(ctx context.Context) (domain.WalletAuthorization, error) {
	b.mu.Lock()
	token := ""
	if b.auth != nil {
		token = b.auth.AuthToken
	}
	b.mu.Unlock()
	return b.authorize(ctx, "/v1/reauthorize", token)
}

func (b *Bridge) authorize(ctx context.Context, path, prevToken string) (domain.WalletAuthorization, error) {
	body := map[string]string{}
	if prevToken != "" {
		body["authToken"] = prevToken
	}

	var resp authorizeResponse
	if err := b.post(ctx, path, body, &resp); err != nil {
		return domain.WalletAuthorization{}, fmt.Errorf("wallet: authorize: %w", err)
	}

	auth := domain.WalletAuthorization{AuthToken: resp.AuthToken}
	for _, a := range resp.Accounts {
		acct := domain.Account{Address: a.Address, Label: a.Label}
		auth.Accounts = append(auth.Accounts, acct)
		if a.Address == resp.SelectedAddress {
			auth.SelectedAccount = acct
		}
	}
	if auth.SelectedAccount.Address == "" && len(auth.Accounts) > 0 {
		auth.SelectedAccount = auth.Accounts[0]
	}
	if resp.Session != nil {
		auth.Session = &domain.WalletSession{
			Network:   domain.NetworkTier(resp.Session.Network),
			Access:    domain.AccessTier(resp.Session.Access),
			GrantedAt: time.Unix(resp.Session.GrantedAt, 0).UTC(),
		}
	}

	b.mu.Lock()
	b.auth = &auth
	b.mu.Unlock()

	slog.Info("wallet: authorized", "address", auth.Selected(), "accounts", len(auth.Accounts))
	return auth, nil
}

// Sign asks the wallet to sign an unsigned message. The returned error is
// one of the signing taxonomy sentinels, wrapped with the daemon's text.
func (b *Bridge) Sign(ctx context.Context, unsignedMessage []byte) ([]byte, error) {
	b.mu.Lock()
	auth := b.auth
	b.mu.Unlock()
	if auth == nil {
		return nil, fmt.Errorf("%w: not authorized", domain.ErrSigningFailed)
	}

	req := signRequest{
		AuthToken: auth.AuthToken,
		Message:   base64.StdEncoding.EncodeToString(unsignedMessage),
	}

	var resp signResponse
	if err := b.post(ctx, "/v1/sign", req, &resp); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrSigningFailed, ctx.Err())
		}
		classified := domain.ClassifySigningError(err.Error())
		return nil, fmt.Errorf("%w: %v", classified, err)
	}

	signed, err := base64.StdEncoding.DecodeString(resp.SignedTx)
	if err != nil {
		return nil, fmt.Errorf("%w: decode signed tx: %v", domain.ErrSigningFailed, err)
	}
	return signed, nil
}

// Disconnect ends the wallet session and drops the cached authorization.
func (b *Bridge) Disconnect(ctx context.Context) error {
	b.mu.Lock()
	b.auth = nil
	b.mu.Unlock()
	if err := b.post(ctx, "/v1/disconnect", map[string]string{}, nil); err != nil {
		return fmt.Errorf("wallet: disconnect: %w", err)
	}
	return nil
}

// post sends one JSON request to the daemon. Non-2xx responses surface the
// daemon's error text so the classifier can inspect it.
func (b *Bridge) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		var dErr daemonError
		if jsonErr := json.Unmarshal(respBody, &dErr); jsonErr == nil && dErr.Error != "" {
			return fmt.Errorf("wallet daemon: %s", dErr.Error)
		}
		return fmt.Errorf("wallet daemon: status %d: %s", resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
