package backend

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/danivega/stormbet/internal/domain"
	"github.com/danivega/stormbet/internal/ports"
)

// txFamily is the builder route family for prediction-market instructions.
const txFamily = "prediction"

type setupMessageDTO struct {
	Message       string `json:"message,omitempty"`
	MessageBase64 string `json:"messageBase64,omitempty"`
}

func (s setupMessageDTO) decode() ([]byte, error) {
	raw := s.Message
	if raw == "" {
		raw = s.MessageBase64
	}
	return base64.StdEncoding.DecodeString(raw)
}

type buildResponse struct {
	TxRef                string            `json:"txRef"`
	Message              string            `json:"message"`
	LookupTables         []string          `json:"lookupTables,omitempty"`
	Blockhash            string            `json:"blockhash"`
	LastValidBlockHeight uint64            `json:"lastValidBlockHeight"`
	ExpiresAt            int64             `json:"expiresAt"`
	SetupMessages        []setupMessageDTO `json:"setupMessages,omitempty"`
}

// Build implements ports.TxBuilder: asks the backend to construct an
// unsigned transaction for the intent. The base client already performs the
// single forced-refresh retry on a 401; a second rejection arrives here as
// an apiError and is surfaced as a BuildError.
func (c *Client) Build(ctx context.Context, intent ports.TxIntent, params ports.BuildParams) (ports.BuiltTransaction, error) {
	var resp buildResponse
	path := fmt.Sprintf("/tx/build/%s/%s", txFamily, intent)
	if err := c.do(ctx, http.MethodPost, path, params, &resp, nil); err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) {
			return ports.BuiltTransaction{}, &domain.BuildError{Status: apiErr.Status, Body: string(apiErr.Body)}
		}
		return ports.BuiltTransaction{}, fmt.Errorf("backend.Build: %w", err)
	}

	msg, err := base64.StdEncoding.DecodeString(resp.Message)
	if err != nil {
		return ports.BuiltTransaction{}, fmt.Errorf("backend.Build: decode message: %w", err)
	}

	built := ports.BuiltTransaction{
		Message:              msg,
		Reference:            resp.TxRef,
		Blockhash:            resp.Blockhash,
		LastValidBlockHeight: resp.LastValidBlockHeight,
	}
	for i, s := range resp.SetupMessages {
		raw, err := s.decode()
		if err != nil {
			return ports.BuiltTransaction{}, fmt.Errorf("backend.Build: decode setup message %d: %w", i, err)
		}
		built.SetupMessages = append(built.SetupMessages, raw)
	}
	return built, nil
}
