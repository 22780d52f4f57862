package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rpcServer(t *testing.T, handler func(method string, params []any) any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
			Params []any  `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": 1, "result": handler(req.Method, req.Params)})
	}))
}

func TestSignatureStatus_Confirmed(t *testing.T) {
	srv := rpcServer(t, func(method string, params []any) any {
		assert.Equal(t, "getSignatureStatuses", method)
		return map[string]any{
			"value": []any{map[string]any{
				"slot":               12345,
				"confirmations":      31,
				"confirmationStatus": "confirmed",
				"err":                nil,
			}},
		}
	})
	defer srv.Close()

	status, err := NewClient(srv.URL).SignatureStatus(context.Background(), "sig-abc")
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.True(t, status.Confirmed())
	assert.False(t, status.HasError())
}

func TestSignatureStatus_NotSeenYet(t *testing.T) {
	srv := rpcServer(t, func(string, []any) any {
		return map[string]any{"value": []any{}}
	})
	defer srv.Close()

	status, err := NewClient(srv.URL).SignatureStatus(context.Background(), "sig-abc")
	require.NoError(t, err)
	assert.Nil(t, status)
}

func TestTransaction_ExecutionError(t *testing.T) {
	srv := rpcServer(t, func(method string, _ []any) any {
		assert.Equal(t, "getTransaction", method)
		return map[string]any{
			"slot": 12345,
			"meta": map[string]any{
				"err":         map[string]any{"InstructionError": []any{0, map[string]any{"Custom": 6001}}},
				"logMessages": []string{"Program log: failed"},
			},
		}
	})
	defer srv.Close()

	tx, err := NewClient(srv.URL).Transaction(context.Background(), "sig-abc")
	require.NoError(t, err)
	require.NotNil(t, tx)
	assert.True(t, tx.HasError())
}

func TestCall_RPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0", "id": 1,
			"error": map[string]any{"code": -32602, "message": "invalid params"},
		})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).SignatureStatus(context.Background(), "sig-abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid params")
}
