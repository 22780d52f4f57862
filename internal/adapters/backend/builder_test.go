package backend

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danivega/stormbet/internal/domain"
	"github.com/danivega/stormbet/internal/ports"
)

func b64(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

func TestBuild_DecodesMessagesAndSetup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/tx/build/prediction/claim-payout", r.URL.Path)
		assert.Equal(t, testWallet, r.Header.Get("X-Wallet-Address"))

		var params ports.BuildParams
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		assert.Equal(t, "asset-1", params.AssetID)

		json.NewEncoder(w).Encode(map[string]any{
			"txRef":                "ref-42",
			"message":              b64("primary-msg"),
			"blockhash":            "9xQhash",
			"lastValidBlockHeight": 123456,
			"setupMessages": []map[string]string{
				{"message": b64("setup-a")},
				{"messageBase64": b64("setup-b")},
			},
		})
	}))
	defer srv.Close()

	client, _ := newTestClient(srv.URL)
	built, err := client.Build(context.Background(), ports.IntentClaimPayout, ports.BuildParams{
		AssetID: "asset-1", MarketID: 42, Amount: "50.00", Side: "YES",
	})
	require.NoError(t, err)

	assert.Equal(t, []byte("primary-msg"), built.Message)
	assert.Equal(t, "ref-42", built.Reference)
	assert.Equal(t, "9xQhash", built.Blockhash)
	assert.Equal(t, uint64(123456), built.LastValidBlockHeight)
	require.Len(t, built.SetupMessages, 2)
	assert.Equal(t, []byte("setup-a"), built.SetupMessages[0])
	assert.Equal(t, []byte("setup-b"), built.SetupMessages[1])
}

// A stale token gets exactly one forced refresh and replay.
func TestBuild_RetriesOnceAfter401(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			assert.Equal(t, "Bearer tok-stale", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "Bearer tok-fresh", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{"txRef": "ref-1", "message": b64("msg")})
	}))
	defer srv.Close()

	client, tokens := newTestClient(srv.URL)
	built, err := client.Build(context.Background(), ports.IntentBurnReceipt, ports.BuildParams{AssetID: "asset-1"})
	require.NoError(t, err)

	assert.Equal(t, []byte("msg"), built.Message)
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, 1, tokens.forced)
}

func TestBuild_SecondRejectionSurfacesBuildError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"session revoked"}`))
	}))
	defer srv.Close()

	client, tokens := newTestClient(srv.URL)
	_, err := client.Build(context.Background(), ports.IntentClaimPayout, ports.BuildParams{AssetID: "asset-1"})

	var buildErr *domain.BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, http.StatusUnauthorized, buildErr.Status)
	assert.Contains(t, buildErr.Body, "session revoked")
	assert.Equal(t, 1, tokens.forced, "only one forced refresh attempt")
}

func TestBuild_ClientErrorSurfacesBuildError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"market not resolved"}`))
	}))
	defer srv.Close()

	client, _ := newTestClient(srv.URL)
	_, err := client.Build(context.Background(), ports.IntentClaimPayout, ports.BuildParams{AssetID: "asset-1"})

	var buildErr *domain.BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, http.StatusUnprocessableEntity, buildErr.Status)
}
