package backend

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danivega/stormbet/internal/adapters/ledger"
	"github.com/danivega/stormbet/internal/domain"
	"github.com/danivega/stormbet/internal/ports"
)

// stubLedger replays a fixed sequence of status records, then a transaction.
type stubLedger struct {
	mu       sync.Mutex
	statuses []*ledger.SignatureStatus
	i        int
	tx       *ledger.TransactionRecord
}

func (s *stubLedger) SignatureStatus(context.Context, string) (*ledger.SignatureStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.i >= len(s.statuses) {
		return s.statuses[len(s.statuses)-1], nil
	}
	st := s.statuses[s.i]
	s.i++
	return st, nil
}

func (s *stubLedger) Transaction(context.Context, string) (*ledger.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx, nil
}

func confirmedStatus() *ledger.SignatureStatus {
	return &ledger.SignatureStatus{Slot: 100, ConfirmationStatus: "confirmed"}
}

// The idempotency token survives the base client's single 401 replay, so the
// backend can deduplicate the submission.
func TestForward_IdempotencyKeyStableAcross401Replay(t *testing.T) {
	var (
		mu   sync.Mutex
		keys []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		n := len(keys)
		mu.Unlock()

		assert.Equal(t, "/tx/forward", r.URL.Path)
		if n == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req struct {
			SignedTx string `json:"signedTx"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("signed-bytes")), req.SignedTx)
		json.NewEncoder(w).Encode(map[string]string{"signature": "sig-abc", "status": "accepted"})
	}))
	defer srv.Close()

	client, tokens := newTestClient(srv.URL)
	relay := NewRelay(client, &stubLedger{statuses: []*ledger.SignatureStatus{confirmedStatus()}})

	result, err := relay.Forward(context.Background(), []byte("signed-bytes"), "ref-1", ports.ForwardOptions{})
	require.NoError(t, err)
	assert.Equal(t, "sig-abc", result.Signature)

	require.Len(t, keys, 2)
	assert.NotEmpty(t, keys[0])
	assert.Equal(t, keys[0], keys[1], "replay must reuse the same idempotency token")
	assert.Equal(t, 1, tokens.forced)
}

// A structured simulation rejection keeps its message and only the tail of
// the log output.
func TestForward_SimulationFailureKeepsLastLogs(t *testing.T) {
	logs := make([]string, 12)
	for i := range logs {
		logs[i] = fmt.Sprintf("Program log: step %d", i+1)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "Transaction simulation failed", "logs": logs},
		})
	}))
	defer srv.Close()

	client, _ := newTestClient(srv.URL)
	relay := NewRelay(client, &stubLedger{})

	_, err := relay.Forward(context.Background(), []byte("signed"), "", ports.ForwardOptions{})

	var relayErr *domain.RelayError
	require.ErrorAs(t, err, &relayErr)
	assert.Equal(t, http.StatusBadRequest, relayErr.Status)
	assert.Equal(t, "Transaction simulation failed", relayErr.Message)
	require.Len(t, relayErr.Logs, maxSimulationLogs)
	assert.Equal(t, "Program log: step 3", relayErr.Logs[0])
	assert.Equal(t, "Program log: step 12", relayErr.Logs[9])
}

func TestForward_UnstructuredRejectionKeepsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("blockhash expired"))
	}))
	defer srv.Close()

	client, _ := newTestClient(srv.URL)
	relay := NewRelay(client, &stubLedger{})

	_, err := relay.Forward(context.Background(), []byte("signed"), "", ports.ForwardOptions{})

	var relayErr *domain.RelayError
	require.ErrorAs(t, err, &relayErr)
	assert.Empty(t, relayErr.Message)
	assert.Equal(t, "blockhash expired", relayErr.Body)
}

func TestConfirm_PollsUntilConfirmed(t *testing.T) {
	reader := &stubLedger{statuses: []*ledger.SignatureStatus{
		nil, // not seen yet
		{Slot: 99, ConfirmationStatus: "processed"},
		confirmedStatus(),
	}}
	relay := &Relay{ledger: reader, pollInterval: time.Millisecond}

	assert.NoError(t, relay.Confirm(context.Background(), "sig-abc"))
}

// Network acceptance is not success: a status record carrying an execution
// error surfaces as a confirmed-with-error failure.
func TestConfirm_StatusErrorIsFailure(t *testing.T) {
	status := confirmedStatus()
	status.Err = json.RawMessage(`{"InstructionError":[0,{"Custom":1}]}`)
	relay := &Relay{
		ledger:       &stubLedger{statuses: []*ledger.SignatureStatus{status}},
		pollInterval: time.Millisecond,
	}

	err := relay.Confirm(context.Background(), "sig-abc")
	assert.ErrorIs(t, err, domain.ErrConfirmedWithError)
}

func TestConfirm_TransactionMetaErrorIsFailure(t *testing.T) {
	tx := &ledger.TransactionRecord{Slot: 100}
	tx.Meta.Err = json.RawMessage(`{"InstructionError":[2,{"Custom":6001}]}`)
	relay := &Relay{
		ledger:       &stubLedger{statuses: []*ledger.SignatureStatus{confirmedStatus()}, tx: tx},
		pollInterval: time.Millisecond,
	}

	err := relay.Confirm(context.Background(), "sig-abc")
	assert.ErrorIs(t, err, domain.ErrConfirmedWithError)
}

func TestConfirm_ContextCancelledWhilePolling(t *testing.T) {
	relay := &Relay{
		ledger:       &stubLedger{statuses: []*ledger.SignatureStatus{nil}},
		pollInterval: 10 * time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := relay.Confirm(ctx, "sig-abc")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
