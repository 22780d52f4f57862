package backend

import (
	"context"
	"sync"
)

const testWallet = "7fUAJdStEuGbc3sM84cKRL6yYaaSstyLSU4ve5oovLS7"

// stubTokens hands out a stale token until a forced refresh, then a fresh
// one, mirroring how the session manager behaves around a 401.
type stubTokens struct {
	mu     sync.Mutex
	calls  int
	forced int
	err    error
}

func (s *stubTokens) EnsureToken(_ context.Context, force bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	if force {
		s.forced++
	}
	if s.forced > 0 {
		return "tok-fresh", nil
	}
	return "tok-stale", nil
}

func newTestClient(base string) (*Client, *stubTokens) {
	tokens := &stubTokens{}
	return NewClient(base, tokens, func() string { return testWallet }), tokens
}
