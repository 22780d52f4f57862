package backend

// client.go — base HTTP client for the stormbet backend.
//
// Every authenticated call carries a bearer access token plus the wallet
// address as a correlation header. A 401 triggers exactly one forced token
// refresh and retry; 429/5xx back off exponentially up to maxRetries.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/danivega/stormbet/internal/ports"
)

const (
	defaultBase = "https://api.stormbet.fun"

	// Keep comfortably under the backend's documented 120 req/10s budget.
	requestsPerSec = 10

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// apiError is a non-2xx response. Callers map it onto the domain taxonomy.
type apiError struct {
	Status int
	Body   []byte
}

func (e *apiError) Error() string {
	return fmt.Sprintf("backend: status %d: %s", e.Status, e.Body)
}

// Client is the shared HTTP layer for all backend endpoints.
type Client struct {
	http    *http.Client
	base    string
	tokens  ports.TokenSource
	owner   func() string // wallet address for the correlation header
	limiter *rate.Limiter
}

// NewClient creates a backend client. base falls back to production when
// empty. owner supplies the connected wallet address per request so identity
// changes take effect without rebuilding the client.
func NewClient(base string, tokens ports.TokenSource, owner func() string) *Client {
	if base == "" {
		base = defaultBase
	}
	return &Client{
		http:    &http.Client{Timeout: 15 * time.Second},
		base:    base,
		tokens:  tokens,
		owner:   owner,
		limiter: rate.NewLimiter(requestsPerSec, 20),
	}
}

// do executes an authenticated JSON request. On a 401 the token is refreshed
// once (force) and the request replayed with the same extra headers, so an
// Idempotency-Key set by the caller survives the retry.
func (c *Client) do(ctx context.Context, method, path string, body, out any, extra map[string]string) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend: marshal body: %w", err)
		}
		payload = b
	}

	force := false
	attempt := 0
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("backend: rate limiter: %w", err)
		}

		token, err := c.tokens.EnsureToken(ctx, force)
		if err != nil {
			return err
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
		if err != nil {
			return fmt.Errorf("backend: new request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("X-Wallet-Address", c.owner())
		for k, v := range extra {
			req.Header.Set(k, v)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if attempt >= maxRetries {
				return fmt.Errorf("backend: request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			attempt++
			continue
		}

		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized && !force:
			// Stale token: one forced refresh, one replay.
			slog.Debug("backend: 401, forcing token refresh", "path", path)
			force = true
			continue

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			if attempt >= maxRetries {
				return &apiError{Status: resp.StatusCode, Body: respBody}
			}
			c.sleep(ctx, attempt)
			attempt++
			continue

		case resp.StatusCode >= 400:
			return &apiError{Status: resp.StatusCode, Body: respBody}
		}

		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("backend: decode response: %w", err)
			}
		}
		return nil
	}
}

// postPublic executes an unauthenticated JSON POST (the refresh endpoint).
func (c *Client) postPublic(ctx context.Context, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("backend: marshal body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("backend: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return &apiError{Status: resp.StatusCode, Body: respBody}
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("backend: decode response: %w", err)
		}
	}
	return nil
}

// sleep waits with exponential backoff, honoring the context.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
