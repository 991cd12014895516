// Package aggregator is the HTTP client for the external account
// aggregator: bearer-token auth with a cached token source, detached JWS
// signatures on every signed request, and bounded retries on transient
// failures.
package aggregator

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/aavault/aavault/internal/common"
	"github.com/aavault/aavault/internal/jws"
	"github.com/aavault/aavault/internal/logging"
)

// tokenSkew is how early a cached token is refreshed before its expiry.
const tokenSkew = 60 * time.Second

const signatureHeader = "x-jws-signature"

type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	ProductID    string
	Timeout      time.Duration
	SigningKey   *rsa.PrivateKey
}

// tokenSource caches the aggregator bearer token and refreshes it
// shortly before expiry. Safe for concurrent use.
type tokenSource struct {
	mu      sync.Mutex
	token   string
	expires time.Time
	fetch   func(ctx context.Context) (string, time.Duration, error)
}

func (t *tokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && time.Now().Before(t.expires.Add(-tokenSkew)) {
		return t.token, nil
	}

	token, ttl, err := t.fetch(ctx)
	if err != nil {
		return "", err
	}
	t.token = token
	t.expires = time.Now().Add(ttl)
	return t.token, nil
}

type Client struct {
	config Config
	http   *http.Client
	tokens *tokenSource
	logger logging.Logger
}

func NewClient(config Config, logger logging.Logger) *Client {
	c := &Client{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
		logger: logger.With("module", "aggregator"),
	}
	c.tokens = &tokenSource{fetch: c.fetchToken}
	return c
}

type tokenRequest struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
}

func (c *Client) fetchToken(ctx context.Context) (string, time.Duration, error) {
	body, err := json.Marshal(tokenRequest{
		ClientID:     c.config.ClientID,
		ClientSecret: c.config.ClientSecret,
	})
	if err != nil {
		return "", 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/token", bytes.NewReader(body))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("aggregator token endpoint unreachable: %w", common.ErrRetryable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("aggregator token endpoint returned %d: %w", resp.StatusCode, common.ErrUnauthorized)
	}

	var out tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", 0, fmt.Errorf("error decoding token response: %w", err)
	}
	return out.AccessToken, time.Duration(out.ExpiresIn) * time.Second, nil
}

// doSigned sends an authenticated, JWS-signed request and decodes the JSON
// response into out. Transport errors and 5xx responses are retried with
// fibonacci backoff and surface as retryable when exhausted.
func (c *Client) doSigned(ctx context.Context, method, path string, payload any, out any) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("error encoding request: %w", err)
		}
	}

	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		return c.send(ctx, method, path, body, out)
	})
	if err != nil {
		return err
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body []byte, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("x-product-instance-id", c.config.ProductID)

	if len(body) > 0 && c.config.SigningKey != nil {
		signature, err := jws.Sign(body, c.config.SigningKey)
		if err != nil {
			return fmt.Errorf("error signing request: %w", err)
		}
		req.Header.Set(signatureHeader, signature)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return retry.RetryableError(fmt.Errorf("aggregator unreachable: %w", common.ErrRetryable))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode >= 500:
		return retry.RetryableError(fmt.Errorf("aggregator returned %d: %w", resp.StatusCode, common.ErrRetryable))
	case resp.StatusCode == http.StatusUnauthorized:
		// force a token refresh on the next attempt
		c.tokens.mu.Lock()
		c.tokens.token = ""
		c.tokens.mu.Unlock()
		return retry.RetryableError(fmt.Errorf("aggregator rejected token: %w", common.ErrUnauthorized))
	case resp.StatusCode == http.StatusNotFound:
		return common.ErrNotFound
	default:
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("aggregator returned %d: %s", resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	return nil
}
