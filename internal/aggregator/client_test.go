package aggregator

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aavault/aavault/internal/common"
	"github.com/aavault/aavault/internal/jws"
	"github.com/aavault/aavault/internal/logging"
	"github.com/aavault/aavault/internal/server/consents"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

type aggregatorStub struct {
	t          *testing.T
	key        *rsa.PrivateKey
	tokenCalls atomic.Int32
	expiresIn  int

	consent5xx int32 // remaining 500s before success
}

func (a *aggregatorStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		a.tokenCalls.Add(1)
		var req tokenRequest
		require.NoError(a.t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(a.t, "client-1", req.ClientID)
		json.NewEncoder(w).Encode(tokenResponse{AccessToken: "tok-1", ExpiresIn: a.expiresIn})
	})
	mux.HandleFunc("/consents", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&a.consent5xx, -1) >= 0 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		require.Equal(a.t, "Bearer tok-1", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(a.t, err)
		signature := r.Header.Get("x-jws-signature")
		require.NotEmpty(a.t, signature)
		require.True(a.t, jws.Verify(signature, body, &a.key.PublicKey),
			"detached signature must cover the exact request body")

		json.NewEncoder(w).Encode(consentResponse{
			ID:     "ext-1",
			Handle: "handle-1",
			URL:    "https://aa.example/approve/ext-1",
			Status: "PENDING",
		})
	})
	mux.HandleFunc("/consents/ext-1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(consentResponse{ID: "ext-1", Status: "ACTIVE"})
	})
	mux.HandleFunc("/consents/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	return mux
}

func newTestClient(t *testing.T, stub *aggregatorStub) *Client {
	t.Helper()
	if stub.expiresIn == 0 {
		stub.expiresIn = 3600
	}
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)

	return NewClient(Config{
		BaseURL:      srv.URL,
		ClientID:     "client-1",
		ClientSecret: "secret",
		ProductID:    "product-1",
		Timeout:      2 * time.Second,
		SigningKey:   stub.key,
	}, testLogger())
}

func grant() *consents.Grant {
	return &consents.Grant{
		ID:            "c-1",
		VUA:           "9999999999@aa",
		FiTypes:       []string{"DEPOSIT"},
		PurposeCode:   "101",
		DataRangeFrom: time.Now().AddDate(-1, 0, 0),
		DataRangeTo:   time.Now(),
		ExpiresAt:     time.Now().AddDate(1, 0, 0),
		FetchType:     "ONETIME",
		ConsentMode:   "VIEW",
	}
}

func TestRegisterConsent_SignsAndParses(t *testing.T) {
	stub := &aggregatorStub{t: t, key: testKey(t)}
	client := newTestClient(t, stub)

	reg, err := client.RegisterConsent(context.Background(), grant())
	require.NoError(t, err)
	assert.Equal(t, "ext-1", reg.ExternalID)
	assert.Equal(t, "handle-1", reg.Handle)
	assert.Equal(t, "https://aa.example/approve/ext-1", reg.ApprovalURL)
}

func TestTokenSource_CachesAcrossRequests(t *testing.T) {
	stub := &aggregatorStub{t: t, key: testKey(t)}
	client := newTestClient(t, stub)
	ctx := context.Background()

	_, err := client.RegisterConsent(ctx, grant())
	require.NoError(t, err)
	_, err = client.ConsentStatus(ctx, "ext-1")
	require.NoError(t, err)

	assert.Equal(t, int32(1), stub.tokenCalls.Load(), "second request must reuse the cached token")
}

func TestTokenSource_RefreshesNearExpiry(t *testing.T) {
	// expiresIn below the refresh skew: every request refetches
	stub := &aggregatorStub{t: t, key: testKey(t), expiresIn: 30}
	client := newTestClient(t, stub)
	ctx := context.Background()

	_, err := client.ConsentStatus(ctx, "ext-1")
	require.NoError(t, err)
	_, err = client.ConsentStatus(ctx, "ext-1")
	require.NoError(t, err)

	assert.Equal(t, int32(2), stub.tokenCalls.Load())
}

func TestDoSigned_RetriesServerErrors(t *testing.T) {
	stub := &aggregatorStub{t: t, key: testKey(t), consent5xx: 2}
	client := newTestClient(t, stub)

	reg, err := client.RegisterConsent(context.Background(), grant())
	require.NoError(t, err, "two 502s then success should be absorbed by retries")
	assert.Equal(t, "ext-1", reg.ExternalID)
}

func TestDoSigned_ExhaustedRetriesAreRetryable(t *testing.T) {
	stub := &aggregatorStub{t: t, key: testKey(t), consent5xx: 100}
	client := newTestClient(t, stub)

	_, err := client.RegisterConsent(context.Background(), grant())
	assert.ErrorIs(t, err, common.ErrRetryable)
}

func TestConsentStatus_NotFound(t *testing.T) {
	stub := &aggregatorStub{t: t, key: testKey(t)}
	client := newTestClient(t, stub)

	_, err := client.ConsentStatus(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestPollConsentStatus_ReturnsOnConvergence(t *testing.T) {
	stub := &aggregatorStub{t: t, key: testKey(t)}
	client := newTestClient(t, stub)

	status, err := client.PollConsentStatus(context.Background(), "ext-1", 10*time.Millisecond, 5)
	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", status)
}

func TestPollConsentStatus_ExhaustionReturnsLastKnown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			json.NewEncoder(w).Encode(tokenResponse{AccessToken: "tok-1", ExpiresIn: 3600})
		default:
			json.NewEncoder(w).Encode(consentResponse{ID: "ext-1", Status: "PENDING"})
		}
	}))
	defer srv.Close()

	client := NewClient(Config{
		BaseURL:  srv.URL,
		ClientID: "client-1",
		Timeout:  2 * time.Second,
	}, testLogger())

	status, err := client.PollConsentStatus(context.Background(), "ext-1", 5*time.Millisecond, 3)
	require.NoError(t, err)
	assert.Equal(t, "PENDING", status, "exhaustion hands back the last-known state")
}
