package attestations

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aavault/aavault/internal/common"
)

// Verifier checks a proof for a given fact type. Version identifies the
// verifying code so every attestation records what checked it.
type Verifier interface {
	Verify(ctx context.Context, factType string, proof []byte, publicInputs map[string]string) (bool, error)
	Version() string
}

// HTTPVerifier delegates verification to an external proof-verification
// service.
type HTTPVerifier struct {
	baseURL string
	version string
	client  *http.Client
}

func NewHTTPVerifier(baseURL, version string, timeout time.Duration) *HTTPVerifier {
	return &HTTPVerifier{
		baseURL: baseURL,
		version: version,
		client:  &http.Client{Timeout: timeout},
	}
}

func (v *HTTPVerifier) Version() string { return v.version }

type verifyRequest struct {
	FactType     string            `json:"factType"`
	Proof        string            `json:"proof"`
	PublicInputs map[string]string `json:"publicInputs"`
}

type verifyResponse struct {
	Valid bool `json:"valid"`
}

func (v *HTTPVerifier) Verify(ctx context.Context, factType string, proof []byte, publicInputs map[string]string) (bool, error) {
	body, err := json.Marshal(verifyRequest{
		FactType:     factType,
		Proof:        base64.StdEncoding.EncodeToString(proof),
		PublicInputs: publicInputs,
	})
	if err != nil {
		return false, fmt.Errorf("error encoding verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/verify", bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("verifier unreachable: %w", common.ErrRetryable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 500:
		return false, fmt.Errorf("verifier returned %d: %w", resp.StatusCode, common.ErrRetryable)
	default:
		return false, fmt.Errorf("verifier returned %d", resp.StatusCode)
	}

	var out verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("error decoding verify response: %w", err)
	}
	return out.Valid, nil
}

// StaticVerifier returns a fixed outcome. Used in tests and local runs
// without a verification service.
type StaticVerifier struct {
	Valid bool
	Ver   string
}

func (s StaticVerifier) Verify(ctx context.Context, factType string, proof []byte, publicInputs map[string]string) (bool, error) {
	return s.Valid, nil
}

func (s StaticVerifier) Version() string {
	if s.Ver == "" {
		return "static-1"
	}
	return s.Ver
}
