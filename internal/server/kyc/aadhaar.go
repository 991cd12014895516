package kyc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aavault/aavault/internal/common"
)

// AadhaarProvider completes an Aadhaar OTP flow against an eKYC gateway and
// grants FULL assurance.
type AadhaarProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewAadhaarProvider(baseURL, apiKey string, timeout time.Duration) *AadhaarProvider {
	return &AadhaarProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *AadhaarProvider) Name() string  { return "aadhaar-otp" }
func (p *AadhaarProvider) Level() string { return LevelFull }

func (p *AadhaarProvider) Applicable(input Input) bool {
	return input.AadhaarRef != "" && input.AadhaarOTP != ""
}

type aadhaarRequest struct {
	Ref string `json:"ref"`
	OTP string `json:"otp"`
}

type aadhaarResponse struct {
	Verified  bool   `json:"verified"`
	Name      string `json:"name"`
	BirthDate string `json:"birthDate"`
	Gender    string `json:"gender"`
	Address   string `json:"address"`
}

func (p *AadhaarProvider) Verify(ctx context.Context, input Input) (*Result, error) {
	body, err := json.Marshal(aadhaarRequest{Ref: input.AadhaarRef, OTP: input.AadhaarOTP})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/aadhaar/verify", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ekyc gateway unreachable: %w", common.ErrRetryable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("ekyc gateway returned %d: %w", resp.StatusCode, common.ErrRetryable)
	default:
		return nil, fmt.Errorf("ekyc gateway returned %d", resp.StatusCode)
	}

	var out aadhaarResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("error decoding ekyc response: %w", err)
	}
	if !out.Verified {
		return nil, fmt.Errorf("aadhaar verification failed: %w", common.ErrForbidden)
	}

	return &Result{
		Level: LevelFull,
		Fields: map[string]string{
			"name":      out.Name,
			"birthDate": out.BirthDate,
			"gender":    out.Gender,
			"address":   out.Address,
		},
	}, nil
}
