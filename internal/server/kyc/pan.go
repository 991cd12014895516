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

// PanProvider verifies a PAN (tax id) against an external registry and
// grants BASIC assurance.
type PanProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewPanProvider(baseURL, apiKey string, timeout time.Duration) *PanProvider {
	return &PanProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *PanProvider) Name() string  { return "pan" }
func (p *PanProvider) Level() string { return LevelBasic }

func (p *PanProvider) Applicable(input Input) bool {
	return input.Pan != "" && input.FullName != ""
}

type panRequest struct {
	Pan      string `json:"pan"`
	FullName string `json:"fullName"`
}

type panResponse struct {
	Valid          bool   `json:"valid"`
	RegisteredName string `json:"registeredName"`
}

func (p *PanProvider) Verify(ctx context.Context, input Input) (*Result, error) {
	body, err := json.Marshal(panRequest{Pan: input.Pan, FullName: input.FullName})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/pan/verify", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pan registry unreachable: %w", common.ErrRetryable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("pan registry returned %d: %w", resp.StatusCode, common.ErrRetryable)
	default:
		return nil, fmt.Errorf("pan registry returned %d", resp.StatusCode)
	}

	var out panResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("error decoding pan response: %w", err)
	}
	if !out.Valid {
		return nil, fmt.Errorf("pan verification failed: %w", common.ErrForbidden)
	}

	return &Result{
		Level: LevelBasic,
		Fields: map[string]string{
			"pan":  input.Pan,
			"name": out.RegisteredName,
		},
	}, nil
}
