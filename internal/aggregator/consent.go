package aggregator

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aavault/aavault/internal/server/consents"
)

type consentRequest struct {
	VUA           string   `json:"vua"`
	FiTypes       []string `json:"fiTypes"`
	PurposeCode   string   `json:"purposeCode"`
	PurposeText   string   `json:"purposeText"`
	DataRangeFrom string   `json:"dataRangeFrom"`
	DataRangeTo   string   `json:"dataRangeTo"`
	ExpiresAt     string   `json:"expiresAt"`
	FetchType     string   `json:"fetchType"`
	ConsentMode   string   `json:"consentMode"`
}

type consentResponse struct {
	ID     string `json:"id"`
	Handle string `json:"handle"`
	URL    string `json:"url"`
	Status string `json:"status"`
}

// RegisterConsent exchanges a locally created grant for the aggregator's
// external id, handle and user approval URL.
func (c *Client) RegisterConsent(ctx context.Context, grant *consents.Grant) (*consents.Registration, error) {
	req := consentRequest{
		VUA:           grant.VUA,
		FiTypes:       grant.FiTypes,
		PurposeCode:   grant.PurposeCode,
		PurposeText:   grant.PurposeText,
		DataRangeFrom: grant.DataRangeFrom.Format(time.RFC3339),
		DataRangeTo:   grant.DataRangeTo.Format(time.RFC3339),
		ExpiresAt:     grant.ExpiresAt.Format(time.RFC3339),
		FetchType:     grant.FetchType,
		ConsentMode:   grant.ConsentMode,
	}

	var resp consentResponse
	if err := c.doSigned(ctx, http.MethodPost, "/consents", req, &resp); err != nil {
		return nil, fmt.Errorf("error registering consent: %w", err)
	}

	return &consents.Registration{
		ExternalID:  resp.ID,
		Handle:      resp.Handle,
		ApprovalURL: resp.URL,
	}, nil
}

// ConsentStatus fetches the aggregator-side status of a consent.
func (c *Client) ConsentStatus(ctx context.Context, externalID string) (string, error) {
	var resp consentResponse
	if err := c.doSigned(ctx, http.MethodGet, "/consents/"+externalID, nil, &resp); err != nil {
		return "", fmt.Errorf("error fetching consent status: %w", err)
	}
	return resp.Status, nil
}

// RevokeConsent tells the aggregator the user withdrew the consent.
func (c *Client) RevokeConsent(ctx context.Context, externalID string) error {
	if err := c.doSigned(ctx, http.MethodPost, "/consents/"+externalID+"/revoke", struct{}{}, nil); err != nil {
		return fmt.Errorf("error revoking consent: %w", err)
	}
	return nil
}
