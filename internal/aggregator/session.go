package aggregator

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/aavault/aavault/internal/cryptox"
	"github.com/aavault/aavault/internal/server/sessions"
)

type sessionKeyMaterial struct {
	PublicKey string `json:"publicKey"`
	Nonce     string `json:"nonce"`
}

type sessionRequest struct {
	ConsentID     string             `json:"consentId"`
	ConsentHandle string             `json:"consentHandle"`
	DataRangeFrom string             `json:"dataRangeFrom"`
	DataRangeTo   string             `json:"dataRangeTo"`
	KeyMaterial   sessionKeyMaterial `json:"keyMaterial"`
}

type sessionResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type sessionDataResponse struct {
	KeyMaterial   sessionKeyMaterial `json:"keyMaterial"`
	EncryptedData string             `json:"encryptedData"`
}

// CreateDataSession asks the aggregator to open a data fetch under an
// approved consent, handing over the public half of the session key.
func (c *Client) CreateDataSession(ctx context.Context, req sessions.SessionRequest) (string, error) {
	body := sessionRequest{
		ConsentID:     req.ConsentExternalID,
		ConsentHandle: req.ConsentHandle,
		DataRangeFrom: req.DataRangeFrom.Format(time.RFC3339),
		DataRangeTo:   req.DataRangeTo.Format(time.RFC3339),
		KeyMaterial: sessionKeyMaterial{
			PublicKey: base64.StdEncoding.EncodeToString(req.PublicKey),
			Nonce:     base64.StdEncoding.EncodeToString(req.Nonce),
		},
	}

	var resp sessionResponse
	if err := c.doSigned(ctx, http.MethodPost, "/sessions", body, &resp); err != nil {
		return "", fmt.Errorf("error creating data session: %w", err)
	}
	return resp.ID, nil
}

// FetchSessionData downloads the encrypted payload for a ready session
// together with the sender's ephemeral key material.
func (c *Client) FetchSessionData(ctx context.Context, externalID string) (*cryptox.InboundPayload, error) {
	var resp sessionDataResponse
	if err := c.doSigned(ctx, http.MethodGet, "/sessions/"+externalID, nil, &resp); err != nil {
		return nil, fmt.Errorf("error fetching session data: %w", err)
	}

	remotePub, err := base64.StdEncoding.DecodeString(resp.KeyMaterial.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("error decoding remote public key: %w", err)
	}
	remoteNonce, err := base64.StdEncoding.DecodeString(resp.KeyMaterial.Nonce)
	if err != nil {
		return nil, fmt.Errorf("error decoding remote nonce: %w", err)
	}
	data, err := base64.StdEncoding.DecodeString(resp.EncryptedData)
	if err != nil {
		return nil, fmt.Errorf("error decoding encrypted data: %w", err)
	}

	return &cryptox.InboundPayload{
		RemotePublicKey: remotePub,
		RemoteNonce:     remoteNonce,
		EncryptedData:   data,
	}, nil
}
