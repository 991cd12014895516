// Package shares is the disclosure broker: owners mint opaque high-entropy
// tokens scoped to one verified attestation, and third parties redeem them
// within a TTL and access-count envelope.
package shares

import (
	"context"
	"fmt"
	"time"

	"github.com/aavault/aavault/internal/common"
	"github.com/aavault/aavault/internal/logging"
	"github.com/aavault/aavault/internal/server/attestations"
)

// AttestationSource resolves attestations; satisfied by
// *attestations.Service via its repository-backed getters.
type AttestationSource interface {
	Get(ctx context.Context, ownerID, id string) (*attestations.Attestation, error)
	GetByID(ctx context.Context, id string) (*attestations.Attestation, error)
}

// CreateParams captures a share request from the owner. Zero TTL and
// max-access fall back to the defaults (72h, 10).
type CreateParams struct {
	OwnerID       string
	AttestationID string
	RecipientID   string
	Purpose       string
	TTL           time.Duration
	MaxAccess     int
}

// Redemption is what a redeeming third party gets back: the attestation's
// public projection and what is left of the access budget. The underlying
// raw data is never reachable through this path.
type Redemption struct {
	Attestation     *attestations.PublicMetadata `json:"attestation"`
	RemainingAccess int                          `json:"remainingAccess"`
}

type Service struct {
	repo         Repository
	attestations AttestationSource
	logger       logging.Logger
}

func NewService(repo Repository, source AttestationSource, logger logging.Logger) *Service {
	return &Service{
		repo:         repo,
		attestations: source,
		logger:       logger.With("module", "shares"),
	}
}

// Create mints a share over a verified attestation owned by ownerID. An
// absent, foreign or unverified attestation all look the same to the
// caller: NotFound.
func (s *Service) Create(ctx context.Context, p CreateParams) (*Share, error) {
	attestation, err := s.attestations.Get(ctx, p.OwnerID, p.AttestationID)
	if err != nil {
		return nil, err
	}
	if !attestation.Verified {
		return nil, fmt.Errorf("attestation %s not verified: %w", p.AttestationID, common.ErrNotFound)
	}

	if p.TTL <= 0 {
		p.TTL = common.DefaultShareTTL
	}
	if p.MaxAccess <= 0 {
		p.MaxAccess = common.DefaultShareMaxAccess
	}

	token, err := common.MakeRandHexString(common.ShareTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	share := &Share{
		OwnerID:       p.OwnerID,
		AttestationID: p.AttestationID,
		RecipientID:   p.RecipientID,
		Purpose:       p.Purpose,
		Token:         token,
		ExpiresAt:     time.Now().Add(p.TTL),
		MaxAccess:     p.MaxAccess,
	}
	share, err = s.repo.Create(ctx, share)
	if err != nil {
		return nil, fmt.Errorf("error creating share: %w", err)
	}

	s.logger.Info(ctx, "share created",
		"id", share.ID, "attestation", p.AttestationID, "recipient", p.RecipientID)
	return share, nil
}

// Redeem spends one access of the share behind token. The ladder is
// NotFound (unknown token), then Forbidden (revoked, expired or exhausted).
// The access-count check-and-increment is a single conditional update, so
// concurrent redeemers can never collectively exceed the budget.
func (s *Service) Redeem(ctx context.Context, token string) (*Redemption, error) {
	share, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	switch {
	case share.Revoked():
		return nil, fmt.Errorf("share revoked: %w", common.ErrForbidden)
	case share.Expired(now):
		return nil, fmt.Errorf("share expired: %w", common.ErrForbidden)
	case share.AccessCount >= share.MaxAccess:
		return nil, fmt.Errorf("share access exhausted: %w", common.ErrForbidden)
	}

	count, max, ok, err := s.repo.ConsumeAccess(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("error consuming access: %w", err)
	}
	if !ok {
		// lost the race for the last access
		return nil, fmt.Errorf("share access exhausted: %w", common.ErrForbidden)
	}

	attestation, err := s.attestations.GetByID(ctx, share.AttestationID)
	if err != nil {
		return nil, fmt.Errorf("error resolving attestation: %w", err)
	}

	return &Redemption{
		Attestation:     attestation.Public(),
		RemainingAccess: max - count,
	}, nil
}

// Revoke terminally disables a share. Revoking twice is Conflict.
func (s *Service) Revoke(ctx context.Context, ownerID, id string) (*Share, error) {
	share, err := s.repo.GetByOwnerAndID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if share.Revoked() {
		return nil, fmt.Errorf("share already revoked: %w", common.ErrConflict)
	}

	if err := s.repo.Revoke(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.GetByOwnerAndID(ctx, ownerID, id)
}

func (s *Service) List(ctx context.Context, ownerID string) ([]*Share, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}
