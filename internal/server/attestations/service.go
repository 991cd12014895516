// Package attestations is the registry of verified proofs: opaque proof
// bytes are deduplicated by content hash, checked by an external verifier
// and recorded append-only with a fixed expiry window.
package attestations

import (
	"context"
	"fmt"
	"time"

	"github.com/aavault/aavault/internal/common"
	"github.com/aavault/aavault/internal/cryptox"
	"github.com/aavault/aavault/internal/logging"
)

type Service struct {
	repo     Repository
	verifier Verifier
	hasher   cryptox.Hasher
	logger   logging.Logger
}

func NewService(repo Repository, verifier Verifier, hasher cryptox.Hasher, logger logging.Logger) *Service {
	return &Service{
		repo:     repo,
		verifier: verifier,
		hasher:   hasher,
		logger:   logger.With("module", "attestations"),
	}
}

// Submit records a proof. The content hash of the raw proof bytes is the
// dedup key: a repeated or replayed submission fails with Conflict before
// the verifier is ever invoked. The record is written whether verification
// passes or not, so a rejected proof cannot be silently resubmitted.
func (s *Service) Submit(ctx context.Context, ownerID, factType string, publicInputs map[string]string, proof []byte) (*Attestation, error) {
	if factType == "" || len(proof) == 0 {
		return nil, fmt.Errorf("fact type and proof are required: %w", common.ErrValidation)
	}

	contentHash := s.hasher.Sum(proof)

	exists, err := s.repo.ExistsByContentHash(ctx, contentHash)
	if err != nil {
		return nil, fmt.Errorf("error checking content hash: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("proof already submitted: %w", common.ErrConflict)
	}

	valid, err := s.verifier.Verify(ctx, factType, proof, publicInputs)
	if err != nil {
		return nil, fmt.Errorf("error verifying proof: %w", err)
	}

	status := StatusInvalid
	if valid {
		status = StatusVerified
	}

	attestation := &Attestation{
		OwnerID:         ownerID,
		FactType:        factType,
		PublicInputs:    publicInputs,
		Proof:           proof,
		ContentHash:     contentHash,
		HashAlg:         s.hasher.Name(),
		Verified:        valid,
		Status:          status,
		VerifierVersion: s.verifier.Version(),
		ExpiresAt:       time.Now().Add(common.AttestationExpiry),
	}

	attestation, err = s.repo.Create(ctx, attestation)
	if err != nil {
		// the unique index catches a concurrent submit of the same proof
		return nil, err
	}

	s.logger.Info(ctx, "attestation recorded",
		"id", attestation.ID, "factType", factType, "status", status)
	return attestation, nil
}

// VerifyPublic re-runs verification statelessly. Open to unauthenticated
// callers; nothing is persisted.
func (s *Service) VerifyPublic(ctx context.Context, factType string, proof []byte, publicInputs map[string]string) (bool, string, error) {
	if factType == "" || len(proof) == 0 {
		return false, "", fmt.Errorf("fact type and proof are required: %w", common.ErrValidation)
	}
	valid, err := s.verifier.Verify(ctx, factType, proof, publicInputs)
	if err != nil {
		return false, "", fmt.Errorf("error verifying proof: %w", err)
	}
	return valid, s.verifier.Version(), nil
}

func (s *Service) Get(ctx context.Context, ownerID, id string) (*Attestation, error) {
	return s.repo.GetByOwnerAndID(ctx, ownerID, id)
}

func (s *Service) List(ctx context.Context, ownerID string) ([]*Attestation, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// GetByID resolves an attestation regardless of owner. Used when a share
// token is redeemed by a third party.
func (s *Service) GetByID(ctx context.Context, id string) (*Attestation, error) {
	return s.repo.GetByID(ctx, id)
}
