package identities

import (
	"context"
	"errors"
	"fmt"

	"github.com/aavault/aavault/internal/common"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// FindOrCreateByPhone returns the identity for phone, creating it on first
// successful OTP verification.
func (s *Service) FindOrCreateByPhone(ctx context.Context, phone string) (*Identity, error) {
	identity, err := s.repo.GetByPhone(ctx, phone)
	if err == nil {
		return identity, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("error looking up identity: %w", err)
	}

	identity = &Identity{Phone: phone, KycStatus: KycPending}
	identity, err = s.repo.Create(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("error creating identity: %w", err)
	}

	return identity, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Identity, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateEmail(ctx context.Context, id, email string) (*Identity, error) {
	if err := s.repo.UpdateEmail(ctx, id, email); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// CompleteKyc records the outcome of an identity verification. Only the
// hashes of provider-returned fields are stored.
func (s *Service) CompleteKyc(ctx context.Context, id, status, level, provider string, fieldHashes map[string]string) error {
	return s.repo.UpdateKyc(ctx, id, status, level, provider, fieldHashes)
}
