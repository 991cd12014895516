package kyc

import (
	"context"
	"errors"
	"fmt"

	"github.com/aavault/aavault/internal/common"
	"github.com/aavault/aavault/internal/cryptox"
	"github.com/aavault/aavault/internal/logging"
	"github.com/aavault/aavault/internal/server/identities"
)

// IdentityUpdater is the slice of the identities service this package
// needs; satisfied by *identities.Service.
type IdentityUpdater interface {
	CompleteKyc(ctx context.Context, id, status, level, provider string, fieldHashes map[string]string) error
}

// Service orchestrates the available providers: for a given input the
// strongest applicable provider runs first, falling through on
// inapplicability but not on rejection.
type Service struct {
	providers  []Provider
	identities IdentityUpdater
	hasher     cryptox.Hasher
	logger     logging.Logger
}

// NewService orders providers strongest-first (FULL before BASIC).
func NewService(providers []Provider, updater IdentityUpdater, hasher cryptox.Hasher, logger logging.Logger) *Service {
	ordered := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p.Level() == LevelFull {
			ordered = append(ordered, p)
		}
	}
	for _, p := range providers {
		if p.Level() != LevelFull {
			ordered = append(ordered, p)
		}
	}
	return &Service{
		providers:  ordered,
		identities: updater,
		hasher:     hasher,
		logger:     logger.With("module", "kyc"),
	}
}

// Verify runs the strongest applicable provider and records the outcome on
// the identity. Only field hashes are stored. A provider rejection marks
// the identity FAILED; no applicable provider is a validation error.
func (s *Service) Verify(ctx context.Context, identityID string, input Input) (string, error) {
	var provider Provider
	for _, p := range s.providers {
		if p.Applicable(input) {
			provider = p
			break
		}
	}
	if provider == nil {
		return "", fmt.Errorf("no applicable verification provider: %w", common.ErrValidation)
	}

	result, err := provider.Verify(ctx, input)
	if err != nil {
		if errors.Is(err, common.ErrForbidden) {
			if uerr := s.identities.CompleteKyc(ctx, identityID, identities.KycFailed, "", provider.Name(), nil); uerr != nil {
				s.logger.Warn(ctx, "failed to record kyc rejection", "identity", identityID, "error", uerr)
			}
		}
		return "", err
	}

	fieldHashes := make(map[string]string, len(result.Fields))
	for name, value := range result.Fields {
		fieldHashes[name] = s.hasher.Sum([]byte(value))
	}

	err = s.identities.CompleteKyc(ctx, identityID, identities.KycVerified, result.Level, provider.Name(), fieldHashes)
	if err != nil {
		return "", fmt.Errorf("error recording kyc result: %w", err)
	}

	s.logger.Info(ctx, "kyc completed",
		"identity", identityID, "provider", provider.Name(), "level", result.Level)
	return result.Level, nil
}
