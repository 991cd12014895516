// Package consents owns the per-user data-sharing grant and its state
// machine, mirrored against the external account aggregator.
package consents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aavault/aavault/internal/common"
	"github.com/aavault/aavault/internal/logging"
)

// Registration is the aggregator's answer to a consent request.
type Registration struct {
	ExternalID  string
	Handle      string
	ApprovalURL string
}

// Aggregator is the slice of the external aggregator this package needs.
type Aggregator interface {
	RegisterConsent(ctx context.Context, grant *Grant) (*Registration, error)
	RevokeConsent(ctx context.Context, externalID string) error
}

// CreateParams captures a consent request from the owner.
type CreateParams struct {
	OwnerID       string
	VUA           string
	FiTypes       []string
	PurposeCode   string
	PurposeText   string
	DataRangeFrom time.Time
	DataRangeTo   time.Time
	DurationDays  int
	FetchType     string
	ConsentMode   string
}

type Service struct {
	repo       Repository
	aggregator Aggregator
	logger     logging.Logger
}

func NewService(repo Repository, aggregator Aggregator, logger logging.Logger) *Service {
	return &Service{
		repo:       repo,
		aggregator: aggregator,
		logger:     logger.With("module", "consents"),
	}
}

// Create persists a PENDING grant, registers it with the aggregator and
// stores the external reference. If registration fails the local record is
// removed again so no orphaned PENDING row without an external reference
// survives, and the failure surfaces as retryable.
func (s *Service) Create(ctx context.Context, p CreateParams) (*Grant, error) {
	if p.DurationDays <= 0 {
		p.DurationDays = common.DefaultConsentDurationDays
	}
	if p.FetchType == "" {
		p.FetchType = "ONETIME"
	}
	if p.ConsentMode == "" {
		p.ConsentMode = "VIEW"
	}

	grant := &Grant{
		OwnerID:       p.OwnerID,
		VUA:           p.VUA,
		FiTypes:       p.FiTypes,
		PurposeCode:   p.PurposeCode,
		PurposeText:   p.PurposeText,
		DataRangeFrom: p.DataRangeFrom,
		DataRangeTo:   p.DataRangeTo,
		DurationDays:  p.DurationDays,
		ExpiresAt:     time.Now().AddDate(0, 0, p.DurationDays),
		FetchType:     p.FetchType,
		ConsentMode:   p.ConsentMode,
		Status:        StatusPending,
	}

	grant, err := s.repo.Create(ctx, grant)
	if err != nil {
		return nil, fmt.Errorf("error creating consent: %w", err)
	}

	reg, err := s.aggregator.RegisterConsent(ctx, grant)
	if err != nil {
		s.logger.Warn(ctx, "aggregator registration failed", "consent_id", grant.ID, "error", err.Error())
		if delErr := s.repo.Delete(ctx, grant.ID); delErr != nil {
			s.logger.Error(ctx, "rollback of unregistered consent failed", "consent_id", grant.ID, "error", delErr.Error())
		}
		return nil, fmt.Errorf("consent registration: %w", common.ErrRetryable)
	}

	if err := s.repo.UpdateRegistration(ctx, grant.ID, reg.ExternalID, reg.Handle, reg.ApprovalURL); err != nil {
		return nil, fmt.Errorf("error storing external reference: %w", err)
	}

	grant.ExternalID = reg.ExternalID
	grant.Handle = reg.Handle
	grant.ApprovalURL = reg.ApprovalURL
	return grant, nil
}

func (s *Service) Get(ctx context.Context, ownerID, id string) (*Grant, error) {
	return s.repo.GetByOwnerAndID(ctx, ownerID, id)
}

func (s *Service) List(ctx context.Context, ownerID string) ([]*Grant, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// HandleNotification applies an aggregator status push. The grant is located
// by external id or handle; an unknown reference is NotFound, an off-table
// transition is Conflict, and a newly learned handle is stored.
func (s *Service) HandleNotification(ctx context.Context, externalID, handle string, newStatus Status) (*Grant, error) {
	if !IsValidStatus(newStatus) {
		return nil, fmt.Errorf("unknown consent status %q: %w", newStatus, common.ErrValidation)
	}

	grant, err := s.repo.FindByExternalRef(ctx, externalID, handle)
	if err != nil {
		return nil, err
	}

	if grant.Status == newStatus {
		// Aggregators redeliver; same-status pushes are idempotent no-ops.
		return grant, nil
	}

	if !CanTransition(grant.Status, newStatus) {
		s.logger.Warn(ctx, "rejected off-table consent transition",
			"consent_id", grant.ID, "from", string(grant.Status), "to", string(newStatus))
		return nil, fmt.Errorf("transition %s -> %s: %w", grant.Status, newStatus, common.ErrConflict)
	}

	if err := s.repo.UpdateStatus(ctx, grant.ID, newStatus, handle); err != nil {
		return nil, err
	}

	grant.Status = newStatus
	if handle != "" {
		grant.Handle = handle
	}
	s.logger.Info(ctx, "consent status updated", "consent_id", grant.ID, "status", string(newStatus))
	return grant, nil
}

// Revoke terminates an owned grant. Already-terminal grants yield Conflict.
// The aggregator is notified best-effort; a notification failure does not
// undo the local revocation.
func (s *Service) Revoke(ctx context.Context, ownerID, id string) (*Grant, error) {
	grant, err := s.repo.GetByOwnerAndID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if !CanTransition(grant.Status, StatusRevoked) {
		return nil, fmt.Errorf("consent is %s: %w", grant.Status, common.ErrConflict)
	}

	if err := s.repo.UpdateStatus(ctx, grant.ID, StatusRevoked, ""); err != nil {
		return nil, err
	}
	grant.Status = StatusRevoked

	if grant.ExternalID != "" {
		if err := s.aggregator.RevokeConsent(ctx, grant.ExternalID); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn(ctx, "aggregator revoke notification failed",
				"consent_id", grant.ID, "error", err.Error())
		}
	}

	return grant, nil
}
