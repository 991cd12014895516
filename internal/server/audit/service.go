// Package audit keeps an append-only trail of who did what to which
// resource. Recording is best-effort: an audit failure never fails the
// operation being audited.
package audit

import (
	"context"

	"github.com/aavault/aavault/internal/logging"
)

type Service struct {
	repo   Repository
	logger logging.Logger
}

func NewService(repo Repository, logger logging.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With("module", "audit"),
	}
}

// Record appends an audit entry. Failures are logged and swallowed.
func (s *Service) Record(ctx context.Context, actorID, action, resource, resourceID string) {
	err := s.repo.Append(ctx, &Entry{
		ActorID:    actorID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
	})
	if err != nil {
		s.logger.Warn(ctx, "failed to record audit entry",
			"actor", actorID, "action", action, "resource", resource, "error", err)
	}
}

func (s *Service) ListByActor(ctx context.Context, actorID string, limit int) ([]*Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListByActor(ctx, actorID, limit)
}
