package sessions

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, session *Session) (*Session, error)
	GetByOwnerAndID(ctx context.Context, ownerID, id string) (*Session, error)
	GetByExternalID(ctx context.Context, externalID string) (*Session, error)
	ListByConsent(ctx context.Context, ownerID, consentID string) ([]*Session, error)
	// MarkCompleted records the blob reference, content hash and fetch time
	// and flips the status, but only while the session is still PENDING.
	// Returns false when the session was already terminal.
	MarkCompleted(ctx context.Context, id, blobKey, contentHash, hashAlg string, fetchedAt time.Time) (bool, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
}
