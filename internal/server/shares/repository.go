package shares

import "context"

type Repository interface {
	Create(ctx context.Context, share *Share) (*Share, error)
	GetByOwnerAndID(ctx context.Context, ownerID, id string) (*Share, error)
	GetByToken(ctx context.Context, token string) (*Share, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Share, error)
	// ConsumeAccess atomically increments the access count of the share
	// behind token, but only while it is below the maximum. Returns the
	// count after the increment, or ok=false when the budget is spent.
	// Concurrent redeemers must never collectively exceed the maximum.
	ConsumeAccess(ctx context.Context, token string) (count int, max int, ok bool, err error)
	Revoke(ctx context.Context, id string) error
}
