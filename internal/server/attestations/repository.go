package attestations

import "context"

// Repository is append-only: records are created and read, never updated or
// deleted. Expiry is a policy check at read time, not a row mutation.
type Repository interface {
	// Create persists a new attestation. A content-hash collision surfaces
	// as common.ErrConflict.
	Create(ctx context.Context, attestation *Attestation) (*Attestation, error)
	GetByOwnerAndID(ctx context.Context, ownerID, id string) (*Attestation, error)
	GetByID(ctx context.Context, id string) (*Attestation, error)
	ExistsByContentHash(ctx context.Context, contentHash string) (bool, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Attestation, error)
}
