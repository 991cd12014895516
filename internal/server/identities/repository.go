package identities

import "context"

type Repository interface {
	Create(ctx context.Context, identity *Identity) (*Identity, error)
	GetByID(ctx context.Context, id string) (*Identity, error)
	GetByPhone(ctx context.Context, phone string) (*Identity, error)
	UpdateEmail(ctx context.Context, id, email string) error
	UpdateKyc(ctx context.Context, id, status, level, provider string, fieldHashes map[string]string) error
}
