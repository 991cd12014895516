package consents

import "context"

type Repository interface {
	Create(ctx context.Context, grant *Grant) (*Grant, error)
	GetByOwnerAndID(ctx context.Context, ownerID, id string) (*Grant, error)
	GetByID(ctx context.Context, id string) (*Grant, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Grant, error)

	// FindByExternalRef locates a grant by the aggregator's consent id or
	// consent handle; either key may be empty.
	FindByExternalRef(ctx context.Context, externalID, handle string) (*Grant, error)

	UpdateRegistration(ctx context.Context, id, externalID, handle, approvalURL string) error
	UpdateStatus(ctx context.Context, id string, status Status, handle string) error

	// Delete removes a grant that never obtained its external reference.
	Delete(ctx context.Context, id string) error
}
