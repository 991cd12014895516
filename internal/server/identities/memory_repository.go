package identities

import (
	"context"
	"sync"
	"time"

	"github.com/aavault/aavault/internal/common"
	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository used by tests and local
// sandboxes.
type MemoryRepository struct {
	mu         sync.Mutex
	identities map[string]*Identity
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{identities: make(map[string]*Identity)}
}

func (r *MemoryRepository) Create(ctx context.Context, identity *Identity) (*Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.identities {
		if existing.Phone == identity.Phone {
			return nil, common.ErrConflict
		}
	}

	stored := *identity
	stored.ID = uuid.NewString()
	stored.CreatedAt = time.Now()
	r.identities[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok := r.identities[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	out := *identity
	return &out, nil
}

func (r *MemoryRepository) GetByPhone(ctx context.Context, phone string) (*Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, identity := range r.identities {
		if identity.Phone == phone {
			out := *identity
			return &out, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *MemoryRepository) UpdateEmail(ctx context.Context, id, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok := r.identities[id]
	if !ok {
		return common.ErrNotFound
	}
	identity.Email = email
	return nil
}

func (r *MemoryRepository) UpdateKyc(ctx context.Context, id, status, level, provider string, fieldHashes map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok := r.identities[id]
	if !ok {
		return common.ErrNotFound
	}
	identity.KycStatus = status
	identity.KycLevel = level
	identity.KycProvider = provider
	identity.KycFieldHashes = fieldHashes
	return nil
}
