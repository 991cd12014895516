package attestations

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aavault/aavault/internal/common"
)

// MemoryRepository is an in-memory Repository used in tests.
type MemoryRepository struct {
	mu      sync.Mutex
	records map[string]*Attestation
	hashes  map[string]bool
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records: make(map[string]*Attestation),
		hashes:  make(map[string]bool),
	}
}

func (r *MemoryRepository) Create(ctx context.Context, a *Attestation) (*Attestation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.hashes[a.ContentHash] {
		return nil, common.ErrConflict
	}

	cp := *a
	cp.ID = uuid.NewString()
	cp.CreatedAt = time.Now()
	r.records[cp.ID] = &cp
	r.hashes[cp.ContentHash] = true

	out := cp
	return &out, nil
}

func (r *MemoryRepository) GetByOwnerAndID(ctx context.Context, ownerID, id string) (*Attestation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.records[id]
	if !ok || a.OwnerID != ownerID {
		return nil, common.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*Attestation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.records[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *MemoryRepository) ExistsByContentHash(ctx context.Context, contentHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hashes[contentHash], nil
}

func (r *MemoryRepository) ListByOwner(ctx context.Context, ownerID string) ([]*Attestation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Attestation
	for _, a := range r.records {
		if a.OwnerID == ownerID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}
