package consents

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aavault/aavault/internal/common"
	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository for tests and local sandboxes.
type MemoryRepository struct {
	mu     sync.Mutex
	grants map[string]*Grant
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{grants: make(map[string]*Grant)}
}

func (r *MemoryRepository) Create(ctx context.Context, grant *Grant) (*Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *grant
	stored.ID = uuid.NewString()
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	r.grants[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (r *MemoryRepository) GetByOwnerAndID(ctx context.Context, ownerID, id string) (*Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.grants[id]
	if !ok || g.OwnerID != ownerID {
		return nil, common.ErrNotFound
	}
	out := *g
	return &out, nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.grants[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	out := *g
	return &out, nil
}

func (r *MemoryRepository) ListByOwner(ctx context.Context, ownerID string) ([]*Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Grant
	for _, g := range r.grants {
		if g.OwnerID == ownerID {
			cp := *g
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepository) FindByExternalRef(ctx context.Context, externalID, handle string) (*Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, g := range r.grants {
		if (externalID != "" && g.ExternalID == externalID) || (handle != "" && g.Handle == handle) {
			out := *g
			return &out, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *MemoryRepository) UpdateRegistration(ctx context.Context, id, externalID, handle, approvalURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.grants[id]
	if !ok {
		return common.ErrNotFound
	}
	g.ExternalID = externalID
	g.Handle = handle
	g.ApprovalURL = approvalURL
	g.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryRepository) UpdateStatus(ctx context.Context, id string, status Status, handle string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.grants[id]
	if !ok {
		return common.ErrNotFound
	}
	g.Status = status
	if handle != "" {
		g.Handle = handle
	}
	g.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.grants[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.grants, id)
	return nil
}
