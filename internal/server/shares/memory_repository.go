package shares

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aavault/aavault/internal/common"
)

// MemoryRepository is an in-memory Repository used in tests.
type MemoryRepository struct {
	mu     sync.Mutex
	shares map[string]*Share
	tokens map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		shares: make(map[string]*Share),
		tokens: make(map[string]string),
	}
}

func (r *MemoryRepository) Create(ctx context.Context, share *Share) (*Share, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.tokens[share.Token]; taken {
		return nil, common.ErrConflict
	}

	cp := *share
	cp.ID = uuid.NewString()
	cp.AccessCount = 0
	cp.CreatedAt = time.Now()
	r.shares[cp.ID] = &cp
	r.tokens[cp.Token] = cp.ID

	out := cp
	return &out, nil
}

func (r *MemoryRepository) GetByOwnerAndID(ctx context.Context, ownerID, id string) (*Share, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.shares[id]
	if !ok || s.OwnerID != ownerID {
		return nil, common.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *MemoryRepository) GetByToken(ctx context.Context, token string) (*Share, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.tokens[token]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *r.shares[id]
	return &cp, nil
}

func (r *MemoryRepository) ListByOwner(ctx context.Context, ownerID string) ([]*Share, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Share
	for _, s := range r.shares {
		if s.OwnerID == ownerID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MemoryRepository) ConsumeAccess(ctx context.Context, token string) (int, int, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.tokens[token]
	if !ok {
		return 0, 0, false, nil
	}
	s := r.shares[id]
	if s.AccessCount >= s.MaxAccess {
		return 0, 0, false, nil
	}
	s.AccessCount++
	return s.AccessCount, s.MaxAccess, true, nil
}

func (r *MemoryRepository) Revoke(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.shares[id]
	if !ok || s.RevokedAt != nil {
		return common.ErrNotFound
	}
	t := time.Now()
	s.RevokedAt = &t
	return nil
}
