package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aavault/aavault/internal/common"
)

// MemoryRepository is an in-memory Repository used in tests.
type MemoryRepository struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{sessions: make(map[string]*Session)}
}

func (r *MemoryRepository) Create(ctx context.Context, session *Session) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *session
	cp.ID = uuid.NewString()
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	r.sessions[cp.ID] = &cp

	out := cp
	return &out, nil
}

func (r *MemoryRepository) GetByOwnerAndID(ctx context.Context, ownerID, id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok || s.OwnerID != ownerID {
		return nil, common.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *MemoryRepository) GetByExternalID(ctx context.Context, externalID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		if s.ExternalID == externalID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *MemoryRepository) ListByConsent(ctx context.Context, ownerID, consentID string) ([]*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Session
	for _, s := range r.sessions {
		if s.OwnerID == ownerID && s.ConsentID == consentID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MemoryRepository) MarkCompleted(ctx context.Context, id, blobKey, contentHash, hashAlg string, fetchedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok || s.Status != StatusPending {
		return false, nil
	}
	s.Status = StatusCompleted
	s.BlobKey = blobKey
	s.ContentHash = contentHash
	s.HashAlg = hashAlg
	t := fetchedAt
	s.FetchedAt = &t
	s.UpdatedAt = time.Now()
	return true, nil
}

func (r *MemoryRepository) UpdateStatus(ctx context.Context, id string, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return common.ErrNotFound
	}
	s.Status = status
	s.UpdatedAt = time.Now()
	return nil
}
