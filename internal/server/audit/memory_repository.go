package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository used in tests.
type MemoryRepository struct {
	mu      sync.Mutex
	entries []*Entry
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Append(ctx context.Context, entry *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *entry
	cp.ID = uuid.NewString()
	cp.CreatedAt = time.Now()
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *MemoryRepository) ListByActor(ctx context.Context, actorID string, limit int) ([]*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Entry
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if r.entries[i].ActorID == actorID {
			cp := *r.entries[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}
