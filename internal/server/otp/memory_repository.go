package otp

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aavault/aavault/internal/common"
	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository used by tests and local
// sandboxes. The single mutex gives it the same effective-attempt guarantees
// as the conditional SQL update.
type MemoryRepository struct {
	mu         sync.Mutex
	challenges map[string]*Challenge
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{challenges: make(map[string]*Challenge)}
}

func (r *MemoryRepository) CreateReplacing(ctx context.Context, challenge *Challenge) (*Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.challenges {
		if c.Phone == challenge.Phone && !c.Consumed {
			c.Consumed = true
		}
	}

	stored := *challenge
	stored.ID = uuid.NewString()
	stored.CreatedAt = time.Now()
	r.challenges[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (r *MemoryRepository) LatestLive(ctx context.Context, phone string, now time.Time) (*Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var live []*Challenge
	for _, c := range r.challenges {
		if c.Phone == phone && !c.Consumed && c.ExpiresAt.After(now) {
			live = append(live, c)
		}
	}
	if len(live) == 0 {
		return nil, common.ErrNotFound
	}

	sort.Slice(live, func(i, j int) bool { return live[i].CreatedAt.After(live[j].CreatedAt) })
	out := *live[0]
	return &out, nil
}

func (r *MemoryRepository) IncrementAttempts(ctx context.Context, id string, maxAttempts int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.challenges[id]
	if !ok {
		return false, common.ErrNotFound
	}
	if c.Attempts >= maxAttempts {
		return false, nil
	}
	c.Attempts++
	return true, nil
}

func (r *MemoryRepository) Consume(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.challenges[id]
	if !ok {
		return common.ErrNotFound
	}
	c.Consumed = true
	return nil
}
