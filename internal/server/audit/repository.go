package audit

import "context"

type Repository interface {
	Append(ctx context.Context, entry *Entry) error
	ListByActor(ctx context.Context, actorID string, limit int) ([]*Entry, error)
}
