package audit

import "time"

// Entry is one append-only audit record.
type Entry struct {
	ID         string
	ActorID    string
	Action     string
	Resource   string
	ResourceID string
	CreatedAt  time.Time
}
