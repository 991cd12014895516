package otp

import (
	"context"
	"time"
)

type Repository interface {
	// CreateReplacing retires every unconsumed challenge for the phone and
	// inserts the new one, atomically.
	CreateReplacing(ctx context.Context, challenge *Challenge) (*Challenge, error)

	// LatestLive returns the most recently created unconsumed, unexpired
	// challenge for the phone, or common.ErrNotFound.
	LatestLive(ctx context.Context, phone string, now time.Time) (*Challenge, error)

	// IncrementAttempts performs a single conditional increment: attempts
	// grows by one only while it is still below maxAttempts. It reports
	// whether the increment was applied; false means the attempt budget is
	// already exhausted.
	IncrementAttempts(ctx context.Context, id string, maxAttempts int) (bool, error)

	// Consume marks the challenge used, terminally.
	Consume(ctx context.Context, id string) error
}
