package aggregator

import (
	"context"
	"time"
)

// PollConsentStatus polls the aggregator until the consent leaves PENDING
// or the attempt budget runs out, returning the last-known status either
// way. Convergence normally arrives via webhook; polling is a convenience
// fallback, not a correctness requirement.
func (c *Client) PollConsentStatus(ctx context.Context, externalID string, interval time.Duration, maxAttempts int) (string, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := "PENDING"
	for attempt := 0; attempt < maxAttempts; attempt++ {
		status, err := c.ConsentStatus(ctx, externalID)
		if err != nil {
			c.logger.Warn(ctx, "consent status poll failed",
				"consent", externalID, "attempt", attempt, "error", err)
		} else {
			last = status
			if status != "PENDING" {
				return status, nil
			}
		}

		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-ticker.C:
		}
	}
	return last, nil
}
