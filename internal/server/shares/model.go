package shares

import "time"

// Share is an owner-minted grant letting a recipient redeem the public
// metadata of one attestation, bounded by expiry and an access budget.
type Share struct {
	ID            string
	OwnerID       string
	AttestationID string
	RecipientID   string
	Purpose       string
	Token         string
	ExpiresAt     time.Time
	MaxAccess     int
	AccessCount   int
	RevokedAt     *time.Time
	CreatedAt     time.Time
}

func (s *Share) Revoked() bool {
	return s.RevokedAt != nil
}

func (s *Share) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
