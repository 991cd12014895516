package sessions

import "time"

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusExpired   Status = "EXPIRED"
)

func IsValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusExpired:
		return true
	}
	return false
}

// Session is one fetch of financial data under an ACTIVE consent. Once
// COMPLETED it never changes again; only reads are allowed.
type Session struct {
	ID          string
	ConsentID   string
	OwnerID     string
	ExternalID  string
	Status      Status
	BlobKey     string
	ContentHash string
	HashAlg     string
	// KeyMaterial holds the session's ECDH private key and local nonce,
	// encrypted at rest. Needed to decrypt the inbound payload when the
	// aggregator delivers it.
	KeyMaterial []byte
	FetchedAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
