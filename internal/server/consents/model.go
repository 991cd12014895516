package consents

import "time"

// Status is the lifecycle state of a consent grant.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusActive   Status = "ACTIVE"
	StatusPaused   Status = "PAUSED"
	StatusRevoked  Status = "REVOKED"
	StatusExpired  Status = "EXPIRED"
	StatusRejected Status = "REJECTED"
)

// transitions is the explicit state machine. Terminal states (REVOKED,
// EXPIRED, REJECTED) have no outgoing edges; notifications attempting an
// off-table transition are rejected with a Conflict instead of applied.
var transitions = map[Status][]Status{
	StatusPending: {StatusActive, StatusRejected},
	StatusActive:  {StatusPaused, StatusRevoked, StatusExpired},
	StatusPaused:  {StatusActive, StatusRevoked, StatusExpired},
}

// CanTransition reports whether from → to is on the transition table.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsValidStatus reports whether s is a known lifecycle state.
func IsValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusActive, StatusPaused, StatusRevoked, StatusExpired, StatusRejected:
		return true
	}
	return false
}

// Grant is a recorded, time-bounded authorization for a specific data fetch
// scope, mirrored against the external aggregator.
type Grant struct {
	ID            string
	OwnerID       string
	VUA           string
	FiTypes       []string
	PurposeCode   string
	PurposeText   string
	DataRangeFrom time.Time
	DataRangeTo   time.Time
	DurationDays  int
	ExpiresAt     time.Time
	FetchType     string
	ConsentMode   string
	ExternalID    string
	Handle        string
	ApprovalURL   string
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
