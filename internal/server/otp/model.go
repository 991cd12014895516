package otp

import "time"

// Challenge is a phone-bound, short-lived login challenge. Only the salted
// one-way hash of the code is stored, never the code itself. At most one
// live (unconsumed, unexpired) challenge exists per phone: issuing a new one
// retires all prior unconsumed challenges for that phone.
type Challenge struct {
	ID        string
	Phone     string
	CodeHash  []byte
	Salt      []byte
	ExpiresAt time.Time
	Attempts  int
	Consumed  bool
	CreatedAt time.Time
}
