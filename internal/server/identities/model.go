package identities

import "time"

// KYC status values.
const (
	KycPending  = "PENDING"
	KycVerified = "VERIFIED"
	KycFailed   = "FAILED"
)

// Identity is a phone-anchored user record. Created on first successful OTP
// verification; never deleted.
type Identity struct {
	ID        string
	Phone     string
	Email     string
	KycStatus string
	// KycLevel records the strength of the completed verification
	// (BASIC, STANDARD, FULL, CKYC); empty until KYC completes.
	KycLevel string
	// KycProvider names the provider that verified the identity.
	KycProvider string
	// KycFieldHashes holds only content hashes of the provider-returned
	// fields; the raw values are never persisted.
	KycFieldHashes map[string]string
	CreatedAt      time.Time
}
