package common

import "time"

// Domain-wide policy constants.
const (
	// OTP challenges.
	OTPExpiry      = 5 * time.Minute
	OTPMaxAttempts = 5
	OTPCodeDigits  = 6

	// Attestations expire by policy, not deletion.
	AttestationExpiry = 30 * 24 * time.Hour

	// Disclosure tokens.
	DefaultShareTTL       = 72 * time.Hour
	DefaultShareMaxAccess = 10
	ShareTokenBytes       = 32

	// Consent grants.
	DefaultConsentDurationDays = 365
)
