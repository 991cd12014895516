// Package kyc verifies identities against external providers. Raw personal
// fields returned by a provider never reach storage; only their content
// hashes are persisted on the identity.
package kyc

import "context"

// Level of assurance a provider grants.
const (
	LevelBasic = "BASIC"
	LevelFull  = "FULL"
)

// Input carries the documents a user offers for verification. Fields are
// provider-specific; unused ones stay empty.
type Input struct {
	Pan        string
	AadhaarRef string
	AadhaarOTP string
	FullName   string
	BirthDate  string
}

// Result is what a provider hands back: the assurance level and the
// verified field values. The caller hashes the fields; they are never
// stored raw.
type Result struct {
	Level  string
	Fields map[string]string
}

type Provider interface {
	Name() string
	Level() string
	// Applicable reports whether the input carries what this provider needs.
	Applicable(input Input) bool
	Verify(ctx context.Context, input Input) (*Result, error)
}
