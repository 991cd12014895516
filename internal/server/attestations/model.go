package attestations

import "time"

type Status string

const (
	StatusVerified Status = "VERIFIED"
	StatusInvalid  Status = "INVALID"
)

// Attestation is an append-only record of a verified (or rejected) proof.
// Only the opaque proof bytes and hashes are stored; the private witness
// never reaches this system.
type Attestation struct {
	ID              string
	OwnerID         string
	FactType        string
	PublicInputs    map[string]string
	Proof           []byte
	ContentHash     string
	HashAlg         string
	Verified        bool
	Status          Status
	VerifierVersion string
	ExpiresAt       time.Time
	CreatedAt       time.Time
}

// PublicMetadata is the projection safe to hand to third parties. It never
// includes the proof bytes themselves.
type PublicMetadata struct {
	FactType        string            `json:"factType"`
	PublicInputs    map[string]string `json:"publicInputs"`
	Status          Status            `json:"status"`
	Verified        bool              `json:"verified"`
	ContentHash     string            `json:"contentHash"`
	HashAlg         string            `json:"hashAlg"`
	VerifierVersion string            `json:"verifierVersion"`
	VerifiedAt      time.Time         `json:"verifiedAt"`
	ExpiresAt       time.Time         `json:"expiresAt"`
}

func (a *Attestation) Public() *PublicMetadata {
	return &PublicMetadata{
		FactType:        a.FactType,
		PublicInputs:    a.PublicInputs,
		Status:          a.Status,
		Verified:        a.Verified,
		ContentHash:     a.ContentHash,
		HashAlg:         a.HashAlg,
		VerifierVersion: a.VerifierVersion,
		VerifiedAt:      a.CreatedAt,
		ExpiresAt:       a.ExpiresAt,
	}
}

func (a *Attestation) Expired(now time.Time) bool {
	return now.After(a.ExpiresAt)
}
