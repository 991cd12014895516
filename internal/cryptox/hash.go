package cryptox

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Hasher computes one-way, deterministic, collision-resistant content
// commitments. It is a pluggable strategy so the general-purpose default can
// be swapped for a circuit-friendly algebraic hash without changing any
// caller contract.
type Hasher interface {
	// Name identifies the algorithm; persisted next to commitments so old
	// records stay interpretable after a strategy change.
	Name() string

	// Sum returns the lowercase hex digest of data.
	Sum(data []byte) string
}

// SHA256Hasher is the default commitment strategy.
type SHA256Hasher struct{}

func (SHA256Hasher) Name() string { return "sha256" }

func (SHA256Hasher) Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Blake3Hasher is the circuit-friendlier alternative strategy.
type Blake3Hasher struct{}

func (Blake3Hasher) Name() string { return "blake3" }

func (Blake3Hasher) Sum(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}

// HasherByName resolves a configured strategy name, falling back to sha256
// for unknown values.
func HasherByName(name string) Hasher {
	if name == "blake3" {
		return Blake3Hasher{}
	}
	return SHA256Hasher{}
}
