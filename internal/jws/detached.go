// Package jws implements the detached-signature layer securing inter-party
// messages. Signatures are RS256 over base64url(header) || '.' || payload
// with the payload segment removed from the wire format (a detached JWS),
// so only headers and signature travel alongside the raw body.
package jws

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type header struct {
	Alg  string   `json:"alg"`
	B64  bool     `json:"b64"`
	Crit []string `json:"crit"`
}

var enc = base64.RawURLEncoding

// Sign produces a detached signature over the exact byte serialization of
// the payload. The result has the form "<header>..<signature>".
func Sign(payload []byte, key *rsa.PrivateKey) (string, error) {
	h, err := json.Marshal(header{Alg: "RS256", B64: false, Crit: []string{"b64"}})
	if err != nil {
		return "", err
	}

	headerB64 := enc.EncodeToString(h)
	signingInput := headerB64 + "." + string(payload)

	sig, err := jwt.SigningMethodRS256.Sign(signingInput, key)
	if err != nil {
		return "", fmt.Errorf("jws sign: %w", err)
	}

	return headerB64 + ".." + enc.EncodeToString(sig), nil
}

// Verify reconstructs the full signed container by reinserting the payload,
// then checks cryptographic validity. It returns a boolean and never
// propagates an error: any structural or cryptographic failure collapses to
// false so callers uniformly reject.
func Verify(detached string, payload []byte, key *rsa.PublicKey) bool {
	if key == nil {
		return false
	}

	parts := strings.Split(detached, ".")
	if len(parts) != 3 || parts[1] != "" {
		return false
	}

	rawHeader, err := enc.DecodeString(parts[0])
	if err != nil {
		return false
	}
	var h header
	if err := json.Unmarshal(rawHeader, &h); err != nil {
		return false
	}
	if h.Alg != "RS256" || h.B64 {
		return false
	}

	sig, err := enc.DecodeString(parts[2])
	if err != nil {
		return false
	}

	signingInput := parts[0] + "." + string(payload)
	return jwt.SigningMethodRS256.Verify(signingInput, sig, key) == nil
}

// ParsePrivateKeyPEM loads a PKCS#1 or PKCS#8 RSA private key.
func ParsePrivateKeyPEM(pemBytes []byte) (*rsa.PrivateKey, error) {
	return jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
}

// ParsePublicKeyPEM loads an RSA public key (SPKI or certificate).
func ParsePublicKeyPEM(pemBytes []byte) (*rsa.PublicKey, error) {
	return jwt.ParseRSAPublicKeyFromPEM(pemBytes)
}
