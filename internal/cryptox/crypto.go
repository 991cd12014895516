// Package cryptox implements the secure channel codec: decryption of
// key-agreement-encrypted inbound payloads, authenticated encryption of
// plaintext at rest, and content-hash commitments behind a pluggable
// strategy.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/aavault/aavault/internal/common"
)

const (
	ivSize  = 12
	tagSize = 16
	keySize = 32
)

// EncryptedBlob is a single at-rest encryption unit. All three parts must be
// stored and retrieved together; losing any one makes the record permanently
// unrecoverable.
type EncryptedBlob struct {
	IV         []byte `json:"iv"`
	Tag        []byte `json:"tag"`
	Ciphertext []byte `json:"ciphertext"`
}

// InboundPayload carries the key material the aggregator attaches to an
// encrypted data delivery: its ephemeral public key, its session nonce and
// the ciphertext laid out as IV(12) || ct || TAG(16).
type InboundPayload struct {
	RemotePublicKey []byte
	RemoteNonce     []byte
	EncryptedData   []byte
}

// EncryptAtRest encrypts plaintext with AES-256-GCM under masterKey using a
// fresh random 12-byte IV.
func EncryptAtRest(plaintext, masterKey []byte) (*EncryptedBlob, error) {
	aead, err := newGCM(masterKey)
	if err != nil {
		return nil, err
	}

	iv := common.GenerateRandByteArray(ivSize)
	sealed := aead.Seal(nil, iv, plaintext, nil)

	// Seal appends the tag to the ciphertext; split so the blob keeps the
	// three parts explicit.
	split := len(sealed) - tagSize
	return &EncryptedBlob{
		IV:         iv,
		Tag:        sealed[split:],
		Ciphertext: sealed[:split],
	}, nil
}

// DecryptAtRest reverses EncryptAtRest. A tag mismatch is a hard error,
// never empty-but-valid data.
func DecryptAtRest(blob *EncryptedBlob, masterKey []byte) ([]byte, error) {
	if blob == nil {
		return nil, fmt.Errorf("decrypt at rest: %w", common.ErrValidation)
	}

	aead, err := newGCM(masterKey)
	if err != nil {
		return nil, err
	}

	sealed := append(append([]byte{}, blob.Ciphertext...), blob.Tag...)
	plaintext, err := aead.Open(nil, blob.IV, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt at rest: authentication failed: %w", err)
	}
	return plaintext, nil
}

// DecryptInbound decrypts a payload encrypted by the aggregator:
//
//  1. ECDH (P-256) between our session private key and the sender's
//     ephemeral public key yields the shared secret.
//  2. The working key is the first 32 bytes of sharedSecret || xorNonce,
//     where xorNonce is the byte-wise XOR of the remote and local nonces
//     (local bytes beyond the remote nonce length are treated as zero).
//  3. The ciphertext is IV(12) || ct || TAG(16), AES-256-GCM.
func DecryptInbound(payload *InboundPayload, localPriv *ecdh.PrivateKey, localNonce []byte) ([]byte, error) {
	if payload == nil || localPriv == nil {
		return nil, fmt.Errorf("decrypt inbound: %w", common.ErrValidation)
	}

	remotePub, err := ecdh.P256().NewPublicKey(payload.RemotePublicKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt inbound: bad remote public key: %w", err)
	}

	sharedSecret, err := localPriv.ECDH(remotePub)
	if err != nil {
		return nil, fmt.Errorf("decrypt inbound: key agreement: %w", err)
	}

	xorNonce := make([]byte, len(payload.RemoteNonce))
	for i, b := range payload.RemoteNonce {
		var local byte
		if i < len(localNonce) {
			local = localNonce[i]
		}
		xorNonce[i] = b ^ local
	}

	material := append(append([]byte{}, sharedSecret...), xorNonce...)
	if len(material) < keySize {
		return nil, errors.New("decrypt inbound: insufficient key material")
	}
	key := material[:keySize]
	defer common.WipeByteArray(material)

	if len(payload.EncryptedData) < ivSize+tagSize {
		return nil, fmt.Errorf("decrypt inbound: payload too short: %w", common.ErrValidation)
	}
	iv := payload.EncryptedData[:ivSize]
	sealed := payload.EncryptedData[ivSize:]

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt inbound: authentication failed: %w", err)
	}
	return plaintext, nil
}

// GenerateSessionKeyPair returns a fresh P-256 key pair for one data
// session's key agreement.
func GenerateSessionKeyPair() (*ecdh.PrivateKey, error) {
	return ecdh.P256().GenerateKey(rand.Reader)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("expected %d-byte key, got %d", keySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
