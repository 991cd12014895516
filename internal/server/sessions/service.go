// Package sessions manages data sessions: one aggregator-mediated fetch of
// encrypted financial data under an ACTIVE consent grant.
package sessions

import (
	"context"
	"crypto/ecdh"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aavault/aavault/internal/blobstore"
	"github.com/aavault/aavault/internal/common"
	"github.com/aavault/aavault/internal/cryptox"
	"github.com/aavault/aavault/internal/logging"
	"github.com/aavault/aavault/internal/server/consents"
)

const sessionNonceSize = 32

// SessionRequest is what the aggregator needs to open a data session: the
// consent reference plus the key material the sender encrypts against.
type SessionRequest struct {
	ConsentExternalID string
	ConsentHandle     string
	DataRangeFrom     time.Time
	DataRangeTo       time.Time
	PublicKey         []byte
	Nonce             []byte
}

// Aggregator is the slice of the external aggregator this package needs.
type Aggregator interface {
	CreateDataSession(ctx context.Context, req SessionRequest) (string, error)
	FetchSessionData(ctx context.Context, externalID string) (*cryptox.InboundPayload, error)
}

// ConsentSource resolves the owning grant; satisfied by *consents.Service.
type ConsentSource interface {
	Get(ctx context.Context, ownerID, id string) (*consents.Grant, error)
}

// keyMaterial is the per-session secret needed to decrypt the inbound
// payload. It is stored encrypted under the at-rest master key.
type keyMaterial struct {
	PrivateKey []byte `json:"private_key"`
	Nonce      []byte `json:"nonce"`
}

type Service struct {
	repo       Repository
	consents   ConsentSource
	aggregator Aggregator
	blobs      blobstore.Store
	hasher     cryptox.Hasher
	masterKey  []byte
	logger     logging.Logger
}

func NewService(repo Repository, consentSource ConsentSource, aggregator Aggregator,
	blobs blobstore.Store, hasher cryptox.Hasher, masterKey []byte, logger logging.Logger) *Service {
	return &Service{
		repo:       repo,
		consents:   consentSource,
		aggregator: aggregator,
		blobs:      blobs,
		hasher:     hasher,
		masterKey:  masterKey,
		logger:     logger.With("module", "sessions"),
	}
}

// Create opens a data session under an ACTIVE consent. A fresh ECDH key pair
// and nonce are generated per session; the public half goes to the
// aggregator, the private half is sealed under the master key until the
// payload arrives.
func (s *Service) Create(ctx context.Context, ownerID, consentID string) (*Session, error) {
	grant, err := s.consents.Get(ctx, ownerID, consentID)
	if err != nil {
		return nil, err
	}
	if grant.Status != consents.StatusActive {
		return nil, fmt.Errorf("consent %s is %s: %w", consentID, grant.Status, common.ErrConflict)
	}

	priv, err := cryptox.GenerateSessionKeyPair()
	if err != nil {
		return nil, fmt.Errorf("error generating session key pair: %w", err)
	}
	nonce := common.GenerateRandByteArray(sessionNonceSize)

	externalID, err := s.aggregator.CreateDataSession(ctx, SessionRequest{
		ConsentExternalID: grant.ExternalID,
		ConsentHandle:     grant.Handle,
		DataRangeFrom:     grant.DataRangeFrom,
		DataRangeTo:       grant.DataRangeTo,
		PublicKey:         priv.PublicKey().Bytes(),
		Nonce:             nonce,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating aggregator session: %w", err)
	}

	sealed, err := s.sealKeyMaterial(priv, nonce)
	if err != nil {
		return nil, err
	}

	session := &Session{
		ConsentID:   consentID,
		OwnerID:     ownerID,
		ExternalID:  externalID,
		Status:      StatusPending,
		KeyMaterial: sealed,
	}
	session, err = s.repo.Create(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("error creating session: %w", err)
	}
	return session, nil
}

func (s *Service) Get(ctx context.Context, ownerID, id string) (*Session, error) {
	return s.repo.GetByOwnerAndID(ctx, ownerID, id)
}

func (s *Service) ListByConsent(ctx context.Context, ownerID, consentID string) ([]*Session, error) {
	return s.repo.ListByConsent(ctx, ownerID, consentID)
}

// HandleNotification applies an aggregator status push for the session with
// the given external id. A READY push triggers the ingest pipeline; failure
// statuses are recorded as-is. A session that already reached COMPLETED is
// immutable and rejects further transitions.
func (s *Service) HandleNotification(ctx context.Context, externalID string, newStatus string) (*Session, error) {
	session, err := s.repo.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}

	switch newStatus {
	case "READY", "COMPLETED":
		if err := s.ingest(ctx, session); err != nil {
			return nil, err
		}
	case "FAILED", "EXPIRED":
		if session.Status == StatusCompleted {
			return nil, fmt.Errorf("session %s already completed: %w", session.ID, common.ErrConflict)
		}
		target := StatusFailed
		if newStatus == "EXPIRED" {
			target = StatusExpired
		}
		if err := s.repo.UpdateStatus(ctx, session.ID, target); err != nil {
			return nil, err
		}
	case "PENDING", "ACTIVE":
		// nothing to record yet
	default:
		return nil, fmt.Errorf("unknown session status %q: %w", newStatus, common.ErrValidation)
	}

	return s.repo.GetByExternalID(ctx, externalID)
}

// ingest pulls the encrypted payload from the aggregator, decrypts it over
// the session channel, re-encrypts it under the master key and stores the
// result, recording the content hash of the plaintext.
func (s *Service) ingest(ctx context.Context, session *Session) error {
	if session.Status != StatusPending {
		return fmt.Errorf("session %s is %s: %w", session.ID, session.Status, common.ErrConflict)
	}

	payload, err := s.aggregator.FetchSessionData(ctx, session.ExternalID)
	if err != nil {
		return fmt.Errorf("error fetching session data: %w", err)
	}

	km, err := s.openKeyMaterial(session.KeyMaterial)
	if err != nil {
		return err
	}
	priv, err := ecdh.P256().NewPrivateKey(km.PrivateKey)
	if err != nil {
		return fmt.Errorf("error restoring session key: %w", err)
	}

	plaintext, err := cryptox.DecryptInbound(payload, priv, km.Nonce)
	if err != nil {
		return fmt.Errorf("error decrypting inbound payload: %w", err)
	}
	defer common.WipeByteArray(plaintext)

	contentHash := s.hasher.Sum(plaintext)

	blob, err := cryptox.EncryptAtRest(plaintext, s.masterKey)
	if err != nil {
		return fmt.Errorf("error encrypting payload at rest: %w", err)
	}
	blobBytes, err := json.Marshal(blob)
	if err != nil {
		return fmt.Errorf("error encoding blob: %w", err)
	}

	key := storageKey()
	if err := s.blobs.Put(ctx, key, blobBytes); err != nil {
		return fmt.Errorf("error storing blob: %w", err)
	}

	fetchedAt := time.Now()
	ok, err := s.repo.MarkCompleted(ctx, session.ID, key, contentHash, s.hasher.Name(), fetchedAt)
	if err != nil {
		return err
	}
	if !ok {
		// lost the race to another ingest; drop the orphan blob
		if derr := s.blobs.Delete(ctx, key); derr != nil {
			s.logger.Warn(ctx, "failed to delete orphan blob", "key", key, "error", derr)
		}
		return fmt.Errorf("session %s already completed: %w", session.ID, common.ErrConflict)
	}
	return nil
}

// Fetch returns the decrypted payload to the owner of a COMPLETED session.
func (s *Service) Fetch(ctx context.Context, ownerID, id string) ([]byte, *Session, error) {
	session, err := s.repo.GetByOwnerAndID(ctx, ownerID, id)
	if err != nil {
		return nil, nil, err
	}
	if session.Status != StatusCompleted {
		return nil, nil, fmt.Errorf("session %s is %s: %w", session.ID, session.Status, common.ErrConflict)
	}

	blobBytes, err := s.blobs.Get(ctx, session.BlobKey)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil, fmt.Errorf("blob %s missing: %w", session.BlobKey, common.ErrInternal)
		}
		return nil, nil, err
	}

	blob := &cryptox.EncryptedBlob{}
	if err := json.Unmarshal(blobBytes, blob); err != nil {
		return nil, nil, fmt.Errorf("error decoding blob: %w", err)
	}

	plaintext, err := cryptox.DecryptAtRest(blob, s.masterKey)
	if err != nil {
		return nil, nil, fmt.Errorf("error decrypting blob: %w", err)
	}
	return plaintext, session, nil
}

func (s *Service) sealKeyMaterial(priv *ecdh.PrivateKey, nonce []byte) ([]byte, error) {
	raw, err := json.Marshal(keyMaterial{PrivateKey: priv.Bytes(), Nonce: nonce})
	if err != nil {
		return nil, fmt.Errorf("error encoding key material: %w", err)
	}
	defer common.WipeByteArray(raw)

	blob, err := cryptox.EncryptAtRest(raw, s.masterKey)
	if err != nil {
		return nil, fmt.Errorf("error sealing key material: %w", err)
	}
	return json.Marshal(blob)
}

func (s *Service) openKeyMaterial(sealed []byte) (*keyMaterial, error) {
	blob := &cryptox.EncryptedBlob{}
	if err := json.Unmarshal(sealed, blob); err != nil {
		return nil, fmt.Errorf("error decoding key material: %w", err)
	}
	raw, err := cryptox.DecryptAtRest(blob, s.masterKey)
	if err != nil {
		return nil, fmt.Errorf("error unsealing key material: %w", err)
	}
	defer common.WipeByteArray(raw)

	km := &keyMaterial{}
	if err := json.Unmarshal(raw, km); err != nil {
		return nil, fmt.Errorf("error decoding key material: %w", err)
	}
	return km, nil
}

func storageKey() string {
	d := time.Now()
	return fmt.Sprintf("sessions/%d/%02d/%02d/%s", d.Year(), d.Month(), d.Day(), uuid.NewString())
}
