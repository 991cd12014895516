package sessions

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aavault/aavault/internal/blobstore"
	"github.com/aavault/aavault/internal/common"
	"github.com/aavault/aavault/internal/cryptox"
	"github.com/aavault/aavault/internal/logging"
	"github.com/aavault/aavault/internal/server/consents"
)

var testMasterKey = []byte("0123456789abcdef0123456789abcdef")

type fakeConsents struct {
	grants map[string]*consents.Grant
}

func (f *fakeConsents) Get(ctx context.Context, ownerID, id string) (*consents.Grant, error) {
	g, ok := f.grants[id]
	if !ok || g.OwnerID != ownerID {
		return nil, common.ErrNotFound
	}
	return g, nil
}

// fakeAggregator plays the sender side of the secure channel: it captures the
// session key material from CreateDataSession and encrypts the configured
// payload against it when FetchSessionData is asked.
type fakeAggregator struct {
	createErr error
	fetchErr  error
	payload   []byte

	lastReq SessionRequest
	nextID  int
}

func (f *fakeAggregator) CreateDataSession(ctx context.Context, req SessionRequest) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.lastReq = req
	f.nextID++
	return "fi-session-" + string(rune('a'+f.nextID-1)), nil
}

func (f *fakeAggregator) FetchSessionData(ctx context.Context, externalID string) (*cryptox.InboundPayload, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return encryptAsSender(f.lastReq.PublicKey, f.lastReq.Nonce, f.payload)
}

// encryptAsSender mirrors what the financial information provider does: an
// ephemeral key pair, a remote nonce, key = first 32 bytes of
// sharedSecret || (remoteNonce XOR localNonce), ciphertext IV || ct || tag.
func encryptAsSender(localPubBytes, localNonce, plaintext []byte) (*cryptox.InboundPayload, error) {
	senderPriv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	localPub, err := ecdh.P256().NewPublicKey(localPubBytes)
	if err != nil {
		return nil, err
	}
	sharedSecret, err := senderPriv.ECDH(localPub)
	if err != nil {
		return nil, err
	}

	remoteNonce := make([]byte, 32)
	if _, err := rand.Read(remoteNonce); err != nil {
		return nil, err
	}
	xorNonce := make([]byte, len(remoteNonce))
	for i, b := range remoteNonce {
		var local byte
		if i < len(localNonce) {
			local = localNonce[i]
		}
		xorNonce[i] = b ^ local
	}

	material := append(append([]byte{}, sharedSecret...), xorNonce...)
	key := material[:32]

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	iv := make([]byte, 12)
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}
	sealed := aead.Seal(nil, iv, plaintext, nil)

	return &cryptox.InboundPayload{
		RemotePublicKey: senderPriv.PublicKey().Bytes(),
		RemoteNonce:     remoteNonce,
		EncryptedData:   append(iv, sealed...),
	}, nil
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func activeGrant() *consents.Grant {
	return &consents.Grant{
		ID:            "c-1",
		OwnerID:       "u-1",
		Status:        consents.StatusActive,
		ExternalID:    "ext-c-1",
		Handle:        "handle-c-1",
		DataRangeFrom: time.Now().AddDate(-1, 0, 0),
		DataRangeTo:   time.Now(),
	}
}

func newService(grant *consents.Grant, agg *fakeAggregator) (*Service, *MemoryRepository, *blobstore.MemoryStore) {
	repo := NewMemoryRepository()
	blobs := blobstore.NewMemoryStore()
	cs := &fakeConsents{grants: map[string]*consents.Grant{}}
	if grant != nil {
		cs.grants[grant.ID] = grant
	}
	svc := NewService(repo, cs, agg, blobs, cryptox.SHA256Hasher{}, testMasterKey, testLogger())
	return svc, repo, blobs
}

func TestCreate_RequiresActiveConsent(t *testing.T) {
	grant := activeGrant()
	grant.Status = consents.StatusPending
	svc, _, _ := newService(grant, &fakeAggregator{})

	_, err := svc.Create(context.Background(), "u-1", "c-1")
	assert.ErrorIs(t, err, common.ErrConflict)

	_, err = svc.Create(context.Background(), "u-1", "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCreate_OpensPendingSession(t *testing.T) {
	agg := &fakeAggregator{}
	svc, _, _ := newService(activeGrant(), agg)

	session, err := svc.Create(context.Background(), "u-1", "c-1")
	require.NoError(t, err)

	assert.Equal(t, StatusPending, session.Status)
	assert.NotEmpty(t, session.ExternalID)
	assert.NotEmpty(t, session.KeyMaterial)
	assert.Equal(t, "ext-c-1", agg.lastReq.ConsentExternalID)
	assert.Len(t, agg.lastReq.Nonce, 32)
	assert.NotEmpty(t, agg.lastReq.PublicKey)
}

func TestIngestAndFetch_RoundTrip(t *testing.T) {
	payload := []byte(`{"accounts":[{"type":"DEPOSIT","balance":"12345.67"}]}`)
	agg := &fakeAggregator{payload: payload}
	svc, _, blobs := newService(activeGrant(), agg)
	ctx := context.Background()

	session, err := svc.Create(ctx, "u-1", "c-1")
	require.NoError(t, err)

	completed, err := svc.HandleNotification(ctx, session.ExternalID, "READY")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)
	assert.NotEmpty(t, completed.BlobKey)
	assert.Equal(t, cryptox.SHA256Hasher{}.Sum(payload), completed.ContentHash)
	assert.Equal(t, "sha256", completed.HashAlg)
	require.NotNil(t, completed.FetchedAt)

	// what landed in the blob store is ciphertext, not the payload
	stored, err := blobs.Get(ctx, completed.BlobKey)
	require.NoError(t, err)
	assert.NotContains(t, string(stored), "12345.67")

	got, fetched, err := svc.Fetch(ctx, "u-1", session.ID)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.Equal(t, StatusCompleted, fetched.Status)
}

func TestIngest_SecondNotificationIsConflict(t *testing.T) {
	agg := &fakeAggregator{payload: []byte("data")}
	svc, _, _ := newService(activeGrant(), agg)
	ctx := context.Background()

	session, err := svc.Create(ctx, "u-1", "c-1")
	require.NoError(t, err)

	_, err = svc.HandleNotification(ctx, session.ExternalID, "READY")
	require.NoError(t, err)
	_, err = svc.HandleNotification(ctx, session.ExternalID, "READY")
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestHandleNotification_Failure(t *testing.T) {
	agg := &fakeAggregator{payload: []byte("data")}
	svc, _, _ := newService(activeGrant(), agg)
	ctx := context.Background()

	session, err := svc.Create(ctx, "u-1", "c-1")
	require.NoError(t, err)

	failed, err := svc.HandleNotification(ctx, session.ExternalID, "FAILED")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, failed.Status)

	// a completed session cannot be failed afterwards
	session2, err := svc.Create(ctx, "u-1", "c-1")
	require.NoError(t, err)
	_, err = svc.HandleNotification(ctx, session2.ExternalID, "READY")
	require.NoError(t, err)
	_, err = svc.HandleNotification(ctx, session2.ExternalID, "EXPIRED")
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestHandleNotification_UnknownSessionAndStatus(t *testing.T) {
	svc, _, _ := newService(activeGrant(), &fakeAggregator{})

	_, err := svc.HandleNotification(context.Background(), "nope", "READY")
	assert.ErrorIs(t, err, common.ErrNotFound)

	session, err := svc.Create(context.Background(), "u-1", "c-1")
	require.NoError(t, err)
	_, err = svc.HandleNotification(context.Background(), session.ExternalID, "BOGUS")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestFetch_Gates(t *testing.T) {
	agg := &fakeAggregator{payload: []byte("data")}
	svc, _, _ := newService(activeGrant(), agg)
	ctx := context.Background()

	session, err := svc.Create(ctx, "u-1", "c-1")
	require.NoError(t, err)

	// not completed yet
	_, _, err = svc.Fetch(ctx, "u-1", session.ID)
	assert.ErrorIs(t, err, common.ErrConflict)

	_, err = svc.HandleNotification(ctx, session.ExternalID, "READY")
	require.NoError(t, err)

	// foreign owner
	_, _, err = svc.Fetch(ctx, "u-2", session.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestIngest_FetchFailureLeavesSessionPending(t *testing.T) {
	agg := &fakeAggregator{payload: []byte("data"), fetchErr: errors.New("aggregator down")}
	svc, repo, _ := newService(activeGrant(), agg)
	ctx := context.Background()

	session, err := svc.Create(ctx, "u-1", "c-1")
	require.NoError(t, err)

	_, err = svc.HandleNotification(ctx, session.ExternalID, "READY")
	require.Error(t, err)

	stored, err := repo.GetByExternalID(ctx, session.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status, "a failed ingest must stay retryable")
}
