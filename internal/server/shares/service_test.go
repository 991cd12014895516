package shares

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aavault/aavault/internal/common"
	"github.com/aavault/aavault/internal/logging"
	"github.com/aavault/aavault/internal/server/attestations"
)

type fakeAttestations struct {
	records map[string]*attestations.Attestation
}

func (f *fakeAttestations) Get(ctx context.Context, ownerID, id string) (*attestations.Attestation, error) {
	a, ok := f.records[id]
	if !ok || a.OwnerID != ownerID {
		return nil, common.ErrNotFound
	}
	return a, nil
}

func (f *fakeAttestations) GetByID(ctx context.Context, id string) (*attestations.Attestation, error) {
	a, ok := f.records[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return a, nil
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func verifiedAttestation() *attestations.Attestation {
	return &attestations.Attestation{
		ID:           "a-1",
		OwnerID:      "u-1",
		FactType:     "income-above",
		PublicInputs: map[string]string{"threshold": "500000"},
		Proof:        []byte("opaque"),
		ContentHash:  "deadbeef",
		Verified:     true,
		Status:       attestations.StatusVerified,
		ExpiresAt:    time.Now().Add(30 * 24 * time.Hour),
	}
}

func newService(atts ...*attestations.Attestation) (*Service, *MemoryRepository) {
	source := &fakeAttestations{records: map[string]*attestations.Attestation{}}
	for _, a := range atts {
		source.records[a.ID] = a
	}
	repo := NewMemoryRepository()
	return NewService(repo, source, testLogger()), repo
}

func create(t *testing.T, svc *Service) *Share {
	t.Helper()
	share, err := svc.Create(context.Background(), CreateParams{
		OwnerID:       "u-1",
		AttestationID: "a-1",
		RecipientID:   "lender-42",
		Purpose:       "loan-underwriting",
	})
	require.NoError(t, err)
	return share
}

func TestCreate_Defaults(t *testing.T) {
	svc, _ := newService(verifiedAttestation())
	share := create(t, svc)

	assert.Len(t, share.Token, 64, "token is 32 random bytes hex-encoded")
	assert.Equal(t, common.DefaultShareMaxAccess, share.MaxAccess)
	assert.WithinDuration(t, time.Now().Add(common.DefaultShareTTL), share.ExpiresAt, time.Minute)
	assert.Zero(t, share.AccessCount)
}

func TestCreate_Gates(t *testing.T) {
	unverified := verifiedAttestation()
	unverified.ID = "a-2"
	unverified.Verified = false
	svc, _ := newService(verifiedAttestation(), unverified)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateParams{OwnerID: "u-1", AttestationID: "missing"})
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = svc.Create(ctx, CreateParams{OwnerID: "u-2", AttestationID: "a-1"})
	assert.ErrorIs(t, err, common.ErrNotFound, "foreign attestation must look absent")

	_, err = svc.Create(ctx, CreateParams{OwnerID: "u-1", AttestationID: "a-2"})
	assert.ErrorIs(t, err, common.ErrNotFound, "unverified attestation must look absent")
}

func TestRedeem_ReturnsPublicMetadataOnly(t *testing.T) {
	svc, _ := newService(verifiedAttestation())
	share := create(t, svc)

	red, err := svc.Redeem(context.Background(), share.Token)
	require.NoError(t, err)

	assert.Equal(t, "income-above", red.Attestation.FactType)
	assert.Equal(t, "deadbeef", red.Attestation.ContentHash)
	assert.True(t, red.Attestation.Verified)
	assert.Equal(t, common.DefaultShareMaxAccess-1, red.RemainingAccess)
}

func TestRedeem_Ladder(t *testing.T) {
	svc, _ := newService(verifiedAttestation())
	ctx := context.Background()

	_, err := svc.Redeem(ctx, "no-such-token")
	assert.ErrorIs(t, err, common.ErrNotFound)

	revoked := create(t, svc)
	_, err = svc.Revoke(ctx, "u-1", revoked.ID)
	require.NoError(t, err)
	_, err = svc.Redeem(ctx, revoked.Token)
	assert.ErrorIs(t, err, common.ErrForbidden)

	expired, err := svc.Create(ctx, CreateParams{
		OwnerID:       "u-1",
		AttestationID: "a-1",
		TTL:           time.Nanosecond,
	})
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = svc.Redeem(ctx, expired.Token)
	assert.ErrorIs(t, err, common.ErrForbidden)

	limited, err := svc.Create(ctx, CreateParams{
		OwnerID:       "u-1",
		AttestationID: "a-1",
		MaxAccess:     1,
	})
	require.NoError(t, err)
	_, err = svc.Redeem(ctx, limited.Token)
	require.NoError(t, err)
	_, err = svc.Redeem(ctx, limited.Token)
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestRedeem_ConcurrentRedeemersRespectBudget(t *testing.T) {
	const maxAccess = 10
	const redeemers = 25

	svc, _ := newService(verifiedAttestation())
	share, err := svc.Create(context.Background(), CreateParams{
		OwnerID:       "u-1",
		AttestationID: "a-1",
		MaxAccess:     maxAccess,
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan error, redeemers)
	for i := 0; i < redeemers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Redeem(context.Background(), share.Token)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var granted, denied int
	for err := range results {
		switch {
		case err == nil:
			granted++
		case errors.Is(err, common.ErrForbidden):
			denied++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, maxAccess, granted, "exactly maxAccess redemptions may succeed")
	assert.Equal(t, redeemers-maxAccess, denied)
}

func TestRevoke(t *testing.T) {
	svc, _ := newService(verifiedAttestation())
	ctx := context.Background()
	share := create(t, svc)

	revoked, err := svc.Revoke(ctx, "u-1", share.ID)
	require.NoError(t, err)
	assert.NotNil(t, revoked.RevokedAt)

	_, err = svc.Revoke(ctx, "u-1", share.ID)
	assert.ErrorIs(t, err, common.ErrConflict)

	_, err = svc.Revoke(ctx, "u-2", share.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = svc.Revoke(ctx, "u-1", "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
