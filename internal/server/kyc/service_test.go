package kyc

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aavault/aavault/internal/common"
	"github.com/aavault/aavault/internal/cryptox"
	"github.com/aavault/aavault/internal/logging"
	"github.com/aavault/aavault/internal/server/identities"
)

type recordedKyc struct {
	status, level, provider string
	fieldHashes             map[string]string
}

type fakeIdentities struct {
	recorded map[string]recordedKyc
}

func (f *fakeIdentities) CompleteKyc(ctx context.Context, id, status, level, provider string, fieldHashes map[string]string) error {
	if f.recorded == nil {
		f.recorded = make(map[string]recordedKyc)
	}
	f.recorded[id] = recordedKyc{status: status, level: level, provider: provider, fieldHashes: fieldHashes}
	return nil
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newGateway(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/pan/verify", func(w http.ResponseWriter, r *http.Request) {
		var req panRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		json.NewEncoder(w).Encode(panResponse{Valid: req.Pan == "ABCDE1234F", RegisteredName: "MEENA KUMARI"})
	})
	mux.HandleFunc("/aadhaar/verify", func(w http.ResponseWriter, r *http.Request) {
		var req aadhaarRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		json.NewEncoder(w).Encode(aadhaarResponse{
			Verified:  req.OTP == "123456",
			Name:      "MEENA KUMARI",
			BirthDate: "1990-01-01",
			Gender:    "F",
			Address:   "Bengaluru",
		})
	})
	return httptest.NewServer(mux)
}

func newService(t *testing.T) (*Service, *fakeIdentities, *httptest.Server) {
	t.Helper()
	srv := newGateway(t)
	t.Cleanup(srv.Close)

	ids := &fakeIdentities{}
	svc := NewService([]Provider{
		NewPanProvider(srv.URL, "key", 2*time.Second),
		NewAadhaarProvider(srv.URL, "key", 2*time.Second),
	}, ids, cryptox.SHA256Hasher{}, testLogger())
	return svc, ids, srv
}

func TestVerify_PanBasic(t *testing.T) {
	svc, ids, _ := newService(t)

	level, err := svc.Verify(context.Background(), "u-1", Input{
		Pan:      "ABCDE1234F",
		FullName: "Meena Kumari",
	})
	require.NoError(t, err)
	assert.Equal(t, LevelBasic, level)

	rec := ids.recorded["u-1"]
	assert.Equal(t, identities.KycVerified, rec.status)
	assert.Equal(t, "pan", rec.provider)

	// only hashes are stored, never raw values
	assert.Equal(t, cryptox.SHA256Hasher{}.Sum([]byte("ABCDE1234F")), rec.fieldHashes["pan"])
	for _, v := range rec.fieldHashes {
		assert.NotEqual(t, "ABCDE1234F", v)
		assert.NotEqual(t, "MEENA KUMARI", v)
	}
}

func TestVerify_StrongestProviderWins(t *testing.T) {
	svc, ids, _ := newService(t)

	// both PAN and Aadhaar data present: FULL assurance must be preferred
	level, err := svc.Verify(context.Background(), "u-1", Input{
		Pan:        "ABCDE1234F",
		FullName:   "Meena Kumari",
		AadhaarRef: "ref-1",
		AadhaarOTP: "123456",
	})
	require.NoError(t, err)
	assert.Equal(t, LevelFull, level)
	assert.Equal(t, "aadhaar-otp", ids.recorded["u-1"].provider)
}

func TestVerify_RejectionMarksFailed(t *testing.T) {
	svc, ids, _ := newService(t)

	_, err := svc.Verify(context.Background(), "u-1", Input{
		AadhaarRef: "ref-1",
		AadhaarOTP: "000000",
	})
	assert.ErrorIs(t, err, common.ErrForbidden)
	assert.Equal(t, identities.KycFailed, ids.recorded["u-1"].status)
}

func TestVerify_NoApplicableProvider(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.Verify(context.Background(), "u-1", Input{FullName: "No Documents"})
	assert.ErrorIs(t, err, common.ErrValidation)
}
