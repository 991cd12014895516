package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	assert.Equal(t, ":8080", cfg.EndpointAddr)
	assert.Equal(t, SignatureEnforce, cfg.WebhookSignatureMode)
	assert.False(t, cfg.OTPSandboxReturn, "sandbox OTP return must be off by default")
	assert.Equal(t, 3, cfg.OTPRateLimitPerMin)
	assert.Equal(t, "sha256", cfg.HashStrategy)
	assert.Equal(t, 10*time.Second, cfg.AggregatorTimeout)
}

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	os.Args = []string{"cmd",
		"-a", "127.0.0.1:9090", "-d", "db", "-s", "secret", "-t", "30",
		"-u", "user", "-p", "password", "-b", "bucket", "-g", "us-west-1",
		"-e", "http://endpoint", "-aggregator", "https://aa.example",
		"-sandbox-otp=true",
	}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseFlags(cfg)

	assert.Equal(t, "127.0.0.1:9090", cfg.EndpointAddr)
	assert.Equal(t, "db", cfg.DatabaseDSN)
	assert.Equal(t, "secret", cfg.SecretKey)
	assert.Equal(t, 30*time.Minute, cfg.AccessTokenValidityDuration)
	assert.Equal(t, "bucket", cfg.S3Bucket)
	assert.Equal(t, "https://aa.example", cfg.AggregatorBaseURL)
	assert.True(t, cfg.OTPSandboxReturn)
}

func TestParseJson_Overlay(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := filepath.Join(t.TempDir(), "conf.json")
	body := `{
		"endpoint_addr": ":9999",
		"access_token_validity_duration": "45m",
		"aggregator_timeout": "3s",
		"webhook_signature_mode": "disabled_with_audit",
		"hash_strategy": "blake3",
		"otp_rate_limit_per_min": 10
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	os.Args = []string{"cmd", "-c", path}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	assert.Equal(t, ":9999", cfg.EndpointAddr)
	assert.Equal(t, 45*time.Minute, cfg.AccessTokenValidityDuration)
	assert.Equal(t, 3*time.Second, cfg.AggregatorTimeout)
	assert.Equal(t, SignatureDisabledWithAudit, cfg.WebhookSignatureMode)
	assert.Equal(t, "blake3", cfg.HashStrategy)
	assert.Equal(t, 10, cfg.OTPRateLimitPerMin)

	// Untouched fields retain their defaults.
	assert.Equal(t, "fi-data", cfg.S3Bucket)
}
