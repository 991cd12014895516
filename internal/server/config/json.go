package config

import (
	"encoding/json"
	"os"

	"github.com/aavault/aavault/internal/flagx"
	"github.com/aavault/aavault/internal/timex"
)

// JsonConfig is the JSON-file shape of the configuration. It uses
// timex.Duration for interval fields, which parses both string values such
// as "5m" and integer nanoseconds. Omitted fields keep their defaults.
type JsonConfig struct {
	EndpointAddr                string          `json:"endpoint_addr"`
	DatabaseDSN                 string          `json:"database_dsn"`
	RedisURL                    string          `json:"redis_url"`
	SecretKey                   string          `json:"secret_key"`
	AccessTokenValidityDuration *timex.Duration `json:"access_token_validity_duration"`
	S3RootUser                  string          `json:"s3_root_user"`
	S3RootPassword              string          `json:"s3_root_password"`
	S3Bucket                    string          `json:"s3_bucket"`
	S3Region                    string          `json:"s3_region"`
	S3BaseEndpoint              string          `json:"s3_base_endpoint"`
	AggregatorBaseURL           string          `json:"aggregator_base_url"`
	AggregatorClientID          string          `json:"aggregator_client_id"`
	AggregatorClientSecret      string          `json:"aggregator_client_secret"`
	AggregatorProductID         string          `json:"aggregator_product_id"`
	AggregatorTimeout           *timex.Duration `json:"aggregator_timeout"`
	AggregatorPollInterval      *timex.Duration `json:"aggregator_poll_interval"`
	AggregatorPollMaxRetries    int             `json:"aggregator_poll_max_retries"`
	SigningKeyPath              string          `json:"signing_key_path"`
	AggregatorKeyPath           string          `json:"aggregator_key_path"`
	MasterKeyHex                string          `json:"master_key_hex"`
	HashStrategy                string          `json:"hash_strategy"`
	VerifierBaseURL             string          `json:"verifier_base_url"`
	VerifierVersion             string          `json:"verifier_version"`
	VerifierTimeout             *timex.Duration `json:"verifier_timeout"`
	KycBaseURL                  string          `json:"kyc_base_url"`
	KycAPIKey                   string          `json:"kyc_api_key"`
	KycTimeout                  *timex.Duration `json:"kyc_timeout"`
	WebhookSignatureMode        string          `json:"webhook_signature_mode"`
	OTPSandboxReturn            bool            `json:"otp_sandbox_return"`
	OTPRateLimitPerMin          int             `json:"otp_rate_limit_per_min"`
}

// parseJson overlays configuration values from a JSON file (path given via
// the -c/-config flags) onto the provided Config. If no path is given,
// nothing is loaded. An unreadable or invalid file panics: the server must
// not start on a half-applied configuration.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setStr := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	setStr(&config.EndpointAddr, c.EndpointAddr)
	setStr(&config.DatabaseDSN, c.DatabaseDSN)
	setStr(&config.RedisURL, c.RedisURL)
	setStr(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	setStr(&config.S3RootUser, c.S3RootUser)
	setStr(&config.S3RootPassword, c.S3RootPassword)
	setStr(&config.S3Bucket, c.S3Bucket)
	setStr(&config.S3Region, c.S3Region)
	setStr(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setStr(&config.AggregatorBaseURL, c.AggregatorBaseURL)
	setStr(&config.AggregatorClientID, c.AggregatorClientID)
	setStr(&config.AggregatorClientSecret, c.AggregatorClientSecret)
	setStr(&config.AggregatorProductID, c.AggregatorProductID)
	if c.AggregatorTimeout != nil {
		config.AggregatorTimeout = c.AggregatorTimeout.Duration
	}
	if c.AggregatorPollInterval != nil {
		config.AggregatorPollInterval = c.AggregatorPollInterval.Duration
	}
	if c.AggregatorPollMaxRetries > 0 {
		config.AggregatorPollMaxRetries = c.AggregatorPollMaxRetries
	}
	setStr(&config.SigningKeyPath, c.SigningKeyPath)
	setStr(&config.AggregatorKeyPath, c.AggregatorKeyPath)
	setStr(&config.MasterKeyHex, c.MasterKeyHex)
	setStr(&config.HashStrategy, c.HashStrategy)
	setStr(&config.VerifierBaseURL, c.VerifierBaseURL)
	setStr(&config.VerifierVersion, c.VerifierVersion)
	if c.VerifierTimeout != nil {
		config.VerifierTimeout = c.VerifierTimeout.Duration
	}
	setStr(&config.KycBaseURL, c.KycBaseURL)
	setStr(&config.KycAPIKey, c.KycAPIKey)
	if c.KycTimeout != nil {
		config.KycTimeout = c.KycTimeout.Duration
	}
	if c.WebhookSignatureMode != "" {
		config.WebhookSignatureMode = SignatureMode(c.WebhookSignatureMode)
	}
	config.OTPSandboxReturn = config.OTPSandboxReturn || c.OTPSandboxReturn
	if c.OTPRateLimitPerMin > 0 {
		config.OTPRateLimitPerMin = c.OTPRateLimitPerMin
	}
}
