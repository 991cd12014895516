package config

import (
	"flag"
	"os"
	"time"

	"github.com/aavault/aavault/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line
// flags. Only the flags it recognizes are taken from os.Args (via
// flagx.FilterArgs), so flags owned by other components are untouched.
// Secrets and key material stay out of the flag surface; they arrive via
// the JSON overlay.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-r", "-u", "-p", "-b", "-g", "-e", "-aggregator", "-sandbox-otp"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "session token secret key")
	fs.StringVar(&config.RedisURL, "r", config.RedisURL, "redis URL for rate limiting")

	accessTokenValidity := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.AggregatorBaseURL, "aggregator", config.AggregatorBaseURL, "aggregator base URL")

	fs.BoolVar(&config.OTPSandboxReturn, "sandbox-otp", config.OTPSandboxReturn, "return raw OTP codes to the caller (sandbox only)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidity) * time.Minute
}
