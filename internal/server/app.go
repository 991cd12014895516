// Package server wires the application together: configuration, key
// material, storage backends, domain services and the HTTP endpoint, with
// graceful shutdown on OS signals.
package server

import (
	"context"
	"crypto/rsa"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aavault/aavault/internal/aggregator"
	"github.com/aavault/aavault/internal/blobstore"
	"github.com/aavault/aavault/internal/cryptox"
	"github.com/aavault/aavault/internal/jws"
	"github.com/aavault/aavault/internal/logging"
	"github.com/aavault/aavault/internal/server/attestations"
	"github.com/aavault/aavault/internal/server/audit"
	"github.com/aavault/aavault/internal/server/config"
	"github.com/aavault/aavault/internal/server/consents"
	"github.com/aavault/aavault/internal/server/identities"
	"github.com/aavault/aavault/internal/server/kyc"
	"github.com/aavault/aavault/internal/server/otp"
	"github.com/aavault/aavault/internal/server/rest"
	"github.com/aavault/aavault/internal/server/sessions"
	"github.com/aavault/aavault/internal/server/shared/db"
	"github.com/aavault/aavault/internal/server/shares"
)

type App struct {
	config *config.Config
	logger logging.Logger
	server *rest.Server
}

// keyMaterial holds everything loaded once at process start. Rotation
// requires a restart.
type keyMaterial struct {
	signingKey    *rsa.PrivateKey
	aggregatorKey *rsa.PublicKey
	masterKey     []byte
}

func loadKeys(c *config.Config) (*keyMaterial, error) {
	km := &keyMaterial{}

	if c.SigningKeyPath != "" {
		pemBytes, err := os.ReadFile(c.SigningKeyPath)
		if err != nil {
			return nil, fmt.Errorf("error reading signing key: %w", err)
		}
		km.signingKey, err = jws.ParsePrivateKeyPEM(pemBytes)
		if err != nil {
			return nil, fmt.Errorf("error parsing signing key: %w", err)
		}
	}

	if c.AggregatorKeyPath != "" {
		pemBytes, err := os.ReadFile(c.AggregatorKeyPath)
		if err != nil {
			return nil, fmt.Errorf("error reading aggregator key: %w", err)
		}
		km.aggregatorKey, err = jws.ParsePublicKeyPEM(pemBytes)
		if err != nil {
			return nil, fmt.Errorf("error parsing aggregator key: %w", err)
		}
	}

	masterKey, err := hex.DecodeString(c.MasterKeyHex)
	if err != nil {
		return nil, fmt.Errorf("error decoding master key: %w", err)
	}
	if len(masterKey) != 32 {
		return nil, fmt.Errorf("master key must be 32 bytes, got %d", len(masterKey))
	}
	km.masterKey = masterKey

	return km, nil
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	keys, err := loadKeys(c)
	if err != nil {
		return nil, err
	}

	rm, err := db.NewPostgresRepositoryManager(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	blobs, err := blobstore.NewS3Store(context.Background(), blobstore.S3Options{
		RootUser:     c.S3RootUser,
		RootPassword: c.S3RootPassword,
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
		Bucket:       c.S3Bucket,
	})
	if err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	var cache *redis.Client
	if c.RedisURL != "" {
		opts, err := redis.ParseURL(c.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis config error: %w", err)
		}
		cache = redis.NewClient(opts)
	}

	hasher := cryptox.HasherByName(c.HashStrategy)

	aggregatorClient := aggregator.NewClient(aggregator.Config{
		BaseURL:      c.AggregatorBaseURL,
		ClientID:     c.AggregatorClientID,
		ClientSecret: c.AggregatorClientSecret,
		ProductID:    c.AggregatorProductID,
		Timeout:      c.AggregatorTimeout,
		SigningKey:   keys.signingKey,
	}, logger)

	auditService := audit.NewService(rm.Audit(), logger)
	identityService := identities.NewService(rm.Identities())
	otpService := otp.NewService(rm.OtpChallenges(), otp.LogSender{Logger: logger}, logger, c.OTPSandboxReturn)
	consentService := consents.NewService(rm.Consents(), aggregatorClient, logger)
	sessionService := sessions.NewService(rm.Sessions(), consentService, aggregatorClient,
		blobs, hasher, keys.masterKey, logger)
	verifier := attestations.NewHTTPVerifier(c.VerifierBaseURL, c.VerifierVersion, c.VerifierTimeout)
	attestationService := attestations.NewService(rm.Attestations(), verifier, hasher, logger)
	shareService := shares.NewService(rm.Shares(), attestationService, logger)
	kycService := kyc.NewService([]kyc.Provider{
		kyc.NewAadhaarProvider(c.KycBaseURL, c.KycAPIKey, c.KycTimeout),
		kyc.NewPanProvider(c.KycBaseURL, c.KycAPIKey, c.KycTimeout),
	}, identityService, hasher, logger)

	secretKey := []byte(c.SecretKey)
	server := rest.NewServer(c.EndpointAddr, rest.Deps{
		Auth:         rest.NewAuthHandler(otpService, identityService, secretKey, c.AccessTokenValidityDuration),
		Consents:     rest.NewConsentHandler(consentService, auditService),
		Sessions:     rest.NewSessionHandler(sessionService, auditService),
		Attestations: rest.NewAttestationHandler(attestationService, auditService),
		Shares:       rest.NewShareHandler(shareService, auditService),
		Profile:      rest.NewProfileHandler(identityService, kycService, auditService),
		Webhooks: rest.NewWebhookHandler(consentService, sessionService, auditService,
			keys.aggregatorKey, c.WebhookSignatureMode, logger),

		JWTSecret:          secretKey,
		Cache:              cache,
		OTPRateLimitPerMin: c.OTPRateLimitPerMin,
	})

	return &App{config: c, logger: logger, server: server}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "addr", app.config.EndpointAddr)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.server.Listen(); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := app.server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(shutdownCtx, err.Error())
	}

	wg.Wait()
	app.logger.Info(context.Background(), "App stopped")
}
