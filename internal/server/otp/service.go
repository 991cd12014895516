// Package otp issues and verifies short-lived phone-bound login codes.
package otp

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/aavault/aavault/internal/common"
	"github.com/aavault/aavault/internal/logging"
	"golang.org/x/crypto/argon2"
)

// Sender delivers a generated code to the phone's owner, typically an SMS
// gateway.
type Sender interface {
	Send(ctx context.Context, phone, code string) error
}

// LogSender logs instead of sending; the sandbox delivery channel.
type LogSender struct {
	Logger logging.Logger
}

func (s LogSender) Send(ctx context.Context, phone, code string) error {
	s.Logger.Info(ctx, "otp issued (sandbox, not delivered)", "phone", phone)
	return nil
}

type Service struct {
	repo          Repository
	sender        Sender
	logger        logging.Logger
	expiry        time.Duration
	maxAttempts   int
	sandboxReturn bool
}

func NewService(repo Repository, sender Sender, logger logging.Logger, sandboxReturn bool) *Service {
	return &Service{
		repo:          repo,
		sender:        sender,
		logger:        logger.With("module", "otp"),
		expiry:        common.OTPExpiry,
		maxAttempts:   common.OTPMaxAttempts,
		sandboxReturn: sandboxReturn,
	}
}

// hashCode derives a salted, memory-hard hash of the numeric code. A plain
// digest over a 6-digit space would be trivially brute-forced offline.
func hashCode(code string, salt []byte) []byte {
	return argon2.IDKey([]byte(code), salt, 1, 64*1024, 4, 32)
}

// Generate retires all prior unconsumed challenges for the phone, draws a
// uniformly random 6-digit code and stores only its salted hash. The raw
// code is handed to the Sender; it is additionally returned to the caller
// only when the explicit sandbox flag was set at construction, otherwise the
// returned string is empty.
func (s *Service) Generate(ctx context.Context, phone string) (string, error) {
	code, err := common.MakeRandDigitCode(common.OTPCodeDigits)
	if err != nil {
		return "", fmt.Errorf("error generating code: %w", err)
	}

	salt := common.GenerateRandByteArray(16)
	challenge := &Challenge{
		Phone:     phone,
		CodeHash:  hashCode(code, salt),
		Salt:      salt,
		ExpiresAt: time.Now().Add(s.expiry),
	}

	if _, err := s.repo.CreateReplacing(ctx, challenge); err != nil {
		return "", fmt.Errorf("error storing challenge: %w", err)
	}

	if err := s.sender.Send(ctx, phone, code); err != nil {
		// Delivery failure is retryable; the challenge stays valid.
		s.logger.Warn(ctx, "otp delivery failed", "phone", phone, "error", err.Error())
		return "", common.ErrRetryable
	}

	if s.sandboxReturn {
		return code, nil
	}
	return "", nil
}

// Verify checks code against the most recent live challenge for phone. It
// fails closed: no live challenge, an exhausted attempt budget, or any
// storage error all yield false. The attempt counter is incremented
// atomically before the comparison, so five recorded attempts block a sixth
// call even with the correct code.
func (s *Service) Verify(ctx context.Context, phone, code string) (bool, error) {
	challenge, err := s.repo.LatestLive(ctx, phone, time.Now())
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("error loading challenge: %w", err)
	}

	allowed, err := s.repo.IncrementAttempts(ctx, challenge.ID, s.maxAttempts)
	if err != nil {
		return false, fmt.Errorf("error counting attempt: %w", err)
	}
	if !allowed {
		return false, nil
	}

	candidate := hashCode(code, challenge.Salt)
	if subtle.ConstantTimeCompare(candidate, challenge.CodeHash) != 1 {
		return false, nil
	}

	if err := s.repo.Consume(ctx, challenge.ID); err != nil {
		return false, fmt.Errorf("error consuming challenge: %w", err)
	}
	return true, nil
}
