// Package common defines shared constants and sentinel errors used across
// the service and transport layers. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// ErrNotFound covers both an absent entity and an entity that exists
	// but is not owned by the caller, so ownership cannot be probed.
	ErrNotFound = errors.New("not found")

	// ErrConflict signals a duplicate submission or an operation on a
	// resource already in a terminal state.
	ErrConflict = errors.New("conflict")

	// ErrForbidden signals expired, revoked or exhausted access.
	ErrForbidden = errors.New("forbidden")

	// ErrUnauthorized signals a failed OTP, token or signature check.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation signals malformed input.
	ErrValidation = errors.New("validation error")

	// ErrRetryable marks a failure of an external collaborator that the
	// caller may safely retry.
	ErrRetryable = errors.New("retryable external failure")

	// ErrInternal is the generic service-level failure.
	ErrInternal = errors.New("internal error")

	// Token lifecycle errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
