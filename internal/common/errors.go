// Package common holds the sentinel errors shared by the service and HTTP
// layers. Callers match them with errors.Is; wrapped messages carry detail.
package common

import "errors"

var (
	// Lookup errors.
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")

	// Gate errors raised before a guarded action runs.
	ErrOutsideWindow   = errors.New("outside permitted time window")
	ErrQuotaExceeded   = errors.New("tweet limit reached")
	ErrUnsupportedPlan = errors.New("unsupported plan")

	// One-time passcode errors.
	ErrOTPMismatch = errors.New("invalid otp")
	ErrOTPExpired  = errors.New("otp expired")

	// Malformed input.
	ErrValidation = errors.New("validation error")
)
