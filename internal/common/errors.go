// Package common defines shared constants and sentinel errors used across
// the StealthDetect core and its presentation layers. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Authentication outcomes that are errors. ErrUnknownUser is only for
	// internal routing (first-run detection); presentation layers must
	// render it exactly like ErrRejected.
	ErrUnknownUser = errors.New("unknown user")
	ErrRejected    = errors.New("rejected")

	// ErrInvalidPIN is the single user-facing authentication failure.
	ErrInvalidPIN = errors.New("invalid PIN, please try again")

	// Enrollment errors.
	ErrDuressEqualsReal  = errors.New("duress PIN must differ from main PIN")
	ErrInvalidPINFormat  = errors.New("PIN must be 4 to 8 digits")
	ErrPINMismatch       = errors.New("PIN confirmation does not match")
	ErrPermissionMissing = errors.New("system usage permission is required")

	// ErrIntegrityAnomaly marks a secret matching both stored hashes. It is
	// logged and never returned to a presentation layer.
	ErrIntegrityAnomaly = errors.New("integrity anomaly: secret matches both hashes")

	// ErrCorruptCredential marks a stored credential whose hash parameters
	// cannot be used. Logged; the caller sees ErrRejected.
	ErrCorruptCredential = errors.New("stored credential has invalid hash parameters")

	// Session lifecycle errors.
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session closed")

	// ErrDecoyIsolation is returned by the data-access layer when a real-data
	// query arrives without an active real-mode session in its context.
	ErrDecoyIsolation = errors.New("real data not available in this context")

	// Token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
