package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")
	ErrInternal     = errors.New("internal error")

	// Distinct, non-sensitive login states.
	ErrUnverified   = errors.New("account not verified")
	ErrExternalOnly = errors.New("account requires external login")

	// Wrong code and expired code are deliberately the same error.
	ErrInvalidOTP = errors.New("invalid or expired OTP")

	ErrDeliveryFailed = errors.New("code delivery failed")
	ErrInvalidToken   = errors.New("invalid or expired token")
	ErrMissingEmail   = errors.New("external identity has no email")

	// ErrDuplicateKey is returned by stores when a uniqueness constraint is violated.
	ErrDuplicateKey = errors.New("duplicate key")
)
