package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so transports can pick the fixed user-facing message
// without leaking infrastructure details.
var (
	ErrUsage              = errors.New("invalid usage")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrPrivacyNotAccepted = errors.New("privacy policy not accepted")
	ErrRateLimited        = errors.New("rate limited")
	ErrCodeNotFound       = errors.New("no pending verification code")
	ErrCodeMismatch       = errors.New("verification code mismatch")
	ErrCodeExpired        = errors.New("verification code expired")
	ErrConflict           = errors.New("email already subscribed")
	ErrRemote             = errors.New("remote call failed")
)
