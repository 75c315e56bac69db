package domain

import "time"

// PendingVerification is a user's outstanding email-verification challenge.
// At most one exists per user; issuing a new code replaces any prior one.
// The code expires VerificationTTL after IssuedAt and is consumed on first
// successful validation.
type PendingVerification struct {
	UserID   string
	Code     string
	Email    string
	Silent   bool
	IssuedAt time.Time
}

// VerificationTTL is how long an issued code stays valid.
const VerificationTTL = 60 * time.Minute

// Expired reports whether the code is past its TTL at the given instant.
func (p PendingVerification) Expired(now time.Time) bool {
	return now.Sub(p.IssuedAt) > VerificationTTL
}
