package verification

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/newsletter-gateway/internal/domain"
)

// maxEntries is the table size above which Issue opportunistically sweeps
// expired entries.
const maxEntries = 10000

// Registry holds at most one pending verification code per user, in memory.
// Access is per-key atomic; nothing survives a process restart.
type Registry struct {
	entries sync.Map // userID -> *domain.PendingVerification
	now     func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{now: time.Now}
}

// Issue generates a fresh 5-digit code for the user, unconditionally
// replacing any pending code. The draw avoids currently pending codes
// best-effort only; lookups are keyed by user, so a collision merely eases
// cross-user guessing and never corrupts state.
func (r *Registry) Issue(userID, email string, silent bool) (string, error) {
	r.sweepIfOversized()

	code, err := r.freshCode()
	if err != nil {
		return "", err
	}
	r.entries.Store(userID, &domain.PendingVerification{
		UserID:   userID,
		Code:     code,
		Email:    email,
		Silent:   silent,
		IssuedAt: r.now(),
	})
	return code, nil
}

// Validate consumes the user's pending code. A wrong code leaves the entry
// intact so the user may retry; an expired entry is evicted on sight.
func (r *Registry) Validate(userID, code string) (email string, silent bool, err error) {
	v, ok := r.entries.Load(userID)
	if !ok {
		return "", false, domain.ErrCodeNotFound
	}
	p := v.(*domain.PendingVerification)
	if p.Expired(r.now()) {
		r.entries.CompareAndDelete(userID, v)
		return "", false, domain.ErrCodeExpired
	}
	if p.Code != code {
		return "", false, domain.ErrCodeMismatch
	}
	if !r.entries.CompareAndDelete(userID, v) {
		// Lost a race against a newer Issue or a concurrent Validate.
		return "", false, domain.ErrCodeNotFound
	}
	return p.Email, p.Silent, nil
}

// Len returns the number of pending entries.
func (r *Registry) Len() int {
	n := 0
	r.entries.Range(func(_, _ any) bool { n++; return true })
	return n
}

// freshCode draws codes until one does not collide with a pending entry,
// giving up after a few attempts.
func (r *Registry) freshCode() (string, error) {
	var code string
	var err error
	for i := 0; i < 5; i++ {
		code, err = randomCode()
		if err != nil {
			return "", err
		}
		if !r.codePending(code) {
			return code, nil
		}
	}
	return code, nil
}

func (r *Registry) codePending(code string) bool {
	found := false
	r.entries.Range(func(_, v any) bool {
		if v.(*domain.PendingVerification).Code == code {
			found = true
			return false
		}
		return true
	})
	return found
}

func (r *Registry) sweepIfOversized() {
	if r.Len() <= maxEntries {
		return
	}
	now := r.now()
	r.entries.Range(func(k, v any) bool {
		if v.(*domain.PendingVerification).Expired(now) {
			r.entries.CompareAndDelete(k, v)
		}
		return true
	})
}

// randomCode draws a 5-digit code in [10000, 99999].
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(90000))
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	return fmt.Sprintf("%05d", n.Int64()+10000), nil
}
