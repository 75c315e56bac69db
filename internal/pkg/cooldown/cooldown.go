package cooldown

import (
	"context"
	"sync"
	"time"
)

// sweepInterval is how often stale entries are removed.
const sweepInterval = time.Minute

// Limiter enforces a per-user cooldown between remote API calls. Checks,
// records and removals are per-key atomic; unrelated users never contend on
// a shared lock.
type Limiter struct {
	cooldown time.Duration
	last     sync.Map // userID -> time.Time of the last recorded call
	now      func() time.Time
}

// New creates a limiter with the given cooldown between calls per user.
func New(cooldown time.Duration) *Limiter {
	return &Limiter{cooldown: cooldown, now: time.Now}
}

// CanProceed reports whether the user may make a remote call. It is a pure
// read: rejected attempts never extend the cooldown.
func (l *Limiter) CanProceed(userID string) bool {
	if userID == "" {
		return false
	}
	v, ok := l.last.Load(userID)
	if !ok {
		return true
	}
	return l.now().Sub(v.(time.Time)) >= l.cooldown
}

// Record stores now as the user's last call time. Call it only when a remote
// call is actually about to be made, so invalid requests never consume
// cooldown.
func (l *Limiter) Record(userID string) {
	if userID == "" {
		return
	}
	l.last.Store(userID, l.now())
}

// Remaining returns the whole seconds left on the user's cooldown, never
// negative.
func (l *Limiter) Remaining(userID string) int {
	v, ok := l.last.Load(userID)
	if !ok {
		return 0
	}
	left := l.cooldown - l.now().Sub(v.(time.Time))
	if left <= 0 {
		return 0
	}
	return int(left / time.Second)
}

// Tracked returns how many users currently have a recorded call.
func (l *Limiter) Tracked() int {
	n := 0
	l.last.Range(func(_, _ any) bool { n++; return true })
	return n
}

// Run sweeps entries older than twice the cooldown every minute and blocks
// until ctx is cancelled. With a zero cooldown every entry is immediately
// stale and removed; that is fine since every check passes anyway.
func (l *Limiter) Run(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

func (l *Limiter) sweep() {
	now := l.now()
	l.last.Range(func(k, v any) bool {
		if now.Sub(v.(time.Time)) > 2*l.cooldown {
			l.last.Delete(k)
		}
		return true
	})
}
