package auth

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	defaultRecoveryLimit  = 3
	defaultRecoveryWindow = time.Hour
)

// RecoveryLimiter bounds password recovery attempts per key (normally the
// submitted email) within a sliding window. Every attempt is counted, allowed
// or not, so a rejected caller keeps extending their own lockout.
type RecoveryLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
}

// RecoveryLimiterOption configures RecoveryLimiter behavior.
type RecoveryLimiterOption func(*RecoveryLimiter)

// WithLimiterClock overrides the time source (useful for tests).
func WithLimiterClock(fn func() time.Time) RecoveryLimiterOption {
	return func(l *RecoveryLimiter) {
		if fn != nil {
			l.now = fn
		}
	}
}

// WithLimit overrides the attempts allowed per window.
func WithLimit(limit int, window time.Duration) RecoveryLimiterOption {
	return func(l *RecoveryLimiter) {
		if limit > 0 {
			l.limit = limit
		}
		if window > 0 {
			l.window = window
		}
	}
}

// NewRecoveryLimiter constructs a limiter with the default 3-per-hour policy.
func NewRecoveryLimiter(opts ...RecoveryLimiterOption) *RecoveryLimiter {
	l := &RecoveryLimiter{
		attempts: make(map[string][]time.Time),
		limit:    defaultRecoveryLimit,
		window:   defaultRecoveryWindow,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow records an attempt for key and reports whether it is within the
// limit. The attempt is recorded even when rejected.
func (l *RecoveryLimiter) Allow(key string) error {
	key = strings.TrimSpace(strings.ToLower(key))
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)
	recent := l.attempts[key][:0]
	for _, at := range l.attempts[key] {
		if at.After(cutoff) {
			recent = append(recent, at)
		}
	}

	allowed := len(recent) < l.limit
	l.attempts[key] = append(recent, now)
	if !allowed {
		return fmt.Errorf("%w: too many recovery attempts", ErrRateLimited)
	}
	return nil
}

// Prune drops keys whose every attempt has aged out of the window. Intended
// for a periodic sweep so idle keys do not accumulate.
func (l *RecoveryLimiter) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	dropped := 0
	for key, attempts := range l.attempts {
		live := false
		for _, at := range attempts {
			if at.After(cutoff) {
				live = true
				break
			}
		}
		if !live {
			delete(l.attempts, key)
			dropped++
		}
	}
	return dropped
}
