package service

import (
	"context"
	"time"

	"github.com/aula-cl/lectura/internal/domain"
	"github.com/aula-cl/lectura/internal/store"
)

const (
	// DefaultAttemptWindow is the trailing window the limiter counts
	// failures over.
	DefaultAttemptWindow = 5 * time.Minute

	// DefaultAttemptThreshold is the failure count at which a code index
	// becomes blocked.
	DefaultAttemptThreshold = 6
)

// AttemptLimiter throttles the login-code endpoint per code index. It keeps
// no in-memory state: the decision is derived by counting failure records in
// the store, so it survives restarts and is shared across instances.
//
// Attempts made while blocked are still recorded as failures, which keeps the
// window sliding forward for a persistent attacker.
type AttemptLimiter struct {
	Store     store.Store
	Window    time.Duration
	Threshold int
}

func NewAttemptLimiter(st store.Store) *AttemptLimiter {
	return &AttemptLimiter{
		Store:     st,
		Window:    DefaultAttemptWindow,
		Threshold: DefaultAttemptThreshold,
	}
}

// Allow reports whether an attempt against the given code index may proceed.
func (l *AttemptLimiter) Allow(ctx context.Context, codeIndex string) (bool, error) {
	since := time.Now().UTC().Add(-l.Window)
	n, err := l.Store.LoginAttempts().CountRecentFailures(ctx, codeIndex, since)
	if err != nil {
		return false, err
	}
	return n < l.Threshold, nil
}

// Record appends one attempt to the audit log. The check-then-record pair is
// not atomic; a race can at worst admit one extra attempt past the threshold.
func (l *AttemptLimiter) Record(ctx context.Context, ip, codeIndex string, success bool) error {
	return l.Store.LoginAttempts().RecordLoginAttempt(ctx, domain.LoginAttempt{
		IPAddress: ip,
		CodeIndex: codeIndex,
		Success:   success,
		CreatedAt: time.Now().UTC(),
	})
}
