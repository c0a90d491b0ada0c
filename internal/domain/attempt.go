package domain

import "time"

// LoginAttempt is an append-only audit event for the login-code endpoint.
// Records are only ever inserted and (much later) pruned by retention
// housekeeping; the rate limiter derives its state by counting them.
type LoginAttempt struct {
	ID int64

	// IPAddress is recorded for audit only; it does not participate in the
	// blocking decision.
	IPAddress string

	// CodeIndex is the lookup index of the attempted code, empty when the
	// code matched no known format.
	CodeIndex string

	Success   bool
	CreatedAt time.Time
}
