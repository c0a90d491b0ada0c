package domain

import (
	"time"

	"github.com/aula-cl/lectura/pkg/idx"
)

// GrantStatus is the lifecycle of a single-use entitlement token.
// ACTIVE is the only state a grant can be redeemed from; USED and REVOKED
// are terminal.
type GrantStatus string

const (
	GrantActive  GrantStatus = "ACTIVE"
	GrantUsed    GrantStatus = "USED"
	GrantRevoked GrantStatus = "REVOKED"
)

// InvitationCode unlocks premium access for a primary account. The code is
// stored in plaintext: it is looked up by exact match and is not a login
// credential.
type InvitationCode struct {
	ID           idx.ID
	Code         string
	Status       GrantStatus
	DurationDays int

	// Back-reference to the redeeming account, empty while ACTIVE.
	UsedByAccountID idx.ID
	UsedAt          *time.Time

	CreatedAt time.Time
}

// License extends a sub-user's entitlement window and triggers login-code
// (re)generation on activation.
type License struct {
	ID           idx.ID
	Key          string
	Status       GrantStatus
	DurationDays int

	// SubUserID is cleared, not cascaded, when the sub-user is deleted, so
	// license history survives.
	SubUserID   idx.ID
	ActivatedAt *time.Time

	CreatedAt time.Time
}
