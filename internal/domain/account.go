package domain

import (
	"time"

	"github.com/aula-cl/lectura/pkg/idx"
)

// AdminHandle is the reserved administrative handle. It is always treated as
// premium and is the only handle allowed on the admin endpoints.
const AdminHandle = "admin"

// Account is a primary identity: a teacher or parent who registers with a
// handle and password. Premium entitlement is the AccessExpiresAt window;
// nil means free tier.
type Account struct {
	ID           idx.ID
	Handle       string
	Email        string // optional, used for password reset
	PasswordHash string // argon2id encoded
	CourseLevel  string // e.g. "1ESO", "2ESO"

	// AccessExpiresAt is mutated only by grant redemption, never directly.
	AccessExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
