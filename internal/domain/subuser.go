package domain

import (
	"time"

	"github.com/aula-cl/lectura/pkg/idx"
)

// SubUser is a dependent student identity owned by exactly one Account. It
// authenticates with a generated login code and carries its own entitlement
// window, independent of the owner's.
type SubUser struct {
	ID        idx.ID
	AccountID idx.ID
	Name      string
	Active    bool

	AccessExpiresAt *time.Time

	// The code triplet. Hash and index are always derived from the same
	// underlying code value. The display copy is a deliberate product
	// exception: it is re-shown to the owning account, and only there.
	LoginCodeHash    string
	LoginCodeIndex   string
	LoginCodeDisplay string

	CreatedAt time.Time
	UpdatedAt time.Time
}
