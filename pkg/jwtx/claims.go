package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/aula-cl/lectura/pkg/idx"
	"github.com/golang-jwt/jwt/v5"
)

// Default token lifetimes.
const (
	// DefaultAccessTTL is the lifetime of a session token.
	DefaultAccessTTL = 30 * time.Minute

	// DefaultResetTTL is the lifetime of a password-reset token. Short on
	// purpose: the token travels over email.
	DefaultResetTTL = 15 * time.Minute
)

// SubjectKind discriminates the two identity kinds sharing the token format.
type SubjectKind string

const (
	KindAccount SubjectKind = "account"
	KindSubUser SubjectKind = "subuser"
)

// Purpose tags what a token may be used for. Access tokens must never be
// accepted by the reset path and vice versa.
type Purpose string

const (
	PurposeAccess Purpose = "access"
	PurposeReset  Purpose = "reset"
)

// Claims are the claims embedded in every token the service issues.
type Claims struct {
	jwt.RegisteredClaims

	// Kind discriminates the subject: account handles vs sub-user ids.
	Kind SubjectKind `json:"kind"`

	// Purpose tags the token's use ("access" or "reset").
	Purpose Purpose `json:"purpose"`
}

// Subject is the decoded token subject. Exactly two concrete types implement
// it; authorization sites must switch exhaustively over both.
type Subject interface {
	subjectKind() SubjectKind
}

// AccountSubject identifies a primary account by its handle.
type AccountSubject struct {
	Handle string
}

func (AccountSubject) subjectKind() SubjectKind { return KindAccount }

// SubUserSubject identifies a sub-user by its id.
type SubUserSubject struct {
	ID idx.ID
}

func (SubUserSubject) subjectKind() SubjectKind { return KindSubUser }

// DecodeSubject turns the raw sub/kind claim pair into the Subject sum type.
// Unknown kinds fail closed.
func (c Claims) DecodeSubject() (Subject, error) {
	switch c.Kind {
	case KindAccount:
		if c.RegisteredClaims.Subject == "" {
			return nil, fmt.Errorf("jwtx: empty account subject")
		}
		return AccountSubject{Handle: c.RegisteredClaims.Subject}, nil
	case KindSubUser:
		id, err := idx.Parse(c.RegisteredClaims.Subject)
		if err != nil {
			return nil, fmt.Errorf("jwtx: malformed sub-user subject: %w", err)
		}
		return SubUserSubject{ID: id}, nil
	default:
		return nil, fmt.Errorf("jwtx: unknown subject kind %q", c.Kind)
	}
}

// NewClaims builds minimally-correct claims for the given subject.
func NewClaims(kind SubjectKind, subject string, purpose Purpose, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        newJTI(),
		},
		Kind:    kind,
		Purpose: purpose,
	}
}

// newJTI returns a URL-safe random identifier for the "jti" claim.
func newJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
