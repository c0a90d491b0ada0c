package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrExpired      = errors.New("jwtx: token expired")
	ErrInvalid      = errors.New("jwtx: token invalid")
	ErrIssuer       = errors.New("jwtx: unexpected issuer")
	ErrWrongPurpose = errors.New("jwtx: token used for wrong purpose")
)

// Codec signs and verifies tokens with HMAC-SHA256 under a single deployment
// secret. The secret is injected from configuration so tests can fix it and
// deployments can rotate it; it is the same secret that keys the code lookup
// index.
type Codec struct {
	Secret []byte
	Issuer string
}

// NewCodec returns a Codec signing with secret for the given issuer.
func NewCodec(secret []byte, issuer string) *Codec {
	return &Codec{Secret: secret, Issuer: issuer}
}

// Sign serializes and signs claims.
func (c *Codec) Sign(claims Claims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(c.Secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: signing failed: %w", err)
	}
	return signed, nil
}

// Verify parses raw, checks the signature, algorithm, expiry and issuer, and
// enforces the expected purpose. A valid token presented to the wrong path
// fails closed with ErrWrongPurpose.
func (c *Codec) Verify(raw string, want Purpose) (Claims, error) {
	var claims Claims

	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.Secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, ErrInvalid
	}

	if c.Issuer != "" && claims.Issuer != c.Issuer {
		return Claims{}, ErrIssuer
	}
	if claims.Purpose != want {
		return Claims{}, ErrWrongPurpose
	}

	return claims, nil
}
