// Package codes generates and verifies the short human-facing secrets used by
// the service: sub-user login codes, license keys and invitation codes.
//
// Codes are stored as an Argon2id hash plus a deterministic keyed index. The
// index (HMAC-SHA256 under a deployment secret) lets the one candidate row be
// found in O(1) without scanning slow salted hashes; without the key it does
// not reveal the code.
package codes

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/aula-cl/lectura/pkg/cryptox"
)

const (
	// Uppercase letters with I, L and O removed so codes stay legible when
	// read aloud or copied from paper.
	letters = "ABCDEFGHJKMNPQRSTUVWXYZ"
	digits  = "0123456789"

	// loginCodePrefix is the constant prefix of every sub-user login code.
	loginCodePrefix = "CL"

	licenseKeyLength     = 9
	invitationCodeLength = 8
)

// Engine generates codes and derives their lookup indexes. The IndexSecret is
// the deployment secret injected from configuration; it must never be a
// compiled-in literal in production.
type Engine struct {
	IndexSecret []byte
}

// New returns an Engine keyed with secret.
func New(secret []byte) *Engine {
	return &Engine{IndexSecret: secret}
}

// NewLoginCode returns an 11-character sub-user login code:
// "CL" + 6 digits + 3 letters from the reduced alphabet, e.g. CL482901QTR.
func (e *Engine) NewLoginCode() (string, error) {
	numbers, err := randomString(digits, 6)
	if err != nil {
		return "", err
	}
	suffix, err := randomString(letters, 3)
	if err != nil {
		return "", err
	}
	return loginCodePrefix + numbers + suffix, nil
}

// NewLicenseKey returns a 9-character key over digits plus the reduced
// alphabet, e.g. 8AH2K9M2J.
func (e *Engine) NewLicenseKey() (string, error) {
	return randomString(digits+letters, licenseKeyLength)
}

// NewInvitationCode returns an 8-character invitation code over digits plus
// the full uppercase alphabet.
func (e *Engine) NewInvitationCode() (string, error) {
	return randomString(digits+"ABCDEFGHIJKLMNOPQRSTUVWXYZ", invitationCodeLength)
}

// Hash produces a salted Argon2id hash of code for storage. The hash alone
// cannot be queried: it embeds a random salt, so equality lookups must go
// through Index.
func (e *Engine) Hash(code string) (string, error) {
	return cryptox.Hash(code)
}

// Verify compares a candidate code against a stored hash in constant time.
func (e *Engine) Verify(code, hash string) error {
	return cryptox.Verify(code, hash)
}

// Index returns the deterministic keyed digest of code used as the database
// lookup key. Identical codes always produce identical indexes.
func (e *Engine) Index(code string) string {
	mac := hmac.New(sha256.New, e.IndexSecret)
	mac.Write([]byte(code))
	return hex.EncodeToString(mac.Sum(nil))
}

// randomString draws length characters uniformly from charset using
// crypto/rand.
func randomString(charset string, length int) (string, error) {
	out := make([]byte, length)
	bound := big.NewInt(int64(len(charset)))
	for i := range out {
		n, err := rand.Int(rand.Reader, bound)
		if err != nil {
			return "", fmt.Errorf("codes: random source failed: %w", err)
		}
		out[i] = charset[n.Int64()]
	}
	return string(out), nil
}
