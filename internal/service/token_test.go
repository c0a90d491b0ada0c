package service

import (
	"context"
	"testing"
	"time"

	"github.com/aula-cl/lectura/internal/domain"
	"github.com/aula-cl/lectura/pkg/codes"
	"github.com/aula-cl/lectura/pkg/idx"
	"github.com/aula-cl/lectura/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func newTokenService(t *testing.T) *TokenService {
	t.Helper()

	st := newTestStore(t)
	secret := []byte("test-secret")
	return &TokenService{
		Store:   st,
		Codec:   jwtx.NewCodec(secret, "lectura-test"),
		Codes:   codes.New(secret),
		Limiter: NewAttemptLimiter(st),
	}
}

func TestRegisterAndPasswordGrant(t *testing.T) {
	ctx := context.Background()
	svc := newTokenService(t)

	acc, err := svc.Register(ctx, "Alice", "ALICE@example.com", "correct horse", "3eso")
	require.NoError(t, err)
	require.Equal(t, "alice", acc.Handle)
	require.Equal(t, "alice@example.com", acc.Email)
	require.Nil(t, acc.AccessExpiresAt)

	t.Run("token round trip", func(t *testing.T) {
		token, got, err := svc.PasswordGrant(ctx, "alice", "correct horse")
		require.NoError(t, err)
		require.Equal(t, acc.ID, got.ID)

		claims, err := svc.Codec.Verify(token, jwtx.PurposeAccess)
		require.NoError(t, err)
		subject, err := claims.DecodeSubject()
		require.NoError(t, err)
		require.Equal(t, jwtx.AccountSubject{Handle: "alice"}, subject)
	})

	t.Run("wrong password and unknown handle are the same error", func(t *testing.T) {
		_, _, err := svc.PasswordGrant(ctx, "alice", "wrong password")
		require.ErrorIs(t, err, ErrInvalidCredentials)

		_, _, err = svc.PasswordGrant(ctx, "nobody", "whatever")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("duplicate handle rejected", func(t *testing.T) {
		_, err := svc.Register(ctx, "alice", "", "another pass", "")
		require.ErrorIs(t, err, ErrAlreadyExists)
	})

	t.Run("reserved admin handle rejected", func(t *testing.T) {
		_, err := svc.Register(ctx, "admin", "", "password123", "")
		require.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("short password rejected", func(t *testing.T) {
		_, err := svc.Register(ctx, "bob", "", "short", "")
		require.ErrorIs(t, err, ErrInvalidRequest)
	})
}

// seedSubUser creates an account with one licensed sub-user and returns the
// sub-user plus their plaintext login code.
func seedSubUser(t *testing.T, svc *TokenService, expiresAt time.Time) (domain.SubUser, string) {
	t.Helper()
	ctx := context.Background()

	acc := domain.Account{ID: idx.New(), Handle: "owner-" + idx.New().String(), PasswordHash: "x"}
	require.NoError(t, svc.Store.Accounts().CreateAccount(ctx, acc))

	su := domain.SubUser{ID: idx.New(), AccountID: acc.ID, Name: "Pablo", Active: true}
	require.NoError(t, svc.Store.SubUsers().CreateSubUser(ctx, su))

	code, err := svc.Codes.NewLoginCode()
	require.NoError(t, err)
	hash, err := svc.Codes.Hash(code)
	require.NoError(t, err)

	err = svc.Store.SubUsers().UpdateSubUserLicense(ctx, su.ID, expiresAt, hash, svc.Codes.Index(code), code)
	require.NoError(t, err)

	su, err = svc.Store.SubUsers().GetSubUserByID(ctx, su.ID)
	require.NoError(t, err)
	return su, code
}

func TestLoginCodeGrant(t *testing.T) {
	ctx := context.Background()
	svc := newTokenService(t)

	su, code := seedSubUser(t, svc, time.Now().Add(24*time.Hour).UTC())

	token, got, err := svc.LoginCodeGrant(ctx, "  "+code+"  ", "203.0.113.7")
	require.NoError(t, err)
	require.Equal(t, su.ID, got.ID)

	claims, err := svc.Codec.Verify(token, jwtx.PurposeAccess)
	require.NoError(t, err)
	subject, err := claims.DecodeSubject()
	require.NoError(t, err)
	require.Equal(t, jwtx.SubUserSubject{ID: su.ID}, subject)

	t.Run("unknown code is invalid credentials", func(t *testing.T) {
		_, _, err := svc.LoginCodeGrant(ctx, "CL000000AAA", "203.0.113.7")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestLoginCodeGrantExpiredWindow(t *testing.T) {
	ctx := context.Background()
	svc := newTokenService(t)

	// Credential is valid but the access window has elapsed.
	_, code := seedSubUser(t, svc, time.Now().Add(-time.Hour).UTC())

	_, _, err := svc.LoginCodeGrant(ctx, code, "203.0.113.7")
	require.ErrorIs(t, err, ErrExpired)
}

func TestLoginCodeGrantRateLimiting(t *testing.T) {
	ctx := context.Background()
	svc := newTokenService(t)

	_, code := seedSubUser(t, svc, time.Now().Add(24*time.Hour).UTC())
	wrong := "CL999999ZZZ"

	for range svc.Limiter.Threshold {
		_, _, err := svc.LoginCodeGrant(ctx, wrong, "203.0.113.7")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	// Threshold reached: further attempts with that code are blocked.
	_, _, err := svc.LoginCodeGrant(ctx, wrong, "203.0.113.7")
	require.ErrorIs(t, err, ErrRateLimited)

	t.Run("blocked attempts keep extending the block", func(t *testing.T) {
		n, err := svc.Store.LoginAttempts().CountRecentFailures(ctx,
			svc.Codes.Index(wrong), time.Now().UTC().Add(-svc.Limiter.Window))
		require.NoError(t, err)
		require.Equal(t, svc.Limiter.Threshold+1, n)
	})

	t.Run("other codes are unaffected", func(t *testing.T) {
		_, _, err := svc.LoginCodeGrant(ctx, code, "203.0.113.7")
		require.NoError(t, err)
	})
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()
	svc := newTokenService(t)

	_, err := svc.Register(ctx, "alice", "alice@example.com", "original pass", "")
	require.NoError(t, err)

	token, err := svc.IssueResetToken(ctx, "Alice@Example.com")
	require.NoError(t, err)

	t.Run("unknown email reports not found for the handler to flatten", func(t *testing.T) {
		_, err := svc.IssueResetToken(ctx, "nobody@example.com")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("access token rejected by reset path", func(t *testing.T) {
		access, _, err := svc.PasswordGrant(ctx, "alice", "original pass")
		require.NoError(t, err)

		err = svc.ConfirmReset(ctx, access, "replacement pass")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	require.NoError(t, svc.ConfirmReset(ctx, token, "replacement pass"))

	_, _, err = svc.PasswordGrant(ctx, "alice", "original pass")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.PasswordGrant(ctx, "alice", "replacement pass")
	require.NoError(t, err)
}
