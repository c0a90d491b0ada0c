package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/aula-cl/lectura/internal/domain"
	"github.com/aula-cl/lectura/internal/store"
	"github.com/aula-cl/lectura/pkg/codes"
	"github.com/aula-cl/lectura/pkg/cryptox"
	"github.com/aula-cl/lectura/pkg/idx"
	"github.com/aula-cl/lectura/pkg/jwtx"
	"github.com/aula-cl/lectura/pkg/slogx"
)

const minPasswordLength = 8

// TokenService implements registration and both token grants: handle+password
// for accounts and login codes for sub-users. Tokens are stateless HS256 JWTs;
// there is no revocation list, expiry is the only invalidation.
type TokenService struct {
	Store   store.Store
	Codec   *jwtx.Codec
	Codes   *codes.Engine
	Limiter *AttemptLimiter

	AccessTTL time.Duration
	ResetTTL  time.Duration
}

func (s *TokenService) accessTTL() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return jwtx.DefaultAccessTTL
}

func (s *TokenService) resetTTL() time.Duration {
	if s.ResetTTL > 0 {
		return s.ResetTTL
	}
	return jwtx.DefaultResetTTL
}

// Register creates a free-tier account. The reserved admin handle cannot be
// registered; it is seeded at startup.
func (s *TokenService) Register(ctx context.Context, handle, email, password, courseLevel string) (domain.Account, error) {
	handle = strings.ToLower(strings.TrimSpace(handle))
	email = strings.ToLower(strings.TrimSpace(email))

	if handle == "" || handle == domain.AdminHandle {
		return domain.Account{}, ErrInvalidRequest
	}
	if len(password) < minPasswordLength {
		return domain.Account{}, ErrInvalidRequest
	}

	hash, err := cryptox.Hash(password)
	if err != nil {
		return domain.Account{}, err
	}

	acc := domain.Account{
		ID:           idx.New(),
		Handle:       handle,
		Email:        email,
		PasswordHash: hash,
		CourseLevel:  strings.TrimSpace(courseLevel),
	}
	if err := s.Store.Accounts().CreateAccount(ctx, acc); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Account{}, ErrAlreadyExists
		}
		return domain.Account{}, err
	}

	slogx.FromContext(ctx).Info("account registered", slog.String("handle", handle))
	return acc, nil
}

// PasswordGrant authenticates an account and returns a session token.
func (s *TokenService) PasswordGrant(ctx context.Context, handle, password string) (string, domain.Account, error) {
	handle = strings.ToLower(strings.TrimSpace(handle))

	acc, err := s.Store.Accounts().GetAccountByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Same error as a wrong password: no handle oracle.
			return "", domain.Account{}, ErrInvalidCredentials
		}
		return "", domain.Account{}, err
	}

	if err := cryptox.Verify(password, acc.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrMismatch) {
			return "", domain.Account{}, ErrInvalidCredentials
		}
		return "", domain.Account{}, err
	}

	token, err := s.signSubject(jwtx.KindAccount, acc.Handle, jwtx.PurposeAccess, s.accessTTL())
	if err != nil {
		return "", domain.Account{}, err
	}
	return token, acc, nil
}

// LoginCodeGrant authenticates a sub-user by login code and returns a session
// token. The flow order matters: the limiter is consulted before any lookup,
// and every attempt is recorded, including blocked ones.
func (s *TokenService) LoginCodeGrant(ctx context.Context, rawCode, ip string) (string, domain.SubUser, error) {
	log := slogx.FromContext(ctx)
	code := strings.ToUpper(strings.TrimSpace(rawCode))
	index := s.Codes.Index(code)

	allowed, err := s.Limiter.Allow(ctx, index)
	if err != nil {
		return "", domain.SubUser{}, err
	}
	if !allowed {
		// Recorded as a failure so the block keeps sliding forward while
		// attempts continue.
		if err := s.Limiter.Record(ctx, ip, index, false); err != nil {
			return "", domain.SubUser{}, err
		}
		log.Warn("login code attempt blocked", slog.String("ip", ip))
		return "", domain.SubUser{}, ErrRateLimited
	}

	su, err := s.Store.SubUsers().GetSubUserByCodeIndex(ctx, index)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			if err := s.Limiter.Record(ctx, ip, index, false); err != nil {
				return "", domain.SubUser{}, err
			}
			return "", domain.SubUser{}, ErrInvalidCredentials
		}
		return "", domain.SubUser{}, err
	}

	// The index already narrowed to one candidate; the salted hash is the
	// actual credential check.
	if err := s.Codes.Verify(code, su.LoginCodeHash); err != nil {
		if errors.Is(err, cryptox.ErrMismatch) {
			if err := s.Limiter.Record(ctx, ip, index, false); err != nil {
				return "", domain.SubUser{}, err
			}
			return "", domain.SubUser{}, ErrInvalidCredentials
		}
		return "", domain.SubUser{}, err
	}

	if err := s.Limiter.Record(ctx, ip, index, true); err != nil {
		return "", domain.SubUser{}, err
	}

	if !su.Active {
		return "", domain.SubUser{}, ErrInvalidCredentials
	}

	// Expiry is only disclosed after the credential itself verified.
	now := time.Now().UTC()
	if su.AccessExpiresAt == nil || !su.AccessExpiresAt.After(now) {
		return "", domain.SubUser{}, ErrExpired
	}

	token, err := s.signSubject(jwtx.KindSubUser, su.ID.String(), jwtx.PurposeAccess, s.accessTTL())
	if err != nil {
		return "", domain.SubUser{}, err
	}
	return token, su, nil
}

// IssueResetToken issues a short-lived purpose=reset token for the account
// registered under email. Callers must not disclose whether the email exists;
// ErrNotFound here is for the transport layer to flatten into a generic
// response.
func (s *TokenService) IssueResetToken(ctx context.Context, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrInvalidRequest
	}

	acc, err := s.Store.Accounts().GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}

	return s.signSubject(jwtx.KindAccount, acc.Handle, jwtx.PurposeReset, s.resetTTL())
}

// ConfirmReset validates a reset token and replaces the account password.
// Access tokens are rejected here the same as any invalid token.
func (s *TokenService) ConfirmReset(ctx context.Context, rawToken, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ErrInvalidRequest
	}

	claims, err := s.Codec.Verify(rawToken, jwtx.PurposeReset)
	if err != nil {
		return ErrInvalidCredentials
	}
	subject, err := claims.DecodeSubject()
	if err != nil {
		return ErrInvalidCredentials
	}
	accSubject, ok := subject.(jwtx.AccountSubject)
	if !ok {
		return ErrInvalidCredentials
	}

	acc, err := s.Store.Accounts().GetAccountByHandle(ctx, accSubject.Handle)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}

	hash, err := cryptox.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.Store.Accounts().UpdatePasswordHash(ctx, acc.ID, hash); err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("password reset", slog.String("handle", acc.Handle))
	return nil
}

func (s *TokenService) signSubject(kind jwtx.SubjectKind, subject string, purpose jwtx.Purpose, ttl time.Duration) (string, error) {
	claims := jwtx.NewClaims(kind, subject, purpose, s.Codec.Issuer, ttl, time.Now().UTC())
	return s.Codec.Sign(claims)
}
