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
	"github.com/aula-cl/lectura/pkg/idx"
	"github.com/aula-cl/lectura/pkg/slogx"
)

// codeRerollAttempts bounds the re-roll loop when a freshly generated code
// collides with an existing one. Collisions are negligible in practice; the
// bound only guards against a broken random source.
const codeRerollAttempts = 5

// EntitlementService owns the premium window: who has it, and how invitation
// codes and license keys extend it.
type EntitlementService struct {
	Store store.Store
	Codes *codes.Engine
}

// IsPremiumAccount reports whether the account currently holds premium
// access. The reserved admin handle is always premium.
func (s *EntitlementService) IsPremiumAccount(a domain.Account, now time.Time) bool {
	if a.Handle == domain.AdminHandle {
		return true
	}
	return a.AccessExpiresAt != nil && a.AccessExpiresAt.After(now)
}

// IsPremiumSubUser reports whether the sub-user's access window is open.
func (s *EntitlementService) IsPremiumSubUser(su domain.SubUser, now time.Time) bool {
	return su.AccessExpiresAt != nil && su.AccessExpiresAt.After(now)
}

// stackExpiry implements cumulative extension: an open window is extended
// from its current end, a closed or absent one restarts from now. Paying
// twice always adds the full duration.
func stackExpiry(current *time.Time, durationDays int, now time.Time) time.Time {
	d := time.Duration(durationDays) * 24 * time.Hour
	if current != nil && current.After(now) {
		return current.Add(d)
	}
	return now.Add(d)
}

// RedeemInvitation consumes an invitation code and extends the account's
// premium window. Exactly one concurrent redemption of the same code wins.
func (s *EntitlementService) RedeemInvitation(ctx context.Context, accountID idx.ID, rawCode string) (domain.Account, error) {
	log := slogx.FromContext(ctx)
	code := strings.ToUpper(strings.TrimSpace(rawCode))
	if code == "" {
		return domain.Account{}, ErrInvalidRequest
	}

	inv, err := s.Store.InvitationCodes().GetInvitationCodeByCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Account{}, ErrNotFound
		}
		return domain.Account{}, err
	}
	if inv.Status != domain.GrantActive {
		return domain.Account{}, ErrAlreadyUsed
	}

	now := time.Now().UTC()
	var updated domain.Account

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		acc, err := tx.Accounts().GetAccountByID(ctx, accountID)
		if err != nil {
			return err
		}

		// The conditional consume is the linearization point; the pre-check
		// above only produces a friendlier error for the common case.
		if err := tx.InvitationCodes().ConsumeInvitationCode(ctx, inv.ID, accountID, now); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return ErrAlreadyUsed
			}
			return err
		}

		expiry := stackExpiry(acc.AccessExpiresAt, inv.DurationDays, now)
		if err := tx.Accounts().UpdateAccessExpiry(ctx, accountID, expiry); err != nil {
			return err
		}

		updated = acc
		updated.AccessExpiresAt = &expiry
		return nil
	})
	if err != nil {
		return domain.Account{}, err
	}

	log.Info("invitation code redeemed",
		slog.String("account_id", accountID.String()),
		slog.Int("duration_days", inv.DurationDays),
	)
	return updated, nil
}

// ActivateLicense consumes a license key for one of the account's sub-users,
// extends the sub-user's window and rotates their login code. The plaintext
// code is returned exactly once; only its hash and lookup index are stored.
func (s *EntitlementService) ActivateLicense(ctx context.Context, accountID, subUserID idx.ID, rawKey string) (domain.SubUser, string, error) {
	log := slogx.FromContext(ctx)
	key := strings.ToUpper(strings.TrimSpace(rawKey))
	if key == "" {
		return domain.SubUser{}, "", ErrInvalidRequest
	}

	su, err := s.Store.SubUsers().GetSubUserByID(ctx, subUserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.SubUser{}, "", ErrNotFound
		}
		return domain.SubUser{}, "", err
	}
	if su.AccountID != accountID {
		// Other accounts' sub-users look like missing ones.
		return domain.SubUser{}, "", ErrNotFound
	}

	lic, err := s.Store.Licenses().GetLicenseByKey(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.SubUser{}, "", ErrNotFound
		}
		return domain.SubUser{}, "", err
	}
	if lic.Status != domain.GrantActive {
		return domain.SubUser{}, "", ErrAlreadyUsed
	}

	now := time.Now().UTC()
	var (
		updated   domain.SubUser
		plaintext string
	)

	// The code index has a uniqueness constraint; on the (negligible) chance
	// of a collision the whole transaction is retried with a fresh code.
	for attempt := 0; attempt < codeRerollAttempts; attempt++ {
		code, err := s.Codes.NewLoginCode()
		if err != nil {
			return domain.SubUser{}, "", err
		}
		hash, err := s.Codes.Hash(code)
		if err != nil {
			return domain.SubUser{}, "", err
		}
		index := s.Codes.Index(code)

		err = s.Store.WithTx(ctx, func(tx store.Tx) error {
			current, err := tx.SubUsers().GetSubUserByID(ctx, subUserID)
			if err != nil {
				return err
			}

			if err := tx.Licenses().ConsumeLicense(ctx, lic.ID, subUserID, now); err != nil {
				if errors.Is(err, store.ErrConflict) {
					return ErrAlreadyUsed
				}
				return err
			}

			expiry := stackExpiry(current.AccessExpiresAt, lic.DurationDays, now)
			if err := tx.SubUsers().UpdateSubUserLicense(ctx, subUserID, expiry, hash, index, code); err != nil {
				return err
			}

			updated = current
			updated.AccessExpiresAt = &expiry
			updated.LoginCodeHash = hash
			updated.LoginCodeIndex = index
			updated.LoginCodeDisplay = code
			return nil
		})
		if errors.Is(err, store.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return domain.SubUser{}, "", err
		}

		plaintext = code
		break
	}
	if plaintext == "" {
		return domain.SubUser{}, "", errors.New("service: login code generation kept colliding")
	}

	log.Info("license activated",
		slog.String("sub_user_id", subUserID.String()),
		slog.Int("duration_days", lic.DurationDays),
	)
	return updated, plaintext, nil
}
