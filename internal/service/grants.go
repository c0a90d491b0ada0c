package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aula-cl/lectura/internal/domain"
	"github.com/aula-cl/lectura/internal/store"
	"github.com/aula-cl/lectura/pkg/codes"
	"github.com/aula-cl/lectura/pkg/idx"
	"github.com/aula-cl/lectura/pkg/slogx"
)

const (
	// DefaultGrantDurationDays is the premium window a grant extends when no
	// explicit duration is requested.
	DefaultGrantDurationDays = 365

	// MaxMintCount bounds one admin minting request.
	MaxMintCount = 500
)

// GrantService is the admin surface for minting and listing invitation codes
// and license keys.
type GrantService struct {
	Store store.Store
	Codes *codes.Engine
}

// MintInvitations creates count fresh invitation codes. Generated codes that
// collide with existing ones are re-rolled.
func (s *GrantService) MintInvitations(ctx context.Context, count, durationDays int) ([]domain.InvitationCode, error) {
	count, durationDays, err := normalizeMint(count, durationDays)
	if err != nil {
		return nil, err
	}

	out := make([]domain.InvitationCode, 0, count)
	for range count {
		var minted domain.InvitationCode
		err := s.withReroll(func() error {
			code, err := s.Codes.NewInvitationCode()
			if err != nil {
				return err
			}
			minted = domain.InvitationCode{
				ID:           idx.New(),
				Code:         code,
				Status:       domain.GrantActive,
				DurationDays: durationDays,
				CreatedAt:    time.Now().UTC(),
			}
			return s.Store.InvitationCodes().CreateInvitationCode(ctx, minted)
		})
		if err != nil {
			return nil, err
		}
		out = append(out, minted)
	}

	slogx.FromContext(ctx).Info("invitation codes minted",
		slog.Int("count", count),
		slog.Int("duration_days", durationDays),
	)
	return out, nil
}

func (s *GrantService) ListInvitations(ctx context.Context) ([]domain.InvitationCode, error) {
	return s.Store.InvitationCodes().ListInvitationCodes(ctx)
}

// MintLicenses creates count fresh license keys.
func (s *GrantService) MintLicenses(ctx context.Context, count, durationDays int) ([]domain.License, error) {
	count, durationDays, err := normalizeMint(count, durationDays)
	if err != nil {
		return nil, err
	}

	out := make([]domain.License, 0, count)
	for range count {
		var minted domain.License
		err := s.withReroll(func() error {
			key, err := s.Codes.NewLicenseKey()
			if err != nil {
				return err
			}
			minted = domain.License{
				ID:           idx.New(),
				Key:          key,
				Status:       domain.GrantActive,
				DurationDays: durationDays,
				CreatedAt:    time.Now().UTC(),
			}
			return s.Store.Licenses().CreateLicense(ctx, minted)
		})
		if err != nil {
			return nil, err
		}
		out = append(out, minted)
	}

	slogx.FromContext(ctx).Info("license keys minted",
		slog.Int("count", count),
		slog.Int("duration_days", durationDays),
	)
	return out, nil
}

func (s *GrantService) ListLicenses(ctx context.Context) ([]domain.License, error) {
	return s.Store.Licenses().ListLicenses(ctx)
}

func normalizeMint(count, durationDays int) (int, int, error) {
	if count <= 0 {
		count = 1
	}
	if count > MaxMintCount {
		return 0, 0, ErrInvalidRequest
	}
	if durationDays <= 0 {
		durationDays = DefaultGrantDurationDays
	}
	return count, durationDays, nil
}

func (s *GrantService) withReroll(insert func() error) error {
	for range codeRerollAttempts {
		err := insert()
		if errors.Is(err, store.ErrAlreadyExists) {
			continue
		}
		return err
	}
	return errors.New("service: grant code generation kept colliding")
}
