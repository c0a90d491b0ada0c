package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aula-cl/lectura/internal/domain"
	"github.com/aula-cl/lectura/internal/store"
	"github.com/aula-cl/lectura/pkg/cryptox"
	"github.com/aula-cl/lectura/pkg/idx"
)

// BootstrapService seeds the reserved admin account on first start. The admin
// handle cannot be registered through the public endpoint, so this is the
// only way it comes into existence.
type BootstrapService struct {
	Store  store.Store
	Logger *slog.Logger
}

// EnsureAdmin creates the admin account with the given password if it does
// not exist yet. An existing admin account is left untouched, so password
// changes go through the normal reset flow, not through configuration.
func (s *BootstrapService) EnsureAdmin(ctx context.Context, password string) error {
	_, err := s.Store.Accounts().GetAccountByHandle(ctx, domain.AdminHandle)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	if len(password) < minPasswordLength {
		return ErrInvalidRequest
	}

	hash, err := cryptox.Hash(password)
	if err != nil {
		return err
	}

	admin := domain.Account{
		ID:           idx.New(),
		Handle:       domain.AdminHandle,
		PasswordHash: hash,
	}
	if err := s.Store.Accounts().CreateAccount(ctx, admin); err != nil {
		// Lost a race against a concurrent bootstrap; the admin exists.
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil
		}
		return err
	}

	s.Logger.Info("admin account bootstrapped")
	return nil
}
