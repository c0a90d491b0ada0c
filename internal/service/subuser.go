package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/aula-cl/lectura/internal/domain"
	"github.com/aula-cl/lectura/internal/store"
	"github.com/aula-cl/lectura/pkg/idx"
	"github.com/aula-cl/lectura/pkg/slogx"
)

// SubUserService manages the classroom identities owned by an account. All
// operations are scoped to the owning account; other accounts' sub-users are
// indistinguishable from missing ones.
type SubUserService struct {
	Store store.Store
}

// Create adds a sub-user. Entitlement starts closed: no access window and no
// login code until a license is activated.
func (s *SubUserService) Create(ctx context.Context, accountID idx.ID, name string) (domain.SubUser, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.SubUser{}, ErrInvalidRequest
	}

	su := domain.SubUser{
		ID:        idx.New(),
		AccountID: accountID,
		Name:      name,
		Active:    true,
	}
	if err := s.Store.SubUsers().CreateSubUser(ctx, su); err != nil {
		return domain.SubUser{}, err
	}

	slogx.FromContext(ctx).Info("sub-user created", slog.String("sub_user_id", su.ID.String()))
	return su, nil
}

func (s *SubUserService) List(ctx context.Context, accountID idx.ID) ([]domain.SubUser, error) {
	return s.Store.SubUsers().ListSubUsersByAccount(ctx, accountID)
}

// Rename changes the display name of one of the account's sub-users.
func (s *SubUserService) Rename(ctx context.Context, accountID, subUserID idx.ID, name string) (domain.SubUser, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.SubUser{}, ErrInvalidRequest
	}

	su, err := s.getOwned(ctx, accountID, subUserID)
	if err != nil {
		return domain.SubUser{}, err
	}

	if err := s.Store.SubUsers().UpdateSubUserName(ctx, su.ID, name); err != nil {
		return domain.SubUser{}, err
	}
	su.Name = name
	return su, nil
}

// Delete removes a sub-user. Licenses the sub-user activated are detached,
// not deleted: the rows keep their status for the audit trail.
func (s *SubUserService) Delete(ctx context.Context, accountID, subUserID idx.ID) error {
	if _, err := s.getOwned(ctx, accountID, subUserID); err != nil {
		return err
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Licenses().DetachLicensesFromSubUser(ctx, subUserID); err != nil {
			return err
		}
		return tx.SubUsers().DeleteSubUser(ctx, subUserID)
	})
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("sub-user deleted", slog.String("sub_user_id", subUserID.String()))
	return nil
}

func (s *SubUserService) getOwned(ctx context.Context, accountID, subUserID idx.ID) (domain.SubUser, error) {
	su, err := s.Store.SubUsers().GetSubUserByID(ctx, subUserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.SubUser{}, ErrNotFound
		}
		return domain.SubUser{}, err
	}
	if su.AccountID != accountID {
		return domain.SubUser{}, ErrNotFound
	}
	return su, nil
}
