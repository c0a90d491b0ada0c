package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/aula-cl/lectura/internal/store"
)

// storeTx exposes the same repositories as Store but scoped to one
// transaction. Nested transactions are deliberately unsupported.
type storeTx struct {
	tx *sql.Tx
}

func (t *storeTx) Commit() error   { return t.tx.Commit() }
func (t *storeTx) Rollback() error { return t.tx.Rollback() }

func (t *storeTx) Accounts() store.Accounts               { return &accountsRepo{q: t.tx} }
func (t *storeTx) SubUsers() store.SubUsers               { return &subUsersRepo{q: t.tx} }
func (t *storeTx) InvitationCodes() store.InvitationCodes { return &invitationCodesRepo{q: t.tx} }
func (t *storeTx) Licenses() store.Licenses               { return &licensesRepo{q: t.tx} }
func (t *storeTx) LoginAttempts() store.LoginAttempts     { return &loginAttemptsRepo{q: t.tx} }
func (t *storeTx) Texts() store.Texts                     { return &textsRepo{q: t.tx} }
func (t *storeTx) Questions() store.Questions             { return &questionsRepo{q: t.tx} }
func (t *storeTx) ReadingAttempts() store.ReadingAttempts { return &readingAttemptsRepo{q: t.tx} }

func (t *storeTx) ApplyMigrations() error {
	return errors.New("sqlite: migrations cannot run inside a transaction")
}

func (t *storeTx) Tx(ctx context.Context) (store.Tx, error) {
	return nil, errors.New("sqlite: nested transactions are not supported")
}

func (t *storeTx) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return errors.New("sqlite: nested transactions are not supported")
}

func (t *storeTx) Close() error { return nil }

func (t *storeTx) Ping(ctx context.Context) error { return nil }
