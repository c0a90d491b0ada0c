package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aula-cl/lectura/internal/domain"
	"github.com/aula-cl/lectura/pkg/idx"
)

type accountsRepo struct {
	q queryer
}

const accountColumns = `id, handle, email, password_hash, course_level, access_expires_at, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (domain.Account, error) {
	var (
		a         domain.Account
		id        string
		expiresAt sql.NullTime
	)
	err := row.Scan(&id, &a.Handle, &a.Email, &a.PasswordHash, &a.CourseLevel, &expiresAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return domain.Account{}, err
	}
	a.ID = idx.ID(id)
	a.AccessExpiresAt = mapNullTimePtr(expiresAt)
	return a, nil
}

func (r *accountsRepo) CreateAccount(ctx context.Context, a domain.Account) error {
	now := time.Now().UTC()
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO accounts (id, handle, email, password_hash, course_level, access_expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID.String(), a.Handle, a.Email, a.PasswordHash, a.CourseLevel,
		mapOptionalTime(a.AccessExpiresAt), now, now,
	)
	return mapUnique(err)
}

func (r *accountsRepo) GetAccountByID(ctx context.Context, id idx.ID) (domain.Account, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id.String())
	a, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return a, nil
}

func (r *accountsRepo) GetAccountByHandle(ctx context.Context, handle string) (domain.Account, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE handle = ?`, handle)
	a, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return a, nil
}

func (r *accountsRepo) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = ? AND email != ''`, email)
	a, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return a, nil
}

func (r *accountsRepo) UpdatePasswordHash(ctx context.Context, id idx.ID, newHash string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE accounts SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, time.Now().UTC(), id.String())
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *accountsRepo) UpdateAccessExpiry(ctx context.Context, id idx.ID, expiresAt time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE accounts SET access_expires_at = ?, updated_at = ? WHERE id = ?`,
		expiresAt, time.Now().UTC(), id.String())
	if err != nil {
		return err
	}
	return requireAffected(res)
}
