package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aula-cl/lectura/internal/domain"
	"github.com/aula-cl/lectura/internal/store"
	"github.com/aula-cl/lectura/pkg/idx"
)

type subUsersRepo struct {
	q queryer
}

const subUserColumns = `id, account_id, name, active, access_expires_at,
	login_code_hash, login_code_index, login_code_display, created_at, updated_at`

func scanSubUser(row interface{ Scan(...any) error }) (domain.SubUser, error) {
	var (
		su        domain.SubUser
		id, owner string
		expiresAt sql.NullTime
	)
	err := row.Scan(&id, &owner, &su.Name, &su.Active, &expiresAt,
		&su.LoginCodeHash, &su.LoginCodeIndex, &su.LoginCodeDisplay,
		&su.CreatedAt, &su.UpdatedAt)
	if err != nil {
		return domain.SubUser{}, err
	}
	su.ID = idx.ID(id)
	su.AccountID = idx.ID(owner)
	su.AccessExpiresAt = mapNullTimePtr(expiresAt)
	return su, nil
}

func (r *subUsersRepo) CreateSubUser(ctx context.Context, su domain.SubUser) error {
	now := time.Now().UTC()
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO sub_users (id, account_id, name, active, access_expires_at,
			login_code_hash, login_code_index, login_code_display, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		su.ID.String(), su.AccountID.String(), su.Name, su.Active,
		mapOptionalTime(su.AccessExpiresAt),
		su.LoginCodeHash, su.LoginCodeIndex, su.LoginCodeDisplay, now, now,
	)
	return mapUnique(err)
}

func (r *subUsersRepo) GetSubUserByID(ctx context.Context, id idx.ID) (domain.SubUser, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+subUserColumns+` FROM sub_users WHERE id = ?`, id.String())
	su, err := scanSubUser(row)
	if err != nil {
		return domain.SubUser{}, mapNotFound(err)
	}
	return su, nil
}

func (r *subUsersRepo) GetSubUserByCodeIndex(ctx context.Context, index string) (domain.SubUser, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+subUserColumns+` FROM sub_users WHERE login_code_index = ? AND login_code_index != ''`, index)
	su, err := scanSubUser(row)
	if err != nil {
		return domain.SubUser{}, mapNotFound(err)
	}
	return su, nil
}

func (r *subUsersRepo) ListSubUsersByAccount(ctx context.Context, accountID idx.ID) ([]domain.SubUser, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+subUserColumns+` FROM sub_users WHERE account_id = ? ORDER BY created_at`, accountID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SubUser
	for rows.Next() {
		su, err := scanSubUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, su)
	}
	return out, rows.Err()
}

func (r *subUsersRepo) UpdateSubUserName(ctx context.Context, id idx.ID, name string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE sub_users SET name = ?, updated_at = ? WHERE id = ?`,
		name, time.Now().UTC(), id.String())
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *subUsersRepo) UpdateSubUserLicense(
	ctx context.Context,
	id idx.ID,
	expiresAt time.Time,
	codeHash, codeIndex, codeDisplay string,
) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE sub_users
		SET access_expires_at = ?, login_code_hash = ?, login_code_index = ?,
			login_code_display = ?, updated_at = ?
		WHERE id = ?`,
		expiresAt, codeHash, codeIndex, codeDisplay, time.Now().UTC(), id.String())
	if err != nil {
		return mapUnique(err)
	}
	return requireAffected(res)
}

func (r *subUsersRepo) DeleteSubUser(ctx context.Context, id idx.ID) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM sub_users WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// requireAffected converts a zero-row update/delete into ErrNotFound.
func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
