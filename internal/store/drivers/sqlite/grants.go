package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aula-cl/lectura/internal/domain"
	"github.com/aula-cl/lectura/internal/store"
	"github.com/aula-cl/lectura/pkg/idx"
)

type invitationCodesRepo struct {
	q queryer
}

const invitationColumns = `id, code, status, duration_days, used_by_account_id, used_at, created_at`

func scanInvitationCode(row interface{ Scan(...any) error }) (domain.InvitationCode, error) {
	var (
		c      domain.InvitationCode
		id     string
		status string
		usedBy sql.NullString
		usedAt sql.NullTime
	)
	err := row.Scan(&id, &c.Code, &status, &c.DurationDays, &usedBy, &usedAt, &c.CreatedAt)
	if err != nil {
		return domain.InvitationCode{}, err
	}
	c.ID = idx.ID(id)
	c.Status = domain.GrantStatus(status)
	c.UsedByAccountID = mapNullID(usedBy)
	c.UsedAt = mapNullTimePtr(usedAt)
	return c, nil
}

func (r *invitationCodesRepo) CreateInvitationCode(ctx context.Context, c domain.InvitationCode) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO invitation_codes (id, code, status, duration_days, used_by_account_id, used_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID.String(), c.Code, string(c.Status), c.DurationDays,
		mapOptionalID(c.UsedByAccountID), mapOptionalTime(c.UsedAt), time.Now().UTC(),
	)
	return mapUnique(err)
}

func (r *invitationCodesRepo) GetInvitationCodeByCode(ctx context.Context, code string) (domain.InvitationCode, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitation_codes WHERE code = ?`, code)
	c, err := scanInvitationCode(row)
	if err != nil {
		return domain.InvitationCode{}, mapNotFound(err)
	}
	return c, nil
}

// ConsumeInvitationCode is a conditional update: only an ACTIVE row flips to
// USED, so concurrent redemptions have exactly one winner.
func (r *invitationCodesRepo) ConsumeInvitationCode(ctx context.Context, id idx.ID, accountID idx.ID, usedAt time.Time) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE invitation_codes
		SET status = ?, used_by_account_id = ?, used_at = ?
		WHERE id = ? AND status = ?`,
		string(domain.GrantUsed), accountID.String(), usedAt,
		id.String(), string(domain.GrantActive),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrConflict
	}
	return nil
}

func (r *invitationCodesRepo) ListInvitationCodes(ctx context.Context) ([]domain.InvitationCode, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+invitationColumns+` FROM invitation_codes ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.InvitationCode
	for rows.Next() {
		c, err := scanInvitationCode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type licensesRepo struct {
	q queryer
}

const licenseColumns = `id, key, status, duration_days, sub_user_id, activated_at, created_at`

func scanLicense(row interface{ Scan(...any) error }) (domain.License, error) {
	var (
		l           domain.License
		id          string
		status      string
		subUser     sql.NullString
		activatedAt sql.NullTime
	)
	err := row.Scan(&id, &l.Key, &status, &l.DurationDays, &subUser, &activatedAt, &l.CreatedAt)
	if err != nil {
		return domain.License{}, err
	}
	l.ID = idx.ID(id)
	l.Status = domain.GrantStatus(status)
	l.SubUserID = mapNullID(subUser)
	l.ActivatedAt = mapNullTimePtr(activatedAt)
	return l, nil
}

func (r *licensesRepo) CreateLicense(ctx context.Context, l domain.License) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO licenses (id, key, status, duration_days, sub_user_id, activated_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.ID.String(), l.Key, string(l.Status), l.DurationDays,
		mapOptionalID(l.SubUserID), mapOptionalTime(l.ActivatedAt), time.Now().UTC(),
	)
	return mapUnique(err)
}

func (r *licensesRepo) GetLicenseByKey(ctx context.Context, key string) (domain.License, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+licenseColumns+` FROM licenses WHERE key = ?`, key)
	l, err := scanLicense(row)
	if err != nil {
		return domain.License{}, mapNotFound(err)
	}
	return l, nil
}

func (r *licensesRepo) ConsumeLicense(ctx context.Context, id idx.ID, subUserID idx.ID, activatedAt time.Time) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE licenses
		SET status = ?, sub_user_id = ?, activated_at = ?
		WHERE id = ? AND status = ?`,
		string(domain.GrantUsed), subUserID.String(), activatedAt,
		id.String(), string(domain.GrantActive),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrConflict
	}
	return nil
}

func (r *licensesRepo) DetachLicensesFromSubUser(ctx context.Context, subUserID idx.ID) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE licenses SET sub_user_id = NULL WHERE sub_user_id = ?`, subUserID.String())
	return err
}

func (r *licensesRepo) ListLicenses(ctx context.Context) ([]domain.License, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+licenseColumns+` FROM licenses ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.License
	for rows.Next() {
		l, err := scanLicense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
