package sqlite

import (
	"context"
	"time"

	"github.com/aula-cl/lectura/internal/domain"
)

type loginAttemptsRepo struct {
	q queryer
}

func (r *loginAttemptsRepo) RecordLoginAttempt(ctx context.Context, a domain.LoginAttempt) error {
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO login_attempts (ip_address, code_index, success, created_at)
		VALUES (?, ?, ?, ?)`,
		a.IPAddress, a.CodeIndex, a.Success, createdAt,
	)
	return err
}

func (r *loginAttemptsRepo) CountRecentFailures(ctx context.Context, codeIndex string, since time.Time) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM login_attempts
		WHERE code_index = ? AND success = 0 AND created_at >= ?`,
		codeIndex, since,
	).Scan(&n)
	return n, err
}

func (r *loginAttemptsRepo) DeleteLoginAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM login_attempts WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
