package sqlite

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aula-cl/lectura/internal/domain"
	"github.com/aula-cl/lectura/pkg/idx"
)

type textsRepo struct {
	q queryer
}

const textColumns = `id, title, course_level, language, content, free, created_at, updated_at`

func scanText(row interface{ Scan(...any) error }) (domain.Text, error) {
	var (
		t  domain.Text
		id string
	)
	err := row.Scan(&id, &t.Title, &t.CourseLevel, &t.Language, &t.Content, &t.Free, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return domain.Text{}, err
	}
	t.ID = idx.ID(id)
	return t, nil
}

func (r *textsRepo) CreateText(ctx context.Context, t domain.Text) error {
	now := time.Now().UTC()
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO texts (id, title, course_level, language, content, free, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID.String(), t.Title, t.CourseLevel, t.Language, t.Content, t.Free, now, now,
	)
	return mapUnique(err)
}

func (r *textsRepo) GetTextByID(ctx context.Context, id idx.ID) (domain.Text, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+textColumns+` FROM texts WHERE id = ?`, id.String())
	t, err := scanText(row)
	if err != nil {
		return domain.Text{}, mapNotFound(err)
	}
	return t, nil
}

func (r *textsRepo) ListTextsByCourseLevel(ctx context.Context, courseLevel string) ([]domain.Text, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+textColumns+` FROM texts WHERE course_level = ? ORDER BY created_at`, courseLevel)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Text
	for rows.Next() {
		t, err := scanText(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *textsRepo) UpdateText(ctx context.Context, t domain.Text) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE texts
		SET title = ?, course_level = ?, language = ?, content = ?, free = ?, updated_at = ?
		WHERE id = ?`,
		t.Title, t.CourseLevel, t.Language, t.Content, t.Free, time.Now().UTC(), t.ID.String(),
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *textsRepo) DeleteText(ctx context.Context, id idx.ID) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM texts WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	return requireAffected(res)
}

type questionsRepo struct {
	q queryer
}

// Question options are stored as a JSON array in a single column; the option
// count varies per question and is only ever read back whole.
func (r *questionsRepo) CreateQuestion(ctx context.Context, q domain.Question) error {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return err
	}
	_, err = r.q.ExecContext(ctx, `
		INSERT INTO questions (id, text_id, prompt, options, correct_option)
		VALUES (?, ?, ?, ?, ?)`,
		q.ID.String(), q.TextID.String(), q.Prompt, string(options), q.CorrectOption,
	)
	return mapUnique(err)
}

func (r *questionsRepo) ListQuestionsByText(ctx context.Context, textID idx.ID) ([]domain.Question, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, text_id, prompt, options, correct_option
		FROM questions WHERE text_id = ? ORDER BY id`, textID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		var (
			q          domain.Question
			id, tid    string
			rawOptions string
		)
		if err := rows.Scan(&id, &tid, &q.Prompt, &rawOptions, &q.CorrectOption); err != nil {
			return nil, err
		}
		q.ID = idx.ID(id)
		q.TextID = idx.ID(tid)
		if err := json.Unmarshal([]byte(rawOptions), &q.Options); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (r *questionsRepo) DeleteQuestionsByText(ctx context.Context, textID idx.ID) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM questions WHERE text_id = ?`, textID.String())
	return err
}

type readingAttemptsRepo struct {
	q queryer
}

func (r *readingAttemptsRepo) CreateReadingAttempt(ctx context.Context, a domain.ReadingAttempt) error {
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO reading_attempts (id, subject_kind, subject_id, text_id, time_spent_seconds, score, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID.String(), a.SubjectKind, a.SubjectID, a.TextID.String(),
		a.TimeSpentSeconds, a.Score, createdAt,
	)
	return mapUnique(err)
}

func (r *readingAttemptsRepo) ListReadingAttemptsBySubject(ctx context.Context, subjectKind, subjectID string) ([]domain.ReadingAttempt, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, subject_kind, subject_id, text_id, time_spent_seconds, score, created_at
		FROM reading_attempts
		WHERE subject_kind = ? AND subject_id = ?
		ORDER BY created_at`, subjectKind, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ReadingAttempt
	for rows.Next() {
		var (
			a       domain.ReadingAttempt
			id, tid string
		)
		if err := rows.Scan(&id, &a.SubjectKind, &a.SubjectID, &tid, &a.TimeSpentSeconds, &a.Score, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.ID = idx.ID(id)
		a.TextID = idx.ID(tid)
		out = append(out, a)
	}
	return out, rows.Err()
}
