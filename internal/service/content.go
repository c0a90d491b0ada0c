package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/aula-cl/lectura/internal/domain"
	"github.com/aula-cl/lectura/internal/store"
	"github.com/aula-cl/lectura/pkg/idx"
	"github.com/aula-cl/lectura/pkg/slogx"
)

// predictionSampleSize is how many recent attempts feed the forecast.
const predictionSampleSize = 3

// Reader identifies who is reading: either identity kind, with its course
// level and entitlement already resolved by the transport layer.
type Reader struct {
	SubjectKind string
	SubjectID   string
	CourseLevel string
	Premium     bool
}

// TextListing is one entry of the gated catalogue. Locked entries expose
// metadata only; Content stays empty.
type TextListing struct {
	Text      domain.Text
	Locked    bool
	Completed bool
	BestScore float64
}

// Prediction is the exam score forecast.
type Prediction struct {
	Score   float64
	Message string
}

// ContentService serves the reading catalogue, quizzes and attempt history,
// applying the free/premium gate everywhere.
type ContentService struct {
	Store store.Store
}

// ListTexts returns the catalogue for the reader's course level. Non-free
// texts are locked (content stripped) for non-premium readers rather than
// hidden, so the catalogue doubles as an upsell surface.
func (s *ContentService) ListTexts(ctx context.Context, r Reader) ([]TextListing, error) {
	texts, err := s.Store.Texts().ListTextsByCourseLevel(ctx, r.CourseLevel)
	if err != nil {
		return nil, err
	}

	attempts, err := s.Store.ReadingAttempts().ListReadingAttemptsBySubject(ctx, r.SubjectKind, r.SubjectID)
	if err != nil {
		return nil, err
	}

	best := make(map[idx.ID]float64, len(attempts))
	for _, a := range attempts {
		if score, ok := best[a.TextID]; !ok || a.Score > score {
			best[a.TextID] = a.Score
		}
	}

	out := make([]TextListing, 0, len(texts))
	for _, t := range texts {
		locked := !t.Free && !r.Premium
		if locked {
			t.Content = ""
		}
		score, completed := best[t.ID]
		out = append(out, TextListing{
			Text:      t,
			Locked:    locked,
			Completed: completed,
			BestScore: score,
		})
	}
	return out, nil
}

// GetText returns one text's full content. Non-free texts require premium.
func (s *ContentService) GetText(ctx context.Context, r Reader, textID idx.ID) (domain.Text, error) {
	t, err := s.Store.Texts().GetTextByID(ctx, textID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Text{}, ErrNotFound
		}
		return domain.Text{}, err
	}
	if !t.Free && !r.Premium {
		return domain.Text{}, ErrForbidden
	}
	return t, nil
}

// Questions returns the quiz for a text, under the same gate as the text
// itself.
func (s *ContentService) Questions(ctx context.Context, r Reader, textID idx.ID) ([]domain.Question, error) {
	if _, err := s.GetText(ctx, r, textID); err != nil {
		return nil, err
	}
	return s.Store.Questions().ListQuestionsByText(ctx, textID)
}

// SubmitAttempt records a completed quiz run. The score is supplied by the
// client; questions carry their answer key to the frontend, so the server
// never re-grades.
func (s *ContentService) SubmitAttempt(ctx context.Context, r Reader, textID idx.ID, timeSpentSeconds, score float64) (domain.ReadingAttempt, error) {
	if score < 0 || score > 100 || timeSpentSeconds < 0 {
		return domain.ReadingAttempt{}, ErrInvalidRequest
	}
	if _, err := s.GetText(ctx, r, textID); err != nil {
		return domain.ReadingAttempt{}, err
	}

	attempt := domain.ReadingAttempt{
		ID:               idx.New(),
		SubjectKind:      r.SubjectKind,
		SubjectID:        r.SubjectID,
		TextID:           textID,
		TimeSpentSeconds: timeSpentSeconds,
		Score:            score,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.Store.ReadingAttempts().CreateReadingAttempt(ctx, attempt); err != nil {
		return domain.ReadingAttempt{}, err
	}

	slogx.FromContext(ctx).Info("reading attempt recorded",
		slog.String("subject_kind", r.SubjectKind),
		slog.Float64("score", score),
	)
	return attempt, nil
}

// Predict forecasts the reader's exam score as the mean of their most recent
// attempts. With fewer than two attempts there is nothing to extrapolate.
func (s *ContentService) Predict(ctx context.Context, r Reader) (Prediction, error) {
	attempts, err := s.Store.ReadingAttempts().ListReadingAttemptsBySubject(ctx, r.SubjectKind, r.SubjectID)
	if err != nil {
		return Prediction{}, err
	}

	if len(attempts) < 2 {
		return Prediction{
			Score:   0,
			Message: "complete at least two readings to get a prediction",
		}, nil
	}

	recent := attempts
	if len(recent) > predictionSampleSize {
		recent = recent[len(recent)-predictionSampleSize:]
	}

	var sum float64
	for _, a := range recent {
		sum += a.Score
	}
	return Prediction{Score: sum / float64(len(recent))}, nil
}

// ExportPDF renders a text as a printable PDF. Export is a premium feature
// for every text, free ones included.
func (s *ContentService) ExportPDF(ctx context.Context, r Reader, textID idx.ID) ([]byte, string, error) {
	if !r.Premium {
		return nil, "", ErrForbidden
	}

	t, err := s.Store.Texts().GetTextByID(ctx, textID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}

	filename := pdfFilename(t.Title)
	return renderPDF(t.Title, t.Content), filename, nil
}

// CreateText uploads a text together with its quiz questions.
func (s *ContentService) CreateText(ctx context.Context, t domain.Text, questions []domain.Question) (domain.Text, error) {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" || t.CourseLevel == "" {
		return domain.Text{}, ErrInvalidRequest
	}
	if t.Language == "" {
		t.Language = "es"
	}
	t.ID = idx.New()

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Texts().CreateText(ctx, t); err != nil {
			return err
		}
		for _, q := range questions {
			q.ID = idx.New()
			q.TextID = t.ID
			if q.Prompt == "" || len(q.Options) < 2 || q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
				return ErrInvalidRequest
			}
			if err := tx.Questions().CreateQuestion(ctx, q); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Text{}, err
	}
	return t, nil
}

// UpdateText replaces a text's fields and, when questions are provided, its
// whole quiz.
func (s *ContentService) UpdateText(ctx context.Context, t domain.Text, questions []domain.Question) error {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" || t.CourseLevel == "" {
		return ErrInvalidRequest
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Texts().UpdateText(ctx, t); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}
		if questions == nil {
			return nil
		}
		if err := tx.Questions().DeleteQuestionsByText(ctx, t.ID); err != nil {
			return err
		}
		for _, q := range questions {
			q.ID = idx.New()
			q.TextID = t.ID
			if q.Prompt == "" || len(q.Options) < 2 || q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
				return ErrInvalidRequest
			}
			if err := tx.Questions().CreateQuestion(ctx, q); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteText removes a text; questions and attempts cascade in the schema.
func (s *ContentService) DeleteText(ctx context.Context, textID idx.ID) error {
	if err := s.Store.Texts().DeleteText(ctx, textID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
