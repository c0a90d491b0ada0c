package service

import (
	"context"
	"testing"

	"github.com/aula-cl/lectura/internal/domain"
	"github.com/aula-cl/lectura/pkg/idx"
	"github.com/stretchr/testify/require"
)

func seedCatalogue(t *testing.T, svc *ContentService) (free, premium domain.Text) {
	t.Helper()
	ctx := context.Background()

	var err error
	free, err = svc.CreateText(ctx, domain.Text{
		Title:       "Texto libre",
		CourseLevel: "3eso",
		Content:     "Contenido abierto.",
		Free:        true,
	}, []domain.Question{{
		Prompt:        "¿De qué trata?",
		Options:       []string{"De nada", "De algo"},
		CorrectOption: 1,
	}})
	require.NoError(t, err)

	premium, err = svc.CreateText(ctx, domain.Text{
		Title:       "Texto premium",
		CourseLevel: "3eso",
		Content:     "Contenido cerrado.",
	}, nil)
	require.NoError(t, err)

	return free, premium
}

func TestListTextsGating(t *testing.T) {
	ctx := context.Background()
	svc := &ContentService{Store: newTestStore(t)}
	freeText, premiumText := seedCatalogue(t, svc)

	reader := Reader{SubjectKind: "account", SubjectID: "alice", CourseLevel: "3eso"}

	listings, err := svc.ListTexts(ctx, reader)
	require.NoError(t, err)
	require.Len(t, listings, 2)

	byID := map[idx.ID]TextListing{}
	for _, l := range listings {
		byID[l.Text.ID] = l
	}

	require.False(t, byID[freeText.ID].Locked)
	require.NotEmpty(t, byID[freeText.ID].Text.Content)

	// Premium texts stay listed but locked and stripped for the free tier.
	require.True(t, byID[premiumText.ID].Locked)
	require.Empty(t, byID[premiumText.ID].Text.Content)

	t.Run("premium reader sees everything", func(t *testing.T) {
		reader.Premium = true
		listings, err := svc.ListTexts(ctx, reader)
		require.NoError(t, err)
		for _, l := range listings {
			require.False(t, l.Locked)
			require.NotEmpty(t, l.Text.Content)
		}
	})

	t.Run("completion annotations", func(t *testing.T) {
		_, err := svc.SubmitAttempt(ctx, reader, freeText.ID, 120, 80)
		require.NoError(t, err)
		_, err = svc.SubmitAttempt(ctx, reader, freeText.ID, 90, 60)
		require.NoError(t, err)

		listings, err := svc.ListTexts(ctx, reader)
		require.NoError(t, err)
		for _, l := range listings {
			if l.Text.ID == freeText.ID {
				require.True(t, l.Completed)
				require.Equal(t, 80.0, l.BestScore)
			}
		}
	})
}

func TestGetTextGate(t *testing.T) {
	ctx := context.Background()
	svc := &ContentService{Store: newTestStore(t)}
	freeText, premiumText := seedCatalogue(t, svc)

	freeReader := Reader{SubjectKind: "account", SubjectID: "alice", CourseLevel: "3eso"}

	_, err := svc.GetText(ctx, freeReader, freeText.ID)
	require.NoError(t, err)

	_, err = svc.GetText(ctx, freeReader, premiumText.ID)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.GetText(ctx, freeReader, idx.New())
	require.ErrorIs(t, err, ErrNotFound)

	t.Run("questions follow the same gate", func(t *testing.T) {
		qs, err := svc.Questions(ctx, freeReader, freeText.ID)
		require.NoError(t, err)
		require.Len(t, qs, 1)
		require.Equal(t, 1, qs[0].CorrectOption)

		_, err = svc.Questions(ctx, freeReader, premiumText.ID)
		require.ErrorIs(t, err, ErrForbidden)
	})
}

func TestPrediction(t *testing.T) {
	ctx := context.Background()
	svc := &ContentService{Store: newTestStore(t)}
	freeText, _ := seedCatalogue(t, svc)

	reader := Reader{SubjectKind: "subuser", SubjectID: idx.New().String(), CourseLevel: "3eso"}

	t.Run("too few attempts", func(t *testing.T) {
		p, err := svc.Predict(ctx, reader)
		require.NoError(t, err)
		require.Zero(t, p.Score)
		require.NotEmpty(t, p.Message)
	})

	for _, score := range []float64{40, 50, 60, 90} {
		_, err := svc.SubmitAttempt(ctx, reader, freeText.ID, 100, score)
		require.NoError(t, err)
	}

	// Mean of the last three: (50 + 60 + 90) / 3.
	p, err := svc.Predict(ctx, reader)
	require.NoError(t, err)
	require.InDelta(t, 66.66, p.Score, 0.01)
	require.Empty(t, p.Message)
}

func TestSubmitAttemptValidation(t *testing.T) {
	ctx := context.Background()
	svc := &ContentService{Store: newTestStore(t)}
	freeText, _ := seedCatalogue(t, svc)

	reader := Reader{SubjectKind: "account", SubjectID: "alice", CourseLevel: "3eso"}

	_, err := svc.SubmitAttempt(ctx, reader, freeText.ID, 100, 101)
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.SubmitAttempt(ctx, reader, freeText.ID, -1, 50)
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.SubmitAttempt(ctx, reader, idx.New(), 100, 50)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestExportPDF(t *testing.T) {
	ctx := context.Background()
	svc := &ContentService{Store: newTestStore(t)}
	freeText, _ := seedCatalogue(t, svc)

	freeReader := Reader{SubjectKind: "account", SubjectID: "alice", CourseLevel: "3eso"}

	// Export is premium-only even for free texts.
	_, _, err := svc.ExportPDF(ctx, freeReader, freeText.ID)
	require.ErrorIs(t, err, ErrForbidden)

	premiumReader := freeReader
	premiumReader.Premium = true

	doc, filename, err := svc.ExportPDF(ctx, premiumReader, freeText.ID)
	require.NoError(t, err)
	require.Equal(t, "texto-libre.pdf", filename)
	require.True(t, len(doc) > 0)
	require.Equal(t, "%PDF-1.4", string(doc[:8]))
	require.Contains(t, string(doc), "%%EOF")
}
