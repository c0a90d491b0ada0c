package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/aula-cl/lectura/internal/domain"
	"github.com/aula-cl/lectura/internal/service"
	"github.com/aula-cl/lectura/internal/store"
	"github.com/aula-cl/lectura/pkg/httpx"
	"github.com/aula-cl/lectura/pkg/idx"
)

type ReadingHandler struct {
	ContentService     *service.ContentService
	EntitlementService *service.EntitlementService
	Store              store.Store
}

// TextResponse is one catalogue entry. Content is empty on locked entries.
type TextResponse struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	CourseLevel string  `json:"course_level"`
	Language    string  `json:"language"`
	Content     string  `json:"content,omitempty"`
	Free        bool    `json:"free"`
	Locked      bool    `json:"locked"`
	Completed   bool    `json:"completed"`
	BestScore   float64 `json:"best_score"`
}

func textResponse(t domain.Text, locked, completed bool, bestScore float64) TextResponse {
	return TextResponse{
		ID:          t.ID.String(),
		Title:       t.Title,
		CourseLevel: t.CourseLevel,
		Language:    t.Language,
		Content:     t.Content,
		Free:        t.Free,
		Locked:      locked,
		Completed:   completed,
		BestScore:   bestScore,
	}
}

// QuestionResponse carries one quiz question including its answer key; the
// frontend grades locally and reports the score.
type QuestionResponse struct {
	ID            string   `json:"id"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correct_option"`
}

// HandleListTexts godoc
//
//	@Summary		List Texts
//	@Description	Catalogue for the reader's course level with completion and
//	@Description	best-score annotations. Premium texts appear locked for the
//	@Description	free tier.
//	@Tags			Reading
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{array}		TextResponse
//	@Failure		401	{object}	httpx.ErrorResponse
//	@Router			/reading/texts [get].
func (h *ReadingHandler) HandleListTexts(w http.ResponseWriter, r *http.Request) {
	reader, ok := currentReader(w, r, h.Store, h.EntitlementService)
	if !ok {
		return
	}

	listings, err := h.ContentService.ListTexts(r.Context(), reader)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]TextResponse, 0, len(listings))
	for _, l := range listings {
		out = append(out, textResponse(l.Text, l.Locked, l.Completed, l.BestScore))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleGetText godoc
//
//	@Summary		Get Text
//	@Description	Full content of one text. Non-free texts require premium.
//	@Tags			Reading
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"text id"
//	@Success		200	{object}	TextResponse
//	@Failure		403	{object}	httpx.ErrorResponse	"premium required"
//	@Failure		404	{object}	httpx.ErrorResponse
//	@Router			/reading/texts/{id} [get].
func (h *ReadingHandler) HandleGetText(w http.ResponseWriter, r *http.Request) {
	reader, ok := currentReader(w, r, h.Store, h.EntitlementService)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	t, err := h.ContentService.GetText(r.Context(), reader, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, textResponse(t, false, false, 0))
}

// HandleQuestions godoc
//
//	@Summary		Get Quiz Questions
//	@Tags			Reading
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"text id"
//	@Success		200	{array}		QuestionResponse
//	@Failure		403	{object}	httpx.ErrorResponse
//	@Failure		404	{object}	httpx.ErrorResponse
//	@Router			/reading/texts/{id}/questions [get].
func (h *ReadingHandler) HandleQuestions(w http.ResponseWriter, r *http.Request) {
	reader, ok := currentReader(w, r, h.Store, h.EntitlementService)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	questions, err := h.ContentService.Questions(r.Context(), reader, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]QuestionResponse, 0, len(questions))
	for _, q := range questions {
		out = append(out, QuestionResponse{
			ID:            q.ID.String(),
			Prompt:        q.Prompt,
			Options:       q.Options,
			CorrectOption: q.CorrectOption,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleExportPDF godoc
//
//	@Summary		Export Text as PDF
//	@Description	Printable copy of a text. Premium-only, free texts included.
//	@Tags			Reading
//	@Produce		application/pdf
//	@Security		BearerAuth
//	@Param			id	path	string	true	"text id"
//	@Success		200	{file}	binary
//	@Failure		403	{object}	httpx.ErrorResponse	"premium required"
//	@Failure		404	{object}	httpx.ErrorResponse
//	@Router			/reading/texts/{id}/pdf [get].
func (h *ReadingHandler) HandleExportPDF(w http.ResponseWriter, r *http.Request) {
	reader, ok := currentReader(w, r, h.Store, h.EntitlementService)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	doc, filename, err := h.ContentService.ExportPDF(r.Context(), reader, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

type SubmitAttemptRequest struct {
	TextID           string  `json:"text_id"`
	TimeSpentSeconds float64 `json:"time_spent_seconds"`
	Score            float64 `json:"score"`
}

// AttemptResponse echoes a recorded quiz attempt.
type AttemptResponse struct {
	ID               string    `json:"id"`
	TextID           string    `json:"text_id"`
	TimeSpentSeconds float64   `json:"time_spent_seconds"`
	Score            float64   `json:"score"`
	CreatedAt        time.Time `json:"created_at"`
}

// HandleSubmitAttempt godoc
//
//	@Summary		Submit Quiz Attempt
//	@Tags			Reading
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		SubmitAttemptRequest	true	"attempt result"
//	@Success		201		{object}	AttemptResponse
//	@Failure		400		{object}	httpx.ErrorResponse
//	@Failure		404		{object}	httpx.ErrorResponse
//	@Router			/reading/attempts [post].
func (h *ReadingHandler) HandleSubmitAttempt(w http.ResponseWriter, r *http.Request) {
	reader, ok := currentReader(w, r, h.Store, h.EntitlementService)
	if !ok {
		return
	}

	var req SubmitAttemptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	textID, err := idx.Parse(req.TextID)
	if err != nil {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "Resource not found")
		return
	}

	attempt, err := h.ContentService.SubmitAttempt(r.Context(), reader, textID, req.TimeSpentSeconds, req.Score)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, AttemptResponse{
		ID:               attempt.ID.String(),
		TextID:           attempt.TextID.String(),
		TimeSpentSeconds: attempt.TimeSpentSeconds,
		Score:            attempt.Score,
		CreatedAt:        attempt.CreatedAt,
	})
}

// PredictionResponse is the exam score forecast.
type PredictionResponse struct {
	Score   float64 `json:"score"`
	Message string  `json:"message,omitempty"`
}

// HandlePrediction godoc
//
//	@Summary		Score Prediction
//	@Description	Mean of the reader's recent attempt scores. With fewer than
//	@Description	two attempts the score is zero and a message explains why.
//	@Tags			Reading
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	PredictionResponse
//	@Failure		401	{object}	httpx.ErrorResponse
//	@Router			/reading/prediction [get].
func (h *ReadingHandler) HandlePrediction(w http.ResponseWriter, r *http.Request) {
	reader, ok := currentReader(w, r, h.Store, h.EntitlementService)
	if !ok {
		return
	}

	p, err := h.ContentService.Predict(r.Context(), reader)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, PredictionResponse{Score: p.Score, Message: p.Message})
}
