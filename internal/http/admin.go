package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/aula-cl/lectura/internal/domain"
	"github.com/aula-cl/lectura/internal/service"
	"github.com/aula-cl/lectura/internal/store"
	"github.com/aula-cl/lectura/pkg/httpx"
)

type AdminHandler struct {
	GrantService   *service.GrantService
	ContentService *service.ContentService
	Store          store.Store
}

// InvitationResponse is the admin view of an invitation code, including
// redemption metadata.
type InvitationResponse struct {
	ID           string     `json:"id"`
	Code         string     `json:"code"`
	Status       string     `json:"status"`
	DurationDays int        `json:"duration_days"`
	UsedBy       string     `json:"used_by_account_id,omitempty"`
	UsedAt       *time.Time `json:"used_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func invitationResponse(c domain.InvitationCode) InvitationResponse {
	resp := InvitationResponse{
		ID:           c.ID.String(),
		Code:         c.Code,
		Status:       string(c.Status),
		DurationDays: c.DurationDays,
		UsedAt:       c.UsedAt,
		CreatedAt:    c.CreatedAt,
	}
	if !c.UsedByAccountID.IsZero() {
		resp.UsedBy = c.UsedByAccountID.String()
	}
	return resp
}

// LicenseResponse is the admin view of a license key.
type LicenseResponse struct {
	ID           string     `json:"id"`
	Key          string     `json:"key"`
	Status       string     `json:"status"`
	DurationDays int        `json:"duration_days"`
	SubUserID    string     `json:"sub_user_id,omitempty"`
	ActivatedAt  *time.Time `json:"activated_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func licenseResponse(l domain.License) LicenseResponse {
	resp := LicenseResponse{
		ID:           l.ID.String(),
		Key:          l.Key,
		Status:       string(l.Status),
		DurationDays: l.DurationDays,
		ActivatedAt:  l.ActivatedAt,
		CreatedAt:    l.CreatedAt,
	}
	if !l.SubUserID.IsZero() {
		resp.SubUserID = l.SubUserID.String()
	}
	return resp
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// HandleMintInvitations godoc
//
//	@Summary		Mint Invitation Codes
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			count	query		int	false	"number of codes (default 1)"
//	@Param			days	query		int	false	"premium duration in days (default 365)"
//	@Success		201		{array}		InvitationResponse
//	@Failure		403		{object}	httpx.ErrorResponse	"admin required"
//	@Router			/admin/invitations [post].
func (h *AdminHandler) HandleMintInvitations(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r, h.Store); !ok {
		return
	}

	minted, err := h.GrantService.MintInvitations(r.Context(),
		queryInt(r, "count", 1), queryInt(r, "days", 0))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]InvitationResponse, 0, len(minted))
	for _, c := range minted {
		out = append(out, invitationResponse(c))
	}
	httpx.WriteJSON(w, http.StatusCreated, out)
}

// HandleListInvitations godoc
//
//	@Summary		List Invitation Codes
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{array}		InvitationResponse
//	@Failure		403	{object}	httpx.ErrorResponse
//	@Router			/admin/invitations [get].
func (h *AdminHandler) HandleListInvitations(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r, h.Store); !ok {
		return
	}

	list, err := h.GrantService.ListInvitations(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]InvitationResponse, 0, len(list))
	for _, c := range list {
		out = append(out, invitationResponse(c))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleMintLicenses godoc
//
//	@Summary		Mint License Keys
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			count	query		int	false	"number of keys (default 1)"
//	@Param			days	query		int	false	"access duration in days (default 365)"
//	@Success		201		{array}		LicenseResponse
//	@Failure		403		{object}	httpx.ErrorResponse
//	@Router			/admin/licenses [post].
func (h *AdminHandler) HandleMintLicenses(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r, h.Store); !ok {
		return
	}

	minted, err := h.GrantService.MintLicenses(r.Context(),
		queryInt(r, "count", 1), queryInt(r, "days", 0))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]LicenseResponse, 0, len(minted))
	for _, l := range minted {
		out = append(out, licenseResponse(l))
	}
	httpx.WriteJSON(w, http.StatusCreated, out)
}

// HandleListLicenses godoc
//
//	@Summary		List License Keys
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{array}		LicenseResponse
//	@Failure		403	{object}	httpx.ErrorResponse
//	@Router			/admin/licenses [get].
func (h *AdminHandler) HandleListLicenses(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r, h.Store); !ok {
		return
	}

	list, err := h.GrantService.ListLicenses(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]LicenseResponse, 0, len(list))
	for _, l := range list {
		out = append(out, licenseResponse(l))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

type UpsertTextRequest struct {
	Title       string            `json:"title"`
	CourseLevel string            `json:"course_level"`
	Language    string            `json:"language,omitempty"`
	Content     string            `json:"content"`
	Free        bool              `json:"free"`
	Questions   []QuestionRequest `json:"questions,omitempty"`
}

type QuestionRequest struct {
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correct_option"`
}

func (req UpsertTextRequest) text() domain.Text {
	return domain.Text{
		Title:       req.Title,
		CourseLevel: req.CourseLevel,
		Language:    req.Language,
		Content:     req.Content,
		Free:        req.Free,
	}
}

func (req UpsertTextRequest) questions() []domain.Question {
	if req.Questions == nil {
		return nil
	}
	out := make([]domain.Question, 0, len(req.Questions))
	for _, q := range req.Questions {
		out = append(out, domain.Question{
			Prompt:        q.Prompt,
			Options:       q.Options,
			CorrectOption: q.CorrectOption,
		})
	}
	return out
}

// HandleCreateText godoc
//
//	@Summary		Upload Text
//	@Description	Create a reading text together with its quiz questions
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		UpsertTextRequest	true	"text with questions"
//	@Success		201		{object}	TextResponse
//	@Failure		400		{object}	httpx.ErrorResponse
//	@Failure		403		{object}	httpx.ErrorResponse
//	@Router			/admin/texts [post].
func (h *AdminHandler) HandleCreateText(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r, h.Store); !ok {
		return
	}

	var req UpsertTextRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t, err := h.ContentService.CreateText(r.Context(), req.text(), req.questions())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, textResponse(t, false, false, 0))
}

// HandleUpdateText godoc
//
//	@Summary		Update Text
//	@Description	Replace a text's fields; when questions are supplied the
//	@Description	whole quiz is replaced
//	@Tags			Admin
//	@Accept			json
//	@Security		BearerAuth
//	@Param			id		path	string				true	"text id"
//	@Param			request	body	UpsertTextRequest	true	"updated text"
//	@Success		204
//	@Failure		404	{object}	httpx.ErrorResponse
//	@Router			/admin/texts/{id} [put].
func (h *AdminHandler) HandleUpdateText(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r, h.Store); !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req UpsertTextRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t := req.text()
	t.ID = id
	if err := h.ContentService.UpdateText(r.Context(), t, req.questions()); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleDeleteText godoc
//
//	@Summary		Delete Text
//	@Tags			Admin
//	@Security		BearerAuth
//	@Param			id	path	string	true	"text id"
//	@Success		204
//	@Failure		404	{object}	httpx.ErrorResponse
//	@Router			/admin/texts/{id} [delete].
func (h *AdminHandler) HandleDeleteText(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r, h.Store); !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.ContentService.DeleteText(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
