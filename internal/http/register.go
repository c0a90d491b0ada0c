package http

import (
	"net/http"
	"time"

	"github.com/aula-cl/lectura/internal/domain"
	"github.com/aula-cl/lectura/internal/service"
	"github.com/aula-cl/lectura/pkg/httpx"
)

type RegisterHandler struct {
	TokenService *service.TokenService
}

type RegisterRequest struct {
	Handle      string `json:"handle"`
	Email       string `json:"email,omitempty"`
	Password    string `json:"password"`
	CourseLevel string `json:"course_level,omitempty"`
}

// AccountResponse is the public view of an account.
type AccountResponse struct {
	ID          string     `json:"id"`
	Handle      string     `json:"handle"`
	Email       string     `json:"email,omitempty"`
	CourseLevel string     `json:"course_level,omitempty"`
	Premium     bool       `json:"premium"`
	ExpiresAt   *time.Time `json:"access_expires_at,omitempty"`
}

func accountResponse(a domain.Account, premium bool) AccountResponse {
	return AccountResponse{
		ID:          a.ID.String(),
		Handle:      a.Handle,
		Email:       a.Email,
		CourseLevel: a.CourseLevel,
		Premium:     premium,
		ExpiresAt:   a.AccessExpiresAt,
	}
}

// ServeHTTP godoc
//
//	@Summary		Register Account
//	@Description	Create a free-tier account with handle and password
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		RegisterRequest	true	"registration payload"
//	@Success		201		{object}	AccountResponse
//	@Failure		400		{object}	httpx.ErrorResponse
//	@Failure		409		{object}	httpx.ErrorResponse	"handle taken"
//	@Router			/auth/register [post].
func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	acc, err := h.TokenService.Register(r.Context(), req.Handle, req.Email, req.Password, req.CourseLevel)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, accountResponse(acc, false))
}
