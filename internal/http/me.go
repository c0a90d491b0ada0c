package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/aula-cl/lectura/internal/service"
	"github.com/aula-cl/lectura/internal/store"
	"github.com/aula-cl/lectura/pkg/httpx"
	"github.com/aula-cl/lectura/pkg/jwtx"
)

type MeHandler struct {
	EntitlementService *service.EntitlementService
	Store              store.Store
}

// SubjectResponse describes whoever holds the session: a primary account or
// a sub-user.
type SubjectResponse struct {
	Kind    string           `json:"kind"`
	Account *AccountResponse `json:"account,omitempty"`
	SubUser *SubUserResponse `json:"sub_user,omitempty"`
}

// ServeHTTP godoc
//
//	@Summary		Current Subject
//	@Description	Return the authenticated account or sub-user with their
//	@Description	entitlement state
//	@Tags			Auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	SubjectResponse
//	@Failure		401	{object}	httpx.ErrorResponse
//	@Router			/auth/me [get].
func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	subject, ok := httpx.SubjectFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Authentication required")
		return
	}

	now := time.Now().UTC()
	switch s := subject.(type) {
	case jwtx.AccountSubject:
		acc, err := h.Store.Accounts().GetAccountByHandle(r.Context(), s.Handle)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Account no longer exists")
				return
			}
			writeServiceError(w, r, err)
			return
		}
		resp := accountResponse(acc, h.EntitlementService.IsPremiumAccount(acc, now))
		httpx.WriteJSON(w, http.StatusOK, SubjectResponse{
			Kind:    string(jwtx.KindAccount),
			Account: &resp,
		})

	case jwtx.SubUserSubject:
		su, err := h.Store.SubUsers().GetSubUserByID(r.Context(), s.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Sub-user no longer exists")
				return
			}
			writeServiceError(w, r, err)
			return
		}
		resp := subUserResponse(su, h.EntitlementService.IsPremiumSubUser(su, now))
		// The code display copy is for the owning account only.
		resp.LoginCode = ""
		httpx.WriteJSON(w, http.StatusOK, SubjectResponse{
			Kind:    string(jwtx.KindSubUser),
			SubUser: &resp,
		})

	default:
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Unknown subject kind")
	}
}
