package http

import (
	"net/http"
	"time"

	"github.com/aula-cl/lectura/internal/service"
	"github.com/aula-cl/lectura/internal/store"
	"github.com/aula-cl/lectura/pkg/httpx"
)

type UnlockHandler struct {
	EntitlementService *service.EntitlementService
	Store              store.Store
}

type UnlockRequest struct {
	Code string `json:"code"`
}

// ServeHTTP godoc
//
//	@Summary		Redeem Invitation Code
//	@Description	Consume an invitation code and extend the account's premium
//	@Description	window. An already-open window is extended from its end.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		UnlockRequest	true	"invitation code"
//	@Success		200		{object}	AccountResponse
//	@Failure		401		{object}	httpx.ErrorResponse
//	@Failure		404		{object}	httpx.ErrorResponse	"unknown code"
//	@Failure		409		{object}	httpx.ErrorResponse	"code already used"
//	@Router			/auth/unlock [post].
func (h *UnlockHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	acc, ok := currentAccount(w, r, h.Store)
	if !ok {
		return
	}

	var req UnlockRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.EntitlementService.RedeemInvitation(r.Context(), acc.ID, req.Code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	premium := h.EntitlementService.IsPremiumAccount(updated, time.Now().UTC())
	httpx.WriteJSON(w, http.StatusOK, accountResponse(updated, premium))
}
