package http

import (
	"net/http"
	"time"

	"github.com/aula-cl/lectura/internal/domain"
	"github.com/aula-cl/lectura/internal/service"
	"github.com/aula-cl/lectura/internal/store"
	"github.com/aula-cl/lectura/pkg/httpx"
	"github.com/aula-cl/lectura/pkg/idx"
)

type SubUsersHandler struct {
	SubUserService     *service.SubUserService
	EntitlementService *service.EntitlementService
	Store              store.Store
}

// SubUserResponse is the owner's view of a sub-user. LoginCode is the
// display copy retained for re-showing; it is stripped when a sub-user views
// themselves.
type SubUserResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Active    bool       `json:"active"`
	Premium   bool       `json:"premium"`
	ExpiresAt *time.Time `json:"access_expires_at,omitempty"`
	LoginCode string     `json:"login_code,omitempty"`
}

func subUserResponse(su domain.SubUser, premium bool) SubUserResponse {
	return SubUserResponse{
		ID:        su.ID.String(),
		Name:      su.Name,
		Active:    su.Active,
		Premium:   premium,
		ExpiresAt: su.AccessExpiresAt,
		LoginCode: su.LoginCodeDisplay,
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (idx.ID, bool) {
	id, err := idx.Parse(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "Resource not found")
		return idx.Zero, false
	}
	return id, true
}

type CreateSubUserRequest struct {
	Name string `json:"name"`
}

// HandleCreate godoc
//
//	@Summary		Create Sub-User
//	@Description	Add a classroom identity under the account. The sub-user
//	@Description	has no access window or login code until a license is
//	@Description	activated.
//	@Tags			SubUsers
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		CreateSubUserRequest	true	"sub-user name"
//	@Success		201		{object}	SubUserResponse
//	@Failure		400		{object}	httpx.ErrorResponse
//	@Failure		401		{object}	httpx.ErrorResponse
//	@Router			/subusers [post].
func (h *SubUsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	acc, ok := currentAccount(w, r, h.Store)
	if !ok {
		return
	}

	var req CreateSubUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	su, err := h.SubUserService.Create(r.Context(), acc.ID, req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, subUserResponse(su, false))
}

// HandleList godoc
//
//	@Summary		List Sub-Users
//	@Description	List the account's sub-users, including each one's login
//	@Description	code display copy
//	@Tags			SubUsers
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{array}		SubUserResponse
//	@Failure		401	{object}	httpx.ErrorResponse
//	@Router			/subusers [get].
func (h *SubUsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	acc, ok := currentAccount(w, r, h.Store)
	if !ok {
		return
	}

	subUsers, err := h.SubUserService.List(r.Context(), acc.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	now := time.Now().UTC()
	out := make([]SubUserResponse, 0, len(subUsers))
	for _, su := range subUsers {
		out = append(out, subUserResponse(su, h.EntitlementService.IsPremiumSubUser(su, now)))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

type RenameSubUserRequest struct {
	Name string `json:"name"`
}

// HandleRename godoc
//
//	@Summary		Rename Sub-User
//	@Tags			SubUsers
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string					true	"sub-user id"
//	@Param			request	body		RenameSubUserRequest	true	"new name"
//	@Success		200		{object}	SubUserResponse
//	@Failure		404		{object}	httpx.ErrorResponse
//	@Router			/subusers/{id} [put].
func (h *SubUsersHandler) HandleRename(w http.ResponseWriter, r *http.Request) {
	acc, ok := currentAccount(w, r, h.Store)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req RenameSubUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	su, err := h.SubUserService.Rename(r.Context(), acc.ID, id, req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK,
		subUserResponse(su, h.EntitlementService.IsPremiumSubUser(su, time.Now().UTC())))
}

// HandleDelete godoc
//
//	@Summary		Delete Sub-User
//	@Description	Remove a sub-user. Activated licenses are detached and kept
//	@Description	for the audit trail.
//	@Tags			SubUsers
//	@Security		BearerAuth
//	@Param			id	path	string	true	"sub-user id"
//	@Success		204
//	@Failure		404	{object}	httpx.ErrorResponse
//	@Router			/subusers/{id} [delete].
func (h *SubUsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	acc, ok := currentAccount(w, r, h.Store)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.SubUserService.Delete(r.Context(), acc.ID, id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type ActivateLicenseRequest struct {
	Key string `json:"key"`
}

// ActivateLicenseResponse carries the one-time plaintext login code produced
// by activation. It is not retrievable again in plaintext-equivalent form
// beyond the stored display copy.
type ActivateLicenseResponse struct {
	SubUser   SubUserResponse `json:"sub_user"`
	LoginCode string          `json:"login_code"`
}

// HandleActivateLicense godoc
//
//	@Summary		Activate License
//	@Description	Consume a license key for a sub-user: extends their access
//	@Description	window cumulatively and rotates their login code
//	@Tags			SubUsers
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string					true	"sub-user id"
//	@Param			request	body		ActivateLicenseRequest	true	"license key"
//	@Success		200		{object}	ActivateLicenseResponse
//	@Failure		404		{object}	httpx.ErrorResponse	"unknown key or sub-user"
//	@Failure		409		{object}	httpx.ErrorResponse	"key already used"
//	@Router			/subusers/{id}/license [post].
func (h *SubUsersHandler) HandleActivateLicense(w http.ResponseWriter, r *http.Request) {
	acc, ok := currentAccount(w, r, h.Store)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req ActivateLicenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	su, code, err := h.EntitlementService.ActivateLicense(r.Context(), acc.ID, id, req.Key)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, ActivateLicenseResponse{
		SubUser:   subUserResponse(su, h.EntitlementService.IsPremiumSubUser(su, time.Now().UTC())),
		LoginCode: code,
	})
}
