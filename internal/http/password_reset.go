package http

import (
	"errors"
	"net/http"

	"github.com/aula-cl/lectura/internal/service"
	"github.com/aula-cl/lectura/pkg/httpx"
)

type ForgotPasswordHandler struct {
	TokenService *service.TokenService
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPasswordResponse always reports success so the endpoint cannot be
// used to probe which emails are registered. The reset token is included
// directly; mail delivery is handled by the operator, not this service.
type ForgotPasswordResponse struct {
	Message    string `json:"message"`
	ResetToken string `json:"reset_token,omitempty"`
}

// ServeHTTP godoc
//
//	@Summary		Request Password Reset
//	@Description	Issue a short-lived reset token for a registered email.
//	@Description	The response is identical for unknown emails.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ForgotPasswordRequest	true	"registered email"
//	@Success		200		{object}	ForgotPasswordResponse
//	@Failure		400		{object}	httpx.ErrorResponse
//	@Router			/auth/forgot-password [post].
func (h *ForgotPasswordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	token, err := h.TokenService.IssueResetToken(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			// Same response as success: no email oracle.
			httpx.WriteJSON(w, http.StatusOK, ForgotPasswordResponse{
				Message: "If that email is registered, a reset token has been issued.",
			})
			return
		}
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, ForgotPasswordResponse{
		Message:    "If that email is registered, a reset token has been issued.",
		ResetToken: token,
	})
}

type ResetPasswordHandler struct {
	TokenService *service.TokenService
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// ServeHTTP godoc
//
//	@Summary		Confirm Password Reset
//	@Description	Replace the account password using a reset-purpose token.
//	@Description	Access tokens are rejected here.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body	ResetPasswordRequest	true	"reset token and new password"
//	@Success		204
//	@Failure		400	{object}	httpx.ErrorResponse
//	@Failure		401	{object}	httpx.ErrorResponse	"invalid or wrong-purpose token"
//	@Router			/auth/reset-password [post].
func (h *ResetPasswordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Token == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "token is required")
		return
	}

	if err := h.TokenService.ConfirmReset(r.Context(), req.Token, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
