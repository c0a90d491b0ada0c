package http

import (
	"net/http"

	"github.com/aula-cl/lectura/internal/service"
	"github.com/aula-cl/lectura/pkg/httpx"
	"github.com/aula-cl/lectura/pkg/jwtx"
)

type TokenHandler struct {
	TokenService *service.TokenService
}

type PasswordGrantRequest struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
}

// TokenResponse carries a freshly issued session token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Kind        string `json:"kind"`
}

func tokenResponse(token string, kind jwtx.SubjectKind) TokenResponse {
	return TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(jwtx.DefaultAccessTTL.Seconds()),
		Kind:        string(kind),
	}
}

// ServeHTTP godoc
//
//	@Summary		Password Grant
//	@Description	Authenticate an account by handle and password
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		PasswordGrantRequest	true	"credentials"
//	@Success		200		{object}	TokenResponse
//	@Failure		401		{object}	httpx.ErrorResponse	"invalid credentials"
//	@Failure		429		{object}	httpx.ErrorResponse
//	@Router			/auth/token [post].
func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req PasswordGrantRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Handle == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "handle and password are required")
		return
	}

	token, _, err := h.TokenService.PasswordGrant(r.Context(), req.Handle, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, tokenResponse(token, jwtx.KindAccount))
}

type LoginCodeHandler struct {
	TokenService *service.TokenService
}

type LoginCodeRequest struct {
	Code string `json:"code"`
}

// ServeHTTP godoc
//
//	@Summary		Login Code Grant
//	@Description	Authenticate a sub-user by login code. Repeated failures
//	@Description	against one code trip a sliding-window block.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		LoginCodeRequest	true	"login code"
//	@Success		200		{object}	TokenResponse
//	@Failure		401		{object}	httpx.ErrorResponse	"invalid code"
//	@Failure		403		{object}	httpx.ErrorResponse	"expired access window"
//	@Failure		429		{object}	httpx.ErrorResponse	"code blocked"
//	@Router			/auth/login-code [post].
func (h *LoginCodeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req LoginCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "code is required")
		return
	}

	token, _, err := h.TokenService.LoginCodeGrant(r.Context(), req.Code, httpx.IPKeyExtractor(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, tokenResponse(token, jwtx.KindSubUser))
}
