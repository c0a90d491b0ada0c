package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aula-cl/lectura/internal/domain"
	"github.com/aula-cl/lectura/internal/service"
	"github.com/aula-cl/lectura/internal/store"
	"github.com/aula-cl/lectura/pkg/httpx"
	"github.com/aula-cl/lectura/pkg/jwtx"
	"github.com/aula-cl/lectura/pkg/slogx"
)

// decodeJSON parses a JSON request body into dst, enforcing a size cap.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body")
		return false
	}
	return true
}

// writeServiceError translates service sentinels into the wire error
// taxonomy. Unknown errors become an opaque 500; the detail only goes to the
// log.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	log := slogx.FromContext(r.Context())

	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request parameters")
	case errors.Is(err, service.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "Resource not found")
	case errors.Is(err, service.ErrAlreadyExists):
		httpx.WriteError(w, http.StatusConflict, "already_exists", "Resource already exists")
	case errors.Is(err, service.ErrAlreadyUsed):
		httpx.WriteError(w, http.StatusConflict, "already_used", "Code has already been used")
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid credentials")
	case errors.Is(err, service.ErrRateLimited):
		httpx.WriteError(w, http.StatusTooManyRequests, "rate_limited", "Too many attempts. Please try again later.")
	case errors.Is(err, service.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, "forbidden", "Premium access required")
	case errors.Is(err, service.ErrExpired):
		httpx.WriteError(w, http.StatusForbidden, "expired", "Access window has expired")
	default:
		log.Error("request failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "An internal error occurred")
	}
}

// currentAccount resolves the session to a primary account. Sub-user sessions
// are rejected: account-only surfaces (sub-user management, unlocking) do not
// exist for classroom identities.
func currentAccount(w http.ResponseWriter, r *http.Request, st store.Store) (domain.Account, bool) {
	subject, ok := httpx.SubjectFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Authentication required")
		return domain.Account{}, false
	}

	accSubject, ok := subject.(jwtx.AccountSubject)
	if !ok {
		httpx.WriteError(w, http.StatusForbidden, "forbidden", "Account session required")
		return domain.Account{}, false
	}

	acc, err := st.Accounts().GetAccountByHandle(r.Context(), accSubject.Handle)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Account no longer exists")
			return domain.Account{}, false
		}
		writeServiceError(w, r, err)
		return domain.Account{}, false
	}
	return acc, true
}

// requireAdmin resolves the session and enforces the reserved admin handle.
func requireAdmin(w http.ResponseWriter, r *http.Request, st store.Store) (domain.Account, bool) {
	acc, ok := currentAccount(w, r, st)
	if !ok {
		return domain.Account{}, false
	}
	if acc.Handle != domain.AdminHandle {
		httpx.WriteError(w, http.StatusForbidden, "forbidden", "Admin access required")
		return domain.Account{}, false
	}
	return acc, true
}

// currentReader resolves the session, of either kind, into a content reader
// with course level and entitlement attached.
func currentReader(w http.ResponseWriter, r *http.Request, st store.Store, ent *service.EntitlementService) (service.Reader, bool) {
	subject, ok := httpx.SubjectFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Authentication required")
		return service.Reader{}, false
	}

	now := time.Now().UTC()
	switch s := subject.(type) {
	case jwtx.AccountSubject:
		acc, err := st.Accounts().GetAccountByHandle(r.Context(), s.Handle)
		if err != nil {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Account no longer exists")
			return service.Reader{}, false
		}
		return service.Reader{
			SubjectKind: string(jwtx.KindAccount),
			SubjectID:   acc.Handle,
			CourseLevel: acc.CourseLevel,
			Premium:     ent.IsPremiumAccount(acc, now),
		}, true

	case jwtx.SubUserSubject:
		su, err := st.SubUsers().GetSubUserByID(r.Context(), s.ID)
		if err != nil {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Sub-user no longer exists")
			return service.Reader{}, false
		}
		acc, err := st.Accounts().GetAccountByID(r.Context(), su.AccountID)
		if err != nil {
			writeServiceError(w, r, err)
			return service.Reader{}, false
		}
		return service.Reader{
			SubjectKind: string(jwtx.KindSubUser),
			SubjectID:   su.ID.String(),
			CourseLevel: acc.CourseLevel,
			Premium:     ent.IsPremiumSubUser(su, now),
		}, true

	default:
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Unknown subject kind")
		return service.Reader{}, false
	}
}
