package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/aula-cl/lectura/internal/domain"
	"github.com/aula-cl/lectura/internal/service"
	"github.com/aula-cl/lectura/internal/store/drivers/sqlite"
	"github.com/aula-cl/lectura/pkg/codes"
	"github.com/aula-cl/lectura/pkg/cryptox"
	"github.com/aula-cl/lectura/pkg/idx"
	"github.com/aula-cl/lectura/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "lectura-http-test")
	if err != nil {
		os.Exit(1)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type testEnv struct {
	router *Router
	store  *sqlite.Store
	codec  *jwtx.Codec
	codes  *codes.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	secret := []byte("test-secret")
	codec := jwtx.NewCodec(secret, "lectura-test")
	engine := codes.New(secret)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	router := NewRouter(codec, "test", st, logger)
	router.TokenService = &service.TokenService{
		Store:   st,
		Codec:   codec,
		Codes:   engine,
		Limiter: service.NewAttemptLimiter(st),
	}
	router.EntitlementService = &service.EntitlementService{Store: st, Codes: engine}
	router.SubUserService = &service.SubUserService{Store: st}
	router.GrantService = &service.GrantService{Store: st, Codes: engine}
	router.ContentService = &service.ContentService{Store: st}
	router.ApplyRoutes()

	return &testEnv{router: router, store: st, codec: codec, codes: engine}
}

func (env *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "203.0.113.7:1234"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// seedAccount registers an account directly through the service and returns
// an access token for it.
func (env *testEnv) seedAccount(t *testing.T, handle, password string) string {
	t.Helper()
	ctx := context.Background()

	_, err := env.router.TokenService.Register(ctx, handle, handle+"@example.com", password, "3eso")
	require.NoError(t, err)

	token, _, err := env.router.TokenService.PasswordGrant(ctx, handle, password)
	require.NoError(t, err)
	return token
}

func (env *testEnv) seedAdmin(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	hash, err := cryptox.Hash("admin password")
	require.NoError(t, err)
	err = env.store.Accounts().CreateAccount(ctx, domain.Account{
		ID:           idx.New(),
		Handle:       domain.AdminHandle,
		PasswordHash: hash,
	})
	require.NoError(t, err)

	token, _, err := env.router.TokenService.PasswordGrant(ctx, domain.AdminHandle, "admin password")
	require.NoError(t, err)
	return token
}

func TestRegisterAndTokenFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{
		Handle:      "alice",
		Password:    "correct horse",
		CourseLevel: "3eso",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[AccountResponse](t, rec)
	require.Equal(t, "alice", created.Handle)
	require.False(t, created.Premium)

	rec = env.do(t, http.MethodPost, "/auth/token", "", PasswordGrantRequest{
		Handle:   "alice",
		Password: "correct horse",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	tok := decodeBody[TokenResponse](t, rec)
	require.Equal(t, "Bearer", tok.TokenType)
	require.Equal(t, "account", tok.Kind)

	t.Run("me reflects the session", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/auth/me", tok.AccessToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		me := decodeBody[SubjectResponse](t, rec)
		require.Equal(t, "account", me.Kind)
		require.Equal(t, "alice", me.Account.Handle)
	})

	t.Run("wrong password is 401", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/auth/token", "", PasswordGrantRequest{
			Handle:   "alice",
			Password: "wrong",
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing bearer is 401", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/auth/me", "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestUnlockFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	token := env.seedAccount(t, "alice", "correct horse")

	minted, err := env.router.GrantService.MintInvitations(ctx, 1, 30)
	require.NoError(t, err)
	code := minted[0].Code

	rec := env.do(t, http.MethodPost, "/auth/unlock", token, UnlockRequest{Code: code})
	require.Equal(t, http.StatusOK, rec.Code)
	acc := decodeBody[AccountResponse](t, rec)
	require.True(t, acc.Premium)
	require.NotNil(t, acc.ExpiresAt)

	t.Run("second redemption is 409", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/auth/unlock", token, UnlockRequest{Code: code})
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("unknown code is 404", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/auth/unlock", token, UnlockRequest{Code: "NOPE0000"})
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSubUserLicenseAndLoginCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	token := env.seedAccount(t, "owner", "correct horse")

	rec := env.do(t, http.MethodPost, "/subusers", token, CreateSubUserRequest{Name: "Pablo"})
	require.Equal(t, http.StatusCreated, rec.Code)
	su := decodeBody[SubUserResponse](t, rec)
	require.False(t, su.Premium)
	require.Empty(t, su.LoginCode)

	lics, err := env.router.GrantService.MintLicenses(ctx, 1, 90)
	require.NoError(t, err)

	rec = env.do(t, http.MethodPost, "/subusers/"+su.ID+"/license", token,
		ActivateLicenseRequest{Key: lics[0].Key})
	require.Equal(t, http.StatusOK, rec.Code)
	activated := decodeBody[ActivateLicenseResponse](t, rec)
	require.Regexp(t, `^CL[0-9]{6}[A-HJKMNP-Z]{3}$`, activated.LoginCode)
	require.True(t, activated.SubUser.Premium)

	t.Run("sub-user can log in with the code", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/auth/login-code", "",
			LoginCodeRequest{Code: activated.LoginCode})
		require.Equal(t, http.StatusOK, rec.Code)
		tok := decodeBody[TokenResponse](t, rec)
		require.Equal(t, "subuser", tok.Kind)

		me := env.do(t, http.MethodGet, "/auth/me", tok.AccessToken, nil)
		require.Equal(t, http.StatusOK, me.Code)
		body := decodeBody[SubjectResponse](t, me)
		require.Equal(t, "subuser", body.Kind)
		require.Equal(t, "Pablo", body.SubUser.Name)
		// The display copy is owner-only.
		require.Empty(t, body.SubUser.LoginCode)
	})

	t.Run("listing shows the display copy to the owner", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/subusers", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		list := decodeBody[[]SubUserResponse](t, rec)
		require.Len(t, list, 1)
		require.Equal(t, activated.LoginCode, list[0].LoginCode)
	})

	t.Run("sub-user session cannot manage sub-users", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/auth/login-code", "",
			LoginCodeRequest{Code: activated.LoginCode})
		require.Equal(t, http.StatusOK, rec.Code)
		tok := decodeBody[TokenResponse](t, rec)

		denied := env.do(t, http.MethodGet, "/subusers", tok.AccessToken, nil)
		require.Equal(t, http.StatusForbidden, denied.Code)
	})
}

func TestLoginCodeBlockedAfterRepeatedFailures(t *testing.T) {
	env := newTestEnv(t)

	wrong := LoginCodeRequest{Code: "CL000000AAA"}
	for i := 0; i < service.DefaultAttemptThreshold; i++ {
		rec := env.do(t, http.MethodPost, "/auth/login-code", "", wrong)
		require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i)
	}

	rec := env.do(t, http.MethodPost, "/auth/login-code", "", wrong)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	body := decodeBody[map[string]string](t, rec)
	require.Equal(t, "rate_limited", body["error"])
}

func TestReadingGates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	adminToken := env.seedAdmin(t)
	readerToken := env.seedAccount(t, "alice", "correct horse")

	rec := env.do(t, http.MethodPost, "/admin/texts", adminToken, UpsertTextRequest{
		Title:       "Texto premium",
		CourseLevel: "3eso",
		Content:     "Contenido cerrado.",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[TextResponse](t, rec)

	t.Run("free tier sees a locked listing", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/reading/texts", readerToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		list := decodeBody[[]TextResponse](t, rec)
		require.Len(t, list, 1)
		require.True(t, list[0].Locked)
		require.Empty(t, list[0].Content)
	})

	t.Run("content and pdf are gated", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/reading/texts/"+created.ID, readerToken, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)

		rec = env.do(t, http.MethodGet, "/reading/texts/"+created.ID+"/pdf", readerToken, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("premium unlocks content", func(t *testing.T) {
		minted, err := env.router.GrantService.MintInvitations(ctx, 1, 30)
		require.NoError(t, err)
		rec := env.do(t, http.MethodPost, "/auth/unlock", readerToken, UnlockRequest{Code: minted[0].Code})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = env.do(t, http.MethodGet, "/reading/texts/"+created.ID, readerToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		text := decodeBody[TextResponse](t, rec)
		require.Equal(t, "Contenido cerrado.", text.Content)

		pdf := env.do(t, http.MethodGet, "/reading/texts/"+created.ID+"/pdf", readerToken, nil)
		require.Equal(t, http.StatusOK, pdf.Code)
		require.Equal(t, "application/pdf", pdf.Header().Get("Content-Type"))
		require.True(t, bytes.HasPrefix(pdf.Body.Bytes(), []byte("%PDF-")))
	})

	t.Run("admin endpoints reject non-admin sessions", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/admin/invitations?count=1", readerToken, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)

	_ = env.seedAccount(t, "alice", "original pass")

	rec := env.do(t, http.MethodPost, "/auth/forgot-password", "",
		ForgotPasswordRequest{Email: "alice@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	issued := decodeBody[ForgotPasswordResponse](t, rec)
	require.NotEmpty(t, issued.ResetToken)

	t.Run("unknown email gets the same message and no token", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/auth/forgot-password", "",
			ForgotPasswordRequest{Email: "nobody@example.com"})
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody[ForgotPasswordResponse](t, rec)
		require.Equal(t, issued.Message, body.Message)
		require.Empty(t, body.ResetToken)
	})

	rec = env.do(t, http.MethodPost, "/auth/reset-password", "", ResetPasswordRequest{
		Token:       issued.ResetToken,
		NewPassword: "replacement pass",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodPost, "/auth/token", "", PasswordGrantRequest{
		Handle:   "alice",
		Password: "replacement pass",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	t.Run("reset token is not an access token", func(t *testing.T) {
		me := env.do(t, http.MethodGet, "/auth/me", issued.ResetToken, nil)
		require.Equal(t, http.StatusUnauthorized, me.Code)
	})
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	live := decodeBody[HealthResponse](t, rec)
	require.Equal(t, "ok", live.Status)

	rec = env.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ready := decodeBody[HealthResponse](t, rec)
	require.Equal(t, "ok", ready.Status)
	require.Equal(t, "ok", ready.Checks.Database)
}
