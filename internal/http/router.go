package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aula-cl/lectura/internal/service"
	"github.com/aula-cl/lectura/internal/store"
	"github.com/aula-cl/lectura/pkg/httpx"
	"github.com/aula-cl/lectura/pkg/jwtx"
	"github.com/aula-cl/lectura/pkg/slogx"

	_ "github.com/aula-cl/lectura/api" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	codec        *jwtx.Codec
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store              store.Store
	TokenService       *service.TokenService
	EntitlementService *service.EntitlementService
	SubUserService     *service.SubUserService
	GrantService       *service.GrantService
	ContentService     *service.ContentService
}

func NewRouter(codec *jwtx.Codec, buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		codec:        codec,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerSubUsers()
	r.registerReading()
	r.registerAdmin()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Lectura API
//	@version		0.1.0
//	@description	Reading comprehension practice service with account and
//	@description	sub-user (login code) authentication, premium entitlement
//	@description	via invitation codes and license keys, and gated reading
//	@description	content with quiz score tracking.
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	registerHandler := &RegisterHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /auth/register",
		httpx.Chain(registerHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// Both credential endpoints get the strict IP limit; the login-code
	// endpoint additionally runs the per-code limiter inside the service.
	tokenHandler := &TokenHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /auth/token",
		httpx.Chain(tokenHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	loginCodeHandler := &LoginCodeHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /auth/login-code",
		httpx.Chain(loginCodeHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	forgotHandler := &ForgotPasswordHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /auth/forgot-password",
		httpx.Chain(forgotHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	resetHandler := &ResetPasswordHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /auth/reset-password",
		httpx.Chain(resetHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	unlockHandler := &UnlockHandler{
		EntitlementService: r.EntitlementService,
		Store:              r.store,
	}
	r.Mux.Handle("POST /auth/unlock",
		httpx.Chain(unlockHandler,
			httpx.AuthnMiddleware(r.codec),
			httpx.RateLimitBySubject(httpx.ModerateLimit),
		),
	)

	meHandler := &MeHandler{
		EntitlementService: r.EntitlementService,
		Store:              r.store,
	}
	r.Mux.Handle("GET /auth/me",
		httpx.Chain(meHandler,
			httpx.AuthnMiddleware(r.codec),
			httpx.RateLimitBySubject(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSubUsers() {
	h := &SubUsersHandler{
		SubUserService:     r.SubUserService,
		EntitlementService: r.EntitlementService,
		Store:              r.store,
	}

	secured := func(handler http.Handler, limit httpx.RateLimitConfig) http.Handler {
		return httpx.Chain(handler,
			httpx.AuthnMiddleware(r.codec),
			httpx.RateLimitBySubject(limit),
		)
	}

	r.Mux.Handle("POST /subusers", secured(http.HandlerFunc(h.HandleCreate), httpx.ModerateLimit))
	r.Mux.Handle("GET /subusers", secured(http.HandlerFunc(h.HandleList), httpx.LenientLimit))
	r.Mux.Handle("PUT /subusers/{id}", secured(http.HandlerFunc(h.HandleRename), httpx.ModerateLimit))
	r.Mux.Handle("DELETE /subusers/{id}", secured(http.HandlerFunc(h.HandleDelete), httpx.ModerateLimit))
	r.Mux.Handle("POST /subusers/{id}/license", secured(http.HandlerFunc(h.HandleActivateLicense), httpx.ModerateLimit))
}

func (r *Router) registerReading() {
	h := &ReadingHandler{
		ContentService:     r.ContentService,
		EntitlementService: r.EntitlementService,
		Store:              r.store,
	}

	secured := func(handler http.Handler, limit httpx.RateLimitConfig) http.Handler {
		return httpx.Chain(handler,
			httpx.AuthnMiddleware(r.codec),
			httpx.RateLimitBySubject(limit),
		)
	}

	r.Mux.Handle("GET /reading/texts", secured(http.HandlerFunc(h.HandleListTexts), httpx.LenientLimit))
	r.Mux.Handle("GET /reading/texts/{id}", secured(http.HandlerFunc(h.HandleGetText), httpx.LenientLimit))
	r.Mux.Handle("GET /reading/texts/{id}/questions", secured(http.HandlerFunc(h.HandleQuestions), httpx.LenientLimit))
	r.Mux.Handle("GET /reading/texts/{id}/pdf", secured(http.HandlerFunc(h.HandleExportPDF), httpx.ModerateLimit))
	r.Mux.Handle("POST /reading/attempts", secured(http.HandlerFunc(h.HandleSubmitAttempt), httpx.ModerateLimit))
	r.Mux.Handle("GET /reading/prediction", secured(http.HandlerFunc(h.HandlePrediction), httpx.LenientLimit))
}

func (r *Router) registerAdmin() {
	h := &AdminHandler{
		GrantService:   r.GrantService,
		ContentService: r.ContentService,
		Store:          r.store,
	}

	secured := func(handler http.Handler) http.Handler {
		return httpx.Chain(handler,
			httpx.AuthnMiddleware(r.codec),
			httpx.RateLimitBySubject(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("POST /admin/invitations", secured(http.HandlerFunc(h.HandleMintInvitations)))
	r.Mux.Handle("GET /admin/invitations", secured(http.HandlerFunc(h.HandleListInvitations)))
	r.Mux.Handle("POST /admin/licenses", secured(http.HandlerFunc(h.HandleMintLicenses)))
	r.Mux.Handle("GET /admin/licenses", secured(http.HandlerFunc(h.HandleListLicenses)))
	r.Mux.Handle("POST /admin/texts", secured(http.HandlerFunc(h.HandleCreateText)))
	r.Mux.Handle("PUT /admin/texts/{id}", secured(http.HandlerFunc(h.HandleUpdateText)))
	r.Mux.Handle("DELETE /admin/texts/{id}", secured(http.HandlerFunc(h.HandleDeleteText)))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.buildVersion, r.startTime),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
