package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aula-cl/lectura/internal/http"
	"github.com/aula-cl/lectura/internal/service"
	"github.com/aula-cl/lectura/internal/store"
	"github.com/aula-cl/lectura/internal/store/drivers/sqlite"
	"github.com/aula-cl/lectura/pkg/codes"
	"github.com/aula-cl/lectura/pkg/cryptox"
	"github.com/aula-cl/lectura/pkg/jwtx"
	"github.com/aula-cl/lectura/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application wires the store, services and HTTP server together.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db    store.Store
	codec *jwtx.Codec
	codes *codes.Engine

	tokenService        *service.TokenService
	entitlementService  *service.EntitlementService
	subUserService      *service.SubUserService
	grantService        *service.GrantService
	contentService      *service.ContentService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "lectura",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if cfg.UsingDefaultSecret() {
		if cfg.Env != "dev" {
			return nil, errors.New("LECTURA_SECRET must be set outside dev")
		}
		app.logger.Warn("running with the built-in development secret")
	}

	cryptox.SetPepperPath(cfg.PepperFile)

	secret := []byte(cfg.Secret)
	app.codec = jwtx.NewCodec(secret, cfg.Issuer)
	app.codes = codes.New(secret)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initServices()

	if cfg.AdminPassword != "" {
		if err := app.bootstrapService.EnsureAdmin(context.Background(), cfg.AdminPassword); err != nil {
			return nil, fmt.Errorf("admin bootstrap failed: %w", err)
		}
	}

	app.initHTTP()
	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("lectura starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains in-flight requests, stops housekeeping and closes the
// database.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("lectura stopped")
	return nil
}

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied")
	return nil
}

func (app *Application) initServices() {
	app.tokenService = &service.TokenService{
		Store:     app.db,
		Codec:     app.codec,
		Codes:     app.codes,
		Limiter:   service.NewAttemptLimiter(app.db),
		AccessTTL: jwtx.DefaultAccessTTL,
		ResetTTL:  jwtx.DefaultResetTTL,
	}

	app.entitlementService = &service.EntitlementService{Store: app.db, Codes: app.codes}
	app.subUserService = &service.SubUserService{Store: app.db}
	app.grantService = &service.GrantService{Store: app.db, Codes: app.codes}
	app.contentService = &service.ContentService{Store: app.db}
	app.bootstrapService = &service.BootstrapService{Store: app.db, Logger: app.logger}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.LoginAttemptRetention,
	)
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.codec, BuildVersion, app.db, app.logger)

	router.TokenService = app.tokenService
	router.EntitlementService = app.entitlementService
	router.SubUserService = app.subUserService
	router.GrantService = app.grantService
	router.ContentService = app.contentService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
