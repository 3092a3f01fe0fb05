// Package app wires configuration, storage, services and the HTTP router
// into a runnable API.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/BradenHooton/healthdesk/internal/auth"
	"github.com/BradenHooton/healthdesk/internal/background"
	"github.com/BradenHooton/healthdesk/internal/config"
	"github.com/BradenHooton/healthdesk/internal/database"
	"github.com/BradenHooton/healthdesk/internal/handlers"
	middlewareCustom "github.com/BradenHooton/healthdesk/internal/middleware"
	"github.com/BradenHooton/healthdesk/internal/models"
	"github.com/BradenHooton/healthdesk/internal/repositories"
	"github.com/BradenHooton/healthdesk/internal/routes"
	"github.com/BradenHooton/healthdesk/internal/services"
	pkghttp "github.com/BradenHooton/healthdesk/pkg/http"
	pkglogger "github.com/BradenHooton/healthdesk/pkg/logger"
)

// App is a fully wired API instance
type App struct {
	Router      http.Handler
	Cleanup     *background.CleanupManager
	Credentials *services.CredentialService
	Metrics     *middlewareCustom.Metrics

	logger *slog.Logger
	admin  config.AdminConfig
}

// New builds the API over an open database connection. registry receives
// every metric the API exports.
func New(cfg *config.Config, db *database.DB, logger *slog.Logger, registry *prometheus.Registry) *App {
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middlewareCustom.NewMetrics(registry)
	metrics.RegisterPoolGauges(db.Stats)

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	authRepo := repositories.NewAuthRepository(db)
	clientRepo := repositories.NewClientRepository(db)
	programRepo := repositories.NewProgramRepository(db)
	enrollmentRepo := repositories.NewEnrollmentRepository(db)

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry)
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   cfg.Auth.TimingDelayBaseMs,
		RandomDelayMs: cfg.Auth.TimingDelayRandomMs,
	})
	auditLogger := pkglogger.NewAuditLogger(logger)

	// Services
	credentialService := services.NewCredentialService(
		userRepo, authRepo, tokenManager, timingDelay,
		services.CredentialConfig{
			BcryptCost:         cfg.Auth.BcryptCost,
			RefreshTokenExpiry: cfg.Auth.RefreshTokenExpiry,
		},
		logger, auditLogger, metrics,
	)
	userAdminService := services.NewUserAdminService(userRepo, logger, auditLogger)
	clientService := services.NewClientService(clientRepo, enrollmentRepo, logger)
	programService := services.NewProgramService(programRepo, logger)
	enrollmentService := services.NewEnrollmentService(enrollmentRepo, clientRepo, programRepo, logger, auditLogger, metrics)

	cookies := auth.CookieConfig{
		Domain:   cfg.Auth.CookieDomain,
		Secure:   cfg.Auth.CookieSecure,
		SameSite: cfg.Auth.CookieSameSite,
	}
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.HTTPMetrics(metrics))
	router.Use(middlewareCustom.SecureLogger(logger, middlewareCustom.LoggerConfig{Env: cfg.Server.Env, IPConfig: ipConfig}))
	router.Use(middleware.Recoverer)
	requestTimeout := cfg.Server.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 60 * time.Second
	}
	router.Use(middleware.Timeout(requestTimeout))

	routes.RegisterRoutes(router, routes.Handlers{
		Auth:        handlers.NewAuthHandler(credentialService, cookies),
		Clients:     handlers.NewClientHandler(clientService),
		Programs:    handlers.NewProgramHandler(programService),
		Enrollments: handlers.NewEnrollmentHandler(enrollmentService),
		Users:       handlers.NewUserHandler(userAdminService),
		Health:      handlers.NewHealthHandler(db, logger),
		Metrics:     metrics.Handler(),
	}, tokenManager, userRepo, middlewareCustom.RateLimitConfig{
		RequestsPerMinute: cfg.Auth.LoginRateLimitPerMinute,
		IPConfig:          ipConfig,
	})

	return &App{
		Router:      router,
		Cleanup:     background.NewCleanupManager(authRepo, logger, cfg.Auth.CleanupInterval),
		Credentials: credentialService,
		Metrics:     metrics,
		logger:      logger,
		admin:       cfg.Admin,
	}
}

// EnsureAdminUser creates the configured bootstrap admin. It does nothing
// when ADMIN_USERNAME or ADMIN_PASSWORD is unset or the user already exists.
func (a *App) EnsureAdminUser(ctx context.Context) error {
	if a.admin.Username == "" || a.admin.Password == "" {
		a.logger.Info("no ADMIN_USERNAME or ADMIN_PASSWORD set, skipping admin user creation")
		return nil
	}

	_, err := a.Credentials.Register(ctx, services.RegisterCommand{
		Username: a.admin.Username,
		Password: a.admin.Password,
		Role:     models.RoleAdmin,
	})
	switch {
	case err == nil:
		a.logger.Info("admin user created", slog.String("username", a.admin.Username))
		return nil
	case errors.Is(err, models.ErrConflict):
		a.logger.Info("admin user already exists")
		return nil
	default:
		return fmt.Errorf("failed to create admin user: %w", err)
	}
}
