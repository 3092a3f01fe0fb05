package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/BradenHooton/healthdesk/internal/auth"
	"github.com/BradenHooton/healthdesk/internal/handlers"
	"github.com/BradenHooton/healthdesk/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by RegisterRoutes
type Handlers struct {
	Auth        *handlers.AuthHandler
	Clients     *handlers.ClientHandler
	Programs    *handlers.ProgramHandler
	Enrollments *handlers.EnrollmentHandler
	Users       *handlers.UserHandler
	Health      *handlers.HealthHandler
	Metrics     http.Handler
}

// RegisterRoutes registers all application routes. Every /api route is
// gated on the role the user holds at request time.
func RegisterRoutes(
	router chi.Router,
	h Handlers,
	tokenManager *auth.TokenManager,
	users auth.UserStore,
	rateLimit middleware.RateLimitConfig,
) {
	router.Get("/health", h.Health.Health)
	if h.Metrics != nil {
		router.Handle("/metrics", h.Metrics)
	}

	// Public credential endpoints, each with its own per-IP budget
	router.With(middleware.RateLimitByIP(rateLimit)).Post("/signup", h.Auth.Signup)
	router.With(middleware.RateLimitByIP(rateLimit)).Post("/login", h.Auth.Login)
	router.With(middleware.RateLimitByIP(rateLimit)).Post("/refresh", h.Auth.Refresh)

	router.With(auth.OptionalAuthenticate(tokenManager, users)).Get("/me", h.Auth.Me)
	router.With(auth.Authenticate(tokenManager)).Post("/logout", h.Auth.Logout)

	router.Route("/api", func(r chi.Router) {
		r.Use(auth.Authenticate(tokenManager))
		r.Use(auth.RequireRoles(users, auth.StaffOrAbove))

		r.Route("/clients", func(r chi.Router) {
			r.Post("/", h.Clients.Create)
			r.Get("/", h.Clients.List)
			r.Get("/search", h.Clients.Search)
			r.Get("/{id}", h.Clients.Get)
			r.Get("/{id}/profile", h.Clients.Profile)
			r.Put("/{id}", h.Clients.Update)
		})

		r.Route("/programs", func(r chi.Router) {
			r.Get("/", h.Programs.List)
			r.Get("/{id}", h.Programs.Get)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireRoles(users, auth.DoctorOrAdmin))
				r.Post("/", h.Programs.Create)
				r.Put("/{id}", h.Programs.Update)
			})

			r.With(auth.RequireRoles(users, auth.AdminOnly)).Delete("/{id}", h.Programs.Delete)
		})

		r.Route("/enrollments", func(r chi.Router) {
			r.Post("/", h.Enrollments.Enroll)
			r.Get("/", h.Enrollments.List)
			r.Get("/client/{clientId}", h.Enrollments.ListByClient)
			r.Get("/program/{programId}", h.Enrollments.ListByProgram)
			r.Put("/{id}", h.Enrollments.Update)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(auth.RequireRoles(users, auth.AdminOnly))
			r.Get("/", h.Users.List)
			r.Patch("/{id}", h.Users.Update)
		})
	})
}
