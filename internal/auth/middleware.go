package auth

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/BradenHooton/healthdesk/internal/models"
	pkghttp "github.com/BradenHooton/healthdesk/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

// identityContextKey stores the request-scoped *identity
const identityContextKey contextKey = "identity"

// UserStore resolves the current state of a user.
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// RoleSet is the set of roles a route admits.
type RoleSet []models.Role

func (s RoleSet) Contains(role models.Role) bool {
	return slices.Contains(s, role)
}

// Route gates used by the router
var (
	AdminOnly     = RoleSet{models.RoleAdmin}
	DoctorOrAdmin = RoleSet{models.RoleDoctor, models.RoleAdmin}
	StaffOrAbove  = RoleSet{models.RoleStaff, models.RoleDoctor, models.RoleAdmin}
)

// identity carries verified claims and the user resolved from them. The user
// is looked up at most once per request.
type identity struct {
	claims   *models.TokenClaims
	user     *models.User
	err      error
	resolved bool
}

func (id *identity) resolve(ctx context.Context, users UserStore) (*models.User, error) {
	if !id.resolved {
		id.user, id.err = users.GetByID(ctx, id.claims.UserID)
		id.resolved = true
	}
	return id.user, id.err
}

// ExtractToken returns the bearer token from the Authorization header,
// falling back to the token cookie.
func ExtractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		scheme, token, ok := strings.Cut(authHeader, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}

	if cookie, err := r.Cookie(TokenCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// Authenticate rejects requests without a valid, unexpired token and stores
// the verified claims on the request context.
func Authenticate(tm *TokenManager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := tm.Verify(ExtractToken(r))
			if err != nil {
				pkghttp.WriteUnauthorized(w, "Unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey, &identity{claims: claims})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRoles admits the request only if the user named by the token still
// exists, is active, and currently holds a role in allowed. The role is read
// from the store, never from the token.
func RequireRoles(users UserStore, allowed RoleSet) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := r.Context().Value(identityContextKey).(*identity)
			if !ok {
				pkghttp.WriteUnauthorized(w, "Unauthorized")
				return
			}

			user, err := id.resolve(r.Context(), users)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					pkghttp.WriteUnauthorized(w, "Unauthorized")
					return
				}
				pkghttp.WriteInternalError(w)
				return
			}

			if !user.IsActive {
				pkghttp.WriteUnauthorized(w, "Unauthorized")
				return
			}

			if !allowed.Contains(user.Role) {
				pkghttp.WriteForbidden(w, "Forbidden: insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// OptionalAuthenticate attaches the identity when a valid token for an active
// user is present and otherwise lets the request through as a guest.
func OptionalAuthenticate(tm *TokenManager, users UserStore) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := tm.Verify(ExtractToken(r))
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			id := &identity{claims: claims}
			if user, err := id.resolve(r.Context(), users); err != nil || !user.IsActive {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the verified token claims, or nil.
func ClaimsFromContext(ctx context.Context) *models.TokenClaims {
	id, ok := ctx.Value(identityContextKey).(*identity)
	if !ok {
		return nil
	}
	return id.claims
}

// CurrentUser returns the user resolved by RequireRoles or
// OptionalAuthenticate for this request, or nil.
func CurrentUser(ctx context.Context) *models.User {
	id, ok := ctx.Value(identityContextKey).(*identity)
	if !ok || !id.resolved || id.err != nil {
		return nil
	}
	return id.user
}

// WithUser returns a context carrying an already resolved identity.
// Handler tests use it in place of the middleware chain.
func WithUser(ctx context.Context, user *models.User) context.Context {
	claims := &models.TokenClaims{UserID: user.ID, Username: user.Username, Role: user.Role}
	return context.WithValue(ctx, identityContextKey, &identity{claims: claims, user: user, resolved: true})
}
