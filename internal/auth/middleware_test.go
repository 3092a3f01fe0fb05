package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/healthdesk/internal/auth"
	"github.com/BradenHooton/healthdesk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubUserStore counts lookups and serves users from a map
type stubUserStore struct {
	users map[int64]*models.User
	err   error
	calls int
}

func (s *stubUserStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	user, ok := s.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func newStore(users ...*models.User) *stubUserStore {
	s := &stubUserStore{users: map[int64]*models.User{}}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func protected(tm *auth.TokenManager, store auth.UserStore, allowed auth.RoleSet, final http.Handler) http.Handler {
	return auth.Authenticate(tm)(auth.RequireRoles(store, allowed)(final))
}

func bearer(t *testing.T, tm *auth.TokenManager, user *models.User) *http.Request {
	t.Helper()
	token, err := tm.Issue(user.ID, user.Username, user.Role)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/clients", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestAuthenticate_MissingAndInvalidToken(t *testing.T) {
	tm := auth.NewTokenManager(testSecret, time.Hour)
	handler := auth.Authenticate(tm)(okHandler)

	tests := map[string]func(r *http.Request){
		"no header":     func(r *http.Request) {},
		"wrong scheme":  func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") },
		"invalid token": func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			mutate(req)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.JSONEq(t, `{"success":false,"message":"Unauthorized"}`, w.Body.String())
		})
	}
}

func TestAuthenticate_CookieFallback(t *testing.T) {
	tm := auth.NewTokenManager(testSecret, time.Hour)
	token, err := tm.Issue(3, "bob", models.RoleStaff)
	require.NoError(t, err)

	var got *models.TokenClaims
	handler := auth.Authenticate(tm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = auth.ClaimsFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: auth.TokenCookieName, Value: token})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, got)
	assert.Equal(t, "bob", got.Username)
}

func TestRequireRoles(t *testing.T) {
	tm := auth.NewTokenManager(testSecret, time.Hour)
	admin := &models.User{ID: 1, Username: "root", Role: models.RoleAdmin, IsActive: true}
	doctor := &models.User{ID: 2, Username: "alice", Role: models.RoleDoctor, IsActive: true}
	staff := &models.User{ID: 3, Username: "bob", Role: models.RoleStaff, IsActive: true}
	store := newStore(admin, doctor, staff)

	tests := []struct {
		name    string
		user    *models.User
		allowed auth.RoleSet
		want    int
	}{
		{"admin on admin route", admin, auth.AdminOnly, http.StatusOK},
		{"doctor on admin route", doctor, auth.AdminOnly, http.StatusForbidden},
		{"doctor on doctor route", doctor, auth.DoctorOrAdmin, http.StatusOK},
		{"staff on doctor route", staff, auth.DoctorOrAdmin, http.StatusForbidden},
		{"staff on staff route", staff, auth.StaffOrAbove, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			protected(tm, store, tt.allowed, okHandler).ServeHTTP(w, bearer(t, tm, tt.user))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRequireRoles_UsesStoredRoleNotTokenRole(t *testing.T) {
	tm := auth.NewTokenManager(testSecret, time.Hour)
	// Token says admin, store says the role was downgraded to staff
	tokenUser := &models.User{ID: 1, Username: "root", Role: models.RoleAdmin}
	store := newStore(&models.User{ID: 1, Username: "root", Role: models.RoleStaff, IsActive: true})

	w := httptest.NewRecorder()
	protected(tm, store, auth.AdminOnly, okHandler).ServeHTTP(w, bearer(t, tm, tokenUser))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRoles_DeactivatedUserRejected(t *testing.T) {
	tm := auth.NewTokenManager(testSecret, time.Hour)
	alice := &models.User{ID: 2, Username: "alice", Role: models.RoleDoctor, IsActive: true}
	store := newStore(alice)
	req := bearer(t, tm, alice)

	w := httptest.NewRecorder()
	protected(tm, store, auth.StaffOrAbove, okHandler).ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	store.users[2].IsActive = false

	w = httptest.NewRecorder()
	protected(tm, store, auth.StaffOrAbove, okHandler).ServeHTTP(w, bearer(t, tm, alice))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRoles_UnknownUser(t *testing.T) {
	tm := auth.NewTokenManager(testSecret, time.Hour)
	ghost := &models.User{ID: 99, Username: "ghost", Role: models.RoleAdmin}

	w := httptest.NewRecorder()
	protected(tm, newStore(), auth.StaffOrAbove, okHandler).ServeHTTP(w, bearer(t, tm, ghost))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRoles_StoreFailure(t *testing.T) {
	tm := auth.NewTokenManager(testSecret, time.Hour)
	store := &stubUserStore{err: errors.New("connection refused")}

	w := httptest.NewRecorder()
	protected(tm, store, auth.StaffOrAbove, okHandler).ServeHTTP(w, bearer(t, tm, &models.User{ID: 1, Username: "root", Role: models.RoleAdmin}))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestRequireRoles_WithoutAuthenticate(t *testing.T) {
	w := httptest.NewRecorder()
	auth.RequireRoles(newStore(), auth.StaffOrAbove)(okHandler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRoles_CachesUserPerRequest(t *testing.T) {
	tm := auth.NewTokenManager(testSecret, time.Hour)
	admin := &models.User{ID: 1, Username: "root", Role: models.RoleAdmin, IsActive: true}
	store := newStore(admin)

	var current *models.User
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		current = auth.CurrentUser(r.Context())
	})

	// Two stacked gates on one request resolve the user once
	handler := auth.Authenticate(tm)(
		auth.RequireRoles(store, auth.StaffOrAbove)(
			auth.RequireRoles(store, auth.AdminOnly)(final)))
	handler.ServeHTTP(httptest.NewRecorder(), bearer(t, tm, admin))

	assert.Equal(t, 1, store.calls)
	require.NotNil(t, current)
	assert.Equal(t, "root", current.Username)

	// A second request looks the user up again
	handler.ServeHTTP(httptest.NewRecorder(), bearer(t, tm, admin))
	assert.Equal(t, 2, store.calls)
}

func TestOptionalAuthenticate(t *testing.T) {
	tm := auth.NewTokenManager(testSecret, time.Hour)
	alice := &models.User{ID: 2, Username: "alice", Role: models.RoleDoctor, IsActive: true}
	inactive := &models.User{ID: 5, Username: "carol", Role: models.RoleStaff, IsActive: false}
	store := newStore(alice, inactive)

	var current *models.User
	handler := auth.OptionalAuthenticate(tm, store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		current = auth.CurrentUser(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, bearer(t, tm, alice))
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, current)
	assert.Equal(t, "alice", current.Username)

	current = nil
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, current)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, bearer(t, tm, inactive))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, current)
}

func TestExtractToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer abc.def.ghi")
	assert.Equal(t, "abc.def.ghi", auth.ExtractToken(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, auth.ExtractToken(req))
}
