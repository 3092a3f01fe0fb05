package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/BradenHooton/healthdesk/internal/auth"
	"github.com/BradenHooton/healthdesk/internal/models"
	"github.com/BradenHooton/healthdesk/internal/services"
	pkghttp "github.com/BradenHooton/healthdesk/pkg/http"
)

// CredentialServiceInterface defines the credential operations used over HTTP
type CredentialServiceInterface interface {
	Register(ctx context.Context, cmd services.RegisterCommand) (int64, error)
	Login(ctx context.Context, username, password string) (*services.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*services.LoginResult, error)
	Logout(ctx context.Context, userID int64) error
}

// AuthHandler handles signup, login and session endpoints
type AuthHandler struct {
	service CredentialServiceInterface
	cookies auth.CookieConfig
}

func NewAuthHandler(service CredentialServiceInterface, cookies auth.CookieConfig) *AuthHandler {
	return &AuthHandler{service: service, cookies: cookies}
}

// Request DTOs

type SignupRequest struct {
	Username string `json:"username" validate:"required,min=3,max=255"`
	Password string `json:"password" validate:"required,password"`
	Role     string `json:"role" validate:"omitempty,role"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// Response DTOs

type SignupResponse struct {
	Message string `json:"message"`
	UserID  int64  `json:"userId"`
}

type SessionUser struct {
	ID        int64       `json:"id"`
	Username  string      `json:"username"`
	Role      models.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
}

type LoginResponse struct {
	Message      string      `json:"message"`
	Token        string      `json:"token"`
	RefreshToken string      `json:"refreshToken"`
	ExpiresIn    int64       `json:"expiresIn"`
	User         SessionUser `json:"user"`
}

// MeResponse describes the caller, or a guest when unauthenticated
type MeResponse struct {
	ID              any        `json:"id"`
	Username        string     `json:"username"`
	Role            string     `json:"role"`
	IsActive        *bool      `json:"isActive,omitempty"`
	CreatedAt       *time.Time `json:"createdAt,omitempty"`
	IsAuthenticated bool       `json:"isAuthenticated"`
}

// Signup registers a new user account
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	userID, err := h.service.Register(r.Context(), services.RegisterCommand{
		Username: req.Username,
		Password: req.Password,
		Role:     models.Role(req.Role),
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			pkghttp.WriteConflict(w, "User already exists")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, SignupResponse{
		Message: "User created successfully",
		UserID:  userID,
	})
}

// Login exchanges a username and password for a token pair. The access token
// is also set as an httpOnly cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := pkghttp.DecodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		pkghttp.WriteBadRequest(w, "Username and password are required")
		return
	}

	result, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.writeSession(w, "Login successful", result)
}

// Refresh rotates the refresh token and issues a new access token
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.writeSession(w, "Token refreshed", result)
}

// Logout drops the caller's refresh token and clears the cookie
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	if err := h.service.Logout(r.Context(), claims.UserID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	auth.ClearTokenCookie(w, h.cookies)
	pkghttp.WriteSuccess(w, http.StatusOK, "Logged out successfully", nil)
}

// Me returns the current user as resolved by OptionalAuthenticate, or a guest
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.CurrentUser(r.Context())
	if user == nil {
		pkghttp.WriteJSON(w, http.StatusOK, MeResponse{
			ID:       "guest",
			Username: "guest",
			Role:     "guest",
		})
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MeResponse{
		ID:              user.ID,
		Username:        user.Username,
		Role:            string(user.Role),
		IsActive:        &user.IsActive,
		CreatedAt:       &user.CreatedAt,
		IsAuthenticated: true,
	})
}

func (h *AuthHandler) writeSession(w http.ResponseWriter, message string, result *services.LoginResult) {
	auth.SetTokenCookie(w, result.AccessToken, result.ExpiresIn, h.cookies)
	pkghttp.WriteJSON(w, http.StatusOK, LoginResponse{
		Message:      message,
		Token:        result.AccessToken,
		RefreshToken: result.RefreshToken,
		ExpiresIn:    int64(result.ExpiresIn.Seconds()),
		User: SessionUser{
			ID:        result.User.ID,
			Username:  result.User.Username,
			Role:      result.User.Role,
			CreatedAt: result.User.CreatedAt,
		},
	})
}
