package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/BradenHooton/healthdesk/internal/auth"
	"github.com/BradenHooton/healthdesk/internal/models"
	pkghttp "github.com/BradenHooton/healthdesk/pkg/http"
)

// UserAdminServiceInterface defines the admin user operations
type UserAdminServiceInterface interface {
	List(ctx context.Context) ([]*models.User, error)
	Update(ctx context.Context, actor *models.User, targetID int64, upd models.UserUpdate) (*models.User, error)
}

type UserHandler struct {
	service UserAdminServiceInterface
}

func NewUserHandler(service UserAdminServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// UserResponse is the public view of a user
type UserResponse struct {
	ID        int64       `json:"id"`
	Username  string      `json:"username"`
	Role      models.Role `json:"role"`
	IsActive  bool        `json:"isActive"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

type UpdateUserRequest struct {
	Role     *string `json:"role" validate:"omitempty,role"`
	IsActive *bool   `json:"isActive"`
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// List handles GET /api/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := make([]UserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, toUserResponse(u))
	}
	pkghttp.WriteSuccess(w, http.StatusOK, "Success", resp)
}

// Update handles PATCH /api/users/{id}. Admins cannot modify themselves.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "user")
	if !ok {
		return
	}

	var req UpdateUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	upd := models.UserUpdate{IsActive: req.IsActive}
	if req.Role != nil {
		role := models.Role(*req.Role)
		upd.Role = &role
	}

	user, err := h.service.Update(r.Context(), auth.CurrentUser(r.Context()), id, upd)
	if err != nil {
		if errors.Is(err, models.ErrForbidden) {
			pkghttp.WriteForbidden(w, "Cannot modify your own account")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "User updated successfully", toUserResponse(user))
}
