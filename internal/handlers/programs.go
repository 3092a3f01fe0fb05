package handlers

import (
	"context"
	"net/http"

	"github.com/BradenHooton/healthdesk/internal/models"
	"github.com/BradenHooton/healthdesk/internal/services"
	pkghttp "github.com/BradenHooton/healthdesk/pkg/http"
)

// ProgramServiceInterface defines the program operations used over HTTP
type ProgramServiceInterface interface {
	Create(ctx context.Context, cmd services.CreateProgramCommand) (*models.Program, error)
	List(ctx context.Context, search string) ([]*models.Program, error)
	Get(ctx context.Context, id int64) (*models.Program, error)
	Update(ctx context.Context, id int64, upd models.ProgramUpdate) (*models.Program, error)
	Delete(ctx context.Context, id int64) error
}

type ProgramHandler struct {
	service ProgramServiceInterface
}

func NewProgramHandler(service ProgramServiceInterface) *ProgramHandler {
	return &ProgramHandler{service: service}
}

type CreateProgramRequest struct {
	Name        string  `json:"name" validate:"required,min=3,max=255"`
	Description *string `json:"description"`
	Status      string  `json:"status" validate:"omitempty,oneof=active inactive completed"`
}

type UpdateProgramRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=3,max=255"`
	Description *string `json:"description"`
	Status      *string `json:"status" validate:"omitempty,oneof=active inactive completed"`
}

func (h *ProgramHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProgramRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	program, err := h.service.Create(r.Context(), services.CreateProgramCommand{
		Name:        req.Name,
		Description: req.Description,
		Status:      models.ProgramStatus(req.Status),
		CreatedBy:   actorID(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusCreated, "Program created successfully", program)
}

// List handles GET /api/programs with an optional ?search= on name
func (h *ProgramHandler) List(w http.ResponseWriter, r *http.Request) {
	programs, err := h.service.List(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if programs == nil {
		programs = []*models.Program{}
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "Success", programs)
}

func (h *ProgramHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "program")
	if !ok {
		return
	}

	program, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "Success", program)
}

func (h *ProgramHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "program")
	if !ok {
		return
	}

	var req UpdateProgramRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	upd := models.ProgramUpdate{Name: req.Name, Description: req.Description}
	if req.Status != nil {
		status := models.ProgramStatus(*req.Status)
		upd.Status = &status
	}

	program, err := h.service.Update(r.Context(), id, upd)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "Program updated successfully", program)
}

func (h *ProgramHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "program")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "Program deleted successfully", nil)
}
