package handlers

import (
	"context"
	"net/http"

	"github.com/BradenHooton/healthdesk/internal/models"
	pkghttp "github.com/BradenHooton/healthdesk/pkg/http"
)

// EnrollmentServiceInterface defines the enrollment operations used over HTTP
type EnrollmentServiceInterface interface {
	Enroll(ctx context.Context, cmd models.CreateEnrollmentCommand) (*models.Enrollment, error)
	UpdateStatus(ctx context.Context, cmd models.UpdateEnrollmentCommand) (*models.Enrollment, error)
	ListByClient(ctx context.Context, clientID int64) ([]*models.EnrollmentWithProgram, error)
	ListByProgram(ctx context.Context, programID int64) ([]*models.Enrollment, error)
	ListAll(ctx context.Context) ([]*models.EnrollmentWithProgram, error)
}

type EnrollmentHandler struct {
	service EnrollmentServiceInterface
}

func NewEnrollmentHandler(service EnrollmentServiceInterface) *EnrollmentHandler {
	return &EnrollmentHandler{service: service}
}

// EnrollRequest ids are checked by the service so a missing id reports
// "Client ID and Program ID are required".
type EnrollRequest struct {
	ClientID  int64   `json:"clientId"`
	ProgramID int64   `json:"programId"`
	Notes     *string `json:"notes" validate:"omitempty,max=2000"`
}

type UpdateEnrollmentRequest struct {
	Status *string `json:"status" validate:"omitempty,oneof=active completed dropped"`
	Notes  *string `json:"notes" validate:"omitempty,max=2000"`
}

// Enroll handles POST /api/enrollments
func (h *EnrollmentHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req EnrollRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	enrollment, err := h.service.Enroll(r.Context(), models.CreateEnrollmentCommand{
		ClientID:  req.ClientID,
		ProgramID: req.ProgramID,
		Notes:     req.Notes,
		CreatedBy: actorID(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusCreated, "Client enrolled successfully", enrollment)
}

func (h *EnrollmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "enrollment")
	if !ok {
		return
	}

	var req UpdateEnrollmentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	cmd := models.UpdateEnrollmentCommand{ID: id, Notes: req.Notes}
	if req.Status != nil {
		status := models.EnrollmentStatus(*req.Status)
		cmd.Status = &status
	}

	enrollment, err := h.service.UpdateStatus(r.Context(), cmd)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "Enrollment updated successfully", enrollment)
}

func (h *EnrollmentHandler) List(w http.ResponseWriter, r *http.Request) {
	enrollments, err := h.service.ListAll(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if enrollments == nil {
		enrollments = []*models.EnrollmentWithProgram{}
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "Success", enrollments)
}

func (h *EnrollmentHandler) ListByClient(w http.ResponseWriter, r *http.Request) {
	clientID, ok := pathID(w, r, "clientId", "client")
	if !ok {
		return
	}

	enrollments, err := h.service.ListByClient(r.Context(), clientID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if enrollments == nil {
		enrollments = []*models.EnrollmentWithProgram{}
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "Success", enrollments)
}

func (h *EnrollmentHandler) ListByProgram(w http.ResponseWriter, r *http.Request) {
	programID, ok := pathID(w, r, "programId", "program")
	if !ok {
		return
	}

	enrollments, err := h.service.ListByProgram(r.Context(), programID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if enrollments == nil {
		enrollments = []*models.Enrollment{}
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "Success", enrollments)
}
