package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/BradenHooton/healthdesk/internal/auth"
	"github.com/BradenHooton/healthdesk/internal/models"
	pkghttp "github.com/BradenHooton/healthdesk/pkg/http"
)

// ClientServiceInterface defines the client operations used over HTTP
type ClientServiceInterface interface {
	Create(ctx context.Context, in models.ClientInput, createdBy *int64) (*models.Client, error)
	List(ctx context.Context) ([]*models.Client, error)
	Get(ctx context.Context, id int64) (*models.Client, error)
	Profile(ctx context.Context, id int64) (*models.ClientProfile, error)
	Search(ctx context.Context, query string) ([]*models.Client, error)
	Update(ctx context.Context, id int64, in models.ClientInput) (*models.Client, error)
}

type ClientHandler struct {
	service ClientServiceInterface
}

func NewClientHandler(service ClientServiceInterface) *ClientHandler {
	return &ClientHandler{service: service}
}

// ClientRequest is the body of client create and update. The name fields
// also arrive as first_name/first_Name and last_name/last_Name.
type ClientRequest struct {
	FirstName       string  `json:"firstName" validate:"required,max=255"`
	LastName        string  `json:"lastName" validate:"required,max=255"`
	FirstNameSnake  string  `json:"first_name" validate:"-"`
	LastNameSnake   string  `json:"last_name" validate:"-"`
	FirstNameLegacy string  `json:"first_Name" validate:"-"`
	LastNameLegacy  string  `json:"last_Name" validate:"-"`
	DateOfBirth     *string `json:"dateOfBirth" validate:"omitempty,dateonly"`
	Gender          *string `json:"gender" validate:"omitempty,gender"`
	Address         *string `json:"address" validate:"omitempty,max=255"`
	Phone           *string `json:"phone" validate:"omitempty,max=20"`
	Email           *string `json:"email" validate:"omitempty,email,max=100"`
}

// normalize folds the name aliases into FirstName/LastName and drops empty
// optional strings.
func (req *ClientRequest) normalize() {
	req.FirstName = firstNonEmpty(req.FirstNameSnake, req.FirstName, req.FirstNameLegacy)
	req.LastName = firstNonEmpty(req.LastNameSnake, req.LastName, req.LastNameLegacy)
	for _, field := range []**string{&req.DateOfBirth, &req.Gender, &req.Address, &req.Phone, &req.Email} {
		if *field != nil && **field == "" {
			*field = nil
		}
	}
}

func (req *ClientRequest) input() models.ClientInput {
	in := models.ClientInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Gender:    req.Gender,
		Address:   req.Address,
		Phone:     req.Phone,
		Email:     req.Email,
	}
	if req.DateOfBirth != nil {
		// Format already checked by the dateonly rule
		if dob, err := time.Parse(DateLayout, *req.DateOfBirth); err == nil {
			in.DateOfBirth = &dob
		}
	}
	return in
}

func (h *ClientHandler) decode(w http.ResponseWriter, r *http.Request) (models.ClientInput, bool) {
	var req ClientRequest
	if err := pkghttp.DecodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return models.ClientInput{}, false
	}
	req.normalize()
	if fieldErrors := ValidateRequest(&req); fieldErrors != nil {
		pkghttp.WriteBadRequest(w, "Validation failed", fieldErrors...)
		return models.ClientInput{}, false
	}
	return req.input(), true
}

// Create registers a client on behalf of the current user
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}

	client, err := h.service.Create(r.Context(), in, actorID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusCreated, "Client registered successfully", client)
}

func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	clients, err := h.service.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if len(clients) == 0 {
		pkghttp.WriteSuccess(w, http.StatusOK, "No clients found", []*models.Client{})
		return
	}
	pkghttp.WriteSuccess(w, http.StatusOK, "Clients retrieved successfully", clients)
}

func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "client")
	if !ok {
		return
	}

	client, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "Success", client)
}

// Profile returns the client with their enrollments and programs
func (h *ClientHandler) Profile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "client")
	if !ok {
		return
	}

	profile, err := h.service.Profile(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "Success", profile)
}

// Search handles GET /api/clients/search?query=
func (h *ClientHandler) Search(w http.ResponseWriter, r *http.Request) {
	clients, err := h.service.Search(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if clients == nil {
		clients = []*models.Client{}
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "Success", clients)
}

func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "client")
	if !ok {
		return
	}

	in, ok := h.decode(w, r)
	if !ok {
		return
	}

	client, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "Client updated successfully", client)
}

// actorID returns the id of the user resolved for this request, if any.
func actorID(r *http.Request) *int64 {
	if user := auth.CurrentUser(r.Context()); user != nil {
		id := user.ID
		return &id
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
