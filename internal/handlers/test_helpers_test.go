package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/healthdesk/internal/auth"
	"github.com/BradenHooton/healthdesk/internal/models"
	"github.com/BradenHooton/healthdesk/internal/services"
	pkghttp "github.com/BradenHooton/healthdesk/pkg/http"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithURLParams attaches chi route parameters to req
func WithURLParams(req *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// WithCurrentUser attaches a resolved user as the auth middleware would
func WithCurrentUser(req *http.Request, user *models.User) *http.Request {
	return req.WithContext(auth.WithUser(req.Context(), user))
}

// envelope mirrors pkghttp.Response with raw data for decoding
type envelope struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	Data    json.RawMessage      `json:"data"`
	Errors  []pkghttp.FieldError `json:"errors"`
}

// AssertEnvelope checks status and decodes the response envelope
func AssertEnvelope(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int) envelope {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch: %s", w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func testUser(id int64, username string, role models.Role) *models.User {
	return &models.User{
		ID:        id,
		Username:  username,
		Role:      role,
		IsActive:  true,
		CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		UpdatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// MockCredentialService implements CredentialServiceInterface for testing
type MockCredentialService struct {
	RegisterFunc func(ctx context.Context, cmd services.RegisterCommand) (int64, error)
	LoginFunc    func(ctx context.Context, username, password string) (*services.LoginResult, error)
	RefreshFunc  func(ctx context.Context, refreshToken string) (*services.LoginResult, error)
	LogoutFunc   func(ctx context.Context, userID int64) error
}

func (m *MockCredentialService) Register(ctx context.Context, cmd services.RegisterCommand) (int64, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, cmd)
	}
	return 1, nil
}

func (m *MockCredentialService) Login(ctx context.Context, username, password string) (*services.LoginResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, username, password)
	}
	return nil, models.ErrInvalidCredentials
}

func (m *MockCredentialService) Refresh(ctx context.Context, refreshToken string) (*services.LoginResult, error) {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, refreshToken)
	}
	return nil, models.ErrInvalidToken
}

func (m *MockCredentialService) Logout(ctx context.Context, userID int64) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, userID)
	}
	return nil
}

// MockClientService implements ClientServiceInterface for testing
type MockClientService struct {
	CreateFunc  func(ctx context.Context, in models.ClientInput, createdBy *int64) (*models.Client, error)
	ListFunc    func(ctx context.Context) ([]*models.Client, error)
	GetFunc     func(ctx context.Context, id int64) (*models.Client, error)
	ProfileFunc func(ctx context.Context, id int64) (*models.ClientProfile, error)
	SearchFunc  func(ctx context.Context, query string) ([]*models.Client, error)
	UpdateFunc  func(ctx context.Context, id int64, in models.ClientInput) (*models.Client, error)
}

func (m *MockClientService) Create(ctx context.Context, in models.ClientInput, createdBy *int64) (*models.Client, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, in, createdBy)
	}
	return &models.Client{ID: 1, FirstName: in.FirstName, LastName: in.LastName}, nil
}

func (m *MockClientService) List(ctx context.Context) ([]*models.Client, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

func (m *MockClientService) Get(ctx context.Context, id int64) (*models.Client, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, models.NotFound("client")
}

func (m *MockClientService) Profile(ctx context.Context, id int64) (*models.ClientProfile, error) {
	if m.ProfileFunc != nil {
		return m.ProfileFunc(ctx, id)
	}
	return nil, models.NotFound("client")
}

func (m *MockClientService) Search(ctx context.Context, query string) ([]*models.Client, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query)
	}
	return nil, nil
}

func (m *MockClientService) Update(ctx context.Context, id int64, in models.ClientInput) (*models.Client, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, in)
	}
	return nil, models.NotFound("client")
}

// MockProgramService implements ProgramServiceInterface for testing
type MockProgramService struct {
	CreateFunc func(ctx context.Context, cmd services.CreateProgramCommand) (*models.Program, error)
	ListFunc   func(ctx context.Context, search string) ([]*models.Program, error)
	GetFunc    func(ctx context.Context, id int64) (*models.Program, error)
	UpdateFunc func(ctx context.Context, id int64, upd models.ProgramUpdate) (*models.Program, error)
	DeleteFunc func(ctx context.Context, id int64) error
}

func (m *MockProgramService) Create(ctx context.Context, cmd services.CreateProgramCommand) (*models.Program, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, cmd)
	}
	return &models.Program{ID: 1, Name: cmd.Name, Status: models.ProgramActive}, nil
}

func (m *MockProgramService) List(ctx context.Context, search string) ([]*models.Program, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, search)
	}
	return nil, nil
}

func (m *MockProgramService) Get(ctx context.Context, id int64) (*models.Program, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, models.NotFound("program")
}

func (m *MockProgramService) Update(ctx context.Context, id int64, upd models.ProgramUpdate) (*models.Program, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, upd)
	}
	return nil, models.NotFound("program")
}

func (m *MockProgramService) Delete(ctx context.Context, id int64) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockEnrollmentService implements EnrollmentServiceInterface for testing
type MockEnrollmentService struct {
	EnrollFunc        func(ctx context.Context, cmd models.CreateEnrollmentCommand) (*models.Enrollment, error)
	UpdateStatusFunc  func(ctx context.Context, cmd models.UpdateEnrollmentCommand) (*models.Enrollment, error)
	ListByClientFunc  func(ctx context.Context, clientID int64) ([]*models.EnrollmentWithProgram, error)
	ListByProgramFunc func(ctx context.Context, programID int64) ([]*models.Enrollment, error)
	ListAllFunc       func(ctx context.Context) ([]*models.EnrollmentWithProgram, error)
}

func (m *MockEnrollmentService) Enroll(ctx context.Context, cmd models.CreateEnrollmentCommand) (*models.Enrollment, error) {
	if m.EnrollFunc != nil {
		return m.EnrollFunc(ctx, cmd)
	}
	return &models.Enrollment{ID: 1, ClientID: cmd.ClientID, ProgramID: cmd.ProgramID, Status: models.EnrollmentActive}, nil
}

func (m *MockEnrollmentService) UpdateStatus(ctx context.Context, cmd models.UpdateEnrollmentCommand) (*models.Enrollment, error) {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, cmd)
	}
	return nil, models.NotFound("enrollment")
}

func (m *MockEnrollmentService) ListByClient(ctx context.Context, clientID int64) ([]*models.EnrollmentWithProgram, error) {
	if m.ListByClientFunc != nil {
		return m.ListByClientFunc(ctx, clientID)
	}
	return nil, nil
}

func (m *MockEnrollmentService) ListByProgram(ctx context.Context, programID int64) ([]*models.Enrollment, error) {
	if m.ListByProgramFunc != nil {
		return m.ListByProgramFunc(ctx, programID)
	}
	return nil, nil
}

func (m *MockEnrollmentService) ListAll(ctx context.Context) ([]*models.EnrollmentWithProgram, error) {
	if m.ListAllFunc != nil {
		return m.ListAllFunc(ctx)
	}
	return nil, nil
}

// MockUserAdminService implements UserAdminServiceInterface for testing
type MockUserAdminService struct {
	ListFunc   func(ctx context.Context) ([]*models.User, error)
	UpdateFunc func(ctx context.Context, actor *models.User, targetID int64, upd models.UserUpdate) (*models.User, error)
}

func (m *MockUserAdminService) List(ctx context.Context) ([]*models.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

func (m *MockUserAdminService) Update(ctx context.Context, actor *models.User, targetID int64, upd models.UserUpdate) (*models.User, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, actor, targetID, upd)
	}
	return nil, models.NotFound("user")
}
