package services

import (
	"context"
	"sync"
	"time"

	"github.com/BradenHooton/healthdesk/internal/models"
	"github.com/BradenHooton/healthdesk/internal/repositories"
)

// MockCredentialStore implements CredentialStore for testing
type MockCredentialStore struct {
	CreateWithAuthFunc func(ctx context.Context, nu models.NewUser) (*models.User, error)
	GetByIDFunc        func(ctx context.Context, id int64) (*models.User, error)
	GetByUsernameFunc  func(ctx context.Context, username string) (*models.User, error)
}

func (m *MockCredentialStore) CreateWithAuth(ctx context.Context, nu models.NewUser) (*models.User, error) {
	if m.CreateWithAuthFunc != nil {
		return m.CreateWithAuthFunc(ctx, nu)
	}
	return nil, models.ErrInternalServer
}

func (m *MockCredentialStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockCredentialStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	return nil, models.ErrNotFound
}

// MockAuthRecordStore implements AuthRecordStore for testing
type MockAuthRecordStore struct {
	GetByUserIDFunc       func(ctx context.Context, userID int64) (*models.AuthRecord, error)
	GetByRefreshTokenFunc func(ctx context.Context, tokenHash string) (*models.AuthRecord, error)
	SetRefreshTokenFunc   func(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error
	ClearRefreshTokenFunc func(ctx context.Context, userID int64) error
}

func (m *MockAuthRecordStore) GetByUserID(ctx context.Context, userID int64) (*models.AuthRecord, error) {
	if m.GetByUserIDFunc != nil {
		return m.GetByUserIDFunc(ctx, userID)
	}
	return nil, models.ErrNotFound
}

func (m *MockAuthRecordStore) GetByRefreshToken(ctx context.Context, tokenHash string) (*models.AuthRecord, error) {
	if m.GetByRefreshTokenFunc != nil {
		return m.GetByRefreshTokenFunc(ctx, tokenHash)
	}
	return nil, models.ErrNotFound
}

func (m *MockAuthRecordStore) SetRefreshToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	if m.SetRefreshTokenFunc != nil {
		return m.SetRefreshTokenFunc(ctx, userID, tokenHash, expiresAt)
	}
	return nil
}

func (m *MockAuthRecordStore) ClearRefreshToken(ctx context.Context, userID int64) error {
	if m.ClearRefreshTokenFunc != nil {
		return m.ClearRefreshTokenFunc(ctx, userID)
	}
	return nil
}

// MockUserDirectory implements UserDirectory for testing
type MockUserDirectory struct {
	GetByIDFunc func(ctx context.Context, id int64) (*models.User, error)
	ListFunc    func(ctx context.Context) ([]*models.User, error)
	UpdateFunc  func(ctx context.Context, id int64, upd models.UserUpdate) (*models.User, error)
}

func (m *MockUserDirectory) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserDirectory) List(ctx context.Context) ([]*models.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return []*models.User{}, nil
}

func (m *MockUserDirectory) Update(ctx context.Context, id int64, upd models.UserUpdate) (*models.User, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, upd)
	}
	return nil, models.ErrInternalServer
}

// MockClientRepository implements ClientRepository for testing
type MockClientRepository struct {
	CreateFunc  func(ctx context.Context, in models.ClientInput, createdBy *int64) (*models.Client, error)
	GetByIDFunc func(ctx context.Context, id int64) (*models.Client, error)
	ListFunc    func(ctx context.Context) ([]*models.Client, error)
	SearchFunc  func(ctx context.Context, query string) ([]*models.Client, error)
	UpdateFunc  func(ctx context.Context, id int64, in models.ClientInput) (*models.Client, error)
}

func (m *MockClientRepository) Create(ctx context.Context, in models.ClientInput, createdBy *int64) (*models.Client, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, in, createdBy)
	}
	return nil, models.ErrInternalServer
}

func (m *MockClientRepository) GetByID(ctx context.Context, id int64) (*models.Client, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockClientRepository) List(ctx context.Context) ([]*models.Client, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return []*models.Client{}, nil
}

func (m *MockClientRepository) Search(ctx context.Context, query string) ([]*models.Client, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query)
	}
	return []*models.Client{}, nil
}

func (m *MockClientRepository) Update(ctx context.Context, id int64, in models.ClientInput) (*models.Client, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, in)
	}
	return nil, models.ErrNotFound
}

// MockProgramRepository implements ProgramRepository for testing
type MockProgramRepository struct {
	CreateFunc  func(ctx context.Context, p *models.Program) (*models.Program, error)
	GetByIDFunc func(ctx context.Context, id int64) (*models.Program, error)
	ListFunc    func(ctx context.Context, search string) ([]*models.Program, error)
	UpdateFunc  func(ctx context.Context, id int64, upd models.ProgramUpdate) (*models.Program, error)
	DeleteFunc  func(ctx context.Context, id int64) error
}

func (m *MockProgramRepository) Create(ctx context.Context, p *models.Program) (*models.Program, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, p)
	}
	return nil, models.ErrInternalServer
}

func (m *MockProgramRepository) GetByID(ctx context.Context, id int64) (*models.Program, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockProgramRepository) List(ctx context.Context, search string) ([]*models.Program, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, search)
	}
	return []*models.Program{}, nil
}

func (m *MockProgramRepository) Update(ctx context.Context, id int64, upd models.ProgramUpdate) (*models.Program, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, upd)
	}
	return nil, models.ErrNotFound
}

func (m *MockProgramRepository) Delete(ctx context.Context, id int64) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockEnrollmentRepository implements EnrollmentRepository for testing.
// WithinTx hands Tx to the callback.
type MockEnrollmentRepository struct {
	Tx                repositories.EnrollmentTx
	UpdateFunc        func(ctx context.Context, cmd models.UpdateEnrollmentCommand) (*models.Enrollment, error)
	ListByClientFunc  func(ctx context.Context, clientID int64) ([]*models.EnrollmentWithProgram, error)
	ListByProgramFunc func(ctx context.Context, programID int64) ([]*models.Enrollment, error)
	ListAllFunc       func(ctx context.Context) ([]*models.EnrollmentWithProgram, error)
}

func (m *MockEnrollmentRepository) WithinTx(ctx context.Context, fn func(repositories.EnrollmentTx) error) error {
	return fn(m.Tx)
}

func (m *MockEnrollmentRepository) Update(ctx context.Context, cmd models.UpdateEnrollmentCommand) (*models.Enrollment, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, cmd)
	}
	return nil, models.ErrNotFound
}

func (m *MockEnrollmentRepository) ListByClient(ctx context.Context, clientID int64) ([]*models.EnrollmentWithProgram, error) {
	if m.ListByClientFunc != nil {
		return m.ListByClientFunc(ctx, clientID)
	}
	return []*models.EnrollmentWithProgram{}, nil
}

func (m *MockEnrollmentRepository) ListByProgram(ctx context.Context, programID int64) ([]*models.Enrollment, error) {
	if m.ListByProgramFunc != nil {
		return m.ListByProgramFunc(ctx, programID)
	}
	return []*models.Enrollment{}, nil
}

func (m *MockEnrollmentRepository) ListAll(ctx context.Context) ([]*models.EnrollmentWithProgram, error) {
	if m.ListAllFunc != nil {
		return m.ListAllFunc(ctx)
	}
	return []*models.EnrollmentWithProgram{}, nil
}

// MemoryEnrollmentTx is an in-memory EnrollmentTx. The mutex serializes
// callers the way the database transaction would.
type MemoryEnrollmentTx struct {
	mu          sync.Mutex
	Clients     map[int64]bool
	Programs    map[int64]bool
	Enrollments []*models.Enrollment
	Calls       []string
}

func NewMemoryEnrollmentTx(clientIDs, programIDs []int64) *MemoryEnrollmentTx {
	tx := &MemoryEnrollmentTx{Clients: map[int64]bool{}, Programs: map[int64]bool{}}
	for _, id := range clientIDs {
		tx.Clients[id] = true
	}
	for _, id := range programIDs {
		tx.Programs[id] = true
	}
	return tx
}

func (m *MemoryEnrollmentTx) ClientExists(ctx context.Context, clientID int64) (bool, error) {
	m.Calls = append(m.Calls, "client")
	return m.Clients[clientID], nil
}

func (m *MemoryEnrollmentTx) ProgramExists(ctx context.Context, programID int64) (bool, error) {
	m.Calls = append(m.Calls, "program")
	return m.Programs[programID], nil
}

func (m *MemoryEnrollmentTx) PairExists(ctx context.Context, clientID, programID int64) (bool, error) {
	m.Calls = append(m.Calls, "pair")
	for _, e := range m.Enrollments {
		if e.ClientID == clientID && e.ProgramID == programID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryEnrollmentTx) Insert(ctx context.Context, cmd models.CreateEnrollmentCommand) (*models.Enrollment, error) {
	m.Calls = append(m.Calls, "insert")
	now := time.Now()
	e := &models.Enrollment{
		ID:         int64(len(m.Enrollments) + 1),
		ClientID:   cmd.ClientID,
		ProgramID:  cmd.ProgramID,
		Status:     models.EnrollmentActive,
		EnrolledAt: now,
		Notes:      cmd.Notes,
		CreatedBy:  cmd.CreatedBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.Enrollments = append(m.Enrollments, e)
	return e, nil
}

// lockedTxRepository runs each WithinTx under the tx mutex
type lockedTxRepository struct {
	MockEnrollmentRepository
	tx *MemoryEnrollmentTx
}

func (r *lockedTxRepository) WithinTx(ctx context.Context, fn func(repositories.EnrollmentTx) error) error {
	r.tx.mu.Lock()
	defer r.tx.mu.Unlock()
	return fn(r.tx)
}

// outcomeRecorder collects login and enrollment outcomes
type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *outcomeRecorder) LoginAttempt(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *outcomeRecorder) EnrollmentAttempt(outcome string) {
	r.LoginAttempt(outcome)
}

// NewTestUser builds an active user
func NewTestUser(id int64, username string, role models.Role) *models.User {
	now := time.Now()
	return &models.User{
		ID:        id,
		Username:  username,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func ptr[T any](v T) *T {
	return &v
}
