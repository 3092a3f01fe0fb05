package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/BradenHooton/healthdesk/internal/models"
)

type ClientRepository interface {
	Create(ctx context.Context, in models.ClientInput, createdBy *int64) (*models.Client, error)
	GetByID(ctx context.Context, id int64) (*models.Client, error)
	List(ctx context.Context) ([]*models.Client, error)
	Search(ctx context.Context, query string) ([]*models.Client, error)
	Update(ctx context.Context, id int64, in models.ClientInput) (*models.Client, error)
}

// ClientEnrollments lists the enrollments of one client
type ClientEnrollments interface {
	ListByClient(ctx context.Context, clientID int64) ([]*models.EnrollmentWithProgram, error)
}

// ClientService handles client registration and lookup
type ClientService struct {
	repo        ClientRepository
	enrollments ClientEnrollments
	logger      *slog.Logger
}

func NewClientService(repo ClientRepository, enrollments ClientEnrollments, logger *slog.Logger) *ClientService {
	return &ClientService{repo: repo, enrollments: enrollments, logger: logger}
}

func (s *ClientService) Create(ctx context.Context, in models.ClientInput, createdBy *int64) (*models.Client, error) {
	in, err := normalizeClientInput(in)
	if err != nil {
		return nil, err
	}

	client, err := s.repo.Create(ctx, in, createdBy)
	if err != nil {
		if errors.Is(err, models.ErrValidation) {
			return nil, err
		}
		s.logger.Error("failed to create client", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("client registered", slog.Int64("client_id", client.ID))
	return client, nil
}

func (s *ClientService) List(ctx context.Context) ([]*models.Client, error) {
	clients, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list clients", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return clients, nil
}

func (s *ClientService) Get(ctx context.Context, id int64) (*models.Client, error) {
	client, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NotFound("client")
		}
		s.logger.Error("failed to get client", slog.Int64("client_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return client, nil
}

// Profile returns the client with every enrollment and its program.
func (s *ClientService) Profile(ctx context.Context, id int64) (*models.ClientProfile, error) {
	client, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	enrollments, err := s.enrollments.ListByClient(ctx, id)
	if err != nil {
		s.logger.Error("failed to list client enrollments", slog.Int64("client_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if enrollments == nil {
		enrollments = []*models.EnrollmentWithProgram{}
	}

	return &models.ClientProfile{Client: *client, Enrollments: enrollments}, nil
}

// Search matches query against names, email and phone. An empty query is a
// validation error.
func (s *ClientService) Search(ctx context.Context, query string) ([]*models.Client, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.NewValidationError("query", "Search query is required")
	}

	clients, err := s.repo.Search(ctx, query)
	if err != nil {
		s.logger.Error("failed to search clients", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return clients, nil
}

// Update replaces the editable fields of a client.
func (s *ClientService) Update(ctx context.Context, id int64, in models.ClientInput) (*models.Client, error) {
	in, err := normalizeClientInput(in)
	if err != nil {
		return nil, err
	}

	client, err := s.repo.Update(ctx, id, in)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			return nil, models.NotFound("client")
		case errors.Is(err, models.ErrValidation):
			return nil, err
		}
		s.logger.Error("failed to update client", slog.Int64("client_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return client, nil
}

func normalizeClientInput(in models.ClientInput) (models.ClientInput, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if in.FirstName == "" || in.LastName == "" {
		return in, models.NewValidationError("", "First name and last name are required")
	}

	in.Gender = trimOptional(in.Gender)
	in.Address = trimOptional(in.Address)
	in.Phone = trimOptional(in.Phone)
	in.Email = trimOptional(in.Email)
	return in, nil
}

// trimOptional trims s and maps blank strings to nil.
func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
