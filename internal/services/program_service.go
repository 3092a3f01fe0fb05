package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BradenHooton/healthdesk/internal/models"
)

// Program name length bounds
const (
	MinProgramNameLen = 3
	MaxProgramNameLen = 255
)

type ProgramRepository interface {
	Create(ctx context.Context, p *models.Program) (*models.Program, error)
	GetByID(ctx context.Context, id int64) (*models.Program, error)
	List(ctx context.Context, search string) ([]*models.Program, error)
	Update(ctx context.Context, id int64, upd models.ProgramUpdate) (*models.Program, error)
	Delete(ctx context.Context, id int64) error
}

// CreateProgramCommand is the validated input of program creation
type CreateProgramCommand struct {
	Name        string
	Description *string
	Status      models.ProgramStatus
	CreatedBy   *int64
}

// ProgramService manages health programs
type ProgramService struct {
	repo   ProgramRepository
	logger *slog.Logger
}

func NewProgramService(repo ProgramRepository, logger *slog.Logger) *ProgramService {
	return &ProgramService{repo: repo, logger: logger}
}

func (s *ProgramService) Create(ctx context.Context, cmd CreateProgramCommand) (*models.Program, error) {
	name, err := validateProgramName(cmd.Name)
	if err != nil {
		return nil, err
	}

	status := cmd.Status
	if status == "" {
		status = models.ProgramActive
	}
	if !status.Valid() {
		return nil, invalidProgramStatus()
	}

	program, err := s.repo.Create(ctx, &models.Program{
		Name:        name,
		Description: trimOptional(cmd.Description),
		Status:      status,
		CreatedBy:   cmd.CreatedBy,
	})
	if err != nil {
		s.logger.Error("failed to create program", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("program created", slog.Int64("program_id", program.ID), slog.String("name", program.Name))
	return program, nil
}

// List returns all programs, narrowed by search on name when non-empty.
func (s *ProgramService) List(ctx context.Context, search string) ([]*models.Program, error) {
	programs, err := s.repo.List(ctx, strings.TrimSpace(search))
	if err != nil {
		s.logger.Error("failed to list programs", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return programs, nil
}

func (s *ProgramService) Get(ctx context.Context, id int64) (*models.Program, error) {
	program, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NotFound("program")
		}
		s.logger.Error("failed to get program", slog.Int64("program_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return program, nil
}

func (s *ProgramService) Update(ctx context.Context, id int64, upd models.ProgramUpdate) (*models.Program, error) {
	if upd.Name != nil {
		name, err := validateProgramName(*upd.Name)
		if err != nil {
			return nil, err
		}
		upd.Name = &name
	}
	if upd.Status != nil && !upd.Status.Valid() {
		return nil, invalidProgramStatus()
	}

	program, err := s.repo.Update(ctx, id, upd)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NotFound("program")
		}
		s.logger.Error("failed to update program", slog.Int64("program_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return program, nil
}

// Delete removes a program that no enrollment references.
func (s *ProgramService) Delete(ctx context.Context, id int64) error {
	err := s.repo.Delete(ctx, id)
	switch {
	case err == nil:
		s.logger.Info("program deleted", slog.Int64("program_id", id))
		return nil
	case errors.Is(err, models.ErrNotFound):
		return models.NotFound("program")
	case errors.Is(err, models.ErrStillReferenced):
		return fmt.Errorf("program has enrollments: %w", models.ErrStillReferenced)
	default:
		s.logger.Error("failed to delete program", slog.Int64("program_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}
}

func validateProgramName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := len(name); n < MinProgramNameLen || n > MaxProgramNameLen {
		return "", models.NewValidationError("name",
			fmt.Sprintf("Program name must be between %d and %d characters", MinProgramNameLen, MaxProgramNameLen))
	}
	return name, nil
}

func invalidProgramStatus() error {
	return models.NewValidationError("status", "Status must be one of active, inactive, completed")
}
