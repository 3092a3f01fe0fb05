package services

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/BradenHooton/healthdesk/internal/models"
	"github.com/BradenHooton/healthdesk/internal/repositories"
	pkglogger "github.com/BradenHooton/healthdesk/pkg/logger"
)

// Enrollment outcomes reported to the EnrollmentRecorder
const (
	EnrollCreated         = "created"
	EnrollInvalid         = "invalid"
	EnrollClientMissing   = "client_not_found"
	EnrollProgramMissing  = "program_not_found"
	EnrollAlreadyEnrolled = "already_enrolled"
	EnrollError           = "error"
)

type EnrollmentRepository interface {
	WithinTx(ctx context.Context, fn func(repositories.EnrollmentTx) error) error
	Update(ctx context.Context, cmd models.UpdateEnrollmentCommand) (*models.Enrollment, error)
	ListByClient(ctx context.Context, clientID int64) ([]*models.EnrollmentWithProgram, error)
	ListByProgram(ctx context.Context, programID int64) ([]*models.Enrollment, error)
	ListAll(ctx context.Context) ([]*models.EnrollmentWithProgram, error)
}

// EnrollmentRecorder counts enroll outcomes
type EnrollmentRecorder interface {
	EnrollmentAttempt(outcome string)
}

// EnrollmentService enforces the enrollment rules: both parents exist and a
// client is enrolled at most once per program, whatever the status.
type EnrollmentService struct {
	repo     EnrollmentRepository
	clients  ClientRepository
	programs ProgramRepository
	logger   *slog.Logger
	audit    *pkglogger.AuditLogger
	recorder EnrollmentRecorder
}

// NewEnrollmentService creates an EnrollmentService. recorder may be nil.
func NewEnrollmentService(
	repo EnrollmentRepository,
	clients ClientRepository,
	programs ProgramRepository,
	logger *slog.Logger,
	audit *pkglogger.AuditLogger,
	recorder EnrollmentRecorder,
) *EnrollmentService {
	if audit == nil {
		audit = pkglogger.NewAuditLogger(logger)
	}
	return &EnrollmentService{
		repo:     repo,
		clients:  clients,
		programs: programs,
		logger:   logger,
		audit:    audit,
		recorder: recorder,
	}
}

// Enroll creates an active enrollment. The checks run in order inside one
// transaction: client exists, program exists, pair not yet enrolled.
func (s *EnrollmentService) Enroll(ctx context.Context, cmd models.CreateEnrollmentCommand) (*models.Enrollment, error) {
	if cmd.ClientID <= 0 || cmd.ProgramID <= 0 {
		s.record(EnrollInvalid)
		return nil, models.NewValidationError("", "Client ID and Program ID are required")
	}

	var enrollment *models.Enrollment
	err := s.repo.WithinTx(ctx, func(tx repositories.EnrollmentTx) error {
		ok, err := tx.ClientExists(ctx, cmd.ClientID)
		if err != nil {
			return err
		}
		if !ok {
			return models.NotFound("client")
		}

		ok, err = tx.ProgramExists(ctx, cmd.ProgramID)
		if err != nil {
			return err
		}
		if !ok {
			return models.NotFound("program")
		}

		ok, err = tx.PairExists(ctx, cmd.ClientID, cmd.ProgramID)
		if err != nil {
			return err
		}
		if ok {
			return models.ErrAlreadyEnrolled
		}

		enrollment, err = tx.Insert(ctx, cmd)
		return err
	})
	if err != nil {
		return nil, s.enrollFailed(cmd, err)
	}

	s.record(EnrollCreated)
	event := pkglogger.AuditEvent{
		EventType: pkglogger.EventEnrolled,
		Metadata: map[string]string{
			"enrollment_id": strconv.FormatInt(enrollment.ID, 10),
			"client_id":     strconv.FormatInt(cmd.ClientID, 10),
			"program_id":    strconv.FormatInt(cmd.ProgramID, 10),
		},
	}
	if cmd.CreatedBy != nil {
		event.UserID = *cmd.CreatedBy
	}
	s.audit.LogAccountAction(ctx, event)
	return enrollment, nil
}

func (s *EnrollmentService) enrollFailed(cmd models.CreateEnrollmentCommand, err error) error {
	var notFound *models.NotFoundError
	switch {
	case errors.As(err, &notFound):
		if notFound.Entity == "client" {
			s.record(EnrollClientMissing)
		} else {
			s.record(EnrollProgramMissing)
		}
		return err
	case errors.Is(err, models.ErrAlreadyEnrolled):
		s.record(EnrollAlreadyEnrolled)
		s.logger.Info("duplicate enrollment rejected",
			slog.Int64("client_id", cmd.ClientID), slog.Int64("program_id", cmd.ProgramID))
		return models.ErrAlreadyEnrolled
	default:
		s.record(EnrollError)
		s.logger.Error("failed to enroll client",
			slog.Int64("client_id", cmd.ClientID), slog.Int64("program_id", cmd.ProgramID), slog.Any("error", err))
		return models.ErrInternalServer
	}
}

// UpdateStatus applies a partial update. Any status may follow any other.
func (s *EnrollmentService) UpdateStatus(ctx context.Context, cmd models.UpdateEnrollmentCommand) (*models.Enrollment, error) {
	if cmd.Status == nil && cmd.Notes == nil {
		return nil, models.NewValidationError("", "Nothing to update")
	}
	if cmd.Status != nil && !cmd.Status.Valid() {
		return nil, models.NewValidationError("status", "Status must be one of active, completed, dropped")
	}

	enrollment, err := s.repo.Update(ctx, cmd)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NotFound("enrollment")
		}
		s.logger.Error("failed to update enrollment", slog.Int64("enrollment_id", cmd.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return enrollment, nil
}

// ListByClient returns the client's enrollments with their programs.
func (s *EnrollmentService) ListByClient(ctx context.Context, clientID int64) ([]*models.EnrollmentWithProgram, error) {
	if _, err := s.clients.GetByID(ctx, clientID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NotFound("client")
		}
		s.logger.Error("failed to get client", slog.Int64("client_id", clientID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	enrollments, err := s.repo.ListByClient(ctx, clientID)
	if err != nil {
		s.logger.Error("failed to list client enrollments", slog.Int64("client_id", clientID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return enrollments, nil
}

func (s *EnrollmentService) ListByProgram(ctx context.Context, programID int64) ([]*models.Enrollment, error) {
	if _, err := s.programs.GetByID(ctx, programID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NotFound("program")
		}
		s.logger.Error("failed to get program", slog.Int64("program_id", programID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	enrollments, err := s.repo.ListByProgram(ctx, programID)
	if err != nil {
		s.logger.Error("failed to list program enrollments", slog.Int64("program_id", programID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return enrollments, nil
}

func (s *EnrollmentService) ListAll(ctx context.Context) ([]*models.EnrollmentWithProgram, error) {
	enrollments, err := s.repo.ListAll(ctx)
	if err != nil {
		s.logger.Error("failed to list enrollments", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return enrollments, nil
}

func (s *EnrollmentService) record(outcome string) {
	if s.recorder != nil {
		s.recorder.EnrollmentAttempt(outcome)
	}
}
