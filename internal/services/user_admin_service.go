package services

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/BradenHooton/healthdesk/internal/models"
	pkglogger "github.com/BradenHooton/healthdesk/pkg/logger"
)

// UserDirectory is the subset of the user repository used by admins
type UserDirectory interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Update(ctx context.Context, id int64, upd models.UserUpdate) (*models.User, error)
}

// UserAdminService lets admins list accounts and change role or active flag
type UserAdminService struct {
	repo   UserDirectory
	logger *slog.Logger
	audit  *pkglogger.AuditLogger
}

func NewUserAdminService(repo UserDirectory, logger *slog.Logger, audit *pkglogger.AuditLogger) *UserAdminService {
	if audit == nil {
		audit = pkglogger.NewAuditLogger(logger)
	}
	return &UserAdminService{repo: repo, logger: logger, audit: audit}
}

func (s *UserAdminService) List(ctx context.Context) ([]*models.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list users", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return users, nil
}

// Update changes role and/or active flag of the target user. Admins cannot
// change their own account.
func (s *UserAdminService) Update(ctx context.Context, actor *models.User, targetID int64, upd models.UserUpdate) (*models.User, error) {
	if actor == nil {
		return nil, models.ErrUnauthorized
	}
	if actor.ID == targetID {
		s.logger.Warn("admin attempted to modify own account", slog.Int64("user_id", actor.ID))
		return nil, models.ErrForbidden
	}
	if upd.Role == nil && upd.IsActive == nil {
		return nil, models.NewValidationError("", "Nothing to update")
	}
	if upd.Role != nil && !upd.Role.Valid() {
		return nil, models.NewValidationError("role", "Role must be one of admin, doctor, staff")
	}

	before, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NotFound("user")
		}
		s.logger.Error("failed to get user", slog.Int64("user_id", targetID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	after, err := s.repo.Update(ctx, targetID, upd)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NotFound("user")
		}
		s.logger.Error("failed to update user", slog.Int64("user_id", targetID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	actorID := strconv.FormatInt(actor.ID, 10)
	if before.Role != after.Role {
		s.audit.LogAccountAction(ctx, pkglogger.AuditEvent{
			EventType: pkglogger.EventRoleChanged,
			UserID:    after.ID,
			Username:  after.Username,
			Metadata: map[string]string{
				"actor_id": actorID,
				"old_role": string(before.Role),
				"new_role": string(after.Role),
			},
		})
	}
	if before.IsActive != after.IsActive {
		event := pkglogger.EventUserDeactivated
		if after.IsActive {
			event = pkglogger.EventUserActivated
		}
		s.audit.LogAccountAction(ctx, pkglogger.AuditEvent{
			EventType: event,
			UserID:    after.ID,
			Username:  after.Username,
			Metadata:  map[string]string{"actor_id": actorID},
		})
	}

	return after, nil
}
