package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/healthdesk/internal/auth"
	"github.com/BradenHooton/healthdesk/internal/models"
	pkgauth "github.com/BradenHooton/healthdesk/pkg/auth"
	pkglogger "github.com/BradenHooton/healthdesk/pkg/logger"
)

// Username length bounds
const (
	MinUsernameLen = 3
	MaxUsernameLen = 255
)

// Login outcomes reported to the LoginRecorder
const (
	LoginSucceeded          = "success"
	LoginInvalidCredentials = "invalid_credentials"
	LoginInactive           = "inactive"
	LoginError              = "error"
)

// dummyPassword is hashed once at startup so unknown usernames still pay for
// a bcrypt comparison.
const dummyPassword = "healthdesk-timing-equalizer"

// CredentialStore persists users together with their auth record
type CredentialStore interface {
	CreateWithAuth(ctx context.Context, nu models.NewUser) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// AuthRecordStore reads and rotates credential material
type AuthRecordStore interface {
	GetByUserID(ctx context.Context, userID int64) (*models.AuthRecord, error)
	GetByRefreshToken(ctx context.Context, tokenHash string) (*models.AuthRecord, error)
	SetRefreshToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error
	ClearRefreshToken(ctx context.Context, userID int64) error
}

// LoginRecorder counts login outcomes
type LoginRecorder interface {
	LoginAttempt(outcome string)
}

// CredentialConfig holds the tunables of CredentialService
type CredentialConfig struct {
	BcryptCost         int
	RefreshTokenExpiry time.Duration
}

// RegisterCommand is the validated input of signup
type RegisterCommand struct {
	Username string
	Password string
	Role     models.Role
}

// LoginResult is returned by Login and Refresh
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
	User         *models.User
}

// CredentialService issues and verifies password credentials
type CredentialService struct {
	users     CredentialStore
	records   AuthRecordStore
	tm        *auth.TokenManager
	timing    *auth.TimingDelay
	cfg       CredentialConfig
	dummyHash string
	logger    *slog.Logger
	audit     *pkglogger.AuditLogger
	recorder  LoginRecorder
	now       func() time.Time
}

// NewCredentialService creates a CredentialService. timing and recorder may be nil.
func NewCredentialService(
	users CredentialStore,
	records AuthRecordStore,
	tm *auth.TokenManager,
	timing *auth.TimingDelay,
	cfg CredentialConfig,
	logger *slog.Logger,
	audit *pkglogger.AuditLogger,
	recorder LoginRecorder,
) *CredentialService {
	if cfg.RefreshTokenExpiry <= 0 {
		cfg.RefreshTokenExpiry = 7 * 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	if audit == nil {
		audit = pkglogger.NewAuditLogger(logger)
	}

	dummyHash, err := pkgauth.HashPassword(dummyPassword, cfg.BcryptCost)
	if err != nil {
		logger.Error("failed to prepare dummy password hash", slog.Any("error", err))
	}

	return &CredentialService{
		users:     users,
		records:   records,
		tm:        tm,
		timing:    timing,
		cfg:       cfg,
		dummyHash: dummyHash,
		logger:    logger,
		audit:     audit,
		recorder:  recorder,
		now:       time.Now,
	}
}

// Register creates a user and its auth record in one transaction and returns
// the new user id.
func (s *CredentialService) Register(ctx context.Context, cmd RegisterCommand) (int64, error) {
	username := strings.TrimSpace(cmd.Username)
	if n := len(username); n < MinUsernameLen || n > MaxUsernameLen {
		return 0, models.NewValidationError("username",
			fmt.Sprintf("Username must be between %d and %d characters", MinUsernameLen, MaxUsernameLen))
	}

	if err := pkgauth.ValidatePassword(cmd.Password); err != nil {
		return 0, models.NewValidationError("password", err.Error())
	}

	role := cmd.Role
	if role == "" {
		role = models.DefaultRole
	}
	if !role.Valid() {
		return 0, models.NewValidationError("role", "Role must be one of admin, doctor, staff")
	}

	hash, err := pkgauth.HashPassword(cmd.Password, s.cfg.BcryptCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return 0, models.ErrInternalServer
	}
	salt, err := pkgauth.SaltFromHash(hash)
	if err != nil {
		s.logger.Error("failed to extract salt", slog.Any("error", err))
		return 0, models.ErrInternalServer
	}

	user, err := s.users.CreateWithAuth(ctx, models.NewUser{
		Username:     username,
		PasswordHash: hash,
		Salt:         salt,
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			s.logger.Info("signup rejected: username taken", slog.String("username", username))
			s.audit.LogAuthAttempt(ctx, pkglogger.AuditEvent{
				EventType:     pkglogger.EventSignup,
				Username:      username,
				FailureReason: "username_taken",
			})
			return 0, models.ErrConflict
		}
		s.logger.Error("failed to create user", slog.String("username", username), slog.Any("error", err))
		return 0, models.ErrInternalServer
	}

	s.audit.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventSignup,
		UserID:    user.ID,
		Username:  user.Username,
		Success:   true,
		Metadata:  map[string]string{"role": string(user.Role)},
	})
	return user.ID, nil
}

// VerifyLogin checks a username/password pair. Unknown usernames and wrong
// passwords both return models.ErrInvalidCredentials after the same padding.
// An inactive account is reported only once the password has verified.
func (s *CredentialService) VerifyLogin(ctx context.Context, username, password string) (*models.User, error) {
	start := s.now()
	username = strings.TrimSpace(username)

	user, err := s.verify(ctx, username, password)
	s.timing.WaitFrom(ctx, start, err == nil)

	switch {
	case err == nil:
		s.record(LoginSucceeded)
	case errors.Is(err, models.ErrInvalidCredentials):
		s.record(LoginInvalidCredentials)
		s.audit.LogAuthAttempt(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventLoginFailed,
			Username:      username,
			FailureReason: "invalid_credentials",
		})
	case errors.Is(err, models.ErrAccountInactive):
		s.record(LoginInactive)
		s.audit.LogAuthAttempt(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventLoginFailed,
			UserID:        user.ID,
			Username:      username,
			FailureReason: "account_inactive",
		})
		return nil, err
	default:
		s.record(LoginError)
	}
	return user, err
}

func (s *CredentialService) verify(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" || password == "" {
		_ = pkgauth.ComparePassword(s.dummyHash, password)
		return nil, models.ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		_ = pkgauth.ComparePassword(s.dummyHash, password)
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidCredentials
		}
		s.logger.Error("failed to look up user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	record, err := s.records.GetByUserID(ctx, user.ID)
	if err != nil {
		_ = pkgauth.ComparePassword(s.dummyHash, password)
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Warn("user has no auth record", slog.Int64("user_id", user.ID))
			return nil, models.ErrInvalidCredentials
		}
		s.logger.Error("failed to load auth record", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(record.PasswordHash, password); err != nil {
		return nil, models.ErrInvalidCredentials
	}

	if !user.IsActive {
		return user, models.ErrAccountInactive
	}
	return user, nil
}

// Login verifies credentials and issues an access token plus a fresh
// refresh token.
func (s *CredentialService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.VerifyLogin(ctx, username, password)
	if err != nil {
		return nil, err
	}

	result, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", slog.Int64("user_id", user.ID))
	s.audit.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventLoginSuccess,
		UserID:    user.ID,
		Username:  user.Username,
		Success:   true,
	})
	return result, nil
}

// Refresh exchanges an unexpired refresh token for a new token pair. The
// presented refresh token stops working.
func (s *CredentialService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if refreshToken == "" {
		return nil, models.ErrInvalidToken
	}

	record, err := s.records.GetByRefreshToken(ctx, hashRefreshToken(refreshToken))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidToken
		}
		s.logger.Error("failed to look up refresh token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if record.TokenExpiresAt == nil || !s.now().Before(*record.TokenExpiresAt) {
		return nil, models.ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidToken
		}
		s.logger.Error("failed to load user for refresh", slog.Int64("user_id", record.UserID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if !user.IsActive {
		return nil, models.ErrUnauthorized
	}

	result, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}

	s.audit.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventTokenRefreshed,
		UserID:    user.ID,
		Username:  user.Username,
		Success:   true,
	})
	return result, nil
}

// Logout drops the stored refresh token. Issued access tokens stay valid
// until they expire.
func (s *CredentialService) Logout(ctx context.Context, userID int64) error {
	if err := s.records.ClearRefreshToken(ctx, userID); err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to clear refresh token", slog.Int64("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.audit.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventLogout,
		UserID:    userID,
		Success:   true,
	})
	return nil
}

// GetUserByID returns the current state of a user.
func (s *CredentialService) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NotFound("user")
		}
		s.logger.Error("failed to get user", slog.Int64("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return user, nil
}

func (s *CredentialService) issue(ctx context.Context, user *models.User) (*LoginResult, error) {
	accessToken, err := s.tm.Issue(user.ID, user.Username, user.Role)
	if err != nil {
		s.logger.Error("failed to issue access token", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	refreshToken, err := pkgauth.GenerateRefreshToken()
	if err != nil {
		s.logger.Error("failed to generate refresh token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	expiresAt := s.now().Add(s.cfg.RefreshTokenExpiry)
	if err := s.records.SetRefreshToken(ctx, user.ID, hashRefreshToken(refreshToken), expiresAt); err != nil {
		s.logger.Error("failed to store refresh token", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    s.tm.AccessTokenExpiry(),
		User:         user,
	}, nil
}

func (s *CredentialService) record(outcome string) {
	if s.recorder != nil {
		s.recorder.LoginAttempt(outcome)
	}
}

// hashRefreshToken returns the hex sha256 of a raw refresh token. Only the
// hash is stored.
func hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
