package logger

import (
	"context"
	"log/slog"
	"time"
)

// Audit event types
const (
	EventSignup          = "signup"
	EventLoginSuccess    = "login_success"
	EventLoginFailed     = "login_failed"
	EventTokenRefreshed  = "token_refreshed"
	EventLogout          = "logout"
	EventRoleChanged     = "role_changed"
	EventUserActivated   = "user_activated"
	EventUserDeactivated = "user_deactivated"
	EventEnrolled        = "client_enrolled"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType     string
	UserID        int64
	Username      string
	IPAddress     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger writes audit records through slog. Records are not persisted.
type AuditLogger struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{logger: logger, now: time.Now}
}

// LogAuthAttempt logs signup, login, refresh and logout outcomes.
func (al *AuditLogger) LogAuthAttempt(ctx context.Context, event AuditEvent) {
	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.log(ctx, level, "auth", event)
}

// LogAccountAction logs actions taken on or by an account.
func (al *AuditLogger) LogAccountAction(ctx context.Context, event AuditEvent) {
	event.Success = true
	al.log(ctx, slog.LevelInfo, "account", event)
}

func (al *AuditLogger) log(ctx context.Context, level slog.Level, auditType string, event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", auditType),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", al.now().UTC().Format(time.RFC3339)),
	}

	if event.UserID != 0 {
		attrs = append(attrs, slog.Int64("user_id", event.UserID))
	}
	if event.Username != "" {
		attrs = append(attrs, slog.String("username", event.Username))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}
