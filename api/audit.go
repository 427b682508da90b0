package api

import (
	"log/slog"
	"net/http"
	"time"
)

// AuditEvent identifies the type of security-relevant action being logged.
type AuditEvent string

const (
	AuditLoginSuccess      AuditEvent = "login_success"
	AuditLoginFailure      AuditEvent = "login_failure"
	AuditLoginTOTPRequired AuditEvent = "login_totp_required"
	AuditLogout            AuditEvent = "logout"
	AuditTOTPSetup         AuditEvent = "totp_setup"
	AuditTOTPEnabled       AuditEvent = "totp_enabled"
	AuditTOTPDisabled      AuditEvent = "totp_disabled"
	AuditPasswordChanged   AuditEvent = "password_changed"
	AuditArticleCreated    AuditEvent = "article_created"
	AuditArticleUpdated    AuditEvent = "article_updated"
	AuditArticleDeleted    AuditEvent = "article_deleted"
	AuditArticleRestored   AuditEvent = "article_restored"
	AuditArticleDuplicated AuditEvent = "article_duplicated"
	AuditRecycleBinPurged  AuditEvent = "recycle_bin_purged"
	AuditArticlesExported  AuditEvent = "articles_exported"
	AuditArticlesImported  AuditEvent = "articles_imported"
	AuditSeriesCreated     AuditEvent = "series_created"
	AuditSettingsUpdated   AuditEvent = "settings_updated"
	AuditThemeUpdated      AuditEvent = "theme_updated"
)

// auditLogger wraps slog.Logger for structured audit logging of account
// and content changes.
type auditLogger struct {
	logger *slog.Logger
	now    func() time.Time
}

func newAuditLogger(logger *slog.Logger) *auditLogger {
	return &auditLogger{
		logger: logger.With("component", "audit"),
		now:    time.Now,
	}
}

func (al *auditLogger) log(event AuditEvent, r *http.Request, attrs ...slog.Attr) {
	base := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("timestamp", al.now().UTC().Format(time.RFC3339)),
	}
	al.logger.LogAttrs(r.Context(), slog.LevelInfo, "audit", append(base, attrs...)...)
}

// logEvent records an action taken by userID.
func (al *auditLogger) logEvent(event AuditEvent, r *http.Request, userID string, extra ...slog.Attr) {
	al.log(event, r, append([]slog.Attr{slog.String("user_id", userID)}, extra...)...)
}

// logFailure records a rejected attempt. The reason must not contain
// credentials.
func (al *auditLogger) logFailure(event AuditEvent, r *http.Request, reason string, extra ...slog.Attr) {
	al.log(event, r, append([]slog.Attr{slog.String("reason", reason)}, extra...)...)
}
