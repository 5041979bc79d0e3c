package api

import (
	"log/slog"
	"net/http"
	"time"
)

// AuditEvent identifies the type of security-relevant action being logged.
type AuditEvent string

const (
	AuditTokenIssued       AuditEvent = "token_issued"
	AuditTokenIssueDenied  AuditEvent = "token_issue_denied"
	AuditSessionBootstrap  AuditEvent = "session_bootstrap"
	AuditSessionRedirect   AuditEvent = "session_redirect"
	AuditSessionFailure    AuditEvent = "session_failure"
	AuditAuthFailure       AuditEvent = "auth_failure"
	AuditWPLoginSuccess    AuditEvent = "wp_login_success"
	AuditWPLoginFailure    AuditEvent = "wp_login_failure"
	AuditShopProvisioned   AuditEvent = "shop_provisioned"
	AuditCleanupRun        AuditEvent = "cleanup_run"
	AuditCleanupFailure    AuditEvent = "cleanup_failure"
	AuditReviewSubmitted   AuditEvent = "review_submitted"
	AuditReviewModerated   AuditEvent = "review_moderated"
	AuditModerationDenied  AuditEvent = "moderation_denied"
)

// auditLogger wraps slog.Logger for structured security audit logging.
type auditLogger struct {
	logger *slog.Logger
}

func newAuditLogger(logger *slog.Logger) *auditLogger {
	return &auditLogger{
		logger: logger.With("component", "audit"),
	}
}

// log writes a structured audit log entry. Shop ids are safe for logs;
// api keys and raw tokens never are.
func (al *auditLogger) log(event AuditEvent, r *http.Request, attrs ...slog.Attr) {
	baseAttrs := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	baseAttrs = append(baseAttrs, attrs...)
	al.logger.LogAttrs(r.Context(), slog.LevelInfo, "audit", baseAttrs...)
}

// logEvent is a convenience for events scoped to a shop.
func (al *auditLogger) logEvent(event AuditEvent, r *http.Request, shopID string, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("shop_id", shopID),
	}
	attrs = append(attrs, extra...)
	al.log(event, r, attrs...)
}

// logFailure logs a failed verification or denied action.
func (al *auditLogger) logFailure(event AuditEvent, r *http.Request, reason string, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("reason", reason),
	}
	attrs = append(attrs, extra...)
	al.log(event, r, attrs...)
}

// logError logs an internal error loudly, server-side only.
func (al *auditLogger) logError(event AuditEvent, r *http.Request, err error) {
	al.log(event, r, slog.String("error", err.Error()))
}
