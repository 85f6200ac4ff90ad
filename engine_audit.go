package authcore

import (
	"context"
	"strings"
	"time"
)

const (
	auditEventRegisterSuccess      = "register_success"
	auditEventRegisterFailure      = "register_failure"
	auditEventRegisterRollback     = "register_rollback"
	auditEventLoginSuccess         = "login_success"
	auditEventLoginFailure         = "login_failure"
	auditEventLoginOTPRequest      = "login_otp_request"
	auditEventRefreshSuccess       = "refresh_success"
	auditEventRefreshInvalid       = "refresh_invalid"
	auditEventLogout               = "logout"
	auditEventLogoutMismatch       = "logout_mismatch"
	auditEventPasswordResetRequest = "password_reset_request"
	auditEventPasswordResetConfirm = "password_reset_confirm"
	auditEventVerifyAccount        = "verify_account"
)

// auditErrorCode is the machine-readable failure reason of an event.
func auditErrorCode(err error) string {
	if err == nil {
		return ""
	}
	return strings.ToLower(string(KindOf(err)))
}

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	principalID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	e.audit.Emit(ctx, AuditEvent{
		Timestamp:   time.Now().UTC(),
		EventType:   eventType,
		PrincipalID: principalID,
		IP:          ClientIPFromContext(ctx),
		Success:     success,
		Error:       auditErrorCode(err),
		Metadata:    metadata,
	})
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}
