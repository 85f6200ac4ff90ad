package authcore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/MrEthical07/authcore/otp"
	"github.com/MrEthical07/authcore/password"
)

// ForgotPassword sends a FORGOT_PASSWORD code to a verified, active account.
func (e *Engine) ForgotPassword(ctx context.Context, email string) error {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	p, err := e.issueCode(ctx, email, otp.PurposeForgotPassword)
	e.metricInc(MetricPasswordResetRequest)
	e.emitAudit(ctx, auditEventPasswordResetRequest, err == nil, p.ID, err, nil)
	return err
}

// ResetPassword redeems a FORGOT_PASSWORD code and replaces the password.
// Unverified and inactive accounts are refused before the code is touched.
// The refresh pin is removed afterwards so existing sessions cannot be
// continued with the old refresh token.
func (e *Engine) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	start := time.Now()
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" {
		return e.resetFailed(ctx, "", validationError(msgEmailRequired))
	}
	if code == "" {
		return e.resetFailed(ctx, "", validationError(msgCodeRequired))
	}
	if err := e.checkPassword(newPassword); err != nil {
		return e.resetFailed(ctx, "", err)
	}

	// Hash before redeeming so an unusable password does not burn the code.
	hash, err := e.hasher.Hash(newPassword)
	if errors.Is(err, password.ErrTooLong) {
		return e.resetFailed(ctx, "", validationError(msgPasswordTooLong))
	}
	if err != nil {
		return e.resetFailed(ctx, "", internalError(err))
	}

	p, err := e.lookup(ctx, email)
	if errors.Is(err, ErrPrincipalNotFound) {
		e.burnCodeCheck(ctx, code, otp.PurposeForgotPassword)
		return e.padUnauthorized(start, e.resetFailed(ctx, "", newError(KindUnauthorized, msgInvalidCode, err)))
	}
	if err != nil {
		return e.resetFailed(ctx, "", e.verifyFailure(ctx, msgInvalidCode, err))
	}
	// Checked before redemption so a rejected account keeps its code.
	if !p.Verified {
		return e.padUnauthorized(start, e.resetFailed(ctx, p.ID, newError(KindUnauthorized, msgInvalidCode, nil)))
	}
	if !p.Active {
		return e.resetFailed(ctx, p.ID, newError(KindForbidden, msgInactiveAccount, nil))
	}

	if err := e.codes.ValidateFor(ctx, p.ID, code, otp.PurposeForgotPassword); err != nil {
		var out *Error
		if errors.Is(err, otp.ErrInvalidCode) {
			out = newError(KindUnauthorized, msgInvalidCode, err)
		} else {
			out = e.verifyFailure(ctx, msgInvalidCode, err)
		}
		return e.padUnauthorized(start, e.resetFailed(ctx, p.ID, out))
	}

	if err := e.users.UpdatePassword(ctx, p.ID, hash); err != nil {
		return e.resetFailed(ctx, p.ID, e.writeFailure(fmt.Errorf("%w: %v", errDirectoryUnavailable, err)))
	}
	if err := e.tokens.RevokeSession(ctx, p.ID); err != nil {
		e.metricInc(MetricStoreUnavailable)
		log.Printf("authcore: session revoke after password reset failed for principal %s: %v", p.ID, err)
	}

	e.metricInc(MetricPasswordResetSuccess)
	e.emitAudit(ctx, auditEventPasswordResetConfirm, true, p.ID, nil, nil)
	return nil
}

func (e *Engine) resetFailed(ctx context.Context, principalID string, err *Error) error {
	e.metricInc(MetricPasswordResetFailure)
	e.emitAudit(ctx, auditEventPasswordResetConfirm, false, principalID, err, nil)
	return err
}
